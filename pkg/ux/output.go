// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Aleutian color palette
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Muted    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Code     lipgloss.Style

	Box      lipgloss.Style
	ErrorBox lipgloss.Style
}{
	Title:    lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Subtitle: lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Muted:    lipgloss.NewStyle().Foreground(ColorSlate),
	Success:  lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:  lipgloss.NewStyle().Foreground(ColorWarning),
	Error:    lipgloss.NewStyle().Foreground(ColorError),
	Code:     lipgloss.NewStyle().Foreground(ColorTealPrimary),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return string(i)
	}
}

// Printer writes leveled output to one writer.
type Printer struct {
	w     io.Writer
	level Level
}

func NewPrinter(w io.Writer, level Level) *Printer {
	return &Printer{w: w, level: level}
}

func (p *Printer) Level() Level { return p.level }

// Title prints a styled title. Machine output omits it.
func (p *Printer) Title(text string) {
	switch p.level {
	case LevelMachine:
	case LevelPlain:
		fmt.Fprintln(p.w, text)
	default:
		fmt.Fprintln(p.w, Styles.Title.Render(text))
	}
}

// Field prints a labelled value.
func (p *Printer) Field(label, value string) {
	switch p.level {
	case LevelRich:
		fmt.Fprintf(p.w, "%s %s\n", Styles.Muted.Render(label+":"), value)
	default:
		fmt.Fprintf(p.w, "%s: %s\n", label, value)
	}
}

// Success prints a success message with checkmark
func (p *Printer) Success(text string) {
	switch p.level {
	case LevelMachine:
		fmt.Fprintf(p.w, "OK: %s\n", text)
	case LevelPlain:
		fmt.Fprintf(p.w, "%s %s\n", IconSuccess, text)
	default:
		fmt.Fprintf(p.w, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
	}
}

// Error prints an error message
func (p *Printer) Error(text string) {
	switch p.level {
	case LevelMachine:
		fmt.Fprintf(p.w, "ERROR: %s\n", text)
	case LevelPlain:
		fmt.Fprintf(p.w, "%s %s\n", IconError, text)
	default:
		fmt.Fprintf(p.w, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
	}
}

// Box prints content in a rounded box under title.
func (p *Printer) Box(title, content string) {
	if p.level != LevelRich {
		fmt.Fprintf(p.w, "%s:\n%s\n", title, content)
		return
	}
	fmt.Fprintln(p.w, Styles.Box.Width(72).Render(Styles.Title.Render(title)+"\n"+content))
}

// List prints numbered items, as used for attempt histories.
func (p *Printer) List(title string, items []string) {
	p.Title(title)
	for i, item := range items {
		switch p.level {
		case LevelRich:
			fmt.Fprintf(p.w, "  %s %s\n", Styles.Muted.Render(fmt.Sprintf("%d.", i+1)), Styles.Code.Render(item))
		default:
			fmt.Fprintf(p.w, "%d. %s\n", i+1, item)
		}
	}
}
