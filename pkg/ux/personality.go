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
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Level controls how much styling CLI output carries.
type Level string

const (
	// LevelRich uses colors, icons and boxes.
	LevelRich Level = "rich"

	// LevelPlain uses icons but no boxes or colors.
	LevelPlain Level = "plain"

	// LevelMachine prints stable, unstyled key: value lines for scripts.
	LevelMachine Level = "machine"
)

// ParseLevel converts a flag or env value. Unknown values map to LevelRich.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plain", "minimal", "min":
		return LevelPlain
	case "machine", "quiet", "q":
		return LevelMachine
	default:
		return LevelRich
	}
}

// DetectLevel honors GRAPHQA_OUTPUT and falls back to LevelMachine when w
// is not a terminal.
func DetectLevel(w io.Writer, getenv func(string) string) Level {
	if v := getenv("GRAPHQA_OUTPUT"); v != "" {
		return ParseLevel(v)
	}
	if !IsTerminal(w) {
		return LevelMachine
	}
	return LevelRich
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
