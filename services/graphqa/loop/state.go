// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package loop

import (
	"errors"
	"fmt"
)

// State is a state of the draft, validate, repair loop.
type State string

const (
	// StateDrafted holds the first candidate before validation.
	StateDrafted State = "DRAFTED"

	// StateValidating runs the validators against the current candidate.
	StateValidating State = "VALIDATING"

	// StateAccepted means the candidate passed every check.
	StateAccepted State = "ACCEPTED"

	// StateRejected means at least one check failed.
	StateRejected State = "REJECTED"

	// StateRepairing asks the drafter for a corrected candidate.
	StateRepairing State = "REPAIRING"

	// StateAbandoned is imposed from outside the happy path: the iteration
	// budget ran out or the context was cancelled.
	StateAbandoned State = "ABANDONED"
)

// ErrInvalidTransition is returned for transitions the loop never makes.
var ErrInvalidTransition = errors.New("invalid state transition")

func (s State) String() string {
	return string(s)
}

// IsTerminal returns true for ACCEPTED and ABANDONED.
func (s State) IsTerminal() bool {
	return s == StateAccepted || s == StateAbandoned
}

// AllStates returns every loop state.
func AllStates() []State {
	return []State{
		StateDrafted,
		StateValidating,
		StateAccepted,
		StateRejected,
		StateRepairing,
		StateAbandoned,
	}
}

// StateMachine holds the valid transitions of the loop.
type StateMachine struct {
	transitions map[State][]State
}

// NewStateMachine returns the loop's transition table.
func NewStateMachine() *StateMachine {
	return &StateMachine{transitions: map[State][]State{
		StateDrafted:    {StateValidating, StateAbandoned},
		StateValidating: {StateAccepted, StateRejected, StateAbandoned},
		StateRejected:   {StateRepairing, StateAbandoned},
		StateRepairing:  {StateValidating, StateAbandoned},
	}}
}

// CanTransition reports whether from -> to is allowed.
func (m *StateMachine) CanTransition(from, to State) bool {
	for _, s := range m.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidTransitions returns the states reachable from s.
func (m *StateMachine) ValidTransitions(s State) []State {
	out := make([]State, len(m.transitions[s]))
	copy(out, m.transitions[s])
	return out
}

// Transition is one recorded state change.
type Transition struct {
	From   State  `json:"from"`
	To     State  `json:"to"`
	Reason string `json:"reason,omitempty"`
}

// tracker follows one run through the state machine.
type tracker struct {
	sm      *StateMachine
	current State
	trail   []Transition
	hook    func(Transition)
}

func newTracker(sm *StateMachine, hook func(Transition)) *tracker {
	return &tracker{sm: sm, current: StateDrafted, hook: hook}
}

func (t *tracker) to(next State, reason string) error {
	if !t.sm.CanTransition(t.current, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.current, next)
	}
	tr := Transition{From: t.current, To: next, Reason: reason}
	t.trail = append(t.trail, tr)
	t.current = next
	if t.hook != nil {
		t.hook(tr)
	}
	return nil
}
