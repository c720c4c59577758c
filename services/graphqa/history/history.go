// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history keeps the ordered, append-only log of candidate queries
// produced during one question-answering run.
package history

import "sync"

// AttemptHistory is an append-only sequence of candidate query texts.
// Readers may call All while a writer is recording.
type AttemptHistory struct {
	mu       sync.RWMutex
	attempts []string
}

// New returns an empty history.
func New() *AttemptHistory {
	return &AttemptHistory{}
}

// Record appends a candidate.
func (h *AttemptHistory) Record(candidate string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attempts = append(h.attempts, candidate)
}

// All returns a copy of every recorded candidate in recording order.
func (h *AttemptHistory) All() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, len(h.attempts))
	copy(out, h.attempts)
	return out
}

// Len returns the number of recorded candidates.
func (h *AttemptHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.attempts)
}

// Last returns the most recent candidate, if any.
func (h *AttemptHistory) Last() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.attempts) == 0 {
		return "", false
	}
	return h.attempts[len(h.attempts)-1], true
}
