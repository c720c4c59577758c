// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

// Passes applies the acceptance policy to a report. Checks run in order and
// each is independently sufficient to fail.
func Passes(r Report) bool {
	if r.Syntax.Invalid() {
		return false
	}
	if r.Schema.ScoreBelowPerfect() || r.Schema.HasDiagnostics() {
		return false
	}
	if r.Properties.ScoreBelowPerfect() || r.Properties.HasDiagnostics() {
		return false
	}
	return true
}

// dimensionPasses applies the same policy to a single verdict.
func dimensionPasses(k Kind, v *Verdict) bool {
	if v == nil {
		return true
	}
	if k == KindSyntax {
		return !v.Invalid()
	}
	return !v.ScoreBelowPerfect() && !v.HasDiagnostics()
}

type dimension struct {
	kind    Kind
	verdict *Verdict
}

func (r Report) dimensions() []dimension {
	return []dimension{
		{KindSyntax, r.Syntax},
		{KindSchema, r.Schema},
		{KindProperties, r.Properties},
	}
}
