// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation merges the verdicts of the syntax, schema and
// properties validators into a single report and decides whether a
// candidate query is clean enough to execute.
//
// A report is rejected when any present verdict carries a failing signal.
// Syntax verdicts fail on an explicit isValid=false. Schema and properties
// verdicts fail on a score below 1.0 or on any diagnostic metadata, even
// alongside a perfect score. Absent verdicts pass.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Kind identifies which validator produced a verdict.
type Kind string

const (
	KindSyntax     Kind = "syntax"
	KindSchema     Kind = "schema"
	KindProperties Kind = "properties"
)

// Verdict is the decoded result of one validator call.
type Verdict struct {
	Kind Kind `json:"kind"`

	// IsValid is nil when the validator did not evaluate validity.
	IsValid *bool `json:"isValid,omitempty"`

	// Score is nil when absent; otherwise in [0,1].
	Score *float64 `json:"score,omitempty"`

	Metadata []Diagnostic `json:"metadata,omitempty"`
}

// Invalid reports whether the verdict explicitly marks the query invalid.
func (v *Verdict) Invalid() bool {
	return v != nil && v.IsValid != nil && !*v.IsValid
}

// ScoreBelowPerfect reports whether a score is present and below 1.0.
func (v *Verdict) ScoreBelowPerfect() bool {
	return v != nil && v.Score != nil && *v.Score < 1.0
}

// HasDiagnostics reports whether the verdict carries any metadata.
func (v *Verdict) HasDiagnostics() bool {
	return v != nil && len(v.Metadata) > 0
}

// Diagnostic is one metadata record. Validators emit either bare strings
// or key/value objects; exactly one of Text or Fields is set.
type Diagnostic struct {
	Text   string
	Fields map[string]any
}

// String renders bare-string diagnostics verbatim and key/value records as
// {k1=v1, k2=v2} with sorted keys.
func (d Diagnostic) String() string {
	if d.Fields == nil {
		return d.Text
	}
	keys := make([]string, 0, len(d.Fields))
	for k := range d.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", k, d.Fields[k])
	}
	b.WriteByte('}')
	return b.String()
}

func (d *Diagnostic) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0:
		return nil
	case data[0] == '"':
		return json.Unmarshal(data, &d.Text)
	case data[0] == '{':
		fields := map[string]any{}
		if err := json.Unmarshal(data, &fields); err != nil {
			return err
		}
		d.Fields = fields
		return nil
	default:
		// Numbers, booleans and arrays are kept as their JSON text.
		d.Text = string(data)
		return nil
	}
}

func (d Diagnostic) MarshalJSON() ([]byte, error) {
	if d.Fields != nil {
		return json.Marshal(d.Fields)
	}
	return json.Marshal(d.Text)
}

// Report aggregates up to three verdicts. Schema and Properties are nil
// when syntax failed.
type Report struct {
	Syntax     *Verdict `json:"syntax,omitempty"`
	Schema     *Verdict `json:"schema,omitempty"`
	Properties *Verdict `json:"properties,omitempty"`
}

// Verdicts returns the present verdicts in syntax, schema, properties order.
func (r Report) Verdicts() []*Verdict {
	out := make([]*Verdict, 0, 3)
	for _, v := range []*Verdict{r.Syntax, r.Schema, r.Properties} {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}
