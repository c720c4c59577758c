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

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }

func TestVerdict_UnmarshalMixedMetadata(t *testing.T) {
	raw := `{"score":0.5,"metadata":["unknown label Foo",{"property":"nme","label":"Person"},3]}`

	var v Verdict
	require.NoError(t, json.Unmarshal([]byte(raw), &v))

	assert.Nil(t, v.IsValid)
	require.NotNil(t, v.Score)
	assert.Equal(t, 0.5, *v.Score)
	require.Len(t, v.Metadata, 3)
	assert.Equal(t, "unknown label Foo", v.Metadata[0].String())
	assert.Equal(t, "{label=Person, property=nme}", v.Metadata[1].String())
	assert.Equal(t, "3", v.Metadata[2].String())
}

func TestVerdict_UnmarshalAbsentFields(t *testing.T) {
	var v Verdict
	require.NoError(t, json.Unmarshal([]byte(`{"metadata":null}`), &v))
	assert.Nil(t, v.IsValid)
	assert.Nil(t, v.Score)
	assert.False(t, v.HasDiagnostics())
}

func TestDiagnostic_String(t *testing.T) {
	tests := []struct {
		name string
		diag Diagnostic
		want string
	}{
		{"bare string", Diagnostic{Text: "missing RETURN"}, "missing RETURN"},
		{"empty record", Diagnostic{Fields: map[string]any{}}, "{}"},
		{"sorted keys", Diagnostic{Fields: map[string]any{"z": 1, "a": "x"}}, "{a=x, z=1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.diag.String())
		})
	}
}

func TestReport_Verdicts(t *testing.T) {
	r := Report{Syntax: &Verdict{Kind: KindSyntax}, Properties: &Verdict{Kind: KindProperties}}
	got := r.Verdicts()
	require.Len(t, got, 2)
	assert.Equal(t, KindSyntax, got[0].Kind)
	assert.Equal(t, KindProperties, got[1].Kind)
}
