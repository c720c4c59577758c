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
	"fmt"
	"strings"
)

const (
	syntaxLabel     = "Syntax Validation Result: "
	schemaLabel     = "Schema Validation Result: "
	propertiesLabel = "Properties Validation Metadata: "
)

// Feedback renders a rejected report as repair instructions for the
// drafter. Each present verdict with diagnostics contributes a labeled
// section listing them, each followed by "; ", ending with a newline.
// A failing verdict without diagnostics contributes a summary line instead,
// so a rejected report never yields empty feedback.
func Feedback(r Report) string {
	var b strings.Builder
	for _, d := range r.dimensions() {
		v := d.verdict
		switch {
		case v == nil || dimensionPasses(d.kind, v) && !v.HasDiagnostics():
		case v.HasDiagnostics():
			writeSection(&b, labelFor(d.kind), v.Metadata)
		case d.kind == KindSyntax:
			b.WriteString(syntaxLabel + "query is not valid Cypher; \n")
		case v.Score != nil:
			fmt.Fprintf(&b, "%sscore %.2f is below 1.0; \n", labelFor(d.kind), *v.Score)
		}
	}
	return b.String()
}

func writeSection(b *strings.Builder, label string, diags []Diagnostic) {
	b.WriteString(label)
	for _, d := range diags {
		b.WriteString(d.String())
		b.WriteString("; ")
	}
	b.WriteString("\n")
}

func labelFor(k Kind) string {
	switch k {
	case KindSchema:
		return schemaLabel
	case KindProperties:
		return propertiesLabel
	default:
		return syntaxLabel
	}
}
