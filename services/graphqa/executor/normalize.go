// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package executor

import (
	"fmt"
	"math"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Normalize converts a driver value into plain data. Nodes and
// relationships become their property maps, paths become
// {"nodes": [...], "relationships": [...]}, temporal and spatial values
// become their string form, and lists and maps are normalized
// recursively. NaN and infinite floats become "NaN", "Infinity" and
// "-Infinity" so rows always encode as JSON. Other scalars pass through. Normalize(Normalize(v)) equals
// Normalize(v).
func Normalize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case dbtype.Node:
		return normalizeMap(val.Props)
	case *dbtype.Node:
		if val == nil {
			return nil
		}
		return normalizeMap(val.Props)
	case dbtype.Relationship:
		return normalizeMap(val.Props)
	case *dbtype.Relationship:
		if val == nil {
			return nil
		}
		return normalizeMap(val.Props)
	case dbtype.Path:
		return normalizePath(val)
	case *dbtype.Path:
		if val == nil {
			return nil
		}
		return normalizePath(*val)
	case map[string]any:
		return normalizeMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Normalize(item)
		}
		return out
	case float64:
		return normalizeFloat(val)
	case float32:
		return normalizeFloat(float64(val))
	case dbtype.Date, dbtype.LocalTime, dbtype.LocalDateTime, dbtype.Time,
		dbtype.Duration, dbtype.Point2D, dbtype.Point3D:
		return fmt.Sprint(val)
	default:
		return val
	}
}

// NormalizeRow normalizes every cell of a result row.
func NormalizeRow(row map[string]any) map[string]any {
	return normalizeMap(row)
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Normalize(v)
	}
	return out
}

func normalizeFloat(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	default:
		return f
	}
}

func normalizePath(p dbtype.Path) map[string]any {
	nodes := make([]any, len(p.Nodes))
	for i, n := range p.Nodes {
		nodes[i] = normalizeMap(n.Props)
	}
	rels := make([]any, len(p.Relationships))
	for i, r := range p.Relationships {
		rels[i] = normalizeMap(r.Props)
	}
	return map[string]any{"nodes": nodes, "relationships": rels}
}
