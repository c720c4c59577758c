// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// Ref names a tool on a server, e.g. cyver/validate_cypher_syntax.
type Ref struct {
	Server string `yaml:"server" json:"server" validate:"required"`
	Tool   string `yaml:"tool" json:"tool" validate:"required"`
}

// String returns "server/tool".
func (r Ref) String() string {
	return r.Server + "/" + r.Tool
}

// Caller invokes a named tool and returns its raw result envelope.
//
// The returned bytes are the JSON encoding of the tool's content array,
// e.g. [{"type":"text","text":"{\"isValid\":true}"}].
type Caller interface {
	Call(ctx context.Context, ref Ref, args map[string]any) ([]byte, error)
}

// Lister enumerates the tools a server exposes.
type Lister interface {
	ListTools(ctx context.Context, server string) ([]string, error)
}

// Bind checks that every ref resolves to an existing tool.
//
// # Description
//
// Tool discovery happens once, before any run starts, so a missing
// validator is a startup failure rather than a mid-run surprise. Each
// server is listed at most once.
//
// # Inputs
//
//   - ctx: Context for the listing calls.
//   - lister: Source of tool names per server.
//   - refs: Tool references to resolve.
//
// # Outputs
//
//   - error: *Error with Kind ErrCapabilityNotFound for the first missing
//     server or tool, or ErrCallFailed if a listing call fails.
func Bind(ctx context.Context, lister Lister, refs ...Ref) error {
	listed := make(map[string][]string)
	for _, ref := range refs {
		names, ok := listed[ref.Server]
		if !ok {
			var err error
			names, err = lister.ListTools(ctx, ref.Server)
			if err != nil {
				return err
			}
			listed[ref.Server] = names
		}
		if !slices.Contains(names, ref.Tool) {
			return newError(StageBind, ref, ErrCapabilityNotFound,
				fmt.Errorf("server %q exposes %d tools, none named %q", ref.Server, len(names), ref.Tool))
		}
		slog.Debug("Bound tool", slog.String("tool", ref.String()))
	}
	return nil
}
