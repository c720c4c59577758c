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
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queryArgs struct {
	Query string `json:"query"`
}

// startCyver runs an in-memory MCP server exposing a syntax validator that
// rejects any query without a MATCH clause.
func startCyver(t *testing.T, caller *MCPCaller) {
	t.Helper()
	ctx := context.Background()

	server := mcp.NewServer(&mcp.Implementation{Name: "cyver", Version: "test"}, nil)
	mcp.AddTool(server, &mcp.Tool{Name: "validate_cypher_syntax", Description: "syntax check"},
		func(ctx context.Context, req *mcp.CallToolRequest, in queryArgs) (*mcp.CallToolResult, any, error) {
			text := `{"isValid":true,"metadata":[]}`
			if len(in.Query) < 5 || in.Query[:5] != "MATCH" {
				text = `{"isValid":false,"metadata":[{"message":"expected MATCH"}]}`
			}
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil, nil
		})
	mcp.AddTool(server, &mcp.Tool{Name: "broken", Description: "always fails"},
		func(ctx context.Context, req *mcp.CallToolRequest, in queryArgs) (*mcp.CallToolResult, any, error) {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: "validator offline"}},
			}, nil, nil
		})

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	require.NoError(t, caller.Attach(ctx, "cyver", clientTransport))
}

func TestMCPCaller_CallAndDecode(t *testing.T) {
	caller := NewMCPCaller("test", 5*time.Second)
	t.Cleanup(func() { _ = caller.Close() })
	startCyver(t, caller)

	payload, err := caller.Call(context.Background(), syntaxRef, map[string]any{"query": "RETURN 1"})
	require.NoError(t, err)

	var verdict struct {
		IsValid *bool `json:"isValid"`
	}
	require.NoError(t, Decode(syntaxRef, payload, &verdict))
	require.NotNil(t, verdict.IsValid)
	assert.False(t, *verdict.IsValid)

	payload, err = caller.Call(context.Background(), syntaxRef, map[string]any{"query": "MATCH (n) RETURN n"})
	require.NoError(t, err)
	require.NoError(t, Decode(syntaxRef, payload, &verdict))
	assert.True(t, *verdict.IsValid)
}

func TestMCPCaller_ListToolsAndBind(t *testing.T) {
	caller := NewMCPCaller("test", 0)
	t.Cleanup(func() { _ = caller.Close() })
	startCyver(t, caller)

	names, err := caller.ListTools(context.Background(), "cyver")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"validate_cypher_syntax", "broken"}, names)

	require.NoError(t, Bind(context.Background(), caller, syntaxRef))
	err = Bind(context.Background(), caller, Ref{Server: "cyver", Tool: "schema_validator"})
	assert.ErrorIs(t, err, ErrCapabilityNotFound)
}

func TestMCPCaller_Errors(t *testing.T) {
	caller := NewMCPCaller("test", 0)
	t.Cleanup(func() { _ = caller.Close() })
	startCyver(t, caller)

	_, err := caller.Call(context.Background(), Ref{Server: "neo4j", Tool: "get_neo4j_schema"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapabilityNotFound)

	_, err = caller.Call(context.Background(), Ref{Server: "cyver", Tool: "broken"}, map[string]any{"query": "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCallFailed)
	assert.Contains(t, err.Error(), "validator offline")

	var toolErr *Error
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, StageCall, toolErr.Stage)
}
