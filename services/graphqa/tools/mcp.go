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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("aleutian.graphqa.tools")

// ServerConfig describes how to reach one MCP server.
type ServerConfig struct {
	// Name is the server name used in tool refs (e.g. "cyver").
	Name string `yaml:"name" validate:"required"`

	// Transport is "command" (stdio subprocess) or "http" (streamable HTTP).
	Transport string `yaml:"transport" validate:"required,oneof=command http"`

	// Command is the argv for the command transport.
	Command []string `yaml:"command" validate:"required_if=Transport command"`

	// Env is appended to the subprocess environment (KEY=VALUE).
	Env []string `yaml:"env"`

	// URL is the endpoint for the http transport.
	URL string `yaml:"url" validate:"required_if=Transport http"`
}

// MCPCaller implements Caller and Lister over MCP client sessions.
//
// Thread Safety: Safe for concurrent use. Sessions are added during
// startup and read afterwards.
type MCPCaller struct {
	client  *mcp.Client
	timeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*mcp.ClientSession
}

// NewMCPCaller creates a caller with no connected servers.
//
// # Inputs
//
//   - version: Client version reported to servers.
//   - timeout: Per-call timeout. Zero disables it.
func NewMCPCaller(version string, timeout time.Duration) *MCPCaller {
	return &MCPCaller{
		client:   mcp.NewClient(&mcp.Implementation{Name: "aleutian-graphqa", Version: version}, nil),
		timeout:  timeout,
		sessions: make(map[string]*mcp.ClientSession),
	}
}

// Connect starts a session with the configured server.
func (c *MCPCaller) Connect(ctx context.Context, cfg ServerConfig) error {
	var transport mcp.Transport
	switch cfg.Transport {
	case "command":
		if len(cfg.Command) == 0 {
			return fmt.Errorf("server %q: command transport needs a command", cfg.Name)
		}
		cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
		cmd.Env = append(os.Environ(), cfg.Env...)
		transport = &mcp.CommandTransport{Command: cmd}
	case "http":
		transport = &mcp.StreamableClientTransport{Endpoint: cfg.URL}
	default:
		return fmt.Errorf("server %q: unsupported transport %q", cfg.Name, cfg.Transport)
	}
	return c.Attach(ctx, cfg.Name, transport)
}

// Attach connects over an already-built transport and registers the
// session under name.
func (c *MCPCaller) Attach(ctx context.Context, name string, transport mcp.Transport) error {
	session, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connect to MCP server %q: %w", name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.sessions[name]; ok {
		_ = old.Close()
	}
	c.sessions[name] = session
	slog.Info("Connected MCP server", slog.String("server", name))
	return nil
}

// Call implements Caller.
func (c *MCPCaller) Call(ctx context.Context, ref Ref, args map[string]any) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "MCPCaller.Call")
	defer span.End()
	span.SetAttributes(
		attribute.String("mcp.server", ref.Server),
		attribute.String("mcp.tool", ref.Tool),
	)

	session, err := c.session(ref)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if args == nil {
		args = map[string]any{}
	}
	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: ref.Tool, Arguments: args})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, newError(StageCall, ref, ErrCallFailed, err)
	}
	if res.IsError {
		err := errors.New(contentText(res.Content))
		span.SetStatus(codes.Error, err.Error())
		return nil, newError(StageCall, ref, ErrCallFailed, err)
	}

	payload, err := json.Marshal(res.Content)
	if err != nil {
		return nil, newError(StageEnvelope, ref, ErrEnvelopeDecode, err)
	}
	return payload, nil
}

// ListTools implements Lister.
func (c *MCPCaller) ListTools(ctx context.Context, server string) ([]string, error) {
	ref := Ref{Server: server, Tool: "*"}
	session, err := c.session(ref)
	if err != nil {
		return nil, err
	}

	var names []string
	params := &mcp.ListToolsParams{}
	for {
		res, err := session.ListTools(ctx, params)
		if err != nil {
			return nil, newError(StageBind, ref, ErrCallFailed, err)
		}
		for _, tool := range res.Tools {
			names = append(names, tool.Name)
		}
		if res.NextCursor == "" {
			return names, nil
		}
		params = &mcp.ListToolsParams{Cursor: res.NextCursor}
	}
}

// Close ends every session.
func (c *MCPCaller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for name, session := range c.sessions {
		if err := session.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		delete(c.sessions, name)
	}
	return errors.Join(errs...)
}

func (c *MCPCaller) session(ref Ref) (*mcp.ClientSession, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	session, ok := c.sessions[ref.Server]
	if !ok {
		return nil, newError(StageCall, ref, ErrCapabilityNotFound,
			fmt.Errorf("no MCP server named %q is connected", ref.Server))
	}
	return session, nil
}

func contentText(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		if text, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	if len(parts) == 0 {
		return "tool reported an error"
	}
	return strings.Join(parts, "; ")
}
