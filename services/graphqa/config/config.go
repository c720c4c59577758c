// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the GraphQA configuration from YAML, applies
// environment overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/graphstore"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/tools"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "graphqa.yaml"

type Config struct {
	LLM       LLMConfig         `yaml:"llm"`
	MCP       MCPConfig         `yaml:"mcp"`
	Tools     ToolsConfig       `yaml:"tools"`
	Neo4j     graphstore.Config `yaml:"neo4j"`
	Loop      LoopConfig        `yaml:"loop"`
	Schema    SchemaConfig      `yaml:"schema"`
	Journal   JournalConfig     `yaml:"journal"`
	Server    ServerConfig      `yaml:"server"`
	Telemetry TelemetryConfig   `yaml:"telemetry"`
	Log       LogConfig         `yaml:"log"`

	// Secrets are never read from YAML; see LoadSecrets.
	Secrets Secrets `yaml:"-"`
}

type LLMConfig struct {
	Backend string `yaml:"backend" validate:"oneof=openai ollama anthropic"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`

	// Provider labels an OpenAI-compatible provider in logs and spans.
	Provider string `yaml:"provider"`

	Temperature       *float32      `yaml:"temperature" validate:"omitempty,gte=0,lte=2"`
	MaxTokens         *int          `yaml:"max_tokens" validate:"omitempty,gt=0"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int           `yaml:"burst" validate:"gte=0"`
}

type MCPConfig struct {
	Servers     []tools.ServerConfig `yaml:"servers" validate:"dive"`
	CallTimeout time.Duration        `yaml:"call_timeout"`
}

// ToolsConfig binds each capability to a server and tool name.
type ToolsConfig struct {
	Schema          tools.Ref `yaml:"schema"`
	Syntax          tools.Ref `yaml:"syntax"`
	SchemaValidator tools.Ref `yaml:"schema_validator"`
	Properties      tools.Ref `yaml:"properties"`
}

// Refs returns every bound tool.
func (t ToolsConfig) Refs() []tools.Ref {
	return []tools.Ref{t.Schema, t.Syntax, t.SchemaValidator, t.Properties}
}

type LoopConfig struct {
	// MaxIterations bounds validation rounds. Zero means unbounded.
	MaxIterations      int  `yaml:"max_iterations" validate:"gte=0"`
	RowLimit           int  `yaml:"row_limit" validate:"gt=0"`
	ParallelValidators bool `yaml:"parallel_validators"`
}

type SchemaConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl" validate:"gte=0"`
}

type JournalConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Path     string `yaml:"path" validate:"required_if=Enabled true InMemory false"`
	InMemory bool   `yaml:"in_memory"`
}

type ServerConfig struct {
	Port int `yaml:"port" validate:"min=1,max=65535"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Stdout       bool   `yaml:"stdout"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// Default returns a configuration wired for the cyver validators and the
// mcp-neo4j-cypher introspection server.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Backend: "openai",
			Timeout: 2 * time.Minute,
		},
		MCP: MCPConfig{CallTimeout: 30 * time.Second},
		Tools: ToolsConfig{
			Schema:          tools.Ref{Server: "mcp-neo4j-cypher", Tool: "get_neo4j_schema"},
			Syntax:          tools.Ref{Server: "cyver", Tool: "validate_cypher_syntax"},
			SchemaValidator: tools.Ref{Server: "cyver", Tool: "schema_validator"},
			Properties:      tools.Ref{Server: "cyver", Tool: "validate_cypher_properties"},
		},
		Neo4j: graphstore.DefaultConfig(),
		Loop: LoopConfig{
			MaxIterations: 10,
			RowLimit:      20,
		},
		Schema:  SchemaConfig{CacheTTL: 5 * time.Minute},
		Journal: JournalConfig{Path: "~/.aleutian/graphqa/journal"},
		Server:  ServerConfig{Port: 12230},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates. A missing file at DefaultPath is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		slog.Debug("No config file found, using defaults", "path", path)
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := ApplyEnv(&cfg, os.Getenv); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints.
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ApplyEnv overrides cfg from GRAPHQA_* variables and the CUSTOM_MODEL_*
// variables used for OpenAI-compatible providers.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	flag := func(key string, dst *bool) error {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}

	if getenv("CUSTOM_MODEL_NAME") != "" {
		cfg.LLM.Backend = "openai"
	}
	str("CUSTOM_MODEL_NAME", &cfg.LLM.Model)
	str("CUSTOM_MODEL_BASE_URL", &cfg.LLM.BaseURL)
	str("CUSTOM_MODEL_PROVIDER", &cfg.LLM.Provider)

	str("GRAPHQA_LLM_BACKEND", &cfg.LLM.Backend)
	str("GRAPHQA_LLM_MODEL", &cfg.LLM.Model)
	str("GRAPHQA_LLM_BASE_URL", &cfg.LLM.BaseURL)
	str("GRAPHQA_NEO4J_URI", &cfg.Neo4j.URI)
	str("GRAPHQA_NEO4J_USERNAME", &cfg.Neo4j.Username)
	str("GRAPHQA_NEO4J_DATABASE", &cfg.Neo4j.Database)
	str("GRAPHQA_JOURNAL_PATH", &cfg.Journal.Path)
	str("GRAPHQA_LOG_LEVEL", &cfg.Log.Level)
	str("GRAPHQA_LOG_DIR", &cfg.Log.Dir)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint)
	str("GRAPHQA_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint)

	for _, n := range []struct {
		key string
		dst *int
	}{
		{"GRAPHQA_MAX_ITERATIONS", &cfg.Loop.MaxIterations},
		{"GRAPHQA_ROW_LIMIT", &cfg.Loop.RowLimit},
		{"GRAPHQA_PORT", &cfg.Server.Port},
	} {
		if err := num(n.key, n.dst); err != nil {
			return err
		}
	}
	if err := flag("GRAPHQA_PARALLEL_VALIDATORS", &cfg.Loop.ParallelValidators); err != nil {
		return err
	}
	return flag("GRAPHQA_JOURNAL_ENABLED", &cfg.Journal.Enabled)
}
