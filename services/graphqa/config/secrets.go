// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/awnumar/memguard"
)

// DefaultSecretsDir is where container secrets are mounted.
const DefaultSecretsDir = "/run/secrets"

// Secret is a credential sealed in a memguard enclave. The zero value is
// an empty secret.
type Secret struct {
	enclave *memguard.Enclave
}

// NewSecret seals value. The input is not retained.
func NewSecret(value string) Secret {
	if value == "" {
		return Secret{}
	}
	return Secret{enclave: memguard.NewEnclave([]byte(value))}
}

// IsSet reports whether the secret holds a value.
func (s Secret) IsSet() bool {
	return s.enclave != nil
}

// Reveal decrypts the secret into an ordinary string for handing to a
// client library.
func (s Secret) Reveal() (string, error) {
	if s.enclave == nil {
		return "", nil
	}
	buf, err := s.enclave.Open()
	if err != nil {
		return "", fmt.Errorf("open secret enclave: %w", err)
	}
	defer buf.Destroy()
	return strings.Clone(buf.String()), nil
}

// String never prints the value.
func (s Secret) String() string {
	if s.enclave == nil {
		return ""
	}
	return "[REDACTED]"
}

type Secrets struct {
	LLMAPIKey     Secret
	Neo4jPassword Secret
}

// LoadSecrets reads credentials from the environment, falling back to files
// under secretsDir.
func LoadSecrets(getenv func(string) string, secretsDir string) Secrets {
	return Secrets{
		LLMAPIKey: lookupSecret(getenv, secretsDir, "graphqa_llm_api_key",
			"GRAPHQA_LLM_API_KEY", "CUSTOM_MODEL_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY"),
		Neo4jPassword: lookupSecret(getenv, secretsDir, "neo4j_password",
			"GRAPHQA_NEO4J_PASSWORD", "NEO4J_PASSWORD"),
	}
}

func lookupSecret(getenv func(string) string, dir, file string, keys ...string) Secret {
	for _, k := range keys {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return NewSecret(v)
		}
	}
	if dir == "" {
		return Secret{}
	}
	path := filepath.Join(dir, file)
	data, err := os.ReadFile(path)
	if err != nil {
		return Secret{}
	}
	slog.Info("Read secret from file", "path", path)
	secret := NewSecret(strings.TrimSpace(string(data)))
	memguard.WipeBytes(data)
	return secret
}
