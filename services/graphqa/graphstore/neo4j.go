// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graphstore is the Neo4j-backed implementation of
// executor.GraphStore.
package graphstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("aleutian.graphqa.graphstore")

// ErrNotConnected is returned when Query is called before Connect.
var ErrNotConnected = errors.New("neo4j driver not connected")

// Config configures the Neo4j connection.
type Config struct {
	URI      string `yaml:"uri" validate:"required"`
	Username string `yaml:"username"`
	Password string `yaml:"-"`
	Database string `yaml:"database"`

	MaxConnectionPoolSize int           `yaml:"max_connection_pool_size"`
	ConnectionTimeout     time.Duration `yaml:"connection_timeout"`
	QueryTimeout          time.Duration `yaml:"query_timeout"`
	ConnectRetries        int           `yaml:"connect_retries"`
}

// DefaultConfig returns local development defaults.
func DefaultConfig() Config {
	return Config{
		URI:                   "neo4j://localhost:7687",
		Username:              "neo4j",
		Database:              "neo4j",
		MaxConnectionPoolSize: 50,
		ConnectionTimeout:     30 * time.Second,
		QueryTimeout:          60 * time.Second,
		ConnectRetries:        5,
	}
}

// Neo4jStore runs read queries against Neo4j.
type Neo4jStore struct {
	config Config
	driver neo4j.DriverWithContext
}

func NewNeo4jStore(config Config) *Neo4jStore {
	return &Neo4jStore{config: config}
}

// Connect creates the driver and verifies connectivity, retrying with
// exponential backoff.
func (s *Neo4jStore) Connect(ctx context.Context) error {
	auth := neo4j.BasicAuth(s.config.Username, s.config.Password, "")
	configure := func(c *neo4j.Config) {
		if s.config.MaxConnectionPoolSize > 0 {
			c.MaxConnectionPoolSize = s.config.MaxConnectionPoolSize
		}
		if s.config.ConnectionTimeout > 0 {
			c.ConnectionAcquisitionTimeout = s.config.ConnectionTimeout
		}
	}

	retries := s.config.ConnectRetries
	if retries < 1 {
		retries = 1
	}
	delay := 100 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		driver, err := neo4j.NewDriverWithContext(s.config.URI, auth, configure)
		if err == nil {
			if err = driver.VerifyConnectivity(ctx); err == nil {
				s.driver = driver
				slog.Info("Connected to Neo4j", slog.String("uri", s.config.URI))
				return nil
			}
			_ = driver.Close(ctx)
		}
		lastErr = err
		slog.Warn("Neo4j connection attempt failed",
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))

		if attempt == retries-1 {
			break
		}
		select {
		case <-time.After(delay):
			delay *= 2
			if s.config.ConnectionTimeout > 0 && delay > s.config.ConnectionTimeout {
				delay = s.config.ConnectionTimeout
			}
		case <-ctx.Done():
			return fmt.Errorf("neo4j connect cancelled: %w", ctx.Err())
		}
	}
	return fmt.Errorf("neo4j connect failed after %d attempts: %w", retries, lastErr)
}

// Query runs cypher in a read transaction and returns each record as a
// map of column name to raw driver value.
func (s *Neo4jStore) Query(ctx context.Context, cypher string) ([]map[string]any, error) {
	if s.driver == nil {
		return nil, ErrNotConnected
	}
	ctx, span := tracer.Start(ctx, "Neo4jStore.Query")
	defer span.End()
	span.SetAttributes(attribute.String("db.system", "neo4j"))

	if s.config.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.QueryTimeout)
		defer cancel()
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.config.Database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, len(records))
		for i, rec := range records {
			rows[i] = rec.AsMap()
		}
		return rows, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, err
	}

	rows := out.([]map[string]any)
	span.SetAttributes(attribute.Int("db.rows", len(rows)))
	return rows, nil
}

// Health verifies connectivity with a short timeout.
func (s *Neo4jStore) Health(ctx context.Context) error {
	if s.driver == nil {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.driver.VerifyConnectivity(ctx)
}

// Close releases the driver. Safe to call more than once.
func (s *Neo4jStore) Close(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	err := s.driver.Close(ctx)
	s.driver = nil
	return err
}
