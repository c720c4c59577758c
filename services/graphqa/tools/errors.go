// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tools binds GraphQA to externally hosted tool capabilities.
//
// Validators and schema introspection are exposed by MCP servers as named
// tools. This package resolves those names once at bind time, invokes them
// with a JSON argument record, and decodes their results in two stages:
//
//  1. Envelope: the call result is a JSON array of content records. The
//     first record's "text" field is extracted.
//  2. Payload: the extracted text is itself JSON and decodes into the
//     caller's target type.
//
// Each stage has its own error kind so an operator can tell a broken
// transport from a tool that returned garbage.
package tools

import (
	"errors"
	"fmt"
)

// =============================================================================
// Sentinel Errors
// =============================================================================

var (
	// ErrCapabilityNotFound indicates a configured server or tool does not
	// exist. Raised at bind time, and at call time for unbound servers.
	ErrCapabilityNotFound = errors.New("capability not found")

	// ErrCallFailed indicates the transport failed or the tool reported an
	// error result.
	ErrCallFailed = errors.New("capability call failed")

	// ErrDecode is the parent of every decoding failure.
	ErrDecode = errors.New("could not decode capability result")

	// ErrEnvelopeDecode indicates the outer content array was malformed.
	ErrEnvelopeDecode = fmt.Errorf("envelope: %w", ErrDecode)

	// ErrEmptyResult indicates the outer content array had no records.
	ErrEmptyResult = fmt.Errorf("empty result: %w", ErrDecode)

	// ErrPayloadDecode indicates the inner text was not the expected JSON.
	ErrPayloadDecode = fmt.Errorf("payload: %w", ErrDecode)
)

// =============================================================================
// Error
// =============================================================================

// Stage identifies where in the tool pipeline an error happened.
type Stage string

const (
	StageBind     Stage = "bind"
	StageCall     Stage = "call"
	StageEnvelope Stage = "envelope"
	StagePayload  Stage = "payload"
)

// Error carries the stage and tool reference of a failed tool interaction.
//
// Kind is always one of the package sentinels, so errors.Is works against
// both the sentinel and the underlying cause.
type Error struct {
	Stage Stage
	Ref   Ref
	Kind  error
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var msg string
	switch {
	case errors.Is(e.Kind, ErrCapabilityNotFound):
		msg = fmt.Sprintf("could not find required capability %s", e.Ref)
	case errors.Is(e.Kind, ErrDecode):
		msg = fmt.Sprintf("could not decode result from capability %s (%s stage)", e.Ref, e.Stage)
	default:
		msg = fmt.Sprintf("capability %s failed during %s", e.Ref, e.Stage)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func newError(stage Stage, ref Ref, kind, cause error) *Error {
	return &Error{Stage: stage, Ref: ref, Kind: kind, Cause: cause}
}
