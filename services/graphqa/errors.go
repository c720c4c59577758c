// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graphqa

import "fmt"

// Workflow stages, used in errors and metrics.
const (
	StageSchema  = "schema"
	StageLoop    = "loop"
	StageExecute = "execute"
	StageFormat  = "format"
)

// RunError is a failed run. It unwraps to the stage's underlying error.
type RunError struct {
	RunID string
	Stage string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s failed during %s: %v", e.RunID, e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
