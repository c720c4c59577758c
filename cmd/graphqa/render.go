// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/AleutianAI/AleutianGraphQA/pkg/ux"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa"
	"github.com/AleutianAI/AleutianGraphQA/services/graphqa/journal"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderAnswer(p *ux.Printer, a *graphqa.Answer, query, attempts bool) {
	p.Box("Answer", a.Text)
	if query {
		p.Box("Query", a.Query)
	}
	if attempts {
		p.List("Attempts", a.Attempts)
	}
	p.Field("Run", a.RunID)
	p.Field("Iterations", strconv.Itoa(a.Iterations))
	p.Field("Duration", a.Duration.Round(time.Millisecond).String())
}

func renderRun(p *ux.Printer, r *journal.Run) {
	p.Title("Run " + r.ID)
	p.Field("Question", r.Question)
	p.Field("Outcome", string(r.Outcome))
	p.Field("Started", r.StartedAt.Format(time.RFC3339))
	p.Field("Iterations", strconv.Itoa(r.Iterations))
	if r.Query != "" {
		p.Box("Query", r.Query)
	}
	p.List("Attempts", r.Attempts)
	if r.Answer != "" {
		p.Box("Answer", r.Answer)
	}
	if r.Error != "" {
		p.Error(r.Error)
	}
}

func renderRunList(p *ux.Printer, runs []journal.Run) {
	if len(runs) == 0 {
		p.Field("Runs", "none")
		return
	}
	p.Title(fmt.Sprintf("%d runs", len(runs)))
	for _, r := range runs {
		p.Field(r.ID, fmt.Sprintf("%s %s (%d iterations) %s",
			r.StartedAt.Format(time.RFC3339), r.Outcome, r.Iterations, r.Question))
	}
}
