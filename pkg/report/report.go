// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package report collects the per-rule outcomes and per-file end states of
// one run.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/patchrc/pkg/rule"
	"github.com/walteh/patchrc/pkg/status"
)

// 📝 Entry is the outcome of one rule
type Entry struct {
	Path   string `json:"path"`
	RuleID string `json:"rule_id"`
	rule.Outcome
}

// 📄 FileResult is the end state of one target file
type FileResult struct {
	Path  string           `json:"path"`
	State status.FileState `json:"state"`
	// Created is set when the file did not exist before the run
	Created bool `json:"created,omitempty"`
	// Changed is set when the committed content differs from the original
	Changed    bool   `json:"changed,omitempty"`
	Reason     string `json:"reason,omitempty"`
	BeforeHash string `json:"before_hash,omitempty"`
	AfterHash  string `json:"after_hash,omitempty"`
	// Diff is a unified diff preview, filled in when requested
	Diff string `json:"diff,omitempty"`
}

// 📊 Report is the ordered result of one run, in plan order
type Report struct {
	RunID    string       `json:"run_id"`
	DryRun   bool         `json:"dry_run"`
	Started  time.Time    `json:"started"`
	Duration string       `json:"duration"`
	Files    []FileResult `json:"files"`
	Entries  []Entry      `json:"entries"`
}

// 🏭 New starts an empty report with a fresh run id
func New(dryRun bool) *Report {
	return &Report{
		RunID:   uuid.NewString(),
		DryRun:  dryRun,
		Started: time.Now(),
		Files:   []FileResult{},
		Entries: []Entry{},
	}
}

// Finish records the run duration
func (r *Report) Finish() {
	r.Duration = time.Since(r.Started).Round(time.Millisecond).String()
}

// Add appends one file and the entries for its rules
func (r *Report) Add(file FileResult, entries ...Entry) {
	r.Files = append(r.Files, file)
	r.Entries = append(r.Entries, entries...)
}

// Entry returns the outcome of rule id in path
func (r *Report) Entry(path, id string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.Path == path && e.RuleID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// File returns the result for path
func (r *Report) File(path string) (FileResult, bool) {
	for _, f := range r.Files {
		if f.Path == path {
			return f, true
		}
	}
	return FileResult{}, false
}

// EntriesFor returns the entries of path in rule order
func (r *Report) EntriesFor(path string) []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Path == path {
			out = append(out, e)
		}
	}
	return out
}

// SucceededFiles returns the committed files in plan order
func (r *Report) SucceededFiles() []string {
	return r.filesIn(status.StateCommitted)
}

// FailedFiles returns the rolled back files in plan order
func (r *Report) FailedFiles() []string {
	return r.filesIn(status.StateRolledBack)
}

func (r *Report) filesIn(state status.FileState) []string {
	out := []string{}
	for _, f := range r.Files {
		if f.State == state {
			out = append(out, f.Path)
		}
	}
	return out
}

// OK reports whether every file committed
func (r *Report) OK() bool {
	for _, f := range r.Files {
		if f.State != status.StateCommitted {
			return false
		}
	}
	return true
}

// Changed reports whether any committed file has new content
func (r *Report) Changed() bool {
	for _, f := range r.Files {
		if f.State == status.StateCommitted && f.Changed {
			return true
		}
	}
	return false
}

// Counts returns how many rules ended in each status
func (r *Report) Counts() map[rule.Status]int {
	counts := make(map[rule.Status]int, len(rule.Statuses()))
	for _, e := range r.Entries {
		counts[e.Status]++
	}
	return counts
}

// 🖨️ Render writes every file and rule outcome as plain text
func (r *Report) Render(w io.Writer) error {
	for _, f := range r.Files {
		if _, err := fmt.Fprintf(w, "%s: %s\n", f.Path, describe(f)); err != nil {
			return errors.Errorf("writing report: %w", err)
		}
		for _, e := range r.EntriesFor(f.Path) {
			if _, err := fmt.Fprintf(w, "  %s: %s\n", e.RuleID, e.Outcome); err != nil {
				return errors.Errorf("writing report: %w", err)
			}
		}
	}

	if _, err := fmt.Fprintln(w, r.Summary()); err != nil {
		return errors.Errorf("writing report: %w", err)
	}
	return nil
}

// Diagnostics writes only the failures, one line each
func (r *Report) Diagnostics(w io.Writer) error {
	for _, f := range r.Files {
		if f.State != status.StateRolledBack {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s: rolled back: %s\n", f.Path, f.Reason); err != nil {
			return errors.Errorf("writing diagnostics: %w", err)
		}
		for _, e := range r.EntriesFor(f.Path) {
			if !e.Failed() {
				continue
			}
			if _, err := fmt.Fprintf(w, "  %s: %s\n", e.RuleID, e.Outcome); err != nil {
				return errors.Errorf("writing diagnostics: %w", err)
			}
		}
	}
	return nil
}

// Summary is a one-line tally of files and rule outcomes
func (r *Report) Summary() string {
	counts := r.Counts()
	prefix := ""
	if r.DryRun {
		prefix = "dry run: "
	}
	return fmt.Sprintf("%s%d committed, %d rolled back; %d applied, %d skipped, %d failed, %d aborted",
		prefix,
		len(r.SucceededFiles()),
		len(r.FailedFiles()),
		counts[rule.Applied],
		counts[rule.SkippedAlreadyApplied],
		counts[rule.FailedPrecondition]+counts[rule.FailedVerification]+counts[rule.FailedIO],
		counts[rule.Aborted],
	)
}

// JSON writes the report as indented JSON
func (r *Report) JSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return errors.Errorf("encoding report: %w", err)
	}
	return nil
}

func describe(f FileResult) string {
	switch {
	case f.State == status.StateRolledBack && f.Reason != "":
		return fmt.Sprintf("%s (%s)", f.State, f.Reason)
	case f.State == status.StateCommitted && f.Created && f.Changed:
		return fmt.Sprintf("%s (created)", f.State)
	case f.State == status.StateCommitted && f.Changed:
		return fmt.Sprintf("%s (changed)", f.State)
	case f.State == status.StateCommitted:
		return fmt.Sprintf("%s (unchanged)", f.State)
	default:
		return f.State.String()
	}
}
