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

package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/patchrc/pkg/rule"
	"github.com/walteh/patchrc/pkg/status"
)

func sample() *Report {
	r := New(false)
	r.Add(FileResult{Path: "models.go", State: status.StateCommitted, Changed: true},
		Entry{Path: "models.go", RuleID: "add-field", Outcome: rule.Outcome{Status: rule.Applied}},
		Entry{Path: "models.go", RuleID: "add-type", Outcome: rule.Outcome{Status: rule.SkippedAlreadyApplied, Reason: "payload already present"}},
	)
	r.Add(FileResult{Path: "handler.go", State: status.StateRolledBack, Reason: "rule cast-status failed-precondition"},
		Entry{Path: "handler.go", RuleID: "cast-status", Outcome: rule.Outcome{Status: rule.FailedPrecondition, Reason: "matched 0 times, want 1"}},
		Entry{Path: "handler.go", RuleID: "later", Outcome: rule.Outcome{Status: rule.Aborted, Reason: "not attempted"}},
	)
	r.Add(FileResult{Path: "pagination.go", State: status.StateCommitted, Created: true, Changed: true},
		Entry{Path: "pagination.go", RuleID: "package", Outcome: rule.Outcome{Status: rule.Applied}},
	)
	return r
}

func TestReportQueries(t *testing.T) {
	r := sample()

	assert.NotEmpty(t, r.RunID)
	assert.False(t, r.OK())
	assert.True(t, r.Changed())
	assert.Equal(t, []string{"models.go", "pagination.go"}, r.SucceededFiles())
	assert.Equal(t, []string{"handler.go"}, r.FailedFiles())

	want := map[rule.Status]int{
		rule.Applied:               2,
		rule.SkippedAlreadyApplied: 1,
		rule.FailedPrecondition:    1,
		rule.Aborted:               1,
	}
	if diff := cmp.Diff(want, r.Counts()); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}

	e, ok := r.Entry("handler.go", "cast-status")
	require.True(t, ok)
	assert.True(t, e.Failed())
	assert.ErrorIs(t, e.Err(), rule.ErrPreconditionNotMet)

	_, ok = r.Entry("handler.go", "add-field")
	assert.False(t, ok, "entries are keyed by path and id")
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sample().Render(&buf))

	want := `models.go: committed (changed)
  add-field: applied
  add-type: skipped-already-applied: payload already present
handler.go: rolled-back (rule cast-status failed-precondition)
  cast-status: failed-precondition: matched 0 times, want 1
  later: aborted: not attempted
pagination.go: committed (created)
  package: applied
2 committed, 1 rolled back; 2 applied, 1 skipped, 1 failed, 1 aborted
`
	assert.Equal(t, want, buf.String())
}

func TestDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sample().Diagnostics(&buf))

	want := `handler.go: rolled back: rule cast-status failed-precondition
  cast-status: failed-precondition: matched 0 times, want 1
  later: aborted: not attempted
`
	assert.Equal(t, want, buf.String())
}

func TestEmptyReport(t *testing.T) {
	r := New(true)
	assert.True(t, r.OK())
	assert.False(t, r.Changed())
	assert.Equal(t, "dry run: 0 committed, 0 rolled back; 0 applied, 0 skipped, 0 failed, 0 aborted", r.Summary())
}

func TestJSON(t *testing.T) {
	r := sample()
	r.Finish()

	var buf bytes.Buffer
	require.NoError(t, r.JSON(&buf))

	var decoded struct {
		RunID   string `json:"run_id"`
		DryRun  bool   `json:"dry_run"`
		Files   []map[string]any
		Entries []map[string]any
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, r.RunID, decoded.RunID)
	require.Len(t, decoded.Files, 3)
	assert.Equal(t, "rolled-back", decoded.Files[1]["state"])
	require.Len(t, decoded.Entries, 5)
	assert.Equal(t, map[string]any{
		"path":    "handler.go",
		"rule_id": "cast-status",
		"status":  "failed-precondition",
		"reason":  "matched 0 times, want 1",
	}, decoded.Entries[2])
}
