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

package status

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestFormatFileLine(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name       string
		state      FileState
		changed    bool
		detail     string
		wantPrefix string
	}{
		{name: "committed_changed", state: StateCommitted, changed: true, detail: "2 applied", wantPrefix: "    ✓ "},
		{name: "committed_unchanged", state: StateCommitted, detail: "2 skipped", wantPrefix: "    - "},
		{name: "rolled_back", state: StateRolledBack, detail: "1 failed", wantPrefix: "    ✗ "},
		{name: "in_flight", state: StateApplying, wantPrefix: "    ⟳ "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatFileLine("models.go", tt.state, tt.changed, tt.detail)

			assert.True(t, strings.HasPrefix(got, tt.wantPrefix), "got %q", got)
			assert.Contains(t, got, "models.go")
			assert.Contains(t, got, tt.state.String())
			assert.Contains(t, got, tt.detail)
			assert.Len(t, []rune(got), fileIndent+2+nameWidth+1+stateWidth+1+detailWidth)
		})
	}
}
