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

// Package diff renders unified diff previews of patched files.
package diff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"gitlab.com/tozd/go/errors"
)

// DefaultContext is the number of unchanged lines around each hunk
const DefaultContext = 3

// 🔀 Unified returns a unified diff from before to after, or "" when they are
// equal. A nil before is rendered as a new file.
func Unified(path string, before, after []byte, context int) (string, error) {
	if string(before) == string(after) {
		return "", nil
	}
	if context <= 0 {
		context = DefaultContext
	}

	from := "a/" + path
	if before == nil {
		from = "/dev/null"
	}

	u := difflib.UnifiedDiff{
		A:        splitLines(string(before)),
		B:        splitLines(string(after)),
		FromFile: from,
		ToFile:   "b/" + path,
		Context:  context,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return "", errors.Errorf("diffing %s: %w", path, err)
	}
	return s, nil
}

// splitLines keeps the newlines so hunks reproduce the file exactly. A final
// line without a newline gets one, with a marker like git prints.
func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		return lines[:len(lines)-1]
	}
	lines[len(lines)-1] += "\n\\ No newline at end of file\n"
	return lines
}
