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

package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnified(t *testing.T) {
	tests := []struct {
		name   string
		before []byte
		after  []byte
		want   string
	}{
		{
			name:   "equal",
			before: []byte("a\n"),
			after:  []byte("a\n"),
			want:   "",
		},
		{
			name:   "inserted_line",
			before: []byte("type Foo struct {\n    OldField int\n}\n"),
			after:  []byte("type Foo struct {\n    OldField int\n    NewField string\n}\n"),
			want: "--- a/models.go\n+++ b/models.go\n@@ -1,3 +1,4 @@\n" +
				" type Foo struct {\n     OldField int\n+    NewField string\n }\n",
		},
		{
			name:  "new_file",
			after: []byte("package models\n"),
			want:  "--- /dev/null\n+++ b/models.go\n@@ -0,0 +1 @@\n+package models\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Unified("models.go", tt.before, tt.after, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{}, splitLines(""))
	assert.Equal(t, []string{"a\n", "b\n"}, splitLines("a\nb\n"))
	assert.Equal(t, []string{"a\n", "b\n\\ No newline at end of file\n"}, splitLines("a\nb"))
}
