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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlPlan = `
root: .
files:
  - path: models.go
    rules:
      - id: add-field
        action: insert_before
        match:
          block:
            start: "type Foo struct {"
            end: "}"
        payload: "    NewField string\n"
        verify:
          match:
            literal: NewField string
          expect: 1
  - path: "handlers/*.go"
    rules:
      - id: cast-status
        action: replace
        expect: any
        match:
          literal: att.Status)
        payload: string(att.Status))
`

const jsonPlan = `{
	"files": [
		{
			"path": "pagination.go",
			"create": true,
			"rules": [
				{"id": "package", "action": "append", "payload": "package models\n"},
				{"id": "drop-debug", "action": "delete", "expect": 2, "match": {"literal": "debug()\n"}}
			]
		}
	]
}`

const hclPlan = `
root = "."

file "models.go" {
  rule "add-field" {
    action  = "insert_before"
    payload = "    NewField string\n"
    expect  = 1

    match {
      block {
        start = "type Foo struct {"
        end   = "}"
      }
    }

    verify {
      syntax = "go"
    }
  }

  rule "replace-header" {
    action  = "replace"
    payload = "// generated\n"
    expect  = "any"

    match {
      lines {
        start = 1
        end   = 1
      }
    }

    skip_if {
      literal = "// generated"
    }
  }
}
`

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// 🧪 TestLoad tests each registered format
func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		config      string
		wantErr     bool
		errContains string
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name:   "valid_yaml",
			file:   ".patchrc.yaml",
			config: yamlPlan,
			check: func(t *testing.T, cfg *Config) {
				require.Len(t, cfg.Files, 2)
				r := cfg.Files[0].Rules[0]
				assert.Equal(t, "add-field", r.ID)
				assert.Equal(t, "insert_before", r.Action)
				require.NotNil(t, r.Match.Block)
				assert.Equal(t, "type Foo struct {", r.Match.Block.Start)
				assert.Equal(t, "    NewField string\n", r.Payload)
				require.NotNil(t, r.Verify)
				assert.Equal(t, Expect("1"), r.Verify.Expect)
				assert.Equal(t, ExpectAny, cfg.Files[1].Rules[0].Expect)
			},
		},
		{
			name:   "valid_json",
			file:   "plan.json",
			config: jsonPlan,
			check: func(t *testing.T, cfg *Config) {
				require.Len(t, cfg.Files, 1)
				assert.True(t, cfg.Files[0].Create)
				assert.Equal(t, Expect("2"), cfg.Files[0].Rules[1].Expect)
				assert.Equal(t, "debug()\n", cfg.Files[0].Rules[1].Match.Literal)
			},
		},
		{
			name:   "valid_hcl",
			file:   "plan.hcl",
			config: hclPlan,
			check: func(t *testing.T, cfg *Config) {
				require.Len(t, cfg.Files, 1)
				f := cfg.Files[0]
				assert.Equal(t, "models.go", f.Path)
				require.Len(t, f.Rules, 2)
				assert.Equal(t, Expect("1"), f.Rules[0].Expect)
				assert.Equal(t, "go", f.Rules[0].Verify.Syntax)
				assert.Equal(t, ExpectAny, f.Rules[1].Expect)
				assert.Equal(t, &LinesSpec{Start: 1, End: 1}, f.Rules[1].Match.Lines)
				assert.Equal(t, "// generated", f.Rules[1].SkipIf.Literal)
			},
		},
		{
			name:        "unknown_yaml_field",
			file:        "plan.yaml",
			config:      "files:\n  - path: a.go\n    rulez: []\n",
			wantErr:     true,
			errContains: "rulez",
		},
		{
			name:        "unknown_json_field",
			file:        "plan.json",
			config:      `{"files": [], "extra": true}`,
			wantErr:     true,
			errContains: "extra",
		},
		{
			name:        "unsupported_extension",
			file:        "plan.toml",
			config:      "",
			wantErr:     true,
			errContains: "no parser found",
		},
		{
			name:        "no_files",
			file:        "plan.yaml",
			config:      "files: []\n",
			wantErr:     true,
			errContains: "at least one file is required",
		},
		{
			name:        "unknown_action",
			file:        "plan.yaml",
			config:      "files:\n  - path: a.go\n    rules:\n      - id: x\n        action: prepend\n        payload: y\n",
			wantErr:     true,
			errContains: "unknown action",
		},
		{
			name:        "two_patterns_in_one_match",
			file:        "plan.yaml",
			config:      "files:\n  - path: a.go\n    rules:\n      - id: x\n        action: replace\n        payload: y\n        match:\n          literal: a\n          lines: {start: 1, end: 2}\n",
			wantErr:     true,
			errContains: "exactly one of literal, block, lines or node",
		},
		{
			name:        "bad_expect",
			file:        "plan.yaml",
			config:      "files:\n  - path: a.go\n    rules:\n      - id: x\n        action: replace\n        payload: y\n        expect: some\n        match:\n          literal: a\n",
			wantErr:     true,
			errContains: "invalid occurrence count",
		},
		{
			name:        "create_with_glob",
			file:        "plan.yaml",
			config:      "files:\n  - path: \"*.go\"\n    create: true\n    rules:\n      - id: x\n        action: append\n        payload: y\n",
			wantErr:     true,
			errContains: "create cannot be used with a glob",
		},
		{
			name:        "hcl_expect_wrong_type",
			file:        "plan.hcl",
			config:      "file \"a.go\" {\n  rule \"x\" {\n    action = \"append\"\n    payload = \"y\"\n    expect = true\n  }\n}\n",
			wantErr:     true,
			errContains: "expect must be a number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
			path := writeConfig(t, t.TempDir(), tt.file, tt.config)

			cfg, err := Load(ctx, path)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}

			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestRootDir(t *testing.T) {
	assert.Equal(t, ".", (&Config{}).RootDir())
	assert.Equal(t, filepath.Join("conf", "src"), (&Config{Root: "src", location: filepath.Join("conf", "plan.yaml")}).RootDir())
	assert.Equal(t, "/abs", (&Config{Root: "/abs/", location: filepath.Join("conf", "plan.yaml")}).RootDir())
}

func TestGetParser(t *testing.T) {
	assert.IsType(t, &YAMLParser{}, GetParser(".patchrc.yaml"))
	assert.IsType(t, &YAMLParser{}, GetParser("plan.yml"))
	assert.IsType(t, &JSONParser{}, GetParser("plan.JSON"))
	assert.IsType(t, &HCLParser{}, GetParser("plan.hcl"))
	assert.Nil(t, GetParser("plan.ini"))
}
