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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/patchrc/pkg/text"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📚 Config is a patch plan file
type Config struct {
	// Root is the directory target paths are relative to. Relative roots are
	// resolved against the config file's directory, which is also the default.
	Root  string     `json:"root,omitempty" yaml:"root,omitempty"`
	Files []FileSpec `json:"files" yaml:"files"`

	location string
}

// 📄 FileSpec is one target path or glob and its ordered rules
type FileSpec struct {
	Path   string     `json:"path" yaml:"path"`
	Create bool       `json:"create,omitempty" yaml:"create,omitempty"`
	Rules  []RuleSpec `json:"rules" yaml:"rules"`
}

// 📝 RuleSpec is one rule as written in a plan file
type RuleSpec struct {
	ID      string      `json:"id" yaml:"id"`
	Action  string      `json:"action" yaml:"action"`
	Payload string      `json:"payload,omitempty" yaml:"payload,omitempty"`
	Expect  Expect      `json:"expect,omitempty" yaml:"expect,omitempty"`
	Match   *MatchSpec  `json:"match,omitempty" yaml:"match,omitempty"`
	SkipIf  *MatchSpec  `json:"skip_if,omitempty" yaml:"skip_if,omitempty"`
	Verify  *VerifySpec `json:"verify,omitempty" yaml:"verify,omitempty"`
}

// 🔍 MatchSpec names exactly one pattern
type MatchSpec struct {
	Literal string     `json:"literal,omitempty" yaml:"literal,omitempty"`
	Block   *BlockSpec `json:"block,omitempty" yaml:"block,omitempty"`
	Lines   *LinesSpec `json:"lines,omitempty" yaml:"lines,omitempty"`
	Node    *NodeSpec  `json:"node,omitempty" yaml:"node,omitempty"`
}

type BlockSpec struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

type LinesSpec struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

type NodeSpec struct {
	Language string `json:"language" yaml:"language"`
	Type     string `json:"type" yaml:"type"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
}

// ✅ VerifySpec overrides a rule's default postcondition
type VerifySpec struct {
	Match  *MatchSpec `json:"match,omitempty" yaml:"match,omitempty"`
	Expect Expect     `json:"expect,omitempty" yaml:"expect,omitempty"`
	Syntax string     `json:"syntax,omitempty" yaml:"syntax,omitempty"`
}

// 🔢 Expect is a match count: empty (exactly one), a number, "any" or "none"
type Expect string

const (
	ExpectAny  Expect = "any"
	ExpectNone Expect = "none"
)

// UnmarshalJSON accepts both numbers and strings
func (e *Expect) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e = Expect(s)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Errorf("expect must be a number, \"any\" or \"none\": %w", err)
	}
	*e = Expect(strconv.Itoa(n))
	return nil
}

// occurrences converts the count. none is reported separately because only
// append rules may use it.
func (e Expect) occurrences() (text.Occurrences, bool, error) {
	switch e {
	case "":
		return 0, false, nil
	case ExpectNone:
		return 0, true, nil
	}
	o, err := text.ParseOccurrences(string(e))
	if err != nil {
		return 0, false, err
	}
	if o == 0 {
		return 0, false, errors.Errorf("expect 0 is written as \"none\"")
	}
	return o, false, nil
}

// 🎯 Load loads a plan file and validates it
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	// Read config file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	// Get parser
	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	// Parse config
	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}
	cfg.location = path

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// 🔍 Validate checks the plan file's shape. Rules are fully checked when
// the plan is built.
func (cfg *Config) Validate() error {
	if len(cfg.Files) == 0 {
		return errors.Errorf("at least one file is required")
	}

	for i, f := range cfg.Files {
		if strings.TrimSpace(f.Path) == "" {
			return errors.Errorf("files[%d]: path is required", i)
		}
		if len(f.Rules) == 0 {
			return errors.Errorf("%s: at least one rule is required", f.Path)
		}
		if f.Create && isGlob(f.Path) {
			return errors.Errorf("%s: create cannot be used with a glob", f.Path)
		}
		for j, r := range f.Rules {
			if r.ID == "" {
				return errors.Errorf("%s: rules[%d]: id is required", f.Path, j)
			}
			if _, err := text.ParseKind(r.Action); err != nil {
				return errors.Errorf("%s: rule %s: %w", f.Path, r.ID, err)
			}
			if err := r.Match.validate(); err != nil {
				return errors.Errorf("%s: rule %s: match: %w", f.Path, r.ID, err)
			}
			if err := r.SkipIf.validate(); err != nil {
				return errors.Errorf("%s: rule %s: skip_if: %w", f.Path, r.ID, err)
			}
			if _, _, err := r.Expect.occurrences(); err != nil {
				return errors.Errorf("%s: rule %s: %w", f.Path, r.ID, err)
			}
			if r.Verify != nil {
				if err := r.Verify.Match.validate(); err != nil {
					return errors.Errorf("%s: rule %s: verify: %w", f.Path, r.ID, err)
				}
			}
		}
	}

	return nil
}

func (m *MatchSpec) validate() error {
	if m == nil {
		return nil
	}
	set := 0
	if m.Literal != "" {
		set++
	}
	if m.Block != nil {
		set++
	}
	if m.Lines != nil {
		set++
	}
	if m.Node != nil {
		set++
	}
	if set != 1 {
		return errors.Errorf("exactly one of literal, block, lines or node is required, got %d", set)
	}
	return nil
}

// 📂 RootDir returns the directory target paths are resolved against
func (cfg *Config) RootDir() string {
	base := "."
	if cfg.location != "" {
		base = filepath.Dir(cfg.location)
	}
	switch {
	case cfg.Root == "":
		return base
	case filepath.IsAbs(cfg.Root):
		return filepath.Clean(cfg.Root)
	default:
		return filepath.Join(base, cfg.Root)
	}
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	rules := 0
	for _, f := range cfg.Files {
		rules += len(f.Rules)
	}
	return fmt.Sprintf("%d file entries, %d rules under %s", len(cfg.Files), rules, cfg.RootDir())
}
