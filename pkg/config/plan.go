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
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/patchrc/pkg/plan"
	"github.com/walteh/patchrc/pkg/rule"
	"github.com/walteh/patchrc/pkg/text"
)

// 🗺️ Plan resolves every file entry against the root, expands globs and
// builds a validated plan. Each glob match gets its own copy of the rules.
// files reads the targets during validation.
func (cfg *Config) Plan(ctx context.Context, files plan.Reader) (*plan.Plan, error) {
	logger := zerolog.Ctx(ctx)
	root := cfg.RootDir()

	var targets []plan.Target
	for _, f := range cfg.Files {
		paths, err := expand(root, f.Path)
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("entry", f.Path).Strs("paths", paths).Msg("resolved file entry")

		for _, path := range paths {
			t := plan.Target{Path: path, Create: f.Create}
			for _, spec := range f.Rules {
				r, err := spec.Rule(path)
				if err != nil {
					return nil, errors.Errorf("%s: %w", f.Path, err)
				}
				t.Rules = append(t.Rules, r)
			}
			targets = append(targets, t)
		}
	}

	p, err := plan.New(ctx, files, targets...)
	if err != nil {
		return nil, errors.Errorf("building plan: %w", err)
	}
	return p, nil
}

func isGlob(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

// expand returns the sorted files a path entry names
func expand(root, entry string) ([]string, error) {
	path := entry
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	if !isGlob(entry) {
		return []string{filepath.Clean(path)}, nil
	}

	base, pattern := doublestar.SplitPattern(filepath.ToSlash(path))
	matches, err := doublestar.Glob(os.DirFS(base), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Errorf("expanding %s: %w", entry, err)
	}
	if len(matches) == 0 {
		return nil, errors.Errorf("%s matches no files under %s", entry, base)
	}

	sort.Strings(matches)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, filepath.Join(filepath.FromSlash(base), filepath.FromSlash(m)))
	}
	return out, nil
}

// 🔧 Rule converts the spec into a rule for path
func (r RuleSpec) Rule(path string) (rule.Rule, error) {
	kind, err := text.ParseKind(r.Action)
	if err != nil {
		return rule.Rule{}, errors.Errorf("rule %s: %w", r.ID, err)
	}
	expect, none, err := r.Expect.occurrences()
	if err != nil {
		return rule.Rule{}, errors.Errorf("rule %s: %w", r.ID, err)
	}

	out := rule.Rule{
		ID:         r.ID,
		Path:       path,
		Match:      r.Match.Pattern(),
		Expect:     expect,
		ExpectNone: none,
		Kind:       kind,
		Payload:    r.Payload,
		SkipIf:     r.SkipIf.Pattern(),
	}

	if r.Verify != nil {
		vexpect, none, err := r.Verify.Expect.occurrences()
		if err != nil {
			return rule.Rule{}, errors.Errorf("rule %s: verify: %w", r.ID, err)
		}
		out.Verify = &rule.Postcondition{
			Match:      r.Verify.Match.Pattern(),
			Expect:     vexpect,
			ExpectNone: none,
			Syntax:     r.Verify.Syntax,
		}
	}

	return out, nil
}

// Pattern returns the pattern the spec names, or nil
func (m *MatchSpec) Pattern() text.Pattern {
	switch {
	case m == nil:
		return nil
	case m.Block != nil:
		return text.AnchoredBlock{Start: m.Block.Start, End: m.Block.End}
	case m.Lines != nil:
		return text.LineRange{Start: m.Lines.Start, End: m.Lines.End}
	case m.Node != nil:
		return text.Node{Language: m.Node.Language, Type: m.Node.Type, Name: m.Node.Name}
	case m.Literal != "":
		return text.Literal{Text: m.Literal}
	default:
		return nil
	}
}
