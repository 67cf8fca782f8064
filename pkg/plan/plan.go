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

// Package plan groups rules by target file and validates them before any
// file is touched.
package plan

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/patchrc/pkg/rule"
	"github.com/walteh/patchrc/pkg/text"
)

var (
	// ErrDuplicateRule means two rules for one file share an id
	ErrDuplicateRule = errors.Base("duplicate rule id")

	// ErrOverlapConflict means two destructive rules claim intersecting spans
	ErrOverlapConflict = errors.Base("overlapping rules")
)

// Reader reads target files for validation. status.FileManager satisfies it
// with a bounded read.
type Reader interface {
	Read(ctx context.Context, path string) ([]byte, error)
}

// 🎯 Target is one file and the ordered rules to apply to it
type Target struct {
	Path string
	// Create allows the file to be absent; it then starts out empty
	Create bool
	Rules  []rule.Rule
}

// 📋 Plan is a validated, ordered set of targets. Build it with New.
type Plan struct {
	Targets []Target
}

// 🏭 New validates targets and returns a plan in declaration order. Targets
// naming the same path are merged, keeping rule order. Each target is read
// once through files to check readability and overlapping rules.
func New(ctx context.Context, files Reader, targets ...Target) (*Plan, error) {
	logger := zerolog.Ctx(ctx)

	if files == nil {
		return nil, errors.New("file reader is required")
	}

	p := &Plan{}
	index := make(map[string]int)

	for _, t := range targets {
		if t.Path == "" {
			return nil, errors.Errorf("target path is required")
		}
		path := filepath.Clean(t.Path)

		if i, ok := index[path]; ok {
			p.Targets[i].Rules = append(p.Targets[i].Rules, t.Rules...)
			p.Targets[i].Create = p.Targets[i].Create || t.Create
			continue
		}

		index[path] = len(p.Targets)
		p.Targets = append(p.Targets, Target{
			Path:   path,
			Create: t.Create,
			Rules:  append([]rule.Rule(nil), t.Rules...),
		})
	}

	for i := range p.Targets {
		if err := p.Targets[i].validate(ctx, files); err != nil {
			return nil, err
		}
	}

	logger.Debug().Int("files", len(p.Targets)).Int("rules", p.RuleCount()).Msg("plan validated")

	return p, nil
}

// Paths returns the target paths in plan order
func (p *Plan) Paths() []string {
	paths := make([]string, 0, len(p.Targets))
	for _, t := range p.Targets {
		paths = append(paths, t.Path)
	}
	return paths
}

// RuleCount returns the number of rules across all targets
func (p *Plan) RuleCount() int {
	n := 0
	for _, t := range p.Targets {
		n += len(t.Rules)
	}
	return n
}

// Target returns the target for path
func (p *Plan) Target(path string) (Target, bool) {
	path = filepath.Clean(path)
	for _, t := range p.Targets {
		if t.Path == path {
			return t, true
		}
	}
	return Target{}, false
}

func (t *Target) validate(ctx context.Context, files Reader) error {
	seen := make(map[string]bool, len(t.Rules))
	for i := range t.Rules {
		r := &t.Rules[i]
		if r.Path == "" {
			r.Path = t.Path
		} else if filepath.Clean(r.Path) != t.Path {
			return errors.Errorf("rule %s: path %s does not match target %s", r.ID, r.Path, t.Path)
		}
		if err := r.Validate(); err != nil {
			return errors.Errorf("validating %s: %w", t.Path, err)
		}
		if seen[r.ID] {
			return errors.Errorf("%w: %s in %s", ErrDuplicateRule, r.ID, t.Path)
		}
		seen[r.ID] = true
	}

	snapshot, err := t.snapshot(ctx, files)
	if err != nil {
		return err
	}

	return t.checkOverlaps(ctx, snapshot)
}

// snapshot reads the target as it is on disk now. A missing file is only
// allowed for Create targets, which snapshot as empty.
func (t *Target) snapshot(ctx context.Context, files Reader) (*text.Buffer, error) {
	content, err := files.Read(ctx, t.Path)
	if err == nil {
		return text.NewBuffer(t.Path, content), nil
	}
	if errors.Is(err, fs.ErrNotExist) && t.Create {
		return text.NewBuffer(t.Path, nil), nil
	}
	return nil, errors.Errorf("%w: %v", rule.ErrIO, err)
}

type claim struct {
	id    string
	lines *text.LineRange
	spans []text.Span
}

// checkOverlaps rejects destructive rules whose spans are known up front and
// intersect. Line ranges are compared by line number; anchored blocks and line
// ranges are also located in the snapshot and compared by byte offset.
func (t *Target) checkOverlaps(ctx context.Context, snapshot *text.Buffer) error {
	var claims []claim

	for _, r := range t.Rules {
		if !r.Kind.Destructive() {
			continue
		}

		c := claim{id: r.ID}
		switch m := r.Match.(type) {
		case text.LineRange:
			c.lines = &m
		case text.AnchoredBlock:
		default:
			continue
		}

		// a pattern that does not resolve yet is left to the rule's precondition
		spans, err := text.Find(ctx, snapshot, r.Match)
		switch {
		case err == nil:
			c.spans = spans
		case !text.IsPatternError(err):
			return errors.Errorf("locating %s for %s in %s: %w", r.Match, r.ID, t.Path, err)
		}

		for _, prev := range claims {
			if overlaps(prev, c) {
				return errors.Errorf("%w: %s and %s in %s", ErrOverlapConflict, prev.id, c.id, t.Path)
			}
		}
		claims = append(claims, c)
	}
	return nil
}

func overlaps(a, b claim) bool {
	if a.lines != nil && b.lines != nil && a.lines.OverlapsLines(*b.lines) {
		return true
	}
	for _, x := range a.spans {
		for _, y := range b.spans {
			if x.Overlaps(y) {
				return true
			}
		}
	}
	return false
}
