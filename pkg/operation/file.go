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

package operation

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/patchrc/pkg/diff"
	"github.com/walteh/patchrc/pkg/plan"
	"github.com/walteh/patchrc/pkg/report"
	"github.com/walteh/patchrc/pkg/rule"
	"github.com/walteh/patchrc/pkg/status"
	"github.com/walteh/patchrc/pkg/text"
)

type fileResult struct {
	file    report.FileResult
	entries []report.Entry
}

// 📄 fileRun is one target moving through Loaded -> Applying -> Committed or
// RolledBack. Outcomes left at StatusUnknown were never attempted.
type fileRun struct {
	target   plan.Target
	state    status.FileState
	outcomes []rule.Outcome

	original *text.Buffer
	current  *text.Buffer
	created  bool
	diff     string

	logger    zerolog.Logger
	formatter status.FileFormatter
}

func (e *Executor) runFile(ctx context.Context, t plan.Target) fileResult {
	f := &fileRun{
		target:   t,
		outcomes: make([]rule.Outcome, len(t.Rules)),
		logger:   zerolog.Ctx(ctx).With().Str("path", t.Path).Logger(),

		formatter: e.formatter,
	}
	ctx = f.logger.WithContext(ctx)

	if ctx.Err() != nil {
		return f.rollBack("run canceled before the file was started")
	}

	if !e.dryRun {
		unlock, err := e.files.Lock(ctx, t.Path)
		if err != nil {
			return f.failIO(err)
		}
		defer func() {
			if err := unlock(); err != nil {
				f.logger.Warn().Err(err).Msg("releasing file lock")
			}
		}()
	}

	if err := f.load(ctx, e.files); err != nil {
		return f.failIO(err)
	}

	f.to(status.StateApplying)
	for i, r := range t.Rules {
		if ctx.Err() != nil {
			return f.rollBack("run canceled")
		}

		next, outcome := rule.Evaluate(ctx, f.current, r)
		f.outcomes[i] = outcome
		if outcome.Failed() {
			return f.rollBack(fmt.Sprintf("rule %s %s", r.ID, outcome))
		}
		f.current = next
	}

	if f.current.Equal(f.original) {
		return f.commit()
	}

	if e.diff {
		var before []byte
		if !f.created {
			before = f.original.Bytes()
		}
		d, err := diff.Unified(t.Path, before, f.current.Bytes(), diff.DefaultContext)
		if err != nil {
			f.logger.Warn().Err(err).Msg("rendering diff preview")
		}
		f.diff = d
	}

	if e.dryRun {
		return f.commit()
	}

	if ctx.Err() != nil {
		return f.rollBack("run canceled before commit")
	}

	if err := f.write(ctx, e.files); err != nil {
		return f.failIO(err)
	}

	return f.commit()
}

// load reads the target. A missing file starts empty when the target allows it.
func (f *fileRun) load(ctx context.Context, files status.FileManager) error {
	content, err := files.Read(ctx, f.target.Path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && f.target.Create:
		f.created = true
	default:
		return err
	}

	f.original = text.NewBuffer(f.target.Path, content)
	f.current = f.original
	f.to(status.StateLoaded)
	return nil
}

// write stages and commits the new content, after checking that nobody changed
// the file since it was loaded
func (f *fileRun) write(ctx context.Context, files status.FileManager) error {
	content, err := files.Read(ctx, f.target.Path)
	switch {
	case err == nil && f.created:
		return errors.Errorf("%s appeared on disk since it was loaded", f.target.Path)
	case err == nil && text.NewBuffer(f.target.Path, content).Hash() != f.original.Hash():
		return errors.Errorf("%s changed on disk since it was loaded", f.target.Path)
	case err != nil && !(f.created && errors.Is(err, fs.ErrNotExist)):
		return errors.Errorf("re-reading before commit: %w", err)
	}

	staged, err := files.Stage(ctx, f.target.Path, f.current.Bytes())
	if err != nil {
		return errors.Errorf("staging: %w", err)
	}

	if err := files.Commit(ctx, staged); err != nil {
		if derr := files.Discard(ctx, staged); derr != nil {
			f.logger.Warn().Err(derr).Str("temp", staged.TempPath).Msg("discarding staged file")
		}
		return errors.Errorf("committing: %w", err)
	}

	f.logger.Debug().Str("checksum", staged.Checksum).Msg("committed")
	return nil
}

func (f *fileRun) to(state status.FileState) {
	f.logger.Trace().Str("from", f.state.String()).Str("to", state.String()).Msg("file state")
	f.state = state
}

func (f *fileRun) commit() fileResult {
	f.to(status.StateCommitted)
	return f.result("")
}

// rollBack discards every in-memory effect. Rules that applied in memory and
// rules never attempted become Aborted; failures keep their status.
func (f *fileRun) rollBack(reason string) fileResult {
	for i, o := range f.outcomes {
		switch o.Status {
		case rule.StatusUnknown:
			f.outcomes[i] = rule.AbortedBecause("not attempted: %s", reason)
		case rule.Applied:
			f.outcomes[i] = rule.AbortedBecause("rolled back: %s", reason)
		}
	}
	f.to(status.StateRolledBack)
	f.logger.Warn().Str("reason", reason).Msg("file rolled back")
	return f.result(reason)
}

// failIO rolls back after a file system failure. Every rule whose effect did
// not reach the disk is reported as FailedIO.
func (f *fileRun) failIO(err error) fileResult {
	err = errors.Errorf("%w: %v", rule.ErrIO, err)
	for i, o := range f.outcomes {
		if o.Status == rule.StatusUnknown || o.Status == rule.Applied {
			f.outcomes[i] = rule.IOFailure(err)
		}
	}
	f.to(status.StateRolledBack)
	f.logger.Error().Str("state", status.StateRolledBack.String()).Msg(f.formatter.FormatError(err))
	return f.result(err.Error())
}

func (f *fileRun) result(reason string) fileResult {
	res := fileResult{
		file: report.FileResult{
			Path:    f.target.Path,
			State:   f.state,
			Created: f.created,
			Reason:  reason,
		},
		entries: make([]report.Entry, 0, len(f.target.Rules)),
	}

	if f.original != nil {
		res.file.BeforeHash = f.original.Hash()
	}
	if f.state == status.StateCommitted {
		res.file.AfterHash = f.current.Hash()
		res.file.Changed = !f.current.Equal(f.original)
		res.file.Diff = f.diff
	}

	for i, r := range f.target.Rules {
		res.entries = append(res.entries, report.Entry{Path: f.target.Path, RuleID: r.ID, Outcome: f.outcomes[i]})
	}
	return res
}
