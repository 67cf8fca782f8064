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
	"sync/atomic"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/patchrc/pkg/plan"
	"github.com/walteh/patchrc/pkg/report"
	"github.com/walteh/patchrc/pkg/status"
)

// 🔧 Options contains configuration for the executor
type Options struct {
	// Files is the file system boundary
	Files status.FileManager
	// Concurrency is the number of files processed at once. Zero means one.
	Concurrency int
	// DryRun evaluates every rule but never writes
	DryRun bool
	// Diff attaches a unified diff to every changed file
	Diff bool
}

// 🎮 Executor applies plans. It keeps no state between runs.
type Executor struct {
	files     status.FileManager
	runner    *Runner
	formatter status.FileFormatter
	dryRun    bool
	diff      bool
}

// 🏭 New creates a new executor with the given options
func New(opts Options) (*Executor, error) {
	if opts.Files == nil {
		return nil, errors.Errorf("file manager is required")
	}
	if opts.Concurrency < 0 {
		return nil, errors.Errorf("concurrency must not be negative, got %d", opts.Concurrency)
	}
	return &Executor{
		files:     opts.Files,
		runner:    NewRunner(opts.Concurrency),
		formatter: status.NewDefaultFileFormatter(),
		dryRun:    opts.DryRun,
		diff:      opts.Diff,
	}, nil
}

// 🚀 Run applies p and returns one entry per rule and one result per file,
// both in plan order. Rule and file failures are reported, not returned: the
// only error is a context that is already done before anything starts.
func (e *Executor) Run(ctx context.Context, p *plan.Plan) (*report.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Errorf("run canceled before start: %w", err)
	}
	if p == nil {
		return nil, errors.Errorf("plan is required")
	}

	rep := report.New(e.dryRun)
	logger := zerolog.Ctx(ctx).With().Str("run_id", rep.RunID).Logger()
	ctx = logger.WithContext(ctx)

	logger.Info().
		Int("files", len(p.Targets)).
		Int("rules", p.RuleCount()).
		Int("concurrency", e.runner.Limit()).
		Bool("dry_run", e.dryRun).
		Msg("starting run")

	results := make([]fileResult, len(p.Targets))
	var done atomic.Int64

	// every file gets a job, so files the run never reaches still report
	_ = e.runner.Run(ctx, len(p.Targets), func(ctx context.Context, i int) error {
		res := e.runFile(ctx, p.Targets[i])
		results[i] = res
		logger.Debug().Msg(e.formatter.FormatFileResult(res.file.Path, res.file.State, res.file.Created, res.file.Changed, res.file.Reason))
		logger.Debug().Msg(e.formatter.FormatProgress(int(done.Add(1)), len(p.Targets)))
		return nil
	})

	for _, res := range results {
		rep.Add(res.file, res.entries...)
	}
	rep.Finish()

	logger.Info().
		Int("committed", len(rep.SucceededFiles())).
		Int("rolled_back", len(rep.FailedFiles())).
		Str("duration", rep.Duration).
		Msg("run complete")

	return rep, nil
}
