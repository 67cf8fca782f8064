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

package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/patchrc/cmd/patchrc/opts"
	"github.com/walteh/patchrc/pkg/log"
	"github.com/walteh/patchrc/pkg/metrics"
	"github.com/walteh/patchrc/pkg/operation"
	"github.com/walteh/patchrc/pkg/report"
	"github.com/walteh/patchrc/pkg/rule"
	"github.com/walteh/patchrc/pkg/status"
)

// runOptions are the flags apply and check share
type runOptions struct {
	command     string
	verb        string
	jobs        int
	dryRun      bool
	diff        bool
	json        bool
	metricsFile string
}

// execute loads the plan, runs it and prints the report. The returned error
// is always an *opts.ExitError.
func execute(ctx context.Context, o *opts.RootOpts, ro runOptions) (*report.Report, error) {
	logger := zerolog.Ctx(ctx).With().Str("command", ro.command).Logger()
	ctx = logger.WithContext(ctx)

	console := log.FromContext(ctx)
	if !ro.json {
		console.Header(ro.verb + " " + o.ConfigFile)
	}

	files := status.New(status.Config{})

	_, p, err := o.LoadPlan(ctx, files)
	if err != nil {
		return nil, err
	}
	if !ro.json {
		console.Infof("%d rules across %d files", p.RuleCount(), len(p.Targets))
	}

	exec, err := operation.New(operation.Options{
		Files:       files,
		Concurrency: ro.jobs,
		DryRun:      ro.dryRun,
		Diff:        ro.diff,
	})
	if err != nil {
		return nil, opts.Exit(opts.ExitConfig, errors.Errorf("creating executor: %w", err))
	}

	rep, err := exec.Run(ctx, p)
	if err != nil {
		return nil, opts.Exit(opts.ExitFailed, err)
	}

	if ro.metricsFile != "" {
		rec := metrics.NewRecorder()
		rec.Observe(rep)
		if err := rec.WriteTextfile(ro.metricsFile); err != nil {
			logger.Warn().Err(err).Str("path", ro.metricsFile).Msg("writing metrics")
			if !ro.json {
				console.Warningf("metrics not written to %s", ro.metricsFile)
			}
		}
	}

	if err := present(ctx, o, rep, ro.json); err != nil {
		return nil, opts.Exit(opts.ExitFailed, err)
	}

	return rep, nil
}

// present writes the report to stdout and any failures to stderr
func present(ctx context.Context, o *opts.RootOpts, rep *report.Report, asJSON bool) error {
	if asJSON {
		if err := rep.JSON(o.Stdout); err != nil {
			return err
		}
	} else {
		log.FromContext(ctx).LogReport(ctx, rep)
		if err := summaryTable(o.Stdout, rep); err != nil {
			return err
		}
	}

	if !rep.OK() {
		if err := rep.Diagnostics(o.Stderr); err != nil {
			return err
		}
	}
	return nil
}

// 📊 summaryTable renders rule counts per status
func summaryTable(w io.Writer, rep *report.Report) error {
	counts := rep.Counts()
	data := pterm.TableData{{"Status", "Rules"}}
	for _, s := range rule.Statuses() {
		data = append(data, []string{s.String(), strconv.Itoa(counts[s])})
	}
	data = append(data, []string{"files committed", strconv.Itoa(len(rep.SucceededFiles()))})
	data = append(data, []string{"files rolled back", strconv.Itoa(len(rep.FailedFiles()))})

	table, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		return errors.Errorf("rendering summary: %w", err)
	}
	if _, err := fmt.Fprintln(w, table); err != nil {
		return errors.Errorf("writing summary: %w", err)
	}
	return nil
}
