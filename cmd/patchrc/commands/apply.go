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
	"runtime"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/patchrc/cmd/patchrc/opts"
)

// NewApplyCmd creates the apply command
func NewApplyCmd(o *opts.RootOpts) *cobra.Command {
	ro := runOptions{command: "apply", verb: "applying"}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the plan to its target files",
		Long: `Apply evaluates every rule of the plan and writes the files whose rules
all succeeded. It will:
1. Load and validate the plan
2. Apply each file's rules in order, stopping at the first failure
3. Commit files atomically; a failed file is left exactly as it was
4. Print a report

Exit status is 0 when every file committed, 1 when any file rolled back and
2 when the plan could not be loaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := execute(cmd.Context(), o, ro)
			if err != nil {
				return err
			}
			if !rep.OK() {
				return opts.Exit(opts.ExitFailed, errors.Errorf("%d of %d files rolled back", len(rep.FailedFiles()), len(rep.Files)))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&ro.jobs, "jobs", "j", runtime.NumCPU(), "number of files to patch at once")
	cmd.Flags().BoolVar(&ro.dryRun, "dry-run", false, "evaluate every rule without writing")
	cmd.Flags().BoolVar(&ro.diff, "diff", false, "print a unified diff for every changed file")
	cmd.Flags().BoolVar(&ro.json, "json", false, "print the report as JSON")
	cmd.Flags().StringVar(&ro.metricsFile, "metrics-file", "", "write run metrics to this node exporter textfile")

	return cmd
}
