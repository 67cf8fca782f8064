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

// NewCheckCmd creates the check command
func NewCheckCmd(o *opts.RootOpts) *cobra.Command {
	ro := runOptions{command: "check", verb: "checking", dryRun: true, diff: true}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report what apply would change without writing",
		Long: `Check runs the plan as a dry run and prints a diff for every file that
would change. Exit status is 1 when any rule would change a file or fail, so
it can guard CI against unapplied patches.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := execute(cmd.Context(), o, ro)
			if err != nil {
				return err
			}
			if !rep.OK() {
				return opts.Exit(opts.ExitFailed, errors.Errorf("%d of %d files would roll back", len(rep.FailedFiles()), len(rep.Files)))
			}
			if rep.Changed() {
				return opts.Exit(opts.ExitFailed, errors.Errorf("plan is not fully applied"))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&ro.jobs, "jobs", "j", runtime.NumCPU(), "number of files to check at once")
	cmd.Flags().BoolVar(&ro.json, "json", false, "print the report as JSON")

	return cmd
}
