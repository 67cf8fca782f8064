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

// Package opts holds the state shared by every patchrc command.
package opts

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/patchrc/pkg/config"
	"github.com/walteh/patchrc/pkg/plan"
)

// 🚦 Process exit codes
const (
	ExitOK     = 0
	ExitFailed = 1
	ExitConfig = 2
)

// 🎛️ RootOpts contains the persistent flags and output streams
type RootOpts struct {
	ConfigFile string
	Debug      bool

	Stdout io.Writer
	Stderr io.Writer
}

// 📋 LoadPlan loads the config file and builds its plan, reading targets
// through files
func (o *RootOpts) LoadPlan(ctx context.Context, files plan.Reader) (*config.Config, *plan.Plan, error) {
	cfg, err := config.Load(ctx, o.ConfigFile)
	if err != nil {
		return nil, nil, Exit(ExitConfig, errors.Errorf("loading config: %w", err))
	}
	zerolog.Ctx(ctx).Debug().Str("config", o.ConfigFile).Msg(cfg.String())

	p, err := cfg.Plan(ctx, files)
	if err != nil {
		return nil, nil, Exit(ExitConfig, err)
	}
	return cfg, p, nil
}

// ExitError carries the exit code a command failed with
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Exit wraps err with an exit code
func Exit(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

// ExitCode maps a command error to a process exit code. Errors without a
// code are usage errors from flag parsing.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	return ExitConfig
}
