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

	"golang.org/x/sync/errgroup"
)

// 🏃 Runner runs one job per index with bounded concurrency
type Runner struct {
	limit int
}

// 🏗️ NewRunner creates a new runner. A limit below one runs jobs one at a time.
func NewRunner(limit int) *Runner {
	if limit < 1 {
		limit = 1
	}
	return &Runner{limit: limit}
}

// Limit returns the maximum number of jobs in flight
func (r *Runner) Limit() int { return r.limit }

// 🏃 Run calls job for every index in [0, n) and waits for all of them.
// Jobs own their failure handling: an error from one job does not stop the
// others, and the first error is returned once all have finished.
func (r *Runner) Run(ctx context.Context, n int, job func(ctx context.Context, i int) error) error {
	if r.limit == 1 {
		return r.runSync(ctx, n, job)
	}
	return r.runAsync(ctx, n, job)
}

// 🔄 runSync runs jobs in index order on the calling goroutine
func (r *Runner) runSync(ctx context.Context, n int, job func(ctx context.Context, i int) error) error {
	var first error
	for i := 0; i < n; i++ {
		if err := job(ctx, i); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ⚡ runAsync runs jobs on a bounded pool of goroutines
func (r *Runner) runAsync(ctx context.Context, n int, job func(ctx context.Context, i int) error) error {
	var g errgroup.Group
	g.SetLimit(r.limit)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			return job(ctx, i)
		})
	}

	return g.Wait()
}
