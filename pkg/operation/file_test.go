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
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/patchrc/pkg/plan"
	"github.com/walteh/patchrc/pkg/rule"
	"github.com/walteh/patchrc/pkg/status"
	"github.com/walteh/patchrc/pkg/text"
)

// 🔧 MockFileManager is a mock implementation of status.FileManager
type MockFileManager struct {
	mock.Mock
}

func (m *MockFileManager) Read(ctx context.Context, path string) ([]byte, error) {
	args := m.Called(ctx, path)
	content, _ := args.Get(0).([]byte)
	return content, args.Error(1)
}

func (m *MockFileManager) Stage(ctx context.Context, path string, content []byte) (*status.Staged, error) {
	args := m.Called(ctx, path, content)
	staged, _ := args.Get(0).(*status.Staged)
	return staged, args.Error(1)
}

func (m *MockFileManager) Commit(ctx context.Context, staged *status.Staged) error {
	return m.Called(ctx, staged).Error(0)
}

func (m *MockFileManager) Discard(ctx context.Context, staged *status.Staged) error {
	return m.Called(ctx, staged).Error(0)
}

func (m *MockFileManager) Lock(ctx context.Context, path string) (func() error, error) {
	args := m.Called(ctx, path)
	unlock, _ := args.Get(0).(func() error)
	return unlock, args.Error(1)
}

func noopUnlock() error { return nil }

func TestRunWithMockFileManager(t *testing.T) {
	applied := "type Foo struct {\n    OldField int\n    NewField string\n}\n"

	tests := []struct {
		name       string
		rules      []rule.Rule
		setup      func(m *MockFileManager, path string)
		wantState  status.FileState
		want       []rule.Status
		wantReason string
	}{
		{
			name:  "commit_succeeds",
			rules: []rule.Rule{addField()},
			setup: func(m *MockFileManager, path string) {
				staged := &status.Staged{Path: path, TempPath: path + ".tmp"}
				m.On("Lock", mock.Anything, path).Return(noopUnlock, nil)
				m.On("Read", mock.Anything, path).Return([]byte(fooStruct), nil).Twice()
				m.On("Stage", mock.Anything, path, []byte(applied)).Return(staged, nil)
				m.On("Commit", mock.Anything, staged).Return(nil)
			},
			wantState: status.StateCommitted,
			want:      []rule.Status{rule.Applied},
		},
		{
			name: "commit_fails",
			rules: []rule.Rule{
				addField(),
				{ID: "already", Kind: text.Append, Payload: "OldField int"},
			},
			setup: func(m *MockFileManager, path string) {
				staged := &status.Staged{Path: path, TempPath: path + ".tmp"}
				m.On("Lock", mock.Anything, path).Return(noopUnlock, nil)
				m.On("Read", mock.Anything, path).Return([]byte(fooStruct), nil)
				m.On("Stage", mock.Anything, path, mock.Anything).Return(staged, nil)
				m.On("Commit", mock.Anything, staged).Return(errors.New("disk full"))
				m.On("Discard", mock.Anything, staged).Return(nil)
			},
			wantState:  status.StateRolledBack,
			want:       []rule.Status{rule.FailedIO, rule.SkippedAlreadyApplied},
			wantReason: "disk full",
		},
		{
			name:  "stage_fails",
			rules: []rule.Rule{addField()},
			setup: func(m *MockFileManager, path string) {
				m.On("Lock", mock.Anything, path).Return(noopUnlock, nil)
				m.On("Read", mock.Anything, path).Return([]byte(fooStruct), nil)
				m.On("Stage", mock.Anything, path, mock.Anything).Return(nil, errors.New("read-only file system"))
			},
			wantState:  status.StateRolledBack,
			want:       []rule.Status{rule.FailedIO},
			wantReason: "read-only file system",
		},
		{
			name:  "lock_fails",
			rules: []rule.Rule{addField(), {ID: "second", Kind: text.Append, Payload: "// x\n"}},
			setup: func(m *MockFileManager, path string) {
				m.On("Lock", mock.Anything, path).Return(nil, errors.Errorf("%w: %s", status.ErrLocked, path))
			},
			wantState:  status.StateRolledBack,
			want:       []rule.Status{rule.FailedIO, rule.FailedIO},
			wantReason: "file is locked",
		},
		{
			name:  "read_times_out",
			rules: []rule.Rule{addField()},
			setup: func(m *MockFileManager, path string) {
				m.On("Lock", mock.Anything, path).Return(noopUnlock, nil)
				m.On("Read", mock.Anything, path).Return(nil, errors.Errorf("%w: reading %s", status.ErrTimeout, path))
			},
			wantState:  status.StateRolledBack,
			want:       []rule.Status{rule.FailedIO},
			wantReason: "io timeout",
		},
		{
			name:  "changed_on_disk_before_commit",
			rules: []rule.Rule{addField()},
			setup: func(m *MockFileManager, path string) {
				m.On("Lock", mock.Anything, path).Return(noopUnlock, nil)
				m.On("Read", mock.Anything, path).Return([]byte(fooStruct), nil).Once()
				m.On("Read", mock.Anything, path).Return([]byte(fooStruct+"// edited\n"), nil).Once()
			},
			wantState:  status.StateRolledBack,
			want:       []rule.Status{rule.FailedIO},
			wantReason: "changed on disk",
		},
		{
			name:  "unchanged_file_is_not_written",
			rules: []rule.Rule{addField()},
			setup: func(m *MockFileManager, path string) {
				m.On("Lock", mock.Anything, path).Return(noopUnlock, nil)
				m.On("Read", mock.Anything, path).Return([]byte(applied), nil).Once()
			},
			wantState: status.StateCommitted,
			want:      []rule.Status{rule.SkippedAlreadyApplied},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			path := writeFile(t, t.TempDir(), "models.go", fooStruct)
			p := mustPlan(t, ctx, plan.Target{Path: path, Rules: tt.rules})

			m := &MockFileManager{}
			tt.setup(m, path)

			rep, err := newExecutor(t, Options{Files: m}).Run(ctx, p)
			require.NoError(t, err)

			f, ok := rep.File(path)
			require.True(t, ok)
			assert.Equal(t, tt.wantState, f.State)
			assert.Contains(t, f.Reason, tt.wantReason)
			assert.Equal(t, tt.want, statuses(rep, path))

			m.AssertExpectations(t)
		})
	}
}

func TestRunCanceledMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(testContext(t))
	defer cancel()

	dir := t.TempDir()
	first := writeFile(t, dir, "a.go", fooStruct)
	second := writeFile(t, dir, "b.go", fooStruct)
	p := mustPlan(t, testContext(t),
		plan.Target{Path: first, Rules: []rule.Rule{addField()}},
		plan.Target{Path: second, Rules: []rule.Rule{addField()}},
	)

	m := &MockFileManager{}
	m.On("Lock", mock.Anything, first).Return(noopUnlock, nil)
	m.On("Read", mock.Anything, first).Return([]byte(fooStruct), nil).Run(func(mock.Arguments) { cancel() })

	rep, err := newExecutor(t, Options{Files: m, Concurrency: 1}).Run(ctx, p)
	require.NoError(t, err, "a run that started reports cancellation per file")

	assert.Equal(t, []string{first, second}, rep.FailedFiles())
	assert.Equal(t, []rule.Status{rule.Aborted}, statuses(rep, first))
	assert.Equal(t, []rule.Status{rule.Aborted}, statuses(rep, second))

	f, _ := rep.File(second)
	assert.Contains(t, f.Reason, "canceled before the file was started")

	m.AssertExpectations(t)
	m.AssertNotCalled(t, "Lock", mock.Anything, second)
	m.AssertNotCalled(t, "Stage", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunDryRunSkipsLocks(t *testing.T) {
	ctx := testContext(t)
	path := filepath.Join(t.TempDir(), "models.go")
	writeFile(t, filepath.Dir(path), "models.go", fooStruct)
	p := mustPlan(t, ctx, plan.Target{Path: path, Rules: []rule.Rule{addField()}})

	m := &MockFileManager{}
	m.On("Read", mock.Anything, path).Return([]byte(fooStruct), nil).Once()

	rep, err := newExecutor(t, Options{Files: m, DryRun: true}).Run(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, []rule.Status{rule.Applied}, statuses(rep, path))

	m.AssertExpectations(t)
	m.AssertNotCalled(t, "Lock", mock.Anything, mock.Anything)
}

func TestRunLogsFileResults(t *testing.T) {
	var logs bytes.Buffer
	ctx := zerolog.New(&logs).Level(zerolog.DebugLevel).WithContext(context.Background())

	dir := t.TempDir()
	patched := writeFile(t, dir, "a.go", fooStruct)
	broken := writeFile(t, dir, "b.go", fooStruct)
	p := mustPlan(t, ctx,
		plan.Target{Path: patched, Rules: []rule.Rule{addField()}},
		plan.Target{Path: broken, Rules: []rule.Rule{addField()}},
	)

	staged := &status.Staged{Path: patched, TempPath: patched + ".tmp"}
	m := &MockFileManager{}
	m.On("Lock", mock.Anything, mock.Anything).Return(noopUnlock, nil)
	m.On("Read", mock.Anything, mock.Anything).Return([]byte(fooStruct), nil)
	m.On("Stage", mock.Anything, patched, mock.Anything).Return(staged, nil)
	m.On("Commit", mock.Anything, staged).Return(nil)
	m.On("Stage", mock.Anything, broken, mock.Anything).Return(nil, errors.New("read-only file system"))

	_, err := newExecutor(t, Options{Files: m, Concurrency: 1}).Run(ctx, p)
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "📝 Patched "+patched)
	assert.Contains(t, out, "↩️  Rolled back "+broken)
	assert.Contains(t, out, "❌ Error: ")
	assert.Contains(t, out, "read-only file system")
}
