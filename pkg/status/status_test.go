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

package status

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return New(Config{
		LockDir:     filepath.Join(t.TempDir(), "locks"),
		LockTimeout: 200 * time.Millisecond,
	})
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestManagerOperations(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T, dir string) string
		operation func(ctx context.Context, t *testing.T, mgr *Manager, path string)
		check     func(t *testing.T, dir, path string)
	}{
		{
			name: "read_existing_file",
			setup: func(t *testing.T, dir string) string {
				path := filepath.Join(dir, "a.go")
				require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0644))
				return path
			},
			operation: func(ctx context.Context, t *testing.T, mgr *Manager, path string) {
				content, err := mgr.Read(ctx, path)
				require.NoError(t, err)
				assert.Equal(t, "package a\n", string(content))
			},
		},
		{
			name: "read_missing_file",
			setup: func(t *testing.T, dir string) string {
				return filepath.Join(dir, "missing.go")
			},
			operation: func(ctx context.Context, t *testing.T, mgr *Manager, path string) {
				_, err := mgr.Read(ctx, path)
				require.Error(t, err)
				assert.ErrorIs(t, err, os.ErrNotExist)
			},
		},
		{
			name: "stage_and_commit_keeps_mode",
			setup: func(t *testing.T, dir string) string {
				path := filepath.Join(dir, "run.sh")
				require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))
				return path
			},
			operation: func(ctx context.Context, t *testing.T, mgr *Manager, path string) {
				staged, err := mgr.Stage(ctx, path, []byte("#!/bin/sh\necho hi\n"))
				require.NoError(t, err)
				assert.Equal(t, Checksum([]byte("#!/bin/sh\necho hi\n")), staged.Checksum)
				assert.Equal(t, filepath.Dir(path), filepath.Dir(staged.TempPath), "temp file must live next to the target")

				require.NoError(t, mgr.Commit(ctx, staged))
			},
			check: func(t *testing.T, dir, path string) {
				content, err := os.ReadFile(path)
				require.NoError(t, err)
				assert.Equal(t, "#!/bin/sh\necho hi\n", string(content))

				info, err := os.Stat(path)
				require.NoError(t, err)
				assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
				assert.Equal(t, []string{"run.sh"}, listDir(t, dir), "no temp files left behind")
			},
		},
		{
			name: "stage_created_file",
			setup: func(t *testing.T, dir string) string {
				return filepath.Join(dir, "nested", "new.go")
			},
			operation: func(ctx context.Context, t *testing.T, mgr *Manager, path string) {
				staged, err := mgr.Stage(ctx, path, []byte("package nested\n"))
				require.NoError(t, err)
				require.NoError(t, mgr.Commit(ctx, staged))
			},
			check: func(t *testing.T, dir, path string) {
				info, err := os.Stat(path)
				require.NoError(t, err)
				assert.Equal(t, os.FileMode(createdFileMode), info.Mode().Perm())
			},
		},
		{
			name: "crash_before_rename_leaves_target_intact",
			setup: func(t *testing.T, dir string) string {
				path := filepath.Join(dir, "models.go")
				require.NoError(t, os.WriteFile(path, []byte("original\n"), 0644))
				return path
			},
			operation: func(ctx context.Context, t *testing.T, mgr *Manager, path string) {
				// staging without commit is what a crash between the two looks like
				staged, err := mgr.Stage(ctx, path, []byte("half written"))
				require.NoError(t, err)

				content, err := os.ReadFile(path)
				require.NoError(t, err)
				assert.Equal(t, "original\n", string(content))

				require.NoError(t, mgr.Discard(ctx, staged))
				require.NoError(t, mgr.Discard(ctx, staged), "discard is idempotent")
			},
			check: func(t *testing.T, dir, path string) {
				content, err := os.ReadFile(path)
				require.NoError(t, err)
				assert.Equal(t, "original\n", string(content))
				assert.Equal(t, []string{"models.go"}, listDir(t, dir))
			},
		},
		{
			name: "commit_nothing",
			setup: func(t *testing.T, dir string) string {
				return filepath.Join(dir, "a.go")
			},
			operation: func(ctx context.Context, t *testing.T, mgr *Manager, path string) {
				assert.Error(t, mgr.Commit(ctx, nil))
				assert.NoError(t, mgr.Discard(ctx, nil))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
			dir := t.TempDir()
			mgr := newTestManager(t)

			path := tt.setup(t, dir)
			tt.operation(ctx, t, mgr, path)

			if tt.check != nil {
				tt.check(t, dir, path)
			}
		})
	}
}

func TestReadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "a.go")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	// either outcome is valid once the read races the cancellation, but an
	// error must mention the context
	_, err := newTestManager(t).Read(ctx, path)
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestLock(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager(t)
	path := filepath.Join(t.TempDir(), "models.go")

	unlock, err := mgr.Lock(ctx, path)
	require.NoError(t, err)

	_, err = mgr.Lock(ctx, path)
	require.Error(t, err, "a second lock on the same file must wait and time out")
	assert.ErrorIs(t, err, ErrLocked)

	other, err := mgr.Lock(ctx, path+".other")
	require.NoError(t, err, "locks are per file")
	require.NoError(t, other())

	require.NoError(t, unlock())

	again, err := mgr.Lock(ctx, path)
	require.NoError(t, err, "lock is free after unlock")
	require.NoError(t, again())

	assert.Len(t, listDir(t, mgr.lockDir), 2, "lock files stay behind and are reused")
}

func TestBoundedTimeout(t *testing.T) {
	release := make(chan struct{})
	abandoned := make(chan string, 1)

	_, err := bounded(context.Background(), 20*time.Millisecond, "staging a.go", func() (string, error) {
		<-release
		return "late", nil
	}, func(v string) { abandoned <- v })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "staging a.go after 20ms")

	close(release)
	select {
	case v := <-abandoned:
		assert.Equal(t, "late", v, "a result that shows up after the timeout is handed to abandon")
	case <-time.After(time.Second):
		t.Fatal("late result never reached abandon")
	}
}

func TestFileState(t *testing.T) {
	assert.Equal(t, "loaded", StateLoaded.String())
	assert.Equal(t, "applying", StateApplying.String())
	assert.Equal(t, "committed", StateCommitted.String())
	assert.Equal(t, "rolled-back", StateRolledBack.String())
	assert.Equal(t, "unknown", StateUnknown.String())

	assert.True(t, StateCommitted.Final())
	assert.True(t, StateRolledBack.Final())
	assert.False(t, StateApplying.Final())
}
