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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrTimeout means a read, write or rename did not finish within its bound
	ErrTimeout = errors.Base("io timeout")

	// ErrLocked means another process holds the file's lock
	ErrLocked = errors.Base("file is locked")
)

// 📊 FileState is where a target file is in its lifecycle during one run
type FileState int

const (
	StateUnknown    FileState = iota
	StateLoaded               // read into memory, nothing applied yet
	StateApplying             // rules are being evaluated
	StateCommitted            // new content is on disk, or unchanged
	StateRolledBack           // on-disk content is what it was before the run
)

// String returns a string representation of FileState
func (s FileState) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateApplying:
		return "applying"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled-back"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the state by name
func (s FileState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Final reports whether the state ends a file's lifecycle
func (s FileState) Final() bool {
	return s == StateCommitted || s == StateRolledBack
}

// 📄 Staged is new content written next to its target, waiting for Commit
type Staged struct {
	Path     string
	TempPath string
	Checksum string
}

// 💾 FileManager is everything the executor needs from the file system
type FileManager interface {
	// Read returns the content of path. A missing file wraps fs.ErrNotExist.
	Read(ctx context.Context, path string) ([]byte, error)

	// Stage writes content to a temporary file in path's directory
	Stage(ctx context.Context, path string, content []byte) (*Staged, error)
	// Commit atomically replaces the target with the staged content
	Commit(ctx context.Context, staged *Staged) error
	// Discard removes a staged file without touching the target
	Discard(ctx context.Context, staged *Staged) error

	// Lock takes an exclusive advisory lock on path
	Lock(ctx context.Context, path string) (unlock func() error, err error)
}

// ⚙️ Config bounds the manager's blocking operations
type Config struct {
	// LockDir holds the lock files. Defaults to patchrc-locks in the temp dir.
	LockDir string
	// IOTimeout bounds a single read, stage or commit. Defaults to 10s.
	IOTimeout time.Duration
	// LockTimeout bounds waiting for a lock. Defaults to 5s.
	LockTimeout time.Duration
}

const (
	defaultIOTimeout   = 10 * time.Second
	defaultLockTimeout = 5 * time.Second
	lockRetryDelay     = 50 * time.Millisecond
	createdFileMode    = 0644
)

// 🔧 Manager implements FileManager on the local file system
type Manager struct {
	lockDir     string
	ioTimeout   time.Duration
	lockTimeout time.Duration
}

var _ FileManager = (*Manager)(nil)

// 🏭 New creates a new file manager
func New(cfg Config) *Manager {
	m := &Manager{
		lockDir:     cfg.LockDir,
		ioTimeout:   cfg.IOTimeout,
		lockTimeout: cfg.LockTimeout,
	}
	if m.lockDir == "" {
		m.lockDir = filepath.Join(os.TempDir(), "patchrc-locks")
	}
	if m.ioTimeout <= 0 {
		m.ioTimeout = defaultIOTimeout
	}
	if m.lockTimeout <= 0 {
		m.lockTimeout = defaultLockTimeout
	}
	return m
}

// 🔍 Checksum generates a SHA-256 hash of the content
func Checksum(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

type boundedResult[T any] struct {
	val T
	err error
}

// bounded runs fn on its own goroutine and gives up once the io timeout or ctx
// ends. A timed out fn keeps running; abandon, when set, receives its late
// result so nothing it created is left behind.
func bounded[T any](ctx context.Context, timeout time.Duration, what string, fn func() (T, error), abandon func(T)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan boundedResult[T], 1)
	go func() {
		val, err := fn()
		done <- boundedResult[T]{val, err}
	}()

	var zero T
	select {
	case res := <-done:
		return res.val, res.err
	case <-ctx.Done():
		if abandon != nil {
			go func() {
				if res := <-done; res.err == nil {
					abandon(res.val)
				}
			}()
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, errors.Errorf("%w: %s after %s", ErrTimeout, what, timeout)
		}
		return zero, errors.Errorf("%s: %w", what, ctx.Err())
	}
}

func (m *Manager) Read(ctx context.Context, path string) ([]byte, error) {
	return bounded(ctx, m.ioTimeout, "reading "+path, func() ([]byte, error) {
		info, err := os.Stat(path)
		if err != nil {
			return nil, errors.Errorf("reading %s: %w", path, err)
		}
		// opening a fifo or device can block with no writer on the other end
		if !info.Mode().IsRegular() {
			return nil, errors.Errorf("reading %s: not a regular file (%s)", path, info.Mode().Type())
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Errorf("reading %s: %w", path, err)
		}
		return content, nil
	}, nil)
}

func (m *Manager) Stage(ctx context.Context, path string, content []byte) (*Staged, error) {
	staged, err := bounded(ctx, m.ioTimeout, "staging "+path, func() (*Staged, error) {
		return stage(path, content)
	}, func(late *Staged) {
		os.Remove(late.TempPath)
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().Str("path", path).Str("temp", staged.TempPath).Msg("staged new content")

	return staged, nil
}

func stage(path string, content []byte) (*Staged, error) {
	mode := fs.FileMode(createdFileMode)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	} else if !os.IsNotExist(err) {
		return nil, errors.Errorf("checking %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Errorf("creating parent directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".patchrc-*")
	if err != nil {
		return nil, errors.Errorf("creating temp file: %w", err)
	}
	staged := &Staged{Path: path, TempPath: tmp.Name(), Checksum: Checksum(content)}

	fail := func(err error) (*Staged, error) {
		tmp.Close()
		os.Remove(staged.TempPath)
		return nil, err
	}

	if _, err := tmp.Write(content); err != nil {
		return fail(errors.Errorf("writing temp file: %w", err))
	}
	if err := tmp.Chmod(mode); err != nil {
		return fail(errors.Errorf("setting temp file mode: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(errors.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(staged.TempPath)
		return nil, errors.Errorf("closing temp file: %w", err)
	}

	return staged, nil
}

// Commit renames the staged file over its target. A rename that times out may
// still land later, so a timeout here leaves the target's content unknown.
func (m *Manager) Commit(ctx context.Context, staged *Staged) error {
	if staged == nil {
		return errors.New("nothing staged")
	}

	_, err := bounded(ctx, m.ioTimeout, "committing "+staged.Path, func() (struct{}, error) {
		if err := os.Rename(staged.TempPath, staged.Path); err != nil {
			os.Remove(staged.TempPath)
			return struct{}{}, errors.Errorf("renaming temp file: %w", err)
		}

		// the rename is already visible, so a failed directory sync only costs durability
		if err := syncDir(filepath.Dir(staged.Path)); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("path", staged.Path).Msg("directory sync failed after commit")
		}
		return struct{}{}, nil
	}, nil)
	return err
}

func (m *Manager) Discard(ctx context.Context, staged *Staged) error {
	if staged == nil {
		return nil
	}
	if err := os.Remove(staged.TempPath); err != nil && !os.IsNotExist(err) {
		return errors.Errorf("removing temp file: %w", err)
	}
	return nil
}

// Lock leaves its lock file in place after unlock, one small file per target
// path, reused by later runs. Removing it would let a waiter still holding the
// old file and a newcomer creating a fresh one both own the lock.
func (m *Manager) Lock(ctx context.Context, path string) (func() error, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Errorf("resolving %s: %w", path, err)
	}
	if err := os.MkdirAll(m.lockDir, 0755); err != nil {
		return nil, errors.Errorf("creating lock directory: %w", err)
	}

	lock := flock.New(filepath.Join(m.lockDir, Checksum([]byte(abs))+".lock"))

	ctx, cancel := context.WithTimeout(ctx, m.lockTimeout)
	defer cancel()

	ok, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.Errorf("%w: %s after %s", ErrLocked, path, m.lockTimeout)
		}
		return nil, errors.Errorf("locking %s: %w", path, err)
	}
	if !ok {
		return nil, errors.Errorf("%w: %s", ErrLocked, path)
	}

	return lock.Unlock, nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return errors.Errorf("opening directory: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return errors.Errorf("syncing directory: %w", err)
	}
	return nil
}
