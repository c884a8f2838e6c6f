package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"ffbuild/internal/config"
	"ffbuild/internal/fileutil"
)

// ErrLocked is returned when another ffbuild process holds the workspace.
var ErrLocked = errors.New("another ffbuild process is using this workspace")

// Lock is an exclusive advisory lock on the work directory.
type Lock struct {
	path string
	lock *flock.Flock
}

// Acquire takes the workspace lock without blocking.
func Acquire(cfg *config.Config) (*Lock, error) {
	path := cfg.LockPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	l := &Lock{path: path, lock: flock.New(path)}
	ok, err := l.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, path)
	}
	return l, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// Prepare wipes and recreates the derived build, output and stats
// directories and makes sure the sources cache exists. The layout is
// rechecked first since command-line overrides are applied after Load.
func Prepare(cfg *config.Config) error {
	if err := cfg.ValidatePaths(); err != nil {
		return fmt.Errorf("prepare workspace: %w", err)
	}
	for _, dir := range []string{cfg.Paths.BuildDir, cfg.Paths.OutputDir, cfg.Paths.StatsDir} {
		if err := fileutil.ResetDir(dir); err != nil {
			return fmt.Errorf("prepare workspace: %w", err)
		}
	}
	if err := os.MkdirAll(cfg.Paths.SourcesDir, 0o755); err != nil {
		return fmt.Errorf("create sources directory: %w", err)
	}
	return nil
}
