// Package workspace locates and lazily initializes the directory a turn's
// tools operate in.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Root markers, checked in order while walking up from the start directory.
var rootMarkers = []string{".git", "go.mod", "package.json", "atelier.yaml"}

// Workspace is the working directory shared with every tool invocation.
// Ensure is retried each turn until initialization succeeds.
type Workspace struct {
	dir string
	log zerolog.Logger

	ready   bool
	lastErr error
}

// New creates a workspace rooted at dir. An empty dir means discover from
// the current directory at first use.
func New(dir string, log zerolog.Logger) *Workspace {
	return &Workspace{dir: dir, log: log}
}

// Dir returns the resolved working directory. Valid only after Ensure.
func (w *Workspace) Dir() string {
	return w.dir
}

// Ensure resolves and validates the working directory. A previous failure
// is retried rather than cached.
func (w *Workspace) Ensure() (string, error) {
	if w.ready {
		return w.dir, nil
	}
	if w.lastErr != nil {
		w.log.Debug().Err(w.lastErr).Msg("retrying workspace init")
	}

	dir := w.dir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			w.lastErr = err
			return "", fmt.Errorf("resolve working directory: %w", err)
		}
		dir = Discover(cwd)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		w.lastErr = err
		return "", fmt.Errorf("resolve workspace path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		w.lastErr = err
		return "", fmt.Errorf("workspace directory: %w", err)
	}
	if !info.IsDir() {
		w.lastErr = fmt.Errorf("%s is not a directory", abs)
		return "", w.lastErr
	}

	w.dir = abs
	w.ready = true
	w.lastErr = nil
	w.log.Debug().Str("dir", abs).Msg("workspace ready")
	return abs, nil
}

// Discover walks up from start looking for a project root marker. When none
// is found it returns start unchanged.
func Discover(start string) string {
	dir := start
	for {
		for _, marker := range rootMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}
