//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/atepart/rns-release/internal/logger"
)

const (
	// MarkerFilename marks that the updater is running right now to avoid parallel execution.
	MarkerFilename = "rns-updater.marker"
	// MarkerLifetime is the period after which a stale marker is ignored.
	MarkerLifetime = 30 * time.Second
)

// ErrUpdaterAlreadyRunning is returned when a fresh marker already exists.
var ErrUpdaterAlreadyRunning = errors.New("another updater is already running")

// Marker is a held updater run marker.
type Marker struct {
	path string
}

// AcquireMarker creates the run marker in dir. A marker younger than
// MarkerLifetime means another run is active. An older one is treated as left
// over by a crashed run: stray updater processes are terminated and the marker
// is replaced.
func AcquireMarker(ctx context.Context, dir string) (*Marker, error) {
	path := filepath.Join(dir, MarkerFilename)

	logger.Debug(ctx, "Checking for the presence of an update marker")

	info, err := os.Stat(path)

	switch {
	case err == nil:
		if time.Since(info.ModTime()) <= MarkerLifetime {
			return nil, ErrUpdaterAlreadyRunning
		}

		logger.Info(ctx, "The update marker is too old, attempting cleanup")

		if _, err = TerminateProcesses(ctx, UpdaterExecutableBase); err != nil {
			return nil, fmt.Errorf("%w: stale marker cleanup: %w", ErrUpdaterAlreadyRunning, err)
		}

		if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: remove stale marker: %w", ErrUpdaterAlreadyRunning, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		logger.Infof(ctx, "Unable to read update marker: %v", err)
	}

	if err = os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create marker directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrUpdaterAlreadyRunning
		}

		return nil, fmt.Errorf("create marker: %w", err)
	}

	if _, err = fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("write marker: %w", err)
	}

	if err = file.Close(); err != nil {
		return nil, fmt.Errorf("close marker: %w", err)
	}

	return &Marker{path: path}, nil
}

// Path returns the marker location.
func (m *Marker) Path() string {
	return m.path
}

// Release removes the marker. It is safe to call more than once.
func (m *Marker) Release() {
	if m == nil {
		return
	}

	_ = os.Remove(m.path)
}
