package installed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Filename is the state file name inside the install directory.
const Filename = "rns-installed.yaml"

// State describes the last successful installation.
type State struct {
	// Tag is the installed release tag.
	Tag string `yaml:"tag"`
	// Asset is the archive the installation was made from.
	Asset string `yaml:"asset"`
	// InstalledAt is when the installation finished.
	InstalledAt time.Time `yaml:"installed_at"`
}

// Repository defines persistence operations for the installed state.
type Repository interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
}

// FileRepository stores the state as YAML in the install directory.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

// ErrNotFound is returned when nothing has been installed yet.
var ErrNotFound = errors.New("installed state not found")

// NewFileRepository creates a repository for the given install directory.
func NewFileRepository(installDir string) *FileRepository {
	return &FileRepository{
		path: filepath.Join(filepath.Clean(installDir), Filename),
	}
}

// Load reads the installed state.
func (r *FileRepository) Load(_ context.Context) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read installed state: %w", err)
	}

	var state State
	if err = yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode installed state: %w", err)
	}

	return &state, nil
}

// Save writes the installed state.
func (r *FileRepository) Save(_ context.Context, state *State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode installed state: %w", err)
	}

	if err = os.WriteFile(r.path, data, 0o600); err != nil {
		return fmt.Errorf("write installed state: %w", err)
	}

	return nil
}
