package updater

import (
	"errors"
	"io"
	"os"

	"github.com/atepart/rns-release/internal/config"
	"github.com/atepart/rns-release/internal/shell"
)

const (
	// DefaultFileMode is applied to the swapped-in application executable.
	DefaultFileMode os.FileMode = 0o755

	// DefaultListLimit is the number of releases listed when no limit is given.
	DefaultListLimit = 10

	// temporaryDirectoryPattern names the download directory.
	temporaryDirectoryPattern = "rns-updater-"
)

var (
	errNoReleases  = errors.New("no release with a recognised tag found")
	errNoAsset     = errors.New("release has no archive for this platform")
	errEmptyBundle = errors.New("archive contains no files")
)

// Options are inputs shared by every updater command.
type Options struct {
	// ConfigPath is the optional path to settings YAML file.
	ConfigPath string
	// InstallDir overrides the configured install directory.
	InstallDir string
	// Current overrides local version detection.
	Current string
	// OS and Arch override platform detection.
	OS   string
	Arch string
	// BaseURL overrides the GitHub API endpoint.
	BaseURL string
	// Env supplies the API token. Loaded from the process when nil.
	Env *config.Env
	// Runner executes the curl fallback.
	Runner shell.Runner
	// Stdout receives human-readable output. Defaults to os.Stdout.
	Stdout io.Writer
}

// ListOptions are inputs of the list command.
type ListOptions struct {
	Options

	// Limit is the maximum number of releases shown.
	Limit int
}

// ShowOptions are inputs of the show command.
type ShowOptions struct {
	Options

	// Tag selects the release. Empty means the latest one.
	Tag string
}

// InstallOptions are inputs of the install command.
type InstallOptions struct {
	Options

	// Tag selects the release. Empty means the latest one.
	Tag string
	// Force reinstalls a release that is already installed.
	Force bool
	// Progress renders download progress bars.
	Progress bool
	// NoKill leaves running application processes alone.
	NoKill bool
	// Start launches the application after a successful installation.
	Start bool
}
