package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/atepart/rns-release/internal/domain/release"
)

// Config holds the release settings shared by the rns-* binaries.
type Config struct {
	// AppName is the bundle name and the prefix of every archive.
	AppName string `yaml:"app_name"`
	// RepoSlug is the GitHub "owner/repo" written into the version file and used for releases.
	RepoSlug string `yaml:"repo_slug"`
	// VersionFile is the path of the generated Python version module.
	VersionFile string `yaml:"version_file"`
	// CommitMessage is the text/template of the release commit message.
	CommitMessage string `yaml:"commit_message"`
	// TagMessage is the text/template of the annotated tag message.
	TagMessage string `yaml:"tag_message"`
	// Remote is the git remote to push to. Empty means git's default.
	Remote string `yaml:"remote"`
	// Build holds the packaging tool settings.
	Build Build `yaml:"build"`
	// ArtifactsDir is where archives are written and collected from.
	ArtifactsDir string `yaml:"artifacts_dir"`
	// Workflow holds the CI workflow settings.
	Workflow Workflow `yaml:"workflow"`
	// InstallDir is where the updater installs the application bundle.
	InstallDir string `yaml:"install_dir"`
	// Timeout bounds each GitHub API request.
	Timeout time.Duration `yaml:"timeout"`
}

// Build configures the GUI packaging tool.
type Build struct {
	// Tool is the packaging executable.
	Tool string `yaml:"tool"`
	// Entrypoint is the application script handed to the tool.
	Entrypoint string `yaml:"entrypoint"`
	// Icon is the icon resource path.
	Icon string `yaml:"icon"`
	// AssetsDir is the static directory copied into the bundle.
	AssetsDir string `yaml:"assets_dir"`
	// DistDir is where the tool writes the bundle.
	DistDir string `yaml:"dist_dir"`
	// ExtraArgs are appended after the fixed flags.
	ExtraArgs []string `yaml:"extra_args,omitempty"`
}

// Workflow configures the generated CI pipeline.
type Workflow struct {
	// Trigger is either TriggerTag or TriggerBranch.
	Trigger string `yaml:"trigger"`
	// Branch is the branch watched in TriggerBranch mode.
	Branch string `yaml:"branch"`
	// TagPattern is the tag glob watched in TriggerTag mode.
	TagPattern string `yaml:"tag_pattern"`
	// PythonVersion is installed on every runner.
	PythonVersion string `yaml:"python_version"`
	// GoVersion is used to install the rns-* tools on runners.
	GoVersion string `yaml:"go_version"`
	// ToolsVersion is the module version of the rns-* tools installed on runners.
	ToolsVersion string `yaml:"tools_version"`
	// Targets is the build matrix.
	Targets []Target `yaml:"targets"`
}

// Target is a single entry of the CI build matrix.
type Target struct {
	// Runner is the CI runner label.
	Runner string `yaml:"runner"`
	// Platform is the archive platform built on that runner.
	Platform release.Platform `yaml:",inline"`
}

// Workflow trigger modes.
const (
	TriggerTag    = "tag"
	TriggerBranch = "branch"
)

const (
	// DefaultConfigFilename is the default filename for release settings.
	DefaultConfigFilename = "rns-release.yaml"

	// DefaultTimeout is the default duration for GitHub API requests.
	DefaultTimeout = 10 * time.Second

	// DefaultDistDir is where the packaging tool writes bundles by default.
	DefaultDistDir = "dist"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidSlug is returned when the repository slug is not "owner/repo".
	errInvalidSlug = errors.New("repository slug must look like owner/repo")
	// errInvalidTrigger is returned for an unknown workflow trigger.
	errInvalidTrigger = errors.New("workflow trigger must be tag or branch")
	// errInvalidTarget is returned when a matrix target is incomplete.
	errInvalidTarget = errors.New("invalid workflow target")
)

// Default returns the settings used when no configuration file exists.
func Default() *Config {
	cfg := new(Config)

	// Defaults never fail validation.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
// An empty path falls back to DefaultConfigFilename, and a missing default
// file yields Default().
func Load(path string) (*Config, error) {
	return LoadInDir("", path)
}

// LoadInDir is Load with the default settings file looked up in dir
// instead of the current directory. An explicit path is used as is.
func LoadInDir(dir, path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(dir, DefaultConfigFilename)
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes Config to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the provided settings.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	setDefault(&cfg.AppName, "RnSApp")
	setDefault(&cfg.RepoSlug, "atepart/RnSApp")
	setDefault(&cfg.VersionFile, filepath.Join("application", "version.py"))
	setDefault(&cfg.CommitMessage, "Release {{.Tag}}")
	setDefault(&cfg.TagMessage, "Version {{.Tag}}")
	setDefault(&cfg.ArtifactsDir, "artifacts")
	setDefault(&cfg.InstallDir, ".")

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if owner, repo, ok := strings.Cut(cfg.RepoSlug, "/"); !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return fmt.Errorf("%w: %q", errInvalidSlug, cfg.RepoSlug)
	}

	validateBuild(&cfg.Build)

	return validateWorkflow(&cfg.Workflow)
}

func validateBuild(b *Build) {
	setDefault(&b.Tool, "pyinstaller")
	setDefault(&b.Entrypoint, "main.py")
	setDefault(&b.Icon, filepath.Join("assets", "icon.ico"))
	setDefault(&b.AssetsDir, "assets")
	setDefault(&b.DistDir, DefaultDistDir)
}

func validateWorkflow(w *Workflow) error {
	setDefault(&w.Trigger, TriggerTag)
	setDefault(&w.Branch, "main")
	setDefault(&w.TagPattern, "new*")
	setDefault(&w.PythonVersion, "3.11")
	setDefault(&w.GoVersion, "1.25")
	setDefault(&w.ToolsVersion, "latest")

	if w.Trigger != TriggerTag && w.Trigger != TriggerBranch {
		return fmt.Errorf("%w: %q", errInvalidTrigger, w.Trigger)
	}

	if len(w.Targets) == 0 {
		w.Targets = DefaultTargets()
	}

	for i, target := range w.Targets {
		if target.Runner == "" {
			return fmt.Errorf("%w: target %d has no runner", errInvalidTarget, i)
		}

		platform, err := release.NewPlatform(target.Platform.OS, target.Platform.Arch)
		if err != nil {
			return fmt.Errorf("%w: target %d: %w", errInvalidTarget, i, err)
		}

		w.Targets[i].Platform = platform
	}

	return nil
}

// DefaultTargets is the build matrix used when none is configured.
func DefaultTargets() []Target {
	return []Target{
		{Runner: "windows-latest", Platform: release.Platform{OS: release.OSWindows, Arch: release.ArchX64}},
		{Runner: "macos-latest", Platform: release.Platform{OS: release.OSMacOS, Arch: release.ArchARM64}},
		{Runner: "macos-13", Platform: release.Platform{OS: release.OSMacOS, Arch: release.ArchX64}},
		{Runner: "ubuntu-latest", Platform: release.Platform{OS: release.OSLinux, Arch: release.ArchX64}},
	}
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}
