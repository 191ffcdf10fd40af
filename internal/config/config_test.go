package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atepart/rns-release/internal/domain/release"
)

// TestValidate fills defaults and rejects malformed fields.
func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := new(Config)
	require.NoError(t, Validate(cfg))
	require.Equal(t, "RnSApp", cfg.AppName)
	require.Equal(t, "atepart/RnSApp", cfg.RepoSlug)
	require.Equal(t, filepath.Join("application", "version.py"), cfg.VersionFile)
	require.Equal(t, "pyinstaller", cfg.Build.Tool)
	require.Equal(t, TriggerTag, cfg.Workflow.Trigger)
	require.Len(t, cfg.Workflow.Targets, len(DefaultTargets()))
	require.Equal(t, DefaultTimeout, cfg.Timeout)

	require.Error(t, Validate(&Config{RepoSlug: "no-slash"}))
	require.Error(t, Validate(&Config{RepoSlug: "a/b/c"}))
	require.Error(t, Validate(&Config{Workflow: Workflow{Trigger: "cron"}}))
	require.Error(t, Validate(&Config{Workflow: Workflow{Targets: []Target{{Runner: "x"}}}}))
	require.Error(t, Validate(nil))
}

// TestValidate_NormalizesTargets accepts Go-style names in the matrix.
func TestValidate_NormalizesTargets(t *testing.T) {
	t.Parallel()

	cfg := &Config{Workflow: Workflow{Targets: []Target{
		{Runner: "ubuntu-24.04-arm", Platform: release.Platform{OS: "linux", Arch: "aarch64"}},
	}}}

	require.NoError(t, Validate(cfg))
	require.Equal(t, release.Platform{OS: release.OSLinux, Arch: release.ArchARM64}, cfg.Workflow.Targets[0].Platform)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rns-release.yaml")

	cfg := &Config{
		AppName:  "Demo",
		RepoSlug: "acme/demo",
		Remote:   "upstream",
		Build:    Build{ExtraArgs: []string{"--clean"}},
		Workflow: Workflow{Trigger: TriggerBranch, Branch: "release"},
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.AppName, loaded.AppName)
	require.Equal(t, cfg.RepoSlug, loaded.RepoSlug)
	require.Equal(t, "upstream", loaded.Remote)
	require.Equal(t, []string{"--clean"}, loaded.Build.ExtraArgs)
	require.Equal(t, TriggerBranch, loaded.Workflow.Trigger)
	require.Equal(t, cfg.Workflow.Targets, loaded.Workflow.Targets)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestLoad_MissingFiles distinguishes the default file from an explicit one.
func TestLoad_MissingFiles(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "RnSApp", cfg.AppName)

	_, err = Load("nope.yaml")
	require.Error(t, err)
}

// TestLoadInDir_DefaultFileUnderDir looks up the default file in dir.
func TestLoadInDir_DefaultFileUnderDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFilename), []byte("app_name: InDir\n"), 0o600))

	cfg, err := LoadInDir(dir, "")
	require.NoError(t, err)
	require.Equal(t, "InDir", cfg.AppName)

	cfg, err = LoadInDir(t.TempDir(), "")
	require.NoError(t, err)
	require.Equal(t, "RnSApp", cfg.AppName)

	_, err = LoadInDir(dir, filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

// TestLoad_PartialYAML keeps explicit values and fills the rest.
func TestLoad_PartialYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app_name: Other\nbuild:\n  tool: ./venv/bin/pyinstaller\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "Other", cfg.AppName)
	require.Equal(t, "./venv/bin/pyinstaller", cfg.Build.Tool)
	require.Equal(t, "main.py", cfg.Build.Entrypoint)
}
