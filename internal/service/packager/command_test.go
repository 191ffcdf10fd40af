package packager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atepart/rns-release/internal/archive"
	"github.com/atepart/rns-release/internal/config"
	"github.com/atepart/rns-release/internal/shell"
)

// newProject lays out a project with an asset directory and a pre-built bundle,
// since the recorder does not run the packaging tool.
func newProject(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets", "img"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "icon.ico"), []byte("ico"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "img", "logo.png"), []byte("png"), 0o600))

	bundle := filepath.Join(dir, "dist", "RnSApp")
	require.NoError(t, os.MkdirAll(bundle, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "RnSApp"), []byte("bin"), 0o755))

	cfgPath := filepath.Join(dir, config.DefaultConfigFilename)
	require.NoError(t, config.Save(cfgPath, &config.Config{}))

	return dir, cfgPath
}

func TestBuildArgs(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	require.Equal(t, []string{
		"--noconfirm",
		"--name", "RnSApp",
		"--icon", filepath.Join("assets", "icon.ico"),
		"--windowed",
		"--onedir",
		"main.py",
	}, BuildArgs(cfg))

	cfg.Build.DistDir = "out"
	cfg.Build.ExtraArgs = []string{"--clean"}
	require.Equal(t, []string{
		"--noconfirm",
		"--name", "RnSApp",
		"--icon", filepath.Join("assets", "icon.ico"),
		"--windowed",
		"--onedir",
		"--distpath", "out",
		"--clean",
		"main.py",
	}, BuildArgs(cfg))
}

func TestPackage_BuildsCopiesAndArchives(t *testing.T) {
	t.Parallel()

	dir, cfgPath := newProject(t)
	rec := new(shell.Recorder)

	result, err := Package(context.Background(), &Options{
		ConfigPath: cfgPath,
		Dir:        dir,
		Tag:        "new42",
		OS:         "linux",
		Arch:       "amd64",
		Runner:     rec,
	})
	require.NoError(t, err)

	cmds := rec.Recorded()
	require.Len(t, cmds, 1)
	require.Equal(t, "pyinstaller", cmds[0].Name)
	require.Equal(t, dir, cmds[0].Dir)

	require.Equal(t, filepath.Join(dir, "artifacts", "RnSApp_Linux_x64_new42.tar.gz"), result.Archive)
	require.Equal(t, "Linux_x64", result.Platform.String())

	copied, err := os.ReadFile(filepath.Join(result.Bundle, "assets", "img", "logo.png"))
	require.NoError(t, err)
	require.Equal(t, "png", string(copied))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(result.Bundle, "assets", "img", "logo.png"))
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	out := t.TempDir()
	require.NoError(t, archive.Extract(result.Archive, out))

	_, err = os.Stat(filepath.Join(out, "RnSApp", "assets", "icon.ico"))
	require.NoError(t, err)
}

func TestPackage_ReadsConfigFromDir(t *testing.T) {
	t.Parallel()

	dir, cfgPath := newProject(t)
	require.NoError(t, config.Save(cfgPath, &config.Config{ArtifactsDir: "out"}))

	result, err := Package(context.Background(), &Options{
		Dir:    dir,
		Tag:    "new42",
		OS:     "linux",
		Arch:   "amd64",
		Runner: new(shell.Recorder),
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "out", "RnSApp_Linux_x64_new42.tar.gz"), result.Archive)
}

func TestPackage_WindowsZipWithoutTag(t *testing.T) {
	t.Parallel()

	dir, cfgPath := newProject(t)

	result, err := Package(context.Background(), &Options{
		ConfigPath: cfgPath,
		Dir:        dir,
		OS:         "windows",
		Arch:       "x64",
		SkipBuild:  true,
		Runner:     new(shell.Recorder),
	})
	require.NoError(t, err)
	require.Equal(t, "RnSApp_Windows_x64.zip", filepath.Base(result.Archive))
}

func TestPackage_SkipBuildAndNoArchive(t *testing.T) {
	t.Parallel()

	dir, cfgPath := newProject(t)
	rec := new(shell.Recorder)

	result, err := Package(context.Background(), &Options{
		ConfigPath: cfgPath,
		Dir:        dir,
		OS:         "macos",
		Arch:       "arm64",
		SkipBuild:  true,
		NoArchive:  true,
		Runner:     rec,
	})
	require.NoError(t, err)
	require.Empty(t, rec.Commands())
	require.Empty(t, result.Archive)

	_, err = os.Stat(filepath.Join(dir, "artifacts"))
	require.True(t, os.IsNotExist(err))
}

func TestPackage_ToolFailureStops(t *testing.T) {
	t.Parallel()

	dir, cfgPath := newProject(t)
	boom := errors.New("boom")
	rec := &shell.Recorder{FailOn: map[string]error{"--noconfirm": boom}}

	_, err := Package(context.Background(), &Options{
		ConfigPath: cfgPath,
		Dir:        dir,
		OS:         "linux",
		Arch:       "x64",
		Runner:     rec,
	})
	require.ErrorIs(t, err, boom)

	_, err = os.Stat(filepath.Join(dir, "dist", "RnSApp", "assets"))
	require.True(t, os.IsNotExist(err))
}

func TestPackage_MissingBundleOrAssets(t *testing.T) {
	t.Parallel()

	dir, cfgPath := newProject(t)
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "assets")))

	_, err := Package(context.Background(), &Options{
		ConfigPath: cfgPath,
		Dir:        dir,
		OS:         "linux",
		Arch:       "x64",
		SkipBuild:  true,
		Runner:     new(shell.Recorder),
	})
	require.ErrorIs(t, err, errAssetsMissing)

	require.NoError(t, os.RemoveAll(filepath.Join(dir, "dist")))

	_, err = Package(context.Background(), &Options{
		ConfigPath: cfgPath,
		Dir:        dir,
		OS:         "linux",
		Arch:       "x64",
		SkipBuild:  true,
		Runner:     new(shell.Recorder),
	})
	require.ErrorIs(t, err, errBundleMissing)
}

func TestPackage_UnknownPlatform(t *testing.T) {
	t.Parallel()

	dir, cfgPath := newProject(t)

	_, err := Package(context.Background(), &Options{
		ConfigPath: cfgPath,
		Dir:        dir,
		OS:         "plan9",
		Arch:       "x64",
		Runner:     new(shell.Recorder),
	})
	require.Error(t, err)
}
