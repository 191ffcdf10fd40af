package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// makeBundle builds a small bundle tree resembling packager output.
func makeBundle(t *testing.T) string {
	t.Helper()

	bundle := filepath.Join(t.TempDir(), "RnSApp")
	require.NoError(t, os.MkdirAll(filepath.Join(bundle, "assets", "img"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "RnSApp"), []byte("#!/bin/sh\necho hi\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "assets", "img", "logo.png"), []byte{0x89, 'P', 'N', 'G'}, 0o644))

	if runtime.GOOS != "windows" {
		require.NoError(t, os.Symlink(filepath.Join("assets", "img", "logo.png"), filepath.Join(bundle, "logo")))
	}

	return bundle
}

func assertBundle(t *testing.T, root string) {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(root, "RnSApp", "assets", "img", "logo.png"))
	require.NoError(t, err)
	require.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)

	info, err := os.Stat(filepath.Join(root, "RnSApp", "RnSApp"))
	require.NoError(t, err)

	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o755), info.Mode().Perm())

		target, err := os.Readlink(filepath.Join(root, "RnSApp", "logo"))
		require.NoError(t, err)
		require.Equal(t, filepath.Join("assets", "img", "logo.png"), target)
	}
}

// TestCreateExtract_Zip round-trips a bundle through a zip archive.
func TestCreateExtract_Zip(t *testing.T) {
	t.Parallel()

	bundle := makeBundle(t)
	dest := filepath.Join(t.TempDir(), "out", "RnSApp_Windows_x64.zip")

	require.NoError(t, Create(bundle, dest))

	out := t.TempDir()
	require.NoError(t, Extract(dest, out))
	assertBundle(t, out)
}

// TestCreateExtract_TarGz round-trips a bundle through a tar.gz archive.
func TestCreateExtract_TarGz(t *testing.T) {
	t.Parallel()

	bundle := makeBundle(t)
	dest := filepath.Join(t.TempDir(), "RnSApp_Linux_x64.tar.gz")

	require.NoError(t, Create(bundle, dest))

	out := t.TempDir()
	require.NoError(t, Extract(dest, out))
	assertBundle(t, out)
}

// TestCreate_Errors covers unknown formats and missing sources.
func TestCreate_Errors(t *testing.T) {
	t.Parallel()

	bundle := makeBundle(t)

	require.ErrorIs(t, Create(bundle, filepath.Join(t.TempDir(), "x.rar")), ErrUnsupportedFormat)
	require.Error(t, Create(filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "x.zip")))
	require.ErrorIs(t, Extract("whatever.7z", t.TempDir()), ErrUnsupportedFormat)
}

// TestExtract_RejectsTraversal refuses entries escaping the destination.
func TestExtract_RejectsTraversal(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "evil.zip")

	f, err := os.Create(src)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	w, err := zw.Create("../escape.txt")
	require.NoError(t, err)

	_, err = w.Write([]byte("nope"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	dest := t.TempDir()
	require.Error(t, Extract(src, dest))

	_, err = os.Stat(filepath.Join(filepath.Dir(dest), "escape.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestSafeJoin keeps entries under the destination.
func TestSafeJoin(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()

	got, err := safeJoin(dest, "RnSApp/assets/a.txt")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dest, "RnSApp", "assets", "a.txt"), got)

	_, err = safeJoin(dest, "../../etc/passwd")
	require.ErrorIs(t, err, ErrUnsafePath)

	require.ErrorIs(t, safeLink(dest, filepath.Join(dest, "RnSApp", "l"), "../../outside"), ErrUnsafePath)
	require.NoError(t, safeLink(dest, filepath.Join(dest, "RnSApp", "l"), "assets/a.txt"))
}
