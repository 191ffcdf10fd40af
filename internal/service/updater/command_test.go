package updater

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atepart/rns-release/internal/archive"
	"github.com/atepart/rns-release/internal/config"
	"github.com/atepart/rns-release/internal/domain/release"
	"github.com/atepart/rns-release/internal/repository/installed"
	"github.com/atepart/rns-release/internal/repository/versionfile"
	"github.com/atepart/rns-release/internal/service/common"
)

const linuxArchive = "RnSApp_Linux_x64_new2.tar.gz"

// fakeGitHub serves two releases; new2 carries a Linux archive and a checksum manifest.
type fakeGitHub struct {
	srv       *httptest.Server
	files     map[string][]byte
	downloads atomic.Int32
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()

	src := t.TempDir()
	bundle := filepath.Join(src, "RnSApp")
	require.NoError(t, os.MkdirAll(filepath.Join(bundle, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "RnSApp"), []byte("binary v2"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "assets", "icon.ico"), []byte("icon v2"), 0o644))

	archivePath := filepath.Join(src, linuxArchive)
	require.NoError(t, archive.Create(bundle, archivePath))

	sums, err := common.ComputeChecksums(context.Background(), []string{archivePath}, 1)
	require.NoError(t, err)

	var manifest bytes.Buffer
	_, err = sums.WriteTo(&manifest)
	require.NoError(t, err)

	data, err := os.ReadFile(archivePath)
	require.NoError(t, err)

	f := &fakeGitHub{files: map[string][]byte{
		linuxArchive:               data,
		release.ChecksumsAssetName: manifest.Bytes(),
	}}

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/atepart/RnSApp/releases", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(f.releases())
	})
	mux.HandleFunc("/repos/atepart/RnSApp/releases/tags/", func(w http.ResponseWriter, r *http.Request) {
		tag := strings.TrimPrefix(r.URL.Path, "/repos/atepart/RnSApp/releases/tags/")
		for _, rel := range f.releases() {
			if rel["tag_name"] == tag {
				_ = json.NewEncoder(w).Encode(rel)

				return
			}
		}

		http.Error(w, `{"message": "Not Found"}`, http.StatusNotFound)
	})
	mux.HandleFunc("/download/", func(w http.ResponseWriter, r *http.Request) {
		f.downloads.Add(1)

		body, ok := f.files[strings.TrimPrefix(r.URL.Path, "/download/")]
		if !ok {
			http.NotFound(w, r)

			return
		}

		_, _ = w.Write(body)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)

	return f
}

func (f *fakeGitHub) asset(name string) map[string]any {
	return map[string]any{
		"name":                 name,
		"browser_download_url": f.srv.URL + "/download/" + name,
		"size":                 len(f.files[name]),
	}
}

func (f *fakeGitHub) releases() []map[string]any {
	return []map[string]any{
		{
			"tag_name":     "new1",
			"published_at": "2024-01-01T00:00:00Z",
			"body":         "first",
			"assets":       []any{},
		},
		{
			"tag_name":     "new2",
			"published_at": "2024-02-01T00:00:00Z",
			"body":         "second release",
			"assets":       []any{f.asset(linuxArchive), f.asset(release.ChecksumsAssetName)},
		},
	}
}

func newOptions(t *testing.T, f *fakeGitHub, out *bytes.Buffer) Options {
	t.Helper()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, config.DefaultConfigFilename)
	require.NoError(t, config.Save(cfgPath, &config.Config{}))

	return Options{
		ConfigPath: cfgPath,
		InstallDir: filepath.Join(dir, "install"),
		OS:         "linux",
		Arch:       "amd64",
		BaseURL:    f.srv.URL,
		Env:        &config.Env{},
		Stdout:     out,
	}
}

func TestInstall_Latest(t *testing.T) {
	t.Parallel()

	f := newFakeGitHub(t)

	var out bytes.Buffer

	opts := newOptions(t, f, &out)
	require.NoError(t, os.MkdirAll(opts.InstallDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(opts.InstallDir, "RnSApp"), []byte("binary v1"), 0o755))

	require.NoError(t, Install(context.Background(), &InstallOptions{Options: opts, NoKill: true}))
	require.Contains(t, out.String(), "Installed new2")

	binary, err := os.ReadFile(filepath.Join(opts.InstallDir, "RnSApp"))
	require.NoError(t, err)
	require.Equal(t, "binary v2", string(binary))

	icon, err := os.ReadFile(filepath.Join(opts.InstallDir, "assets", "icon.ico"))
	require.NoError(t, err)
	require.Equal(t, "icon v2", string(icon))

	state, err := installed.NewFileRepository(opts.InstallDir).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "new2", state.Tag)
	require.Equal(t, linuxArchive, state.Asset)

	_, err = os.Stat(filepath.Join(opts.InstallDir, common.MarkerFilename))
	require.True(t, os.IsNotExist(err))

	out.Reset()

	downloads := f.downloads.Load()
	require.NoError(t, Install(context.Background(), &InstallOptions{Options: opts, NoKill: true}))
	require.Contains(t, out.String(), "already installed")
	require.Equal(t, downloads, f.downloads.Load())
}

func TestInstall_ChecksumMismatch(t *testing.T) {
	t.Parallel()

	f := newFakeGitHub(t)
	f.files[release.ChecksumsAssetName] = []byte(strings.Repeat("00", 32) + "  " + linuxArchive + "\n")

	var out bytes.Buffer

	opts := newOptions(t, f, &out)

	err := Install(context.Background(), &InstallOptions{Options: opts, NoKill: true})
	require.ErrorIs(t, err, common.ErrChecksumMismatch)

	_, err = installed.NewFileRepository(opts.InstallDir).Load(context.Background())
	require.ErrorIs(t, err, installed.ErrNotFound)
}

func TestInstall_NoAssetForPlatform(t *testing.T) {
	t.Parallel()

	f := newFakeGitHub(t)

	var out bytes.Buffer

	opts := newOptions(t, f, &out)
	opts.OS = "windows"

	err := Install(context.Background(), &InstallOptions{Options: opts, NoKill: true})
	require.ErrorIs(t, err, errNoAsset)

	opts.OS = "linux"

	err = Install(context.Background(), &InstallOptions{Options: opts, Tag: "new1", NoKill: true})
	require.ErrorIs(t, err, errNoAsset)
}

func TestInstall_MarkerHeld(t *testing.T) {
	t.Parallel()

	f := newFakeGitHub(t)

	var out bytes.Buffer

	opts := newOptions(t, f, &out)

	marker, err := common.AcquireMarker(context.Background(), opts.InstallDir)
	require.NoError(t, err)
	t.Cleanup(marker.Release)

	err = Install(context.Background(), &InstallOptions{Options: opts, NoKill: true})
	require.ErrorIs(t, err, common.ErrUpdaterAlreadyRunning)
	require.Zero(t, f.downloads.Load())
}

func TestList(t *testing.T) {
	t.Parallel()

	f := newFakeGitHub(t)

	var out bytes.Buffer

	opts := newOptions(t, f, &out)
	opts.Current = "new2"

	require.NoError(t, List(context.Background(), &ListOptions{Options: opts, Limit: 5}))

	lines := strings.Split(out.String(), "\n")

	var new1, new2 string

	for _, line := range lines {
		switch {
		case strings.Contains(line, "new1"):
			new1 = line
		case strings.Contains(line, " new2 "):
			new2 = line
		}
	}

	require.NotEmpty(t, new2)
	require.Contains(t, new2, "*")
	require.Contains(t, new2, linuxArchive)
	require.NotEmpty(t, new1)
	require.NotContains(t, new1, "*")
	require.Less(t, strings.Index(out.String(), "new2"), strings.Index(out.String(), "new1"))
}

func TestCheck(t *testing.T) {
	t.Parallel()

	f := newFakeGitHub(t)

	var out bytes.Buffer

	opts := newOptions(t, f, &out)
	opts.Current = "new1"

	require.NoError(t, Check(context.Background(), &opts))
	require.Equal(t, "Update available: new2 (installed: new1)\n", out.String())

	out.Reset()

	opts.Current = "new2"

	require.NoError(t, Check(context.Background(), &opts))
	require.Equal(t, "Up to date: new2 (latest: new2)\n", out.String())

	out.Reset()

	opts.Current = ""

	require.NoError(t, Check(context.Background(), &opts))
	require.Equal(t, "Latest release: new2 (installed version unknown)\n", out.String())
}

func TestShow(t *testing.T) {
	t.Parallel()

	f := newFakeGitHub(t)

	var out bytes.Buffer

	opts := newOptions(t, f, &out)

	require.NoError(t, Show(context.Background(), &ShowOptions{Options: opts, Tag: "new2"}))
	require.True(t, strings.HasPrefix(out.String(), "new2\n\nsecond release\n"))
	require.Contains(t, out.String(), release.ChecksumsAssetName)

	err := Show(context.Background(), &ShowOptions{Options: opts, Tag: "new9"})
	require.Error(t, err)
}

func TestLocalVersion_Order(t *testing.T) {
	t.Parallel()

	f := newFakeGitHub(t)

	var out bytes.Buffer

	opts := newOptions(t, f, &out)
	ctx := context.Background()

	u, err := newUpdater(ctx, &opts)
	require.NoError(t, err)
	require.Empty(t, u.localVersion(ctx))

	versions := versionfile.NewFileRepository(filepath.Join(opts.InstallDir, "application", "version.py"))
	require.NoError(t, os.MkdirAll(opts.InstallDir, 0o755))
	require.NoError(t, versions.Save(ctx, &versionfile.Contents{Version: "new1", RepoSlug: "atepart/RnSApp"}))
	require.Equal(t, "new1", u.localVersion(ctx))

	require.NoError(t, installed.NewFileRepository(opts.InstallDir).Save(ctx, &installed.State{Tag: "new2"}))
	require.Equal(t, "new2", u.localVersion(ctx))

	u.current = "new3"
	require.Equal(t, "new3", u.localVersion(ctx))
}

func TestBundleRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := bundleRoot(dir, "RnSApp")
	require.ErrorIs(t, err, errEmptyBundle)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Other"), 0o755))

	root, err := bundleRoot(dir, "RnSApp")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "Other"), root)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "loose.txt"), nil, 0o644))

	root, err = bundleRoot(dir, "RnSApp")
	require.NoError(t, err)
	require.Equal(t, dir, root)
}
