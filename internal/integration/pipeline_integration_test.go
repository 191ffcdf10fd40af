package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atepart/rns-release/internal/config"
	"github.com/atepart/rns-release/internal/domain/release"
	"github.com/atepart/rns-release/internal/repository/installed"
	"github.com/atepart/rns-release/internal/service/packager"
	"github.com/atepart/rns-release/internal/service/publisher"
	"github.com/atepart/rns-release/internal/service/updater"
	"github.com/atepart/rns-release/internal/shell"
)

// serveRelease exposes the files uploaded by the publisher as a GitHub release.
func serveRelease(t *testing.T, tag string, files []string) *httptest.Server {
	t.Helper()

	var srv *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/atepart/RnSApp/releases", func(w http.ResponseWriter, _ *http.Request) {
		assets := make([]map[string]any, 0, len(files))
		for _, file := range files {
			info, err := os.Stat(file)
			require.NoError(t, err)

			assets = append(assets, map[string]any{
				"name":                 filepath.Base(file),
				"browser_download_url": srv.URL + "/download/" + filepath.Base(file),
				"size":                 info.Size(),
			})
		}

		_ = json.NewEncoder(w).Encode([]map[string]any{{
			"tag_name":     tag,
			"published_at": "2024-05-01T12:00:00Z",
			"assets":       assets,
		}})
	})
	mux.HandleFunc("/download/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/download/")
		for _, file := range files {
			if filepath.Base(file) == name {
				http.ServeFile(w, r, file)

				return
			}
		}

		http.NotFound(w, r)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

// TestPipeline_PackagePublishInstall packages a bundle, publishes it and installs it back.
func TestPipeline_PackagePublishInstall(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	project := t.TempDir()
	cfgPath := writeConfig(t, project)

	// The packaging tool is recorded, so lay out the bundle it would produce.
	bundle := filepath.Join(project, "dist", "RnSApp")
	require.NoError(t, os.MkdirAll(bundle, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "RnSApp"), []byte("app new110"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(project, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(project, "assets", "icon.ico"), []byte("icon"), 0o644))

	for _, platform := range [][2]string{{"linux", "x64"}, {"windows", "x64"}} {
		_, err := packager.Package(ctx, &packager.Options{
			ConfigPath: cfgPath,
			Dir:        project,
			Tag:        "new110",
			OS:         platform[0],
			Arch:       platform[1],
			Runner:     new(shell.Recorder),
		})
		require.NoError(t, err)
	}

	gh := new(shell.Recorder)
	require.NoError(t, publisher.Run(ctx, &publisher.Options{
		ConfigPath: cfgPath,
		Dir:        project,
		Env:        &config.Env{RefType: "tag", RefName: "new110"},
		Runner:     gh,
	}))

	// "gh release create <tag> <files...> --title ..." lists the uploaded files.
	args := gh.Recorded()[0].Args
	var files []string

	for _, arg := range args[3:] {
		if strings.HasPrefix(arg, "--") {
			break
		}

		files = append(files, arg)
	}

	require.Len(t, files, 3)
	require.Equal(t, release.ChecksumsAssetName, filepath.Base(files[2]))

	srv := serveRelease(t, "new110", files)
	installDir := filepath.Join(t.TempDir(), "RnSApp")

	var out strings.Builder

	require.NoError(t, updater.Install(ctx, &updater.InstallOptions{
		Options: updater.Options{
			ConfigPath: cfgPath,
			InstallDir: installDir,
			OS:         "linux",
			Arch:       "x64",
			BaseURL:    srv.URL,
			Env:        &config.Env{},
			Stdout:     &out,
		},
		NoKill: true,
	}))

	binary, err := os.ReadFile(filepath.Join(installDir, "RnSApp"))
	require.NoError(t, err)
	require.Equal(t, "app new110", string(binary))

	icon, err := os.ReadFile(filepath.Join(installDir, "assets", "icon.ico"))
	require.NoError(t, err)
	require.Equal(t, "icon", string(icon))

	state, err := installed.NewFileRepository(installDir).Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "new110", state.Tag)
	require.Equal(t, "RnSApp_Linux_x64_new110.tar.gz", state.Asset)
}
