package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/term"

	"github.com/atepart/rns-release/internal/archive"
	"github.com/atepart/rns-release/internal/domain/release"
	"github.com/atepart/rns-release/internal/github"
	"github.com/atepart/rns-release/internal/logger"
	"github.com/atepart/rns-release/internal/repository/installed"
	"github.com/atepart/rns-release/internal/service/common"
)

// Install downloads a release for this platform and installs it.
func Install(ctx context.Context, opts *InstallOptions) error {
	ctx = logger.WithName(ctx, "rns-updater")

	u, err := newUpdater(ctx, &opts.Options)
	if err != nil {
		return err
	}

	marker, err := common.AcquireMarker(ctx, u.installDir)
	if err != nil {
		return err
	}

	defer marker.Release()

	if err = u.install(ctx, opts); err != nil {
		return fmt.Errorf("updater failed: %w", err)
	}

	return nil
}

// install executes the installation workflow:
// 1) Resolve the release and its platform archive.
// 2) Download and verify the archive.
// 3) Stop running application processes.
// 4) Extract and swap the bundle into the install directory.
// 5) Record the installed state.
func (u *updater) install(ctx context.Context, opts *InstallOptions) error {
	rel, err := u.resolveRelease(ctx, opts.Tag)
	if err != nil {
		return err
	}

	ctx = logger.WithKV(ctx, "tag", rel.Tag)

	if local := u.localVersion(ctx); !opts.Force && local != "" && release.SameVersion(local, rel.Tag) {
		logger.Info(ctx, "Release is already installed, nothing to do")
		fmt.Fprintf(u.out, "%s is already installed\n", rel.Tag)

		return nil
	}

	asset, ok := rel.AssetFor(u.platform)
	if !ok {
		return fmt.Errorf("%s for %s: %w", rel.Tag, u.platform, errNoAsset)
	}

	temporaryDirectory, err := os.MkdirTemp("", temporaryDirectoryPattern)
	if err != nil {
		return err
	}

	defer func() {
		_ = os.RemoveAll(temporaryDirectory)
	}()

	archivePath, err := u.download(ctx, rel, asset, temporaryDirectory, opts.Progress)
	if err != nil {
		return err
	}

	if !opts.NoKill {
		logger.Info(ctx, "Terminating running application processes")

		if _, err = common.TerminateProcesses(ctx, common.ExecutableName(u.cfg.AppName)); err != nil {
			return fmt.Errorf("terminate application processes: %w", err)
		}
	}

	extracted := filepath.Join(temporaryDirectory, "bundle")
	if err = archive.Extract(archivePath, extracted); err != nil {
		return fmt.Errorf("extract %s: %w", asset.Name, err)
	}

	bundle, err := bundleRoot(extracted, u.cfg.AppName)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Installing bundle", "into", u.installDir)

	if err = u.applyBundle(ctx, bundle); err != nil {
		return fmt.Errorf("apply bundle: %w", err)
	}

	state := &installed.State{Tag: rel.Tag, Asset: asset.Name, InstalledAt: time.Now().UTC()}
	if err = u.installed.Save(ctx, state); err != nil {
		return err
	}

	fmt.Fprintf(u.out, "Installed %s into %s\n", rel.Tag, u.installDir)

	if opts.Start {
		if err = u.startApplication(ctx); err != nil {
			return fmt.Errorf("start application: %w", err)
		}
	}

	return nil
}

// download fetches the archive and verifies it against the checksum manifest
// when the release carries one.
func (u *updater) download(
	ctx context.Context,
	rel release.Release,
	asset release.Asset,
	dir string,
	progress bool,
) (string, error) {
	progress = progress && term.IsTerminal(int(os.Stderr.Fd()))
	archivePath := filepath.Join(dir, filepath.Base(asset.Name))

	logger.InfoKV(ctx, "Downloading archive", "asset", asset.Name)

	if _, err := u.client.Download(ctx, asset.DownloadURL, archivePath, github.DownloadOptions{
		Progress:    progress,
		Description: asset.Name,
	}); err != nil {
		return "", fmt.Errorf("download %s: %w", asset.Name, err)
	}

	manifest, ok := rel.FindAsset(release.ChecksumsAssetName)
	if !ok {
		logger.Warn(ctx, "Release has no checksum manifest, skipping verification")

		return archivePath, nil
	}

	manifestPath := filepath.Join(dir, release.ChecksumsAssetName)
	if _, err := u.client.Download(ctx, manifest.DownloadURL, manifestPath, github.DownloadOptions{}); err != nil {
		return "", fmt.Errorf("download %s: %w", release.ChecksumsAssetName, err)
	}

	file, err := os.Open(manifestPath)
	if err != nil {
		return "", err
	}

	defer func() {
		_ = file.Close()
	}()

	sums, err := common.ParseChecksums(file)
	if err != nil {
		return "", err
	}

	if err = sums.Verify(asset.Name, archivePath); err != nil {
		return "", err
	}

	logger.Info(ctx, "Checksum verified")

	return archivePath, nil
}

// bundleRoot finds the bundle directory inside an extracted archive: the
// directory named after the application, or the only top-level directory.
func bundleRoot(extracted, appName string) (string, error) {
	candidate := filepath.Join(extracted, appName)
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		return candidate, nil
	}

	entries, err := os.ReadDir(extracted)
	if err != nil {
		return "", err
	}

	switch {
	case len(entries) == 0:
		return "", errEmptyBundle
	case len(entries) == 1 && entries[0].IsDir():
		return filepath.Join(extracted, entries[0].Name()), nil
	default:
		return extracted, nil
	}
}

// isNotExist reports a missing file.
func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
