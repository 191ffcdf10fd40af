package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/atepart/rns-release/internal/config"
	"github.com/atepart/rns-release/internal/domain/release"
	"github.com/atepart/rns-release/internal/github"
	"github.com/atepart/rns-release/internal/logger"
	"github.com/atepart/rns-release/internal/repository/installed"
	"github.com/atepart/rns-release/internal/repository/versionfile"
)

// updater holds the collaborators shared by every command.
type updater struct {
	cfg        *config.Config
	client     *github.Client
	platform   release.Platform
	installDir string
	installed  installed.Repository
	versions   versionfile.Repository
	current    string
	out        io.Writer
}

func newUpdater(ctx context.Context, opts *Options) (*updater, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	env := opts.Env
	if env == nil {
		if env, err = config.LoadEnv(); err != nil {
			return nil, err
		}
	}

	platform, err := resolvePlatform(opts.OS, opts.Arch)
	if err != nil {
		return nil, err
	}

	installDir := opts.InstallDir
	if installDir == "" {
		installDir = cfg.InstallDir
	}

	if installDir, err = filepath.Abs(installDir); err != nil {
		return nil, fmt.Errorf("resolve install directory: %w", err)
	}

	versionPath := cfg.VersionFile
	if !filepath.IsAbs(versionPath) {
		versionPath = filepath.Join(installDir, versionPath)
	}

	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}

	client := github.NewClient(ctx, github.Options{
		BaseURL: opts.BaseURL,
		Token:   env.Token(),
		Timeout: cfg.Timeout,
		Runner:  opts.Runner,
	})

	return &updater{
		cfg:        cfg,
		client:     client,
		platform:   platform,
		installDir: installDir,
		installed:  installed.NewFileRepository(installDir),
		versions:   versionfile.NewFileRepository(versionPath),
		current:    strings.TrimSpace(opts.Current),
		out:        out,
	}, nil
}

func resolvePlatform(osName, arch string) (release.Platform, error) {
	if osName != "" && arch != "" {
		return release.NewPlatform(osName, arch)
	}

	current, err := release.CurrentPlatform()
	if err != nil {
		return release.Platform{}, fmt.Errorf("detect platform: %w", err)
	}

	if osName == "" {
		osName = current.OS
	}

	if arch == "" {
		arch = current.Arch
	}

	return release.NewPlatform(osName, arch)
}

// localVersion returns the installed version: the explicit override, then the
// installed state, then the version file. Empty means unknown.
func (u *updater) localVersion(ctx context.Context) string {
	if u.current != "" {
		return u.current
	}

	state, err := u.installed.Load(ctx)

	switch {
	case err == nil && state.Tag != "":
		return state.Tag
	case err != nil && !errors.Is(err, installed.ErrNotFound):
		logger.WarnKV(ctx, "Unable to read installed state", "error", err)
	}

	contents, err := u.versions.Load(ctx)

	switch {
	case err == nil:
		return contents.Version
	case !errors.Is(err, versionfile.ErrNotFound):
		logger.WarnKV(ctx, "Unable to read version file", "error", err)
	}

	return ""
}

// resolveRelease fetches the release for tag, or the latest one when tag is empty.
func (u *updater) resolveRelease(ctx context.Context, tag string) (release.Release, error) {
	if tag = strings.TrimSpace(tag); tag != "" {
		rel, err := u.client.ReleaseByTag(ctx, u.cfg.RepoSlug, tag)
		if err != nil {
			return release.Release{}, fmt.Errorf("fetch release %s: %w", tag, err)
		}

		return rel, nil
	}

	latest, ok, err := u.client.LatestRelease(ctx, u.cfg.RepoSlug)
	if err != nil {
		return release.Release{}, fmt.Errorf("fetch latest release: %w", err)
	}

	if !ok {
		return release.Release{}, errNoReleases
	}

	return latest, nil
}

// List prints the most recent releases, marking the installed one.
func List(ctx context.Context, opts *ListOptions) error {
	ctx = logger.WithName(ctx, "rns-updater")

	u, err := newUpdater(ctx, &opts.Options)
	if err != nil {
		return err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	releases, err := u.client.ListReleases(ctx, u.cfg.RepoSlug, limit)
	if err != nil {
		return fmt.Errorf("list releases: %w", err)
	}

	u.renderReleases(releases, u.localVersion(ctx))

	return nil
}

func (u *updater) renderReleases(releases []release.Release, current string) {
	t := table.NewWriter()
	t.SetOutputMirror(u.out)
	t.AppendHeader(table.Row{"", "Tag", "Published", "Pre-release", "Asset (" + u.platform.String() + ")", "Size"})

	for _, rel := range releases {
		marker := ""
		if current != "" && release.SameVersion(rel.Tag, current) {
			marker = "*"
		}

		published := "-"
		if !rel.PublishedAt.IsZero() {
			published = rel.PublishedAt.Format(time.DateOnly) + " (" + humanize.Time(rel.PublishedAt) + ")"
		}

		prerelease := ""
		if rel.Prerelease || release.IsPrereleaseTag(rel.Tag) {
			prerelease = "yes"
		}

		assetName, size := "-", "-"
		if asset, ok := rel.AssetFor(u.platform); ok {
			assetName = asset.Name
			size = humanize.Bytes(uint64(max(asset.Size, 0)))
		}

		t.AppendRow(table.Row{marker, rel.Tag, published, prerelease, assetName, size})
	}

	if len(releases) == 0 {
		t.AppendFooter(table.Row{"", "no releases"})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}

// Check reports whether a newer release than the local version exists.
func Check(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "rns-updater")

	u, err := newUpdater(ctx, opts)
	if err != nil {
		return err
	}

	latest, err := u.resolveRelease(ctx, "")
	if err != nil {
		return err
	}

	local := u.localVersion(ctx)

	switch {
	case local == "":
		_, err = fmt.Fprintf(u.out, "Latest release: %s (installed version unknown)\n", latest.Tag)
	case release.IsNewer(latest.Tag, local):
		_, err = fmt.Fprintf(u.out, "Update available: %s (installed: %s)\n", latest.Tag, local)
	default:
		_, err = fmt.Fprintf(u.out, "Up to date: %s (latest: %s)\n", local, latest.Tag)
	}

	return err
}

// Show prints the notes and assets of a release.
func Show(ctx context.Context, opts *ShowOptions) error {
	ctx = logger.WithName(ctx, "rns-updater")

	u, err := newUpdater(ctx, &opts.Options)
	if err != nil {
		return err
	}

	rel, err := u.resolveRelease(ctx, opts.Tag)
	if err != nil {
		return err
	}

	body := strings.TrimSpace(rel.Body)
	if body == "" {
		body = "No description."
	}

	fmt.Fprintf(u.out, "%s\n\n%s\n\n", rel.Tag, body)

	t := table.NewWriter()
	t.SetOutputMirror(u.out)
	t.AppendHeader(table.Row{"Asset", "Size"})

	for _, asset := range rel.Assets {
		t.AppendRow(table.Row{asset.Name, humanize.Bytes(uint64(max(asset.Size, 0)))})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()

	return nil
}
