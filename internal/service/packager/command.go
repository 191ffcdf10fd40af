package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/atepart/rns-release/internal/archive"
	"github.com/atepart/rns-release/internal/config"
	"github.com/atepart/rns-release/internal/domain/release"
	"github.com/atepart/rns-release/internal/logger"
	"github.com/atepart/rns-release/internal/shell"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// ConfigPath is an optional path to the release settings.
	ConfigPath string
	// Dir is the project root. Defaults to the current directory.
	Dir string
	// Tag is appended to the archive name when set.
	Tag string
	// OS overrides the detected operating system token.
	OS string
	// Arch overrides the detected architecture token.
	Arch string
	// SkipBuild reuses an existing bundle instead of running the packaging tool.
	SkipBuild bool
	// NoArchive stops after the bundle is assembled.
	NoArchive bool
	// Runner executes the packaging tool. Defaults to shell.NewExecRunner().
	Runner shell.Runner
}

// Result describes what a packaging run produced.
type Result struct {
	// Bundle is the bundle directory.
	Bundle string
	// Archive is the archive path, empty when archiving was skipped.
	Archive string
	// Platform is the platform the archive was named for.
	Platform release.Platform
}

// packager holds the state of a single packaging run.
type packager struct {
	cfg      *config.Config
	dir      string
	runner   shell.Runner
	platform release.Platform
	spinner  bool
}

var (
	// errBundleMissing is returned when the tool did not produce the expected bundle.
	errBundleMissing = errors.New("bundle directory not found")
	// errAssetsMissing is returned when the static asset directory does not exist.
	errAssetsMissing = errors.New("assets directory not found")
)

// Run executes the packaging workflow.
func Run(ctx context.Context, opts *Options) error {
	_, err := Package(ctx, opts)

	return err
}

// Package executes the packaging workflow and reports what it produced.
func Package(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "rns-packager")

	cfg, err := config.LoadInDir(opts.Dir, opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	p, err := newPackager(cfg, opts)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithKV(ctx, "platform", p.platform.String())

	result, err := p.Run(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("packager failed: %w", err)
	}

	logger.Info(ctx, "Packager completed successfully")

	return result, nil
}

func newPackager(cfg *config.Config, opts *Options) (*packager, error) {
	platform, err := resolvePlatform(opts.OS, opts.Arch)
	if err != nil {
		return nil, err
	}

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	runner := opts.Runner
	if runner == nil {
		runner = shell.NewExecRunner()
	}

	return &packager{
		cfg:      cfg,
		dir:      dir,
		runner:   runner,
		platform: platform,
		spinner:  opts.Runner == nil && term.IsTerminal(int(os.Stderr.Fd())),
	}, nil
}

// resolvePlatform starts from the running platform and applies overrides.
func resolvePlatform(osName, arch string) (release.Platform, error) {
	current, err := release.CurrentPlatform()
	if err != nil && (osName == "" || arch == "") {
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

// Run builds, assembles and archives the bundle.
func (p *packager) Run(ctx context.Context, opts *Options) (*Result, error) {
	if opts.SkipBuild {
		logger.Info(ctx, "Skipping the packaging tool, reusing the existing bundle")
	} else if err := p.build(ctx); err != nil {
		return nil, err
	}

	bundle := p.bundleDir()

	if info, err := os.Stat(bundle); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", bundle, errBundleMissing)
	}

	if err := p.copyAssets(ctx, bundle); err != nil {
		return nil, err
	}

	result := &Result{Bundle: bundle, Platform: p.platform}

	if opts.NoArchive {
		return result, nil
	}

	name := release.ArchiveName(p.cfg.AppName, p.platform, opts.Tag)
	dest := filepath.Join(p.dir, p.cfg.ArtifactsDir, name)

	logger.InfoKV(ctx, "Archiving bundle", "bundle", bundle, "archive", dest)

	if err := archive.Create(bundle, dest); err != nil {
		return nil, fmt.Errorf("archive bundle: %w", err)
	}

	if info, err := os.Stat(dest); err == nil {
		logger.InfoKV(ctx, "Archive ready", "archive", name, "size", humanize.Bytes(uint64(info.Size())))
	}

	result.Archive = dest

	return result, nil
}

// BuildArgs returns the fixed command line handed to the packaging tool.
func BuildArgs(cfg *config.Config) []string {
	args := []string{
		"--noconfirm",
		"--name", cfg.AppName,
		"--icon", cfg.Build.Icon,
		"--windowed",
		"--onedir",
	}

	if cfg.Build.DistDir != config.DefaultDistDir {
		args = append(args, "--distpath", cfg.Build.DistDir)
	}

	args = append(args, cfg.Build.ExtraArgs...)

	return append(args, cfg.Build.Entrypoint)
}

func (p *packager) build(ctx context.Context) error {
	cmd := shell.Command{
		Name: p.cfg.Build.Tool,
		Args: BuildArgs(p.cfg),
		Dir:  p.dir,
	}

	logger.InfoKV(ctx, "Running packaging tool", "command", cmd.String())

	if !p.spinner {
		if err := p.runner.Run(ctx, cmd); err != nil {
			return fmt.Errorf("packaging tool: %w", err)
		}

		return nil
	}

	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " Bundling " + p.cfg.AppName + " for " + p.platform.String() + "..."
	s.Start()

	_, err := p.runner.Output(ctx, cmd)

	s.Stop()

	if err != nil {
		return fmt.Errorf("packaging tool: %w", err)
	}

	return nil
}

func (p *packager) bundleDir() string {
	dist := p.cfg.Build.DistDir
	if !filepath.IsAbs(dist) {
		dist = filepath.Join(p.dir, dist)
	}

	return filepath.Join(dist, p.cfg.AppName)
}

func (p *packager) copyAssets(ctx context.Context, bundle string) error {
	src := p.cfg.Build.AssetsDir
	if !filepath.IsAbs(src) {
		src = filepath.Join(p.dir, src)
	}

	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%s: %w", src, errAssetsMissing)
	}

	dest := filepath.Join(bundle, filepath.Base(strings.TrimRight(src, `/\`)))

	logger.InfoKV(ctx, "Copying assets into bundle", "from", src, "to", dest)

	if err = copyTree(src, dest); err != nil {
		return fmt.Errorf("copy assets: %w", err)
	}

	return nil
}
