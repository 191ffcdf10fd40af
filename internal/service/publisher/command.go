package publisher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/atepart/rns-release/internal/config"
	"github.com/atepart/rns-release/internal/domain/release"
	"github.com/atepart/rns-release/internal/logger"
	"github.com/atepart/rns-release/internal/service/common"
	"github.com/atepart/rns-release/internal/shell"
)

// Options contains inputs for the publisher entry point.
type Options struct {
	// ConfigPath is an optional path to the release settings.
	ConfigPath string
	// Dir is the project root. Defaults to the current directory.
	Dir string
	// Tag is the release tag. Derived from Env when empty.
	Tag string
	// ArtifactsDir overrides the configured artifacts directory.
	ArtifactsDir string
	// Notes is the release description. Defaults to DefaultNotes.
	Notes string
	// Draft creates the release as a draft.
	Draft bool
	// Prerelease forces the pre-release flag. Beta tags always set it.
	Prerelease bool
	// Env supplies the token and CI variables. Loaded from the process when nil.
	Env *config.Env
	// DryRun writes the checksum manifest and logs the release command
	// instead of running it.
	DryRun bool
	// Runner executes the release CLI. Defaults to shell.NewExecRunner(),
	// or a shell.Recorder on dry runs.
	Runner shell.Runner
}

// DefaultNotes is the release description used when none is given.
const DefaultNotes = "Automated build"

var (
	// errNoArtifacts is returned when the artifacts directory holds no archives.
	errNoArtifacts = errors.New("no release archives found")
	// errDuplicateArtifact is returned when two archives share a file name.
	errDuplicateArtifact = errors.New("duplicate archive name")
)

// publisher holds the state of a single publishing run.
type publisher struct {
	cfg    *config.Config
	env    *config.Env
	runner shell.Runner
	dir    string
}

// Run executes the publishing workflow.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "rns-publisher")

	cfg, err := config.LoadInDir(opts.Dir, opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	p, err := newPublisher(cfg, opts)
	if err != nil {
		return err
	}

	tag := strings.TrimSpace(opts.Tag)
	if tag == "" {
		if tag, err = p.env.ReleaseTag(); err != nil {
			return err
		}
	}

	ctx = logger.WithKV(ctx, "tag", tag)

	if err = p.Run(ctx, tag, opts); err != nil {
		return fmt.Errorf("publisher failed: %w", err)
	}

	if rec, ok := p.runner.(*shell.Recorder); ok && opts.DryRun {
		for _, line := range rec.Commands() {
			logger.InfoKV(ctx, "Dry run, skipped command", "command", line)
		}

		return nil
	}

	logger.Info(ctx, "Release published successfully")

	return nil
}

func newPublisher(cfg *config.Config, opts *Options) (*publisher, error) {
	env := opts.Env
	if env == nil {
		var err error

		if env, err = config.LoadEnv(); err != nil {
			return nil, err
		}
	}

	runner := opts.Runner
	switch {
	case runner != nil:
	case opts.DryRun:
		runner = new(shell.Recorder)
	default:
		runner = shell.NewExecRunner()
	}

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	return &publisher{cfg: cfg, env: env, runner: runner, dir: dir}, nil
}

// Run collects archives, writes the checksum manifest and creates the release.
func (p *publisher) Run(ctx context.Context, tag string, opts *Options) error {
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = p.cfg.ArtifactsDir
	}

	if !filepath.IsAbs(artifactsDir) {
		artifactsDir = filepath.Join(p.dir, artifactsDir)
	}

	archives, err := CollectArchives(artifactsDir)
	if err != nil {
		return err
	}

	for _, path := range archives {
		if info, statErr := os.Stat(path); statErr == nil {
			logger.InfoKV(ctx, "Found archive", "file", filepath.Base(path), "size", humanize.Bytes(uint64(info.Size())))
		}
	}

	sums, err := common.ComputeChecksums(ctx, archives, common.DefaultChecksumWorkers)
	if err != nil {
		return fmt.Errorf("compute checksums: %w", err)
	}

	manifest := filepath.Join(artifactsDir, release.ChecksumsAssetName)
	if err = sums.Save(manifest); err != nil {
		return fmt.Errorf("write %s: %w", release.ChecksumsAssetName, err)
	}

	notes := opts.Notes
	if strings.TrimSpace(notes) == "" {
		notes = DefaultNotes + " " + tag
	}

	cmd := shell.Command{
		Name: "gh",
		Args: CreateArgs(tag, append(archives, manifest), notes, p.cfg.RepoSlug,
			opts.Prerelease || release.IsPrereleaseTag(tag), opts.Draft),
		Dir: p.dir,
	}

	if token := p.env.Token(); token != "" {
		cmd.Env = []string{"GH_TOKEN=" + token}
	} else {
		logger.Warn(ctx, "No GitHub token in the environment, relying on the release CLI login")
	}

	logger.InfoKV(ctx, "Creating release", "assets", len(archives)+1, "repo", p.cfg.RepoSlug)

	if err = p.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("gh release create: %w", err)
	}

	return nil
}

// CreateArgs builds the "gh release create" arguments.
func CreateArgs(tag string, files []string, notes, repo string, prerelease, draft bool) []string {
	args := make([]string, 0, len(files)+10)
	args = append(args, "release", "create", tag)
	args = append(args, files...)
	args = append(args, "--title", tag, "--notes", notes)

	if prerelease {
		args = append(args, "--prerelease")
	}

	if draft {
		args = append(args, "--draft")
	}

	if repo != "" {
		args = append(args, "--repo", repo)
	}

	return args
}

// CollectArchives walks dir recursively and returns every release archive,
// sorted by file name. CI artifact downloads nest each archive in its own
// directory, so the file names must be unique.
func CollectArchives(dir string) ([]string, error) {
	var archives []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.Type().IsRegular() && release.IsArchive(d.Name()) {
			archives = append(archives, path)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", dir, errNoArtifacts)
		}

		return nil, fmt.Errorf("scan artifacts: %w", err)
	}

	if len(archives) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, errNoArtifacts)
	}

	slices.SortFunc(archives, func(a, b string) int {
		return strings.Compare(filepath.Base(a), filepath.Base(b))
	})

	if dups := lo.FindDuplicatesBy(archives, filepath.Base); len(dups) > 0 {
		return nil, fmt.Errorf("%w: %s", errDuplicateArtifact, filepath.Base(dups[0]))
	}

	return archives, nil
}
