package stamper

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/atepart/rns-release/internal/config"
	"github.com/atepart/rns-release/internal/logger"
	"github.com/atepart/rns-release/internal/repository/versionfile"
	"github.com/atepart/rns-release/internal/shell"
)

// Options contains inputs for the stamper entry point.
type Options struct {
	// ConfigPath is an optional path to the release settings.
	ConfigPath string
	// Tag is the release tag. Blank means nothing to do.
	Tag string
	// Dir is the repository working directory. Defaults to the current one.
	Dir string
	// NoPush keeps the commit and the tag local.
	NoPush bool
	// Runner executes git. Defaults to shell.NewExecRunner().
	Runner shell.Runner
}

// messageData is passed to the commit and tag message templates.
type messageData struct {
	Tag      string
	RepoSlug string
	AppName  string
}

// gitStep is one git invocation of the release sequence.
type gitStep struct {
	name string
	args []string
}

// stamper holds the state of a single stamp run.
type stamper struct {
	cfg    *config.Config
	dir    string
	runner shell.Runner
	repo   versionfile.Repository
	file   string
}

// Run stamps opts.Tag into the version file and publishes it through git.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "rns-stamp")

	tag := strings.TrimSpace(opts.Tag)
	if tag == "" {
		logger.Info(ctx, "No tag given, nothing to stamp")
		return nil
	}

	cfg, err := config.LoadInDir(opts.Dir, opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	s := newStamper(cfg, opts)

	ctx = logger.WithKV(ctx, "tag", tag)

	if err = s.Run(ctx, tag, !opts.NoPush); err != nil {
		return err
	}

	logger.Info(ctx, "Stamp completed")

	return nil
}

func newStamper(cfg *config.Config, opts *Options) *stamper {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	runner := opts.Runner
	if runner == nil {
		runner = shell.NewExecRunner()
	}

	file := filepath.Clean(cfg.VersionFile)

	return &stamper{
		cfg:    cfg,
		dir:    dir,
		runner: runner,
		repo:   versionfile.NewFileRepository(filepath.Join(dir, file)),
		file:   file,
	}
}

// Run writes the version file and performs the git sequence, stopping at the
// first failing step.
func (s *stamper) Run(ctx context.Context, tag string, push bool) error {
	data := messageData{Tag: tag, RepoSlug: s.cfg.RepoSlug, AppName: s.cfg.AppName}

	commitMessage, err := render("commit message", s.cfg.CommitMessage, data)
	if err != nil {
		return err
	}

	tagMessage, err := render("tag message", s.cfg.TagMessage, data)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Writing version file", "path", s.file, "repo_slug", s.cfg.RepoSlug)

	if err = s.repo.Save(ctx, &versionfile.Contents{Version: tag, RepoSlug: s.cfg.RepoSlug}); err != nil {
		return err
	}

	steps := []gitStep{
		{"git add", []string{"add", filepath.ToSlash(s.file)}},
		{"git commit", []string{"commit", "-m", commitMessage}},
		{"git tag", []string{"tag", "-a", tag, "-m", tagMessage}},
	}

	if push {
		steps = append(steps,
			gitStep{"git push", s.pushArgs()},
			gitStep{"git push tags", s.pushArgs("--tags")},
		)
	} else {
		logger.Info(ctx, "Push disabled, commit and tag stay local")
	}

	for _, step := range steps {
		logger.InfoKV(ctx, "Running step", "step", step.name)

		if err = s.runner.Run(ctx, shell.Command{Name: "git", Args: step.args, Dir: s.dir}); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	return nil
}

func (s *stamper) pushArgs(extra ...string) []string {
	args := []string{"push"}
	if s.cfg.Remote != "" {
		args = append(args, s.cfg.Remote)
	}

	return append(args, extra...)
}

func render(name, text string, data messageData) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse %s template: %w", name, err)
	}

	var buf bytes.Buffer
	if err = tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}

	return buf.String(), nil
}
