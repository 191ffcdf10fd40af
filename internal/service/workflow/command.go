package workflow

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/atepart/rns-release/internal/config"
	"github.com/atepart/rns-release/internal/logger"
)

// header is prepended to every rendered workflow.
const header = "# Generated by rns-workflow from rns-release.yaml. Do not edit by hand.\n"

// Options contains inputs for the workflow entry point.
type Options struct {
	// ConfigPath is an optional path to the release settings.
	ConfigPath string
	// Trigger overrides the configured trigger mode.
	Trigger string
	// Output is the destination file. Empty writes to Stdout.
	Output string
	// Stdout receives the workflow when Output is empty. Defaults to os.Stdout.
	Stdout io.Writer
}

// Run renders the workflow and writes it out.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "rns-workflow")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.Trigger != "" {
		cfg.Workflow.Trigger = opts.Trigger
		if err = config.Validate(cfg); err != nil {
			return err
		}
	}

	data, err := Render(cfg)
	if err != nil {
		return err
	}

	if opts.Output == "" {
		out := opts.Stdout
		if out == nil {
			out = os.Stdout
		}

		_, err = out.Write(data)

		return err
	}

	if err = os.MkdirAll(filepath.Dir(opts.Output), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	//nolint:gosec // Workflow files are committed to the repository and must be world-readable.
	if err = os.WriteFile(opts.Output, data, 0o644); err != nil {
		return fmt.Errorf("write workflow: %w", err)
	}

	logger.InfoKV(ctx, "Workflow written",
		"path", opts.Output,
		"trigger", cfg.Workflow.Trigger,
		"targets", len(cfg.Workflow.Targets))

	return nil
}

// Render returns the workflow for cfg as YAML.
func Render(cfg *config.Config) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(header)

	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(Generate(cfg)); err != nil {
		return nil, fmt.Errorf("encode workflow: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("encode workflow: %w", err)
	}

	return buf.Bytes(), nil
}
