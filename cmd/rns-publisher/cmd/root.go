package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/atepart/rns-release/internal/config"
	"github.com/atepart/rns-release/internal/logger"
	"github.com/atepart/rns-release/internal/service/publisher"
	"github.com/atepart/rns-release/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// logLevel overrides RNS_LOG_LEVEL.
	logLevel string
	// env holds the parsed environment.
	env *config.Env
	// options collects publishing flags.
	options publisher.Options

	// rootCmd represents the base command for publishing a release.
	rootCmd = &cobra.Command{
		Use:   "rns-publisher",
		Short: "Publish packaged archives as a GitHub release.",
		Long: `Collects every archive below the artifacts directory, writes SHA256SUMS.txt
and creates a GitHub release through "gh release create".

The release tag is taken from --tag, otherwise from the CI environment: the
pushed tag on tag builds, build-<run number> on branch builds. The token is
read from GITHUB_TOKEN or GH_TOKEN.`,
		Args: cobra.NoArgs,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogging()
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options.ConfigPath = cfgPath
			options.Env = env

			return publisher.Run(ctx, &options)
		},
	}
)

// Execute runs the rns-publisher CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() error {
	var err error

	if env, err = config.LoadEnv(); err != nil {
		return err
	}

	if logLevel == "" {
		logLevel = env.LogLevel
	}

	return logger.SetLevelFromString(logLevel)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "",
		"path to configuration file (default "+config.DefaultConfigFilename+" when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	flags := rootCmd.Flags()
	flags.StringVar(&options.Dir, "dir", ".", "project root")
	flags.StringVar(&options.Tag, "tag", "", "release tag (derived from the CI environment when empty)")
	flags.StringVar(&options.ArtifactsDir, "artifacts", "", "directory holding the archives (overrides the configuration)")
	flags.StringVar(&options.Notes, "notes", "", "release notes")
	flags.BoolVar(&options.Draft, "draft", false, "create the release as a draft")
	flags.BoolVar(&options.Prerelease, "prerelease", false, "mark the release as a pre-release (automatic for beta tags)")
	flags.BoolVar(&options.DryRun, "dry-run", false, "write checksums and log the release command without running it")
}
