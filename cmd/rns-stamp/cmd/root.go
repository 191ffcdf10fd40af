package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/atepart/rns-release/internal/config"
	"github.com/atepart/rns-release/internal/logger"
	"github.com/atepart/rns-release/internal/service/stamper"
	"github.com/atepart/rns-release/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// logLevel overrides RNS_LOG_LEVEL.
	logLevel string
	// noPush keeps the release commit and tag local.
	noPush bool

	// rootCmd represents the base command for stamping a release.
	rootCmd = &cobra.Command{
		Use:   "rns-stamp [tag]",
		Short: "Write the version file, commit it and push a release tag.",
		Long: `Records a release tag in the application's generated version module.

Writes the version file (tag and repository slug), then runs git add, git commit,
an annotated git tag and pushes both the commit and the tags. Without a tag the
command does nothing and exits successfully.`,
		Args: cobra.MaximumNArgs(1),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogging()
		},
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var tag string
			if len(args) > 0 {
				tag = args[0]
			}

			return stamper.Run(ctx, &stamper.Options{
				ConfigPath: cfgPath,
				Tag:        tag,
				NoPush:     noPush,
			})
		},
	}
)

// Execute runs the rns-stamp CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() error {
	env, err := config.LoadEnv()
	if err != nil {
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
	rootCmd.Flags().BoolVar(&noPush, "no-push", false, "commit and tag locally without pushing")
}
