package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/atepart/rns-release/internal/config"
	"github.com/atepart/rns-release/internal/logger"
	"github.com/atepart/rns-release/internal/service/workflow"
	"github.com/atepart/rns-release/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// logLevel overrides RNS_LOG_LEVEL.
	logLevel string
	// options collects generator flags.
	options workflow.Options

	// rootCmd represents the base command for rendering the CI workflow.
	rootCmd = &cobra.Command{
		Use:   "rns-workflow",
		Short: "Render the GitHub Actions build and release workflow.",
		Long: `Renders a workflow with a build matrix over the configured targets and a
release job that publishes every archive. The workflow runs on pushed tags
matching the configured pattern (trigger "tag") or on pushes to the configured
branch (trigger "branch").`,
		Args: cobra.NoArgs,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogging()
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options.ConfigPath = cfgPath

			return workflow.Run(ctx, &options)
		},
	}
)

// Execute runs the rns-workflow CLI and exits with non-zero status on error.
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

	flags := rootCmd.Flags()
	flags.StringVarP(&options.Output, "output", "o", "", "write the workflow to this file instead of stdout")
	flags.StringVar(&options.Trigger, "trigger", "", "override the trigger mode: tag or branch")
}
