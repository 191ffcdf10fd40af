package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/atepart/rns-release/internal/config"
	"github.com/atepart/rns-release/internal/logger"
	"github.com/atepart/rns-release/internal/service/updater"
	"github.com/atepart/rns-release/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// logLevel overrides RNS_LOG_LEVEL.
	logLevel string
	// env holds the parsed environment.
	env *config.Env
	// common collects flags shared by every subcommand.
	common updater.Options
	// limit is the number of releases listed.
	limit int
	// install collects install flags.
	install updater.InstallOptions

	// rootCmd represents the base command for managing installed releases.
	rootCmd = &cobra.Command{
		Use:   "rns-updater",
		Short: "List, check and install application releases.",
		Long: `Talks to the GitHub releases API of the configured repository.

Release tags follow the new<N>[b<M>] scheme: a higher number wins, and a stable
release wins over its betas. The archive for this machine is picked by OS and
architecture. Set GITHUB_TOKEN or GH_TOKEN to raise the API rate limit.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogging()
		},
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Show recent releases and mark the installed one.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return updater.List(ctx, &updater.ListOptions{Options: sharedOptions(), Limit: limit})
		},
	}

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Report whether a newer release is available.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			opts := sharedOptions()

			return updater.Check(ctx, &opts)
		},
	}

	showCmd = &cobra.Command{
		Use:   "show [tag]",
		Short: "Print the notes and assets of a release (latest by default).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			opts := &updater.ShowOptions{Options: sharedOptions()}
			if len(args) > 0 {
				opts.Tag = args[0]
			}

			return updater.Show(ctx, opts)
		},
	}

	installCmd = &cobra.Command{
		Use:   "install [tag]",
		Short: "Download and install a release (latest by default).",
		Long: `Downloads the archive for this platform, verifies it against SHA256SUMS.txt,
stops the running application, replaces the installed bundle and records the
installed release. Only one install may run at a time.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			install.Options = sharedOptions()
			if len(args) > 0 {
				install.Tag = args[0]
			}

			return updater.Install(ctx, &install)
		},
	}
)

// Execute runs the rns-updater CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func sharedOptions() updater.Options {
	opts := common
	opts.ConfigPath = cfgPath
	opts.Env = env

	return opts
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
	persistent := rootCmd.PersistentFlags()
	persistent.StringVarP(&cfgPath, "config", "c", "",
		"path to configuration file (default "+config.DefaultConfigFilename+" when present)")
	persistent.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	persistent.StringVar(&common.InstallDir, "install-dir", "", "installation directory (overrides the configuration)")
	persistent.StringVar(&common.Current, "current", "", "installed version (skips local detection)")
	persistent.StringVar(&common.OS, "os", "", "override the detected OS token")
	persistent.StringVar(&common.Arch, "arch", "", "override the detected architecture token")

	listCmd.Flags().IntVarP(&limit, "limit", "n", updater.DefaultListLimit, "number of releases to show (1-100)")

	installFlags := installCmd.Flags()
	installFlags.BoolVarP(&install.Force, "force", "f", false, "reinstall even if the release is already installed")
	installFlags.BoolVar(&install.Progress, "progress", true, "show download progress on a terminal")
	installFlags.BoolVar(&install.NoKill, "no-kill", false, "do not terminate running application processes")
	installFlags.BoolVar(&install.Start, "start", false, "start the application after installing")

	rootCmd.AddCommand(listCmd, checkCmd, showCmd, installCmd)
}
