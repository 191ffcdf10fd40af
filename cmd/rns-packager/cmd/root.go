package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/atepart/rns-release/internal/config"
	"github.com/atepart/rns-release/internal/logger"
	"github.com/atepart/rns-release/internal/service/packager"
	"github.com/atepart/rns-release/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// logLevel overrides RNS_LOG_LEVEL.
	logLevel string
	// options collects packaging flags.
	options packager.Options
	// createArchive controls whether the bundle is compressed.
	createArchive bool

	// rootCmd represents the base command for packaging the application.
	rootCmd = &cobra.Command{
		Use:   "rns-packager",
		Short: "Bundle the application and archive it for distribution.",
		Long: `Runs the GUI packaging tool with the fixed release flags, copies the static
asset directory into the bundle and compresses the bundle as
<AppName>_<OS>_<Arch>[_<Tag>].zip (Windows, macOS) or .tar.gz (Linux).

The operating system and architecture are detected from the running machine
unless --os and --arch are given.`,
		Args: cobra.NoArgs,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogging()
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options.ConfigPath = cfgPath
			options.NoArchive = !createArchive

			return packager.Run(ctx, &options)
		},
	}
)

// Execute runs the rns-packager CLI and exits with non-zero status on error.
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
	flags.StringVar(&options.Dir, "dir", ".", "project root")
	flags.StringVar(&options.Tag, "tag", "", "tag appended to the archive name")
	flags.StringVar(&options.OS, "os", "", "target OS token (Windows, macOS, Linux)")
	flags.StringVar(&options.Arch, "arch", "", "target architecture token (x64, x86, arm64)")
	flags.BoolVar(&options.SkipBuild, "skip-build", false, "archive an existing bundle without running the packaging tool")
	flags.BoolVar(&createArchive, "archive", true, "compress the bundle into the artifacts directory")
}
