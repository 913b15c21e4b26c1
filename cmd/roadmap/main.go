package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roadmap-cli/roadmap/internal/config"
	"github.com/roadmap-cli/roadmap/internal/debug"
	"github.com/roadmap-cli/roadmap/internal/telemetry"
	"github.com/roadmap-cli/roadmap/internal/ui"

	// Sync backends register themselves.
	_ "github.com/roadmap-cli/roadmap/internal/tracker/adapters/github"
)

var (
	// Version is set at build time with -ldflags.
	Version = "dev"
	Build   = "unknown"
)

var (
	verboseFlag bool
	quietFlag   bool
	configPath  string

	rootCtx    context.Context
	rootCancel context.CancelFunc
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "roadmap",
	Short:         "roadmap - sync markdown issues with a remote tracker",
	Long:          `Keeps a directory of markdown issue files in sync with GitHub issues using a three-way merge against the last synced baseline.`,
	Version:       fmt.Sprintf("%s (%s)", Version, Build),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)
		logger = debug.NewLogger(os.Stderr)
		slog.SetDefault(logger)
		ui.ConfigureColor()

		var err error
		if configPath != "" {
			err = config.InitializeWithPath(configPath)
		} else {
			err = config.Initialize()
		}
		if err != nil {
			return err
		}
		debug.Logf("config: %s", config.ConfigFileUsed())

		if err := telemetry.Init(rootCtx, "roadmap", Version); err != nil {
			logger.Warn("telemetry disabled", "error", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: nearest .roadmap/config.yaml)")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

func main() {
	err := rootCmd.Execute()
	shutdown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// shutdown flushes telemetry and releases the signal context.
func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := telemetry.Shutdown(ctx); err != nil && logger != nil {
		logger.Debug("telemetry shutdown", "error", err)
	}
	if rootCancel != nil {
		rootCancel()
	}
}
