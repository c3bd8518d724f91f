// Command ivlesim simulates students moving through a virtual learning
// environment and scores their engagement.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/ivle-sim/internal/config"
	"github.com/talgya/ivle-sim/internal/logging"
)

var (
	version = "0.1.0-dev"

	globalConfig   string
	globalLogLevel string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:           "ivlesim",
		Short:         "Simulate student engagement in a virtual learning environment",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&globalConfig, "config", "c", "", "YAML config file (default: built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&globalLogLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newRunCmd(),
		newMetricsCmd(),
		newServeCmd(),
		newRunsCmd(),
	)

	return rootCmd.ExecuteContext(ctx)
}

// loadConfig reads the config file, applies the global log level and
// installs the default logger. Validation is left to the caller so command
// flags can be applied first.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(globalConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if globalLogLevel != "" {
		cfg.Logging.Level = globalLogLevel
	}

	slog.SetDefault(logging.NewLogger(cfg.Logging.Level, os.Stderr))
	return cfg, nil
}
