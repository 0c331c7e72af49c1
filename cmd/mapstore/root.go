package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"mapstore/internal/core"
	"mapstore/internal/logger"
	"mapstore/internal/metrics"
)

var (
	logLevel  string
	logPretty bool
	trace     bool

	app      *core.Service
	log      *logger.Logger
	registry *prometheus.Registry
	recorder *metrics.Metrics
)

var (
	_ core.Logger          = (*logger.Logger)(nil)
	_ core.MetricsRecorder = (*metrics.Metrics)(nil)
	_ core.CleanupRecorder = (*metrics.Metrics)(nil)
)

var rootCmd = &cobra.Command{
	Use:   "mapstore",
	Short: "Maintain the map data and note store",
	Long: `mapstore opens the configured database (MAPSTORE_* environment variables)
and runs maintenance tasks against it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := core.LoadConfig()
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("log-level") {
			logLevel = cfg.LogLevel
		}
		log = logger.New(logger.Config{
			Level:  logLevel,
			Pretty: logPretty || cfg.LogPretty,
			Output: cmd.ErrOrStderr(),
		})
		registry = prometheus.NewRegistry()
		recorder = metrics.New(registry)
		opts := []core.Option{
			core.WithLogger(log),
			core.WithMetricsRecorder(recorder),
		}
		if trace {
			opts = append(opts, core.WithTracer(core.NewJSONTracer(cmd.ErrOrStderr())))
		}
		app, err = core.Open(cmd.Context(), cfg, opts...)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		log.Debug("store opened", "driver", string(cfg.StorageDriver), "codec", cfg.Codec)
		return nil
	},
	PersistentPostRunE: func(*cobra.Command, []string) error {
		if app == nil {
			return nil
		}
		err := app.Close()
		app = nil
		return err
	},
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "log-pretty", false, "Human-readable log output")
	rootCmd.PersistentFlags().BoolVar(&trace, "trace", false, "Write operation spans as JSON lines to stderr")
}
