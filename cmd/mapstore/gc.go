package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	gcEvery       time.Duration
	gcMetricsAddr string
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Delete notes and elements no quest references",
	Long: `gc removes every note, node, way and relation whose id is not referenced by
a quest of the matching type. With --every it keeps running until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if gcEvery <= 0 {
			report, err := app.CollectGarbage(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "notes=%d nodes=%d ways=%d relations=%d\n",
				report.Notes, report.Nodes, report.Ways, report.Relations)
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if gcMetricsAddr != "" {
			srv := &http.Server{
				Addr:              gcMetricsAddr,
				Handler:           metricsMux(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("metrics server stopped", "error", err)
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
			log.Info("serving metrics", "addr", gcMetricsAddr)
		}
		log.Info("cleanup loop started", "every", gcEvery.String())
		return app.RunCleanup(ctx, gcEvery)
	},
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return mux
}

func init() {
	gcCmd.Flags().DurationVar(&gcEvery, "every", 0, "Repeat cleanup at this interval until interrupted")
	gcCmd.Flags().StringVar(&gcMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while looping")
	rootCmd.AddCommand(gcCmd)
}
