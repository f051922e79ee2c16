package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/baleframe/tally/pkg/engine"
)

func watchCmd(cfg *config) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild on every model change until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())

			eng, store, err := openEngine(cfg, engine.WithRegisterer(reg))
			if err != nil {
				return err
			}
			defer store.Close()

			if cfg.MetricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
				srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
				go func() {
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						slog.Error("metrics server failed", "error", err)
					}
				}()
				defer srv.Shutdown(context.Background())
				slog.Info("metrics listening", "addr", cfg.MetricsAddr)
			}

			// The catalog is loaded once at startup; only the model
			// document is re-read per rebuild.
			fw, err := engine.NewFileWatcher(
				[]string{cfg.ModelPath}, debounce, slog.Default())
			if err != nil {
				return err
			}
			defer fw.Close()

			if err := eng.Attach(fw.Changes()); err != nil {
				return err
			}
			if _, err := eng.Rebuild(); err != nil {
				slog.Error("initial rebuild failed", "error", err)
			}

			slog.Info("watching for changes",
				"model", cfg.ModelPath, "catalog", cfg.CatalogPath)
			fw.Run(ctx)
			return nil
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "Quiet period before a rebuild")
	return cmd
}
