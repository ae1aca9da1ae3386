package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/cmd/cmdutil"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/auth"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/bunx"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/repository"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/server"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/heatmap"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/masterdata"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/photo"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/session"
	scoutsync "github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/services/sync"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/telemetry"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/validation"
)

const schemaCacheSize = 16

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Scout API server",
	Long:  `Starts the HTTP server with the session lifecycle, observation, photo metadata, sync and heatmap endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		shutdownTracing, err := telemetry.Init(ctx, cfg.Observability)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				slog.Warn("failed to flush traces", "error", err)
			}
		}()

		db, err := cmdutil.OpenDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer bunx.Close(db)

		slog.Info("connected to database", "type", bunx.DetectDatabaseType(cfg.DatabaseURL))

		store := repository.NewBunStore(db)
		lookup, err := masterdata.NewCachedLookup(repository.NewBunFarmRepository(db), cfg.Cache.MasterDataSize, cfg.Cache.MasterDataTTL)
		if err != nil {
			return fmt.Errorf("create master data cache: %w", err)
		}
		gate, err := auth.NewCasbinGate()
		if err != nil {
			return fmt.Errorf("configure casbin gate: %w", err)
		}
		validator, err := validation.NewSchemaValidator(schemaCacheSize)
		if err != nil {
			return fmt.Errorf("create schema validator: %w", err)
		}

		var metrics *telemetry.ScoutMetrics
		var metricsHandler http.Handler
		if cfg.Observability.MetricsEnabled {
			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics, err = telemetry.NewScoutMetrics(registry)
			if err != nil {
				return fmt.Errorf("register metrics: %w", err)
			}
			metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
		}

		sessions := session.NewService(store, lookup, gate, nil).WithMetrics(metrics)
		photos := photo.NewService(store, lookup, gate, nil).WithMetrics(metrics)
		coordinator := scoutsync.NewCoordinator(store, lookup, gate, sessions.Views()).WithMetrics(metrics)
		aggregator := heatmap.NewAggregator(store, lookup, gate)

		var corsOptions *cors.Options
		if len(cfg.CORSAllowedOrigins) > 0 {
			opts := server.DefaultCORSOptions()
			opts.AllowedOrigins = cfg.CORSAllowedOrigins
			corsOptions = &opts
		}

		handler := server.NewH2CHandler(server.RouterOptions{
			Sessions:       sessions,
			Photos:         photos,
			Sync:           coordinator,
			Heatmap:        aggregator,
			Validator:      validator,
			Tokens:         auth.NewTokenService([]byte(cfg.Auth.TokenSecret), cfg.Auth.TokenIssuer, nil),
			Metrics:        metrics,
			MetricsHandler: metricsHandler,
			CORSOptions:    corsOptions,
			HealthHandler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				if err := db.PingContext(r.Context()); err != nil {
					w.WriteHeader(http.StatusServiceUnavailable)
					fmt.Fprint(w, `{"status":"unavailable"}`)
					return
				}
				w.WriteHeader(http.StatusOK)
				fmt.Fprint(w, `{"status":"ok"}`)
			},
		})

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			slog.Info("starting server", "addr", cfg.ServerAddr, "url", cfg.ServerURL)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			slog.Info("shutting down gracefully", "signal", sig.String())

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			slog.Info("server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
