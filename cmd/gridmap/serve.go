package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"gridmap/internal/db"
	"gridmap/internal/httpapi"
	"gridmap/internal/ingest"
	"gridmap/internal/metrics"
	"gridmap/internal/publisher"
	"gridmap/internal/refreshworker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build the network and serve the map",
	Long: `Builds the network dataset from the configured CSV sources, then serves the
map page, the /network_data document and the JSON API. Source files are polled
and the dataset rebuilt when they change.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := httpapi.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *db.Pool
	var store refreshworker.Queries
	if cfg.DatabaseURL != "" {
		p, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer p.Close()
		pool = p
		store = p.Queries()
		logger.Info().Str("driver", string(p.Driver())).Msg("snapshot store ready")
	}

	pub, err := publisher.New(logger, cfg.MQTT)
	if err != nil {
		return err
	}
	defer pub.Close()

	m := metrics.New()
	current := &refreshworker.Current{}
	worker := refreshworker.New(logger, ingest.NewBuilder(logger), current, store, pub, m, refreshworker.Options{
		PollInterval: cfg.RefreshInterval,
		Sources:      cfg.ResolvedSources(),
		Retention:    cfg.SnapshotRetention,
	})
	if err := worker.Refresh(ctx, "startup"); err != nil {
		restoreLatestSnapshot(ctx, logger, pool, current)
	}
	go worker.Run(ctx)

	h := httpapi.NewHandler(logger, pool, current, httpapi.Options{
		Variant:  cfg.ParsedVariant(),
		Map:      cfg.MapOptions(),
		Metrics:  m,
		Reloader: worker,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("variant", string(cfg.ParsedVariant())).Msg("gridmap listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
	return nil
}

// restoreLatestSnapshot serves the last stored dataset when the sources
// cannot be built at startup.
func restoreLatestSnapshot(ctx context.Context, logger zerolog.Logger, pool *db.Pool, current *refreshworker.Current) {
	if pool == nil {
		logger.Warn().Msg("no dataset available until the sources can be built")
		return
	}
	snap, err := pool.Queries().GetLatestSnapshot(ctx)
	if err != nil {
		if db.IsNotFound(err) {
			logger.Warn().Msg("no stored snapshot to fall back on")
		} else {
			logger.Error().Err(err).Msg("failed to load latest snapshot")
		}
		return
	}
	ds, err := refreshworker.DatasetFromSnapshot(snap)
	if err != nil {
		logger.Error().Err(err).Msg("failed to restore latest snapshot")
		return
	}
	current.Store(ds)
	logger.Info().Str("snapshot_id", snap.ID).Time("built_at", ds.BuiltAt).Msg("serving last stored snapshot")
}
