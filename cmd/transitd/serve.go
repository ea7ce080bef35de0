package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"peninsula.dev/transit"
	"peninsula.dev/transit/api"
	"peninsula.dev/transit/config"
	"peninsula.dev/transit/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the read API and both refresh workers",
	Args:  cobra.NoArgs,
	RunE:  serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	m := metrics.New()

	urls := transit.FeedURLs{
		Static:           cfg.StaticURL,
		TripUpdates:      cfg.TripUpdatesURL,
		VehiclePositions: cfg.VehiclePositionsURL,
		Alerts:           cfg.AlertsURL,
	}

	realtime := transit.NewRealtimeWorker(cfg.APIKey, urls, store, logger, m)
	realtime.Interval = cfg.RealtimeInterval

	schedule := transit.NewScheduleWorker(cfg.APIKey, cfg.StaticURL, store, logger, m)
	schedule.Interval = cfg.ScheduleInterval
	schedule.MinEndDate = cfg.MinEndDate

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go realtime.Run(ctx)
	go schedule.Run(ctx)

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.NewServer(store, logger, m).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
