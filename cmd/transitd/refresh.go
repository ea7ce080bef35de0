package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"peninsula.dev/transit"
	"peninsula.dev/transit/config"
	"peninsula.dev/transit/metrics"
)

// One-shot variants of the two workers, for cron-style deployments
// and for poking at the pipeline from a shell.

var refreshScheduleCmd = &cobra.Command{
	Use:   "refresh-schedule",
	Short: "Fetch the GTFS archive and publish the schedule bundle once",
	Args:  cobra.NoArgs,
	RunE:  refreshSchedule,
}

var refreshRealtimeCmd = &cobra.Command{
	Use:   "refresh-realtime",
	Short: "Fetch the realtime feeds and publish the merged status once",
	Args:  cobra.NoArgs,
	RunE:  refreshRealtime,
}

func init() {
	rootCmd.AddCommand(refreshScheduleCmd)
	rootCmd.AddCommand(refreshRealtimeCmd)
}

func refreshSchedule(cmd *cobra.Command, args []string) error {
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

	worker := transit.NewScheduleWorker(cfg.APIKey, cfg.StaticURL, store, logger, metrics.New())
	worker.MinEndDate = cfg.MinEndDate

	err = worker.RunOnce(cmd.Context())
	if errors.Is(err, transit.ErrScheduleUnchanged) {
		logger.Info("schedule unchanged, nothing to publish")
		return nil
	}
	if err != nil {
		return errors.New(transit.Redact(err.Error(), cfg.APIKey))
	}
	return nil
}

func refreshRealtime(cmd *cobra.Command, args []string) error {
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

	worker := transit.NewRealtimeWorker(cfg.APIKey, transit.FeedURLs{
		TripUpdates:      cfg.TripUpdatesURL,
		VehiclePositions: cfg.VehiclePositionsURL,
		Alerts:           cfg.AlertsURL,
	}, store, logger, metrics.New())

	if err := worker.RunOnce(cmd.Context()); err != nil {
		return errors.New(transit.Redact(err.Error(), cfg.APIKey))
	}
	return nil
}
