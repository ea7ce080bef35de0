package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"peninsula.dev/transit/config"
	"peninsula.dev/transit/kv"
)

var rootCmd = &cobra.Command{
	Use:          "transitd",
	Short:        "Caltrain data pipeline",
	Long:         "Builds and serves the schedule bundle and the merged realtime feed",
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
}

func newStore(cfg *config.Config) (kv.Store, error) {
	switch cfg.KVBackend {
	case "memory":
		return kv.NewMemoryStore(), nil
	case "sqlite":
		if cfg.KVDSN != "" {
			return kv.NewSQLiteStore(kv.SQLiteConfig{OnDisk: true, Directory: cfg.KVDSN})
		}
		return kv.NewSQLiteStore()
	case "postgres":
		return kv.NewPostgresStore(cfg.KVDSN, false)
	case "redis":
		return kv.NewRedisStore(cfg.KVDSN)
	}
	return nil, fmt.Errorf("unknown KV backend %q", cfg.KVBackend)
}
