package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pabt.dev/departures/config"
	"pabt.dev/departures/storage"
)

var rootCmd = &cobra.Command{
	Use:          "departures",
	Short:        "PABT departures tool",
	Long:         "Polls the NJ Transit BUSDV2 API and builds a departure board from the accumulated records",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// Loads config, opens storage and ensures the schema exists. The
// caller owns the returned storage and must Close it.
func setup() (*config.Config, storage.Storage, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}

	logger := newLogger(cfg.Logging)

	s, err := openStorage(cfg.Database)
	if err != nil {
		return nil, nil, logger, err
	}

	if err := s.EnsureSchema(); err != nil {
		s.Close()
		return nil, nil, logger, err
	}

	return cfg, s, logger, nil
}

func openStorage(cfg config.DatabaseConfig) (storage.Storage, error) {
	switch cfg.Driver {
	case "sqlite":
		if cfg.Directory != "" {
			return storage.NewSQLiteStorage(storage.SQLiteConfig{
				OnDisk:    true,
				Directory: cfg.Directory,
			})
		}
		return storage.NewSQLiteStorage()
	case "postgres":
		return storage.NewPSQLStorage(cfg.ConnStr, false)
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var w io.Writer = os.Stderr
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func loadLocation(cfg config.BoardConfig) (*time.Location, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone: %w", err)
	}
	return loc, nil
}
