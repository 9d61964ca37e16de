package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	assistantrepo "github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant/repository"
	"github.com/FACorreiaa/echo-voice-assistant/pkg/config"
	"github.com/FACorreiaa/echo-voice-assistant/pkg/cron"
	"github.com/FACorreiaa/echo-voice-assistant/pkg/db"
)

func openDatabase() (*config.Config, *db.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	database, err := db.New(db.Config{
		DSN:             cfg.Database.DSN(),
		MaxConns:        2,
		MinConns:        1,
		MaxConnLifetime: time.Minute,
		MaxConnIdleTime: time.Minute,
	}, slog.Default())
	if err != nil {
		return nil, nil, err
	}
	return cfg, database, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			_, database, err := openDatabase()
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.RunMigrations(); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			slog.Info("migrations applied")
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire unanswered commands and idle sessions now",
		Long: `Run the same sweeps the server schedules: pending commands older than the
confirmation window become expired, and sessions past their TTL close.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, database, err := openDatabase()
			if err != nil {
				return err
			}
			defer database.Close()

			store := assistantrepo.NewPostgresStore(database.Pool)
			cron.NewScheduler(store, cfg.Assistant.ConfirmationWindow, cfg.Assistant.SweepSchedule, nil, slog.Default()).RunNow()
			return nil
		},
	}
}
