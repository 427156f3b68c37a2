/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hookupza/apiserver/config"
	"github.com/hookupza/apiserver/internal/db"
	"github.com/hookupza/apiserver/internal/logging"
	"github.com/hookupza/apiserver/internal/mq"
	"github.com/hookupza/apiserver/internal/services"
	"github.com/hookupza/apiserver/internal/store"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "hookupza",
	Short: "HookUpZA classifieds backend",
	Long: `HookUpZA classifieds backend: the HTTP API server, database migrations
and the ad lifecycle jobs.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	logger := logging.New(cfg.LogLevel, cfg.IsProduction())
	slog.SetDefault(logger)
	return logger
}

// lifecycleDeps holds what the offline commands need to drive the ad lifecycle.
type lifecycleDeps struct {
	db     *sqlx.DB
	events *mq.MQ
	ads    *services.AdService
	users  *services.UserService
}

func openLifecycle(ctx context.Context, cfg config.Config, logger *slog.Logger) (*lifecycleDeps, error) {
	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	events, err := mq.Open(ctx, cfg.Messaging)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open messaging: %w", err)
	}

	opts := []services.AdOption{services.WithLogger(logger)}
	if events != nil {
		opts = append(opts, services.WithEvents(events, cfg.Messaging.Topic))
	}

	return &lifecycleDeps{
		db:     conn,
		events: events,
		ads:    services.NewAdService(store.NewAdRepository(conn), opts...),
		users:  services.NewUserService(store.NewUserRepository(conn)),
	}, nil
}

func (d *lifecycleDeps) Close() {
	if d.events != nil {
		_ = d.events.Close()
	}
	_ = d.db.Close()
}
