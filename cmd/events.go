/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"

	"github.com/hookupza/apiserver/config"
	"github.com/hookupza/apiserver/internal/mq"
	"github.com/hookupza/apiserver/types"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect ad lifecycle events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log ad lifecycle events as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		events, err := mq.Open(ctx, cfg.Messaging)
		if err != nil {
			return err
		}
		if events == nil {
			return errors.New("messaging is disabled; set MQ_BACKEND")
		}
		defer events.Close()

		logger.Info("tailing ad events", "topic", cfg.Messaging.Topic, "backend", cfg.Messaging.Backend)
		err = events.Subscribe(ctx, cfg.Messaging.Topic, func(ctx context.Context, msg mq.Message) error {
			var event types.AdEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				logger.Warn("undecodable event", "id", msg.ID, "key", msg.Key, "error", err)
				return nil
			}
			logger.Info("ad event",
				"type", event.Type,
				"ad_id", event.AdID,
				"user_id", event.UserID,
				"status", event.Status,
				"count", event.Count,
				"occurred_at", event.OccurredAt,
			)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
