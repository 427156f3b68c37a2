/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/hookupza/apiserver/config"
	"github.com/hookupza/apiserver/internal/services"
	"github.com/spf13/cobra"
)

var autoApproveOlderThan = services.DefaultAutoApproveAfter

// lifecycleCmd groups the bulk ad transitions, meant to be run from cron.
var lifecycleCmd = &cobra.Command{
	Use:   "lifecycle",
	Short: "Run ad lifecycle jobs",
}

var autoApproveCmd = &cobra.Command{
	Use:   "auto-approve",
	Short: "Activate pending ads older than --older-than",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLifecycle(cmd, true, false)
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Expire active ads past their expiry time",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLifecycle(cmd, false, true)
	},
}

var lifecycleRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Auto-approve then expire",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLifecycle(cmd, true, true)
	},
}

func init() {
	rootCmd.AddCommand(lifecycleCmd)
	lifecycleCmd.AddCommand(autoApproveCmd, expireCmd, lifecycleRunCmd)

	lifecycleCmd.PersistentFlags().DurationVar(&autoApproveOlderThan, "older-than", services.DefaultAutoApproveAfter,
		"minimum age of pending ads to auto-approve")
}

func runLifecycle(cmd *cobra.Command, approve, expire bool) error {
	cfg := config.LoadConfig()
	logger := newLogger(cfg)
	ctx := cmd.Context()

	deps, err := openLifecycle(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	if approve {
		count, err := deps.ads.AutoApprovePending(ctx, autoApproveOlderThan)
		if err != nil {
			return err
		}
		logger.Info("auto-approved pending ads", "count", count, "older_than", autoApproveOlderThan)
	}
	if expire {
		count, err := deps.ads.ExpireActive(ctx, deps.ads.Now())
		if err != nil {
			return err
		}
		logger.Info("expired active ads", "count", count)
	}
	return nil
}
