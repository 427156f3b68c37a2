/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"os"
	"strings"

	"github.com/hookupza/apiserver/config"
	"github.com/spf13/cobra"
)

var (
	adminUsername string
	adminPassword string
	adminEmail    string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account",
	Long: `Create an admin account. The password may be passed with --password or
the ADMIN_PASSWORD environment variable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg)
		ctx := cmd.Context()

		password := adminPassword
		if password == "" {
			password = os.Getenv("ADMIN_PASSWORD")
		}
		if strings.TrimSpace(adminUsername) == "" || password == "" {
			return errors.New("username and password are required")
		}

		deps, err := openLifecycle(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer deps.Close()

		admin, err := deps.users.CreateAdmin(ctx, adminUsername, password, adminEmail)
		if err != nil {
			return err
		}
		logger.Info("admin created", "admin_id", admin.ID, "username", admin.Username)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd)

	adminCreateCmd.Flags().StringVar(&adminUsername, "username", "", "admin username")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "admin password")
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "admin email")
}
