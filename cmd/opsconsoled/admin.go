package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ops-console-backend/internal/auth"
	"ops-console-backend/internal/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			gormDB, err := db.Open(&cfg.Database)
			if err != nil {
				return err
			}
			if err := db.Migrate(gormDB, logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newUserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage console accounts",
	}

	var email, password, role string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create a console account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			gormDB, err := db.Init(&cfg.Database, logger)
			if err != nil {
				return err
			}
			svc := auth.NewService(gormDB, time.Duration(0), logger)
			user, err := svc.CreateUser(cmd.Context(), email, password, role)
			if err != nil {
				return err
			}
			logger.Debug("account ready", zap.Int64("user_id", user.ID))
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) with id %d\n", user.Email, user.Role, user.ID)
			return nil
		},
	}
	addCmd.Flags().StringVar(&email, "email", "", "account email")
	addCmd.Flags().StringVar(&password, "password", "", "account password (min 8 characters)")
	addCmd.Flags().StringVar(&role, "role", "user", "account role: admin or user")
	_ = addCmd.MarkFlagRequired("email")
	_ = addCmd.MarkFlagRequired("password")

	userCmd.AddCommand(addCmd)
	return userCmd
}
