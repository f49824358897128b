package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GoPolymarket/ginauditor/internal/config"
	"github.com/GoPolymarket/ginauditor/internal/pkg/logger"
	"github.com/spf13/cobra"
)

var cleanupOlderThan time.Duration

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete stored audit logs past their retention",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)

		olderThan := cleanupOlderThan
		if olderThan <= 0 {
			olderThan = time.Duration(cfg.Database.AuditRetentionDays) * 24 * time.Hour
		}
		if olderThan <= 0 {
			return errors.New("no retention configured: pass --older-than or set database.audit_retention_days")
		}

		repo, err := openSQLRepo(cfg)
		if err != nil {
			return err
		}
		if repo == nil {
			return errors.New("no audit database configured")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()
		removed, err := repo.Cleanup(ctx, olderThan)
		if err != nil {
			return fmt.Errorf("cleanup: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d audit logs older than %s\n", removed, olderThan)
		return nil
	},
}

func init() {
	cleanupCmd.Flags().DurationVar(&cleanupOlderThan, "older-than", 0, "Age after which audit logs are deleted (default: database.audit_retention_days)")
	rootCmd.AddCommand(cleanupCmd)
}
