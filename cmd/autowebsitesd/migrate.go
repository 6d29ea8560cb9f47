package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/isethius/Autowebsites-sub001/observability"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations to the configured store",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := observability.NewLogger()

	s, closeStore, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	defer s.Close()

	if err := s.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("migrations applied", slog.String("driver", storeDriver()))
	return nil
}
