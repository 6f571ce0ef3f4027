package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AlekseyZapadovnikov/code-review/conf"
	"github.com/AlekseyZapadovnikov/code-review/internal/logger"
	"github.com/AlekseyZapadovnikov/code-review/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := conf.Load(configPath)
		if err != nil {
			return err
		}
		logger.Setup(cfg.Log)

		if err := repository.Migrate(cfg.DBConf.DSN()); err != nil {
			return err
		}
		slog.Info("Migrations applied successfully", "database", cfg.DBConf.Name)
		return nil
	},
}
