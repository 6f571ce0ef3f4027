package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "code-review",
	Short:         "code-review tracks per-revision code review of work items.",
	Long:          `Interactive code review of work items, fair automatic reviewer assignment and a checker for unreviewed or orphaned revisions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() { //nolint:gochecknoinits // регистрация команд cobra
	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "./conf/config.json"
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultPath, "path to the JSON configuration file")

	rootCmd.AddCommand(serveCmd, assignCmd, checkCmd, migrateCmd)
}

// main разбирает аргументы командной строки и выполняет выбранную команду.
func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("code-review failed", "error", err)
		os.Exit(1)
	}
}
