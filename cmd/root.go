package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"farm_service/internal/config"
	"farm_service/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "farm_service",
	Short: "Barn disease risk scoring and classification",
	Long: "farm_service scores barn inspection checklists, trains a risk classifier on\n" +
		"approved inspections and keeps every barn's risk level current.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		logging.Init(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, cmd.ErrOrStderr())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(recomputeCmd)
	rootCmd.AddCommand(pendingCmd)
	rootCmd.Version = version
}
