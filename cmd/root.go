package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ecomap",
	Short: "Company verification engine for the Danish startup ecosystem map",
	Long:  "Verifies mapped companies against the CVR registry, probes their web presence, scores confidence and flags entries for review.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
