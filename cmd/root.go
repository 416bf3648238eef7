package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cadence-sync/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "cadence-sync",
	Short: "Bulk import of external prospect records into outreach cadences",
	Long:  "Imports leads from Salesforce, XLSX sheets, and CSV uploads, validates and reconciles them against the internal store, and attaches accepted records to a target cadence with live progress streaming.",
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
