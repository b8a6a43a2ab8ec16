package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/atlas/internal/config"
)

var (
	cfg        *config.Config
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "atlas",
	Short: "Automated company research agent",
	Long: `Researches companies field by field with web search, page reads and LLM
extraction, retrying weak fields with alternate strategies, and assembles a
profile with a relationship graph.

Settings come from config.yaml (or --config) and ATLAS_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			c.Log.Level = "debug"
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

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
