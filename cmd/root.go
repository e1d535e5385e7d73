// Package cmd wires the CLI together.
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/atelier-sh/atelier/internal/config"
	"github.com/atelier-sh/atelier/internal/logging"
)

var (
	flagConfig   string
	flagWorkDir  string
	flagLogLevel string
	flagProvider string
	flagModel    string
	flagAgent    string

	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "atelier",
	Short:         "A terminal design and coding agent",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagWorkDir != "" {
			cfg.WorkDir = flagWorkDir
		}
		if flagLogLevel != "" {
			cfg.Log.Level = flagLogLevel
		}
		if flagProvider != "" {
			cfg.Provider = flagProvider
		}
		if flagAgent != "" {
			cfg.Agent = flagAgent
		}
		if flagModel != "" {
			switch cfg.Provider {
			case "openai":
				cfg.OpenAI.Model = flagModel
			default:
				cfg.Anthropic.Model = flagModel
			}
		}
		log = logging.NewStderr(cfg.Log.Level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&flagWorkDir, "workdir", "C", "", "working directory (default: discovered project root)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "model provider (anthropic, openai)")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "model override for the selected provider")
	rootCmd.PersistentFlags().StringVar(&flagAgent, "agent", "", "agent profile name")
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
