// Package root contains the root command for the application.
package root

import (
	"hesapp/extractor/internal/config"
	"hesapp/extractor/internal/logging"

	"github.com/spf13/cobra"
)

var (
	// Cfg is the loaded application configuration, available to all
	// subcommands after PersistentPreRunE.
	Cfg *config.Config

	// Log is the shared logger instance for commands.
	Log logging.Logger

	// Cmd is the root command.
	Cmd = &cobra.Command{
		Use:   "hesapp",
		Short: "Extract and categorize transactions from Turkish bank statements.",
		Long: `hesapp ingests bank statement files (PDF, XLSX, XLS, CSV), extracts the
individual transactions through an inference service, detects income events,
groups the timeline into financial periods and assigns spending categories.`,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Welcome to hesapp!")
			Log.Info("Use --help to see available commands")
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.InitializeConfig()
			if err != nil {
				return err
			}
			Cfg = cfg
			Log = logging.NewLogrusAdapterFromLogger(config.ConfigureLoggingFromConfig(cfg))
			return nil
		},
	}
)

// Init sets up persistent flags on the root command.
func Init() {
	Cmd.PersistentFlags().StringP("output", "o", "", "Output directory for JSON artifacts")
	Log = logging.GetLogger()
}
