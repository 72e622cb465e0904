package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gridwatch/internal/app"
	"gridwatch/internal/config"
	"gridwatch/internal/logging"
	"gridwatch/internal/service"
)

var (
	cfgFile   string
	logLevel  string
	appHandle *app.App
)

var rootCmd = &cobra.Command{
	Use:   "gridwatch",
	Short: "Collect UK electricity prices and carbon intensity data",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if appHandle != nil {
			return nil
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger := logging.NewLogger(cfg.Logging)
		appHandle = app.NewApp(cfg, logger)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level defined in config")

	rootCmd.AddCommand(schedulerCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(monthlyAvgCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

func getApp() *app.App {
	if appHandle == nil {
		panic("application not initialized; PersistentPreRunE not executed")
	}
	return appHandle
}

// parseSources maps the user-facing --source value onto orchestrator source
// names. "all" (or empty) selects everything.
func parseSources(value string) ([]string, error) {
	switch value {
	case "", "all":
		return nil, nil
	case "system":
		return []string{service.SourceSystemPrices}, nil
	case "dayahead":
		return []string{service.SourceDayAheadPrice}, nil
	case "carbon":
		return []string{service.SourceCarbon}, nil
	case "fuelmix":
		return []string{service.SourceFuelMix}, nil
	default:
		return nil, fmt.Errorf("invalid --source %q (expected all, system, dayahead, carbon or fuelmix)", value)
	}
}
