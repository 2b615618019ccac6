// Package cli implements the industry-server command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SebastianChristoph/industrygame-sub000/internal/platform/config"
	"github.com/SebastianChristoph/industrygame-sub000/internal/platform/logger"
)

var (
	// Global flags
	configPath string
	slotName   string
	verbose    bool
)

// NewRootCommand creates the root command for the CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "industry-server",
		Short: "Industry economy server and offline tools",
		Long: `industry-server runs the production economy engine behind a websocket
and REST API, and offers offline tools that work on the same save database.

Examples:
  industry-server serve --config configs/industry.yaml
  industry-server simulate --pings 600 --setup setup.json
  industry-server stats export --kind profit
  industry-server stats recap --since 120
  industry-server stats slots`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to the config file (default: ./industry.yaml or ./configs/industry.yaml)")
	rootCmd.PersistentFlags().StringVar(&slotName, "slot", "",
		"Save slot to use (overrides database.slot)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewSimulateCommand())
	rootCmd.AddCommand(NewStatsCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config and applies the global flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if slotName != "" {
		cfg.Database.Slot = slotName
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// newLogger logs to stderr so command output stays clean on stdout.
func newLogger(cfg *config.Config) *logger.Logger {
	return logger.New(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
}
