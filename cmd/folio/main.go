package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/newthinker/folio/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool

	// cfg is loaded once for every subcommand.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "folio - Portfolio Health Checker",
	Long: `folio checks the health of a portfolio against a scoring API.
Enter holdings as free text, e.g. "AAPL, TSLA, BTC"; the text is sent
to the scoring API exactly as typed.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	// Without --config, defaults and FOLIO_* variables still apply.
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg = loaded

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errCheckFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
