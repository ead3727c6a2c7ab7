// Package cmd defines the CLI commands for the refbundle executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/refbundle/refbundle/internal/config"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refbundle",
		Short: "Collects reference documents into a single archive.",
		Long: `refbundle turns a list of citation URLs into a ZIP archive of documents.
Direct document links are fetched as-is; everything else is rendered in a
headless browser and captured as a paginated document.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults plus REFBUNDLE_* env)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "refbundle: %v\n", err)
		os.Exit(1)
	}
}
