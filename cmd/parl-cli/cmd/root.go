package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "parl-cli",
	Short: "parl-cli drives the chamber legislation scraper from the command line.",
}

func Execute() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "path to the service config")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
