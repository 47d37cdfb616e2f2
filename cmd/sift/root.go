package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/sift/internal/api"
	"github.com/jackzampolin/sift/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
	logFile      string
)

var rootCmd = &cobra.Command{
	Use:   "sift",
	Short: "Schema-based data extraction from PDF documents",
	Long: `Sift extracts structured data from PDF documents using a vision LLM.

A session holds one uploaded document (up to 10 pages), the pages you
selected, a YAML schema describing the fields to extract, and the
extracted JSON. Schemas can be written by hand, started from a template,
or generated from the selected pages.

Run "sift serve" for the web UI and HTTP API, or "sift run" to process a
single document from the command line.`,
	Version:      version.GitRelease,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.sift/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "sift home directory (default: ~/.sift)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn or error",
	)
	rootCmd.PersistentFlags().StringVar(
		&logFile, "log-file", "", "rotated log file (default for serve: <home>/logs/sift.log)",
	)

	// Set output format and load .env before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
