// Package main is the entry point for the tengine CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "tengine",
	Short: "Transform engine for PDF rendering, text extraction and metadata",
	Long: `tengine wraps a PDF renderer and an in-process text and metadata
extractor behind one transform contract. Serve it over HTTP, run single
transforms from the command line, or watch folders for new files.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./tengine.yaml or ~/.config/tengine/tengine.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn or error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
