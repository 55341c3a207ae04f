// Package main is the entry point for the PDF Reformatter API server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/config"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/logger"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "pdf-reformatter",
	Short: "Convert PDFs into clean, formatted Word documents",
	Long: `pdf-reformatter extracts the text of an uploaded PDF, has a language model
repair its layout and headings, and serves the result as DOCX, PDF, Markdown
or plain text.

Run "serve" to start the HTTP API. Configuration comes from the environment,
optionally layered over ./reformatter.yaml or the file given with --config.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./reformatter.yaml or ~/.config/reformatter/reformatter.yaml)")
}

// loadConfig reads the configuration and builds the logger for it.
func loadConfig(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(cfg.GinMode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, log, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
