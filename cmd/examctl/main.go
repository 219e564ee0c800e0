// Command examctl administers an adaptive exam deployment: importing
// question banks, hashing the proctor password and issuing tokens.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-adaptive/internal/config"
	"github.com/stemsi/exstem-adaptive/internal/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "examctl",
		Short:        "Administration tool for the adaptive exam service",
		SilenceUsage: true,
	}
	root.AddCommand(importCmd(), hashPasswordCmd(), issueTokenCmd())
	return root
}

// setup loads configuration and a logger writing to stderr so command output
// on stdout stays machine-readable.
func setup() (*config.Config, zerolog.Logger) {
	cfg := config.Load()
	log := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	return cfg, log
}
