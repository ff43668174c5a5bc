// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dotandev/tlsign/internal/logger"
)

// Global flag variables
var (
	LogLevelFlag  string
	LogFormatFlag string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tlsign",
	Short: "TrueLayer request-signing gateway",
	Long: `tlsign produces Tl-Signature headers for outbound TrueLayer API calls.

It runs as a small HTTP service that accepts a request description plus key
material and answers with the signature and key id, or signs and verifies
request documents directly from the command line.

Examples:
  tlsign serve                                 Listen on $PORT (default 3001)
  tlsign serve --port 8080 --tracing           Listen on 8080 with OpenTelemetry
  tlsign sign --file request.json              Sign a request document
  tlsign verify --public-key pub.pem \
      --signature "$SIG" --file request.json   Verify a signature`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.Configure(LogLevelFlag, LogFormatFlag)
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&LogLevelFlag,
		"log-level",
		envOr("TLSIGN_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)",
	)

	rootCmd.PersistentFlags().StringVar(
		&LogFormatFlag,
		"log-format",
		envOr("TLSIGN_LOG_FORMAT", "text"),
		"Log output format (text, json)",
	)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
