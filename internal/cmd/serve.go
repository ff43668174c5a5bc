// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dotandev/tlsign/internal/config"
	"github.com/dotandev/tlsign/internal/gateway"
	"github.com/dotandev/tlsign/internal/logger"
	"github.com/dotandev/tlsign/internal/shutdown"
	"github.com/dotandev/tlsign/internal/signer"
	"github.com/dotandev/tlsign/internal/telemetry"
)

var (
	servePort    string
	serveTracing bool
	serveOTLPURL string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP signing gateway",
	Long: `Start the HTTP signing gateway.

Endpoints:
  - GET  /      liveness check
  - POST /sign  sign a request description, returns Tl-Signature and Tl-Kid
  - POST /rpc   JSON-RPC 2.0, method tlsign.Sign

Configuration is read from the environment (PORT, TLSIGN_*) and may be
overridden with flags.

Example:
  tlsign serve
  PORT=8080 tlsign serve --tracing --otlp-url http://collector:4318`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadServeConfig(cmd)
		if err != nil {
			return err
		}
		logger.Configure(cfg.LogLevel, cfg.LogFormat)

		coordinator := shutdown.NewCoordinator()

		flush, err := telemetry.Init(cmd.Context(), telemetry.Config{
			Enabled:        cfg.Tracing,
			ExporterURL:    cfg.OTLPURL,
			ServiceName:    gateway.ServiceName,
			ServiceVersion: Version,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		coordinator.Register("telemetry", flush)

		gw := gateway.New(signer.NewTrueLayerSigner(), gateway.Options{MaxBodyBytes: cfg.MaxBodyBytes})
		server, err := gateway.NewServer(cfg.Addr(), gw)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}
		coordinator.Register("http-server", server.Shutdown)

		printServeBanner(cmd.OutOrStdout(), cfg)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		return serveUntilSignal(sigCh, coordinator, cfg.ShutdownTimeout, server.ListenAndServe)
	},
}

func loadServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = servePort
	}
	if flags.Changed("tracing") {
		cfg.Tracing = serveTracing
	}
	if flags.Changed("otlp-url") {
		cfg.OTLPURL = serveOTLPURL
	}
	rootFlags := cmd.Root().PersistentFlags()
	if rootFlags.Changed("log-level") {
		cfg.LogLevel = LogLevelFlag
	}
	if rootFlags.Changed("log-format") {
		cfg.LogFormat = LogFormatFlag
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// serveUntilSignal runs serve until it fails or a signal arrives, then runs
// every shutdown step within timeout.
func serveUntilSignal(sigCh <-chan os.Signal, coordinator *shutdown.Coordinator, timeout time.Duration, serve func() error) error {
	errCh := make(chan error, 1)
	go func() { errCh <- serve() }()

	var serveErr error
	select {
	case sig := <-sigCh:
		logger.Logger.Info("Received signal, shutting down", "signal", sig.String())
	case serveErr = <-errCh:
		if serveErr != nil {
			logger.Logger.Error("Server failed", "error", serveErr)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return stderrors.Join(serveErr, coordinator.Run(ctx))
}

func printServeBanner(w io.Writer, cfg *config.Config) {
	bold := color.New(color.FgGreen, color.Bold)
	bold.Fprintf(w, "TrueLayer signing service running on port %s\n", cfg.Port)
	fmt.Fprintln(w, "Sign endpoint: POST /sign")
	if cfg.Tracing {
		fmt.Fprintf(w, "Tracing: enabled (%s)\n", cfg.OTLPURL)
	}
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", config.DefaultPort, "Port to listen on (overrides PORT)")
	serveCmd.Flags().BoolVar(&serveTracing, "tracing", false, "Enable OpenTelemetry tracing")
	serveCmd.Flags().StringVar(&serveOTLPURL, "otlp-url", config.DefaultOTLPURL, "OTLP exporter URL")

	rootCmd.AddCommand(serveCmd)
}
