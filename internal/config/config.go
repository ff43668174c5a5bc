// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dotandev/tlsign/internal/errors"
)

const (
	DefaultPort            = "3001"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultMaxBodyBytes    = int64(100 * 1024)
	DefaultShutdownTimeout = 10 * time.Second
	DefaultOTLPURL         = "http://localhost:4318"
)

// Config represents the runtime configuration of the signing gateway
type Config struct {
	Port            string
	LogLevel        string
	LogFormat       string
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
	Tracing         bool
	OTLPURL         string
}

// DefaultConfig returns the configuration used when no environment is set.
func DefaultConfig() *Config {
	return &Config{
		Port:            DefaultPort,
		LogLevel:        DefaultLogLevel,
		LogFormat:       DefaultLogFormat,
		MaxBodyBytes:    DefaultMaxBodyBytes,
		ShutdownTimeout: DefaultShutdownTimeout,
		OTLPURL:         DefaultOTLPURL,
	}
}

// Load loads the configuration from environment variables. Only values that
// cannot be parsed fail here; callers apply overrides and then call Validate.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = getEnv("TLSIGN_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("TLSIGN_LOG_FORMAT", cfg.LogFormat)
	cfg.OTLPURL = getEnv("TLSIGN_OTLP_URL", cfg.OTLPURL)

	if raw := os.Getenv("TLSIGN_MAX_BODY_BYTES"); raw != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, errors.WrapConfigError("TLSIGN_MAX_BODY_BYTES must be an integer", err)
		}
		cfg.MaxBodyBytes = n
	}

	if raw := os.Getenv("TLSIGN_SHUTDOWN_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return nil, errors.WrapConfigError("TLSIGN_SHUTDOWN_TIMEOUT must be a duration", err)
		}
		cfg.ShutdownTimeout = d
	}

	// TLSIGN_TRACING is a boolean env var; parse it explicitly.
	switch strings.ToLower(os.Getenv("TLSIGN_TRACING")) {
	case "1", "true", "yes":
		cfg.Tracing = true
	}

	return cfg, nil
}

// Validate runs the default validators against the config.
func (c *Config) Validate() error {
	return RunValidators(c, DefaultValidators())
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %s, LogLevel: %s, LogFormat: %s, MaxBodyBytes: %d, Tracing: %t}",
		c.Port, c.LogLevel, c.LogFormat, c.MaxBodyBytes, c.Tracing,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
