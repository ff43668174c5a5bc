// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"strconv"
	"strings"

	"github.com/dotandev/tlsign/internal/errors"
)

// Validator validates a specific aspect of the configuration.
type Validator interface {
	Validate(cfg *Config) error
}

// PortValidator checks that the listen port is a usable TCP port. Port 0
// asks the kernel for an ephemeral port.
type PortValidator struct{}

func (v PortValidator) Validate(cfg *Config) error {
	if cfg.Port == "" {
		return errors.WrapConfigError("PORT cannot be empty", nil)
	}
	n, err := strconv.Atoi(cfg.Port)
	if err != nil {
		return errors.WrapConfigError("PORT must be numeric", err)
	}
	if n < 0 || n > 65535 {
		return errors.WrapConfigError("PORT must be between 0 and 65535", nil)
	}
	return nil
}

// LogLevelValidator checks that the log level is a known value.
type LogLevelValidator struct{}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func (v LogLevelValidator) Validate(cfg *Config) error {
	if cfg.LogLevel == "" {
		return nil
	}
	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return errors.WrapConfigError("log level must be one of: debug, info, warn, error", nil)
	}
	return nil
}

// LogFormatValidator accepts "text" and "json".
type LogFormatValidator struct{}

func (v LogFormatValidator) Validate(cfg *Config) error {
	switch strings.ToLower(cfg.LogFormat) {
	case "", "text", "json":
		return nil
	default:
		return errors.WrapConfigError("log format must be text or json", nil)
	}
}

// LimitsValidator checks body size and shutdown timeout bounds.
type LimitsValidator struct{}

func (v LimitsValidator) Validate(cfg *Config) error {
	if cfg.MaxBodyBytes <= 0 {
		return errors.WrapConfigError("max body bytes must be positive", nil)
	}
	if cfg.ShutdownTimeout <= 0 {
		return errors.WrapConfigError("shutdown timeout must be positive", nil)
	}
	return nil
}

// TracingValidator requires an http(s) OTLP endpoint when tracing is on.
type TracingValidator struct{}

func (v TracingValidator) Validate(cfg *Config) error {
	if !cfg.Tracing {
		return nil
	}
	if !strings.HasPrefix(cfg.OTLPURL, "http://") && !strings.HasPrefix(cfg.OTLPURL, "https://") {
		return errors.WrapConfigError("OTLP URL must use http or https scheme", nil)
	}
	return nil
}

// DefaultValidators returns the standard set of validators.
func DefaultValidators() []Validator {
	return []Validator{
		PortValidator{},
		LogLevelValidator{},
		LogFormatValidator{},
		LimitsValidator{},
		TracingValidator{},
	}
}

// RunValidators executes each validator against the config, returning the
// first error encountered.
func RunValidators(cfg *Config, validators []Validator) error {
	for _, v := range validators {
		if err := v.Validate(cfg); err != nil {
			return err
		}
	}
	return nil
}
