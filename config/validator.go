// Notify Relay Gateway
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.

// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// ValidationError describes one configuration problem, leveled so callers
// can choose to fail hard on errors while only logging warnings.
type ValidationError struct {
	Field   string
	Message string
	Level   string // "error", "warning", "info"
}

// ValidateConfiguration checks the carrier, Postgres, and environment
// sections of cfg.
func ValidateConfiguration(cfg *Config) []ValidationError {
	var errs []ValidationError

	errs = append(errs, validateCarrierConfig(cfg.Carrier)...)
	if cfg.Postgres != nil {
		errs = append(errs, validatePostgresConfig(cfg.Postgres)...)
	}
	errs = append(errs, validateEnvironmentField(cfg.Environment)...)

	return errs
}

func validateCarrierConfig(cfg CarrierConfig) []ValidationError {
	var errs []ValidationError

	if cfg.URL == "" {
		errs = append(errs, ValidationError{
			Field:   "Carrier.URL",
			Message: "relay URL is required",
			Level:   "error",
		})
	} else if u, err := url.Parse(cfg.URL); err != nil {
		errs = append(errs, ValidationError{
			Field:   "Carrier.URL",
			Message: fmt.Sprintf("invalid relay URL: %v", err),
			Level:   "error",
		})
	} else if u.Scheme != "ws" && u.Scheme != "wss" {
		errs = append(errs, ValidationError{
			Field:   "Carrier.URL",
			Message: fmt.Sprintf("relay URL scheme %q is not ws/wss", u.Scheme),
			Level:   "warning",
		})
	}

	if cfg.DialTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "Carrier.DialTimeout",
			Message: "dial timeout should be positive",
			Level:   "warning",
		})
	}

	return errs
}

func validatePostgresConfig(cfg *PostgresConfig) []ValidationError {
	var errs []ValidationError

	if cfg.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "Postgres.Host",
			Message: "host is required when postgres is configured",
			Level:   "error",
		})
	}
	if cfg.Database == "" {
		errs = append(errs, ValidationError{
			Field:   "Postgres.Database",
			Message: "database name is required when postgres is configured",
			Level:   "error",
		})
	}
	if cfg.Port <= 0 {
		errs = append(errs, ValidationError{
			Field:   "Postgres.Port",
			Message: "port should be a positive number",
			Level:   "warning",
		})
	}

	return errs
}

func validateEnvironmentField(env string) []ValidationError {
	var errs []ValidationError

	validEnvs := []string{"local", "development", "staging", "production"}
	env = strings.ToLower(env)

	valid := false
	for _, v := range validEnvs {
		if env == v {
			valid = true
			break
		}
	}

	if !valid {
		errs = append(errs, ValidationError{
			Field:   "Environment",
			Message: fmt.Sprintf("invalid environment: %s (valid: %v)", env, validEnvs),
			Level:   "error",
		})
	}

	if env == "production" {
		errs = append(errs, ValidationError{
			Field:   "Environment",
			Message: "running in production mode, double check carrier TLS and postgres credentials",
			Level:   "info",
		})
	}

	return errs
}

// ValidateFile loads and validates a configuration file in one step.
func ValidateFile(path string) ([]ValidationError, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", path)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	return ValidateConfiguration(cfg), nil
}

// PrintValidationErrors prints validation results grouped by severity, used
// by `notify-gatewayd validate`.
func PrintValidationErrors(errs []ValidationError) {
	if len(errs) == 0 {
		fmt.Println("configuration is valid")
		return
	}

	var errorCount, warningCount, infoCount int
	for _, e := range errs {
		switch e.Level {
		case "error":
			errorCount++
		case "warning":
			warningCount++
		case "info":
			infoCount++
		}
	}

	fmt.Printf("configuration validation found %d errors, %d warnings, %d info messages\n\n",
		errorCount, warningCount, infoCount)

	for _, e := range errs {
		if e.Level == "error" {
			fmt.Printf("ERROR: %s - %s\n", e.Field, e.Message)
		}
	}
	for _, e := range errs {
		if e.Level == "warning" {
			fmt.Printf("WARNING: %s - %s\n", e.Field, e.Message)
		}
	}
	for _, e := range errs {
		if e.Level == "info" {
			fmt.Printf("INFO: %s - %s\n", e.Field, e.Message)
		}
	}
}
