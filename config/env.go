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
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
)

// envVarPattern matches ${VAR} or ${VAR:default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// LoadDotEnv loads a .env file into the process environment, for local
// development. A missing file is not an error; an operator running against
// real infrastructure sets GATEWAY_* variables directly instead.
func LoadDotEnv(path string) {
	_ = godotenv.Load(path)
}

// SubstituteEnvVars replaces ${VAR} or ${VAR:default} with environment
// variable values.
func SubstituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}

// SubstituteEnvVarsInConfig substitutes environment variables across the
// string fields a deployment typically templates: carrier URL, Postgres
// credentials, logging level.
func SubstituteEnvVarsInConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Carrier.URL = SubstituteEnvVars(cfg.Carrier.URL)

	if cfg.Postgres != nil {
		cfg.Postgres.Host = SubstituteEnvVars(cfg.Postgres.Host)
		cfg.Postgres.User = SubstituteEnvVars(cfg.Postgres.User)
		cfg.Postgres.Password = SubstituteEnvVars(cfg.Postgres.Password)
		cfg.Postgres.Database = SubstituteEnvVars(cfg.Postgres.Database)
	}

	cfg.Logging.Level = SubstituteEnvVars(cfg.Logging.Level)
	cfg.Metrics.Addr = SubstituteEnvVars(cfg.Metrics.Addr)
	cfg.Health.Addr = SubstituteEnvVars(cfg.Health.Addr)
}

// GetEnvironment returns the current environment from GATEWAY_ENV, falling
// back to ENVIRONMENT, and defaulting to development.
func GetEnvironment() string {
	env := os.Getenv("GATEWAY_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "development"
	}
	return strings.ToLower(env)
}

// IsProduction returns true if running in the production environment.
func IsProduction() bool {
	return GetEnvironment() == "production"
}

// IsDevelopment returns true if running in development or local environment.
func IsDevelopment() bool {
	env := GetEnvironment()
	return env == "development" || env == "local"
}
