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

// Package config loads the gateway's process configuration from a YAML file,
// with environment-variable substitution and override, matching the
// teacher's config/loader.go pattern.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the gateway's top-level configuration.
type Config struct {
	Environment string         `yaml:"environment" json:"environment"`
	Carrier     CarrierConfig  `yaml:"carrier" json:"carrier"`
	Postgres    *PostgresConfig `yaml:"postgres" json:"postgres"`
	KeyServer   KeyServerConfig `yaml:"keyserver" json:"keyserver"`
	Logging     LoggingConfig  `yaml:"logging" json:"logging"`
	Metrics     MetricsConfig  `yaml:"metrics" json:"metrics"`
	Health      HealthConfig   `yaml:"health" json:"health"`
}

// CarrierConfig configures the relay WebSocket connection.
type CarrierConfig struct {
	URL            string        `yaml:"url" json:"url"`
	DialTimeout    time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" json:"reconnect_delay"`
}

// PostgresConfig configures the persistent store. Nil means use the
// in-memory store (local dev / tests).
type PostgresConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	Database string `yaml:"database" json:"database"`
	SSLMode  string `yaml:"ssl_mode" json:"ssl_mode"`
}

// KeyServerConfig configures the identity-verification HTTP client.
type KeyServerConfig struct {
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Pretty bool   `yaml:"pretty" json:"pretty"`
}

// MetricsConfig configures the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
	Path    string `yaml:"path" json:"path"`
}

// HealthConfig configures the health-check HTTP server.
type HealthConfig struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	Addr    string        `yaml:"addr" json:"addr"`
	Path    string        `yaml:"path" json:"path"`
	TTL     time.Duration `yaml:"ttl" json:"ttl"`
}

// LoadFromFile reads and parses a YAML config file, applying defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile writes cfg as YAML.
func SaveToFile(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Carrier.DialTimeout == 0 {
		cfg.Carrier.DialTimeout = 30 * time.Second
	}
	if cfg.Carrier.ReconnectDelay == 0 {
		cfg.Carrier.ReconnectDelay = 5 * time.Second
	}
	if cfg.Postgres != nil && cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}
	if cfg.KeyServer.RequestTimeout == 0 {
		cfg.KeyServer.RequestTimeout = 10 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Health.Addr == "" {
		cfg.Health.Addr = ":8080"
	}
	if cfg.Health.Path == "" {
		cfg.Health.Path = "/healthz"
	}
	if cfg.Health.TTL == 0 {
		cfg.Health.TTL = 10 * time.Second
	}
}
