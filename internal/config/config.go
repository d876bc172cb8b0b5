// Package config loads polycrystal's optional YAML configuration.
package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	perrors "git.home.luguber.info/inful/polycrystal/internal/errors"
)

// Well-known locations.
const (
	DefaultConfigPath  = "/etc/polycrystal/config.yaml"
	DefaultEntriesDir  = "/etc/polycrystal/entries"
	DefaultStatePath   = "/var/lib/polycrystal/state"
	DefaultHistoryPath = "/var/lib/polycrystal/history.db"
)

// Config represents the application configuration.
type Config struct {
	EntriesDir    string        `yaml:"entries_dir"`
	StatePath     string        `yaml:"state_path"`
	Installation  string        `yaml:"installation"` // system | user
	FlatpakBinary string        `yaml:"flatpak_binary"`
	History       HistoryConfig `yaml:"history"`
	Metrics       MetricsConfig `yaml:"metrics"`
	Daemon        DaemonConfig  `yaml:"daemon"`
	Notify        NotifyConfig  `yaml:"notify"`
}

// HistoryConfig controls the SQLite run journal. An empty path disables it.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig controls metrics export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // node-exporter textfile collector target
	Listen   string `yaml:"listen"`   // daemon only
}

// DaemonConfig controls the long-running trigger loop.
type DaemonConfig struct {
	Interval time.Duration `yaml:"interval"` // 0 disables periodic runs
	Debounce time.Duration `yaml:"debounce"`
}

// NotifyConfig controls run summary publication. An empty URL disables it.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		EntriesDir:    DefaultEntriesDir,
		StatePath:     DefaultStatePath,
		Installation:  "system",
		FlatpakBinary: "flatpak",
		History:       HistoryConfig{Path: DefaultHistoryPath},
		Daemon: DaemonConfig{
			Interval: time.Hour,
			Debounce: 2 * time.Second,
		},
		Notify: NotifyConfig{Subject: "polycrystal.runs"},
	}
}

// Load reads the configuration at path on top of Default. A missing file is
// only an error when required is set, i.e. when the user named it explicitly.
func Load(path string, required bool) (*Config, error) {
	loadEnvFiles(path)

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return cfg, nil
		}
		return nil, perrors.WrapError(err, perrors.CategoryConfig, "cannot read configuration file").
			Fatal().WithContext("path", path).Build()
	}

	expanded := os.ExpandEnv(string(data))
	dec := yaml.NewDecoder(bytes.NewBufferString(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, perrors.WrapError(err, perrors.CategoryConfig, "invalid configuration file").
			Fatal().WithContext("path", path).Build()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and enumerations.
func (c *Config) Validate() error {
	switch {
	case c.EntriesDir == "":
		return perrors.ConfigError("entries_dir must not be empty").Build()
	case c.StatePath == "":
		return perrors.ConfigError("state_path must not be empty").Build()
	case c.FlatpakBinary == "":
		return perrors.ConfigError("flatpak_binary must not be empty").Build()
	case c.Installation != "system" && c.Installation != "user":
		return perrors.ConfigError("installation must be system or user").
			WithContext("installation", c.Installation).Build()
	case c.Daemon.Interval < 0:
		return perrors.ConfigError("daemon.interval must not be negative").Build()
	case c.Daemon.Debounce < 0:
		return perrors.ConfigError("daemon.debounce must not be negative").Build()
	case c.Notify.NATSURL != "" && c.Notify.Subject == "":
		return perrors.ConfigError("notify.subject is required when notify.nats_url is set").Build()
	}
	return nil
}
