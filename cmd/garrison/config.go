// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/garrison-game/garrison/internal/xdg"
)

// Default values for serve command flags.
const (
	defaultAPIAddr     = ":8080"
	defaultMetricsAddr = "127.0.0.1:9100"
	defaultLogFormat   = "json"
	defaultLandingURL  = "/"
	defaultHomeURL     = "/home"
)

// serveConfig holds configuration for the serve command. Values come from
// flags, optionally overridden by a YAML config file; explicitly set flags
// win over the file. DATABASE_URL always comes from the environment.
type serveConfig struct {
	Addr          string `koanf:"addr"`
	MetricsAddr   string `koanf:"metrics-addr"`
	LogFormat     string `koanf:"log-format"`
	AutoMigrate   bool   `koanf:"auto-migrate"`
	SecureCookies bool   `koanf:"secure-cookies"`
	LandingURL    string `koanf:"landing-url"`
	HomeURL       string `koanf:"home-url"`

	databaseURL string
}

// Validate checks that the configuration is valid.
func (cfg *serveConfig) Validate() error {
	if cfg.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("addr is required")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").
			Errorf("log-format must be 'json' or 'text', got %q", cfg.LogFormat)
	}
	if cfg.databaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}
	return nil
}

// loadServeConfig assembles the serve configuration from the optional YAML
// config file and the command's flags. When no path is given, the XDG
// config file is read if it exists.
func loadServeConfig(configPath string, flags *pflag.FlagSet) (*serveConfig, error) {
	k := koanf.New(".")

	explicit := configPath != ""
	if !explicit {
		configPath = xdg.DefaultConfigFile()
	}

	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		// A missing implicit file is fine; a missing explicit one is not.
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", configPath).
				Wrap(err)
		}
	}

	// Explicitly set flags override the file; unset flags fill in defaults
	// for keys the file does not provide.
	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").
			With("source", "flags").
			Wrap(err)
	}

	cfg := &serveConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	cfg.databaseURL = os.Getenv("DATABASE_URL")
	return cfg, nil
}
