// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package config loads piecemend's TOML configuration, mirroring the
// teacher's viper-backed config loader: a config file on disk, overridden
// by PIECEMEND_-prefixed environment variables.
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const envPrefix = "PIECEMEND"

// FormatLevelCaps bounds the highest compression level a format plugin's
// candidate generator is allowed to try, keyed by extension (".gz",
// ".bz2", ".xz", ".zst"). A zero or absent entry means "use the format's
// own default level set".
type FormatLevelCaps map[string]int

// Config is piecemend's full runtime configuration.
type Config struct {
	// RawRoots are directories of uncompressed originals.
	RawRoots []string `mapstructure:"rawRoots"`

	// PartialRoots are directories of possibly-truncated partial downloads.
	PartialRoots []string `mapstructure:"partialRoots"`

	// OutRoot is the directory recovered files are written under.
	OutRoot string `mapstructure:"outRoot"`

	// Overwrite allows clobbering an existing destination file.
	Overwrite bool `mapstructure:"overwrite"`

	// DryRun suppresses filesystem mutation while still counting as if
	// writes succeeded.
	DryRun bool `mapstructure:"dryRun"`

	// Workers bounds the per-file worker pool; zero means "use GOMAXPROCS".
	Workers int `mapstructure:"workers"`

	// ToolSearchPath optionally names directories searched before PATH
	// for external compression tool lookups (internal/toolexec falls back
	// to PATH for tools not found there).
	ToolSearchPath string `mapstructure:"toolSearchPath"`

	// LevelCaps bounds candidate-generation levels per format.
	LevelCaps FormatLevelCaps `mapstructure:"levelCaps"`

	// LogLevel is passed straight to internal/logging.Configure.
	LogLevel string `mapstructure:"logLevel"`

	// LogPretty selects the console writer over JSON logging.
	LogPretty bool `mapstructure:"logPretty"`
}

// defaults applied before the config file and environment are read.
func defaults(v *viper.Viper) {
	v.SetDefault("overwrite", false)
	v.SetDefault("dryRun", false)
	v.SetDefault("workers", 0)
	v.SetDefault("logLevel", "info")
	v.SetDefault("logPretty", false)
}

// New loads configuration from path (a TOML file), applying
// PIECEMEND_-prefixed environment variable overrides (e.g.
// PIECEMEND_OUTROOT, PIECEMEND_DRYRUN). path may point to a file that
// does not yet exist — defaults and environment variables still apply.
func New(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	defaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "config: read %q", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}
