// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoadsTOMLFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "piecemend.toml")
	content := `
outRoot = "/recovered"
overwrite = true
workers = 4

rawRoots = ["/data/raw"]
partialRoots = ["/data/partial"]
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	cfg, err := New(configPath)
	require.NoError(t, err)

	assert.Equal(t, "/recovered", cfg.OutRoot)
	assert.True(t, cfg.Overwrite)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, []string{"/data/raw"}, cfg.RawRoots)
	assert.Equal(t, []string{"/data/partial"}, cfg.PartialRoots)
}

func TestNewAppliesDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := New(filepath.Join(dir, "does-not-exist.toml"))
	require.NoError(t, err)

	assert.False(t, cfg.Overwrite)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestNewLoadsToolSearchPathAndLevelCaps(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "piecemend.toml")
	content := `
toolSearchPath = "/opt/piecemend/bin"

[levelCaps]
".gz" = 6
".xz" = 9
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	cfg, err := New(configPath)
	require.NoError(t, err)

	assert.Equal(t, "/opt/piecemend/bin", cfg.ToolSearchPath)
	assert.Equal(t, 6, cfg.LevelCaps[".gz"])
	assert.Equal(t, 9, cfg.LevelCaps[".xz"])
	assert.Equal(t, 0, cfg.LevelCaps[".bz2"])
}

func TestNewEnvVarOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "piecemend.toml")
	content := `outRoot = "/from-file"`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	t.Setenv("PIECEMEND_OUTROOT", "/from-env")

	cfg, err := New(configPath)
	require.NoError(t, err)
	assert.Equal(t, "/from-env", cfg.OutRoot)
}
