// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package toolexec

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailableCachesProbeResult(t *testing.T) {
	r := NewRunner()
	ctx := context.Background()

	ok := r.Available(ctx, Tool{Name: "true"})
	assert.True(t, ok)

	// Second call must hit the cache rather than spawning again; same
	// result either way, but this exercises the cached path.
	ok2 := r.Available(ctx, Tool{Name: "true"})
	assert.True(t, ok2)
}

func TestAvailableFalseForMissingTool(t *testing.T) {
	r := NewRunner()
	ok := r.Available(context.Background(), Tool{Name: "piecemend-tool-does-not-exist"})
	assert.False(t, ok)
}

func TestRunCapturesStdout(t *testing.T) {
	r := NewRunner()
	out, err := r.Run(context.Background(), Tool{Name: "printf"}, []string{"hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}

func TestRunReturnsErrorOnNonZeroExit(t *testing.T) {
	r := NewRunner()
	_, err := r.Run(context.Background(), Tool{Name: "false"}, nil)
	assert.Error(t, err)
}

func TestRunWithSearchPathPrefersOverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "stub-tool")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nprintf 'from override'\n"), 0o755))

	r := NewRunnerWithSearchPath(dir)
	out, err := r.Run(context.Background(), Tool{Name: "stub-tool"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "from override", string(out))
}

func TestRunWithSearchPathFallsBackWhenNotFound(t *testing.T) {
	r := NewRunnerWithSearchPath(t.TempDir())
	out, err := r.Run(context.Background(), Tool{Name: "printf"}, []string{"fallback"})
	require.NoError(t, err)
	assert.Equal(t, "fallback", string(out))
}
