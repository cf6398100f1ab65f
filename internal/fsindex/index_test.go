// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package fsindex

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestBuildIndexesRegularFilesByBasename(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	writeFile(t, filepath.Join(root, "a", "movie.mkv.gz"), "one", now)
	writeFile(t, filepath.Join(root, "b", "movie.mkv.gz"), "two", now.Add(time.Minute))

	idx, err := Build([]string{root})
	require.NoError(t, err)

	entries := idx.Lookup("movie.mkv.gz")
	assert.Len(t, entries, 2)
}

func TestBuildIgnoresSymlinks(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	target := filepath.Join(root, "real.gz")
	writeFile(t, target, "data", now)
	link := filepath.Join(root, "link.gz")
	require.NoError(t, os.Symlink(target, link))

	idx, err := Build([]string{root})
	require.NoError(t, err)

	assert.Len(t, idx.Lookup("real.gz"), 1)
	assert.Len(t, idx.Lookup("link.gz"), 0)
}

func TestBuildToleratesMissingRoot(t *testing.T) {
	idx, err := Build([]string{"/does/not/exist/at/all"})
	require.NoError(t, err)
	assert.Empty(t, idx.Lookup("anything"))
}

func TestChooseEmptyReturnsFalse(t *testing.T) {
	_, ok := Choose(nil, nil)
	assert.False(t, ok)
}

func TestChooseSingleExactSizeMatchWins(t *testing.T) {
	size := int64(100)
	entries := []Entry{
		{Path: "/a", Size: 50, ModTime: 1},
		{Path: "/b", Size: 100, ModTime: 2},
	}
	got, ok := Choose(entries, &size)
	require.True(t, ok)
	assert.Equal(t, "/b", got)
}

func TestChooseMultipleExactSizeMatchesPicksLatestMtime(t *testing.T) {
	size := int64(100)
	entries := []Entry{
		{Path: "/old", Size: 100, ModTime: 1},
		{Path: "/new", Size: 100, ModTime: 2},
		{Path: "/other", Size: 50, ModTime: 99},
	}
	got, ok := Choose(entries, &size)
	require.True(t, ok)
	assert.Equal(t, "/new", got)
}

func TestChooseFallsBackToLatestMtimeWhenNoSizeMatch(t *testing.T) {
	size := int64(999)
	entries := []Entry{
		{Path: "/a", Size: 50, ModTime: 1},
		{Path: "/b", Size: 100, ModTime: 5},
	}
	got, ok := Choose(entries, &size)
	require.True(t, ok)
	assert.Equal(t, "/b", got)
}

func TestChooseWithoutExpectedSizeUsesLatestMtime(t *testing.T) {
	entries := []Entry{
		{Path: "/a", Size: 50, ModTime: 9},
		{Path: "/b", Size: 100, ModTime: 1},
	}
	got, ok := Choose(entries, nil)
	require.True(t, ok)
	assert.Equal(t, "/a", got)
}
