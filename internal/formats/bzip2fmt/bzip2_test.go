// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package bzip2fmt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossseed-tools/piecemend/internal/toolexec"
)

func writeBzip2File(t *testing.T, dir, name string, level byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data := append([]byte("BZh"), level)
	data = append(data, []byte{0x31, 0x41, 0x59, 0x26, 0x53, 0x59}...) // block magic, irrelevant to header parse
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestParseHeaderReadsLevel(t *testing.T) {
	dir := t.TempDir()
	path := writeBzip2File(t, dir, "a.bz2", '9')

	p := New(toolexec.NewRunner())
	headerAny, ok, err := p.ParseHeader(path)
	require.NoError(t, err)
	require.True(t, ok)

	h := headerAny.(Header)
	assert.Equal(t, 9, h.Level)
	assert.Equal(t, 900000, h.BlockSize)
}

func TestParseHeaderRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notbz2.bz2")
	require.NoError(t, os.WriteFile(path, []byte("not bzip2 at all"), 0o644))

	p := New(toolexec.NewRunner())
	_, ok, err := p.ParseHeader(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseHeaderRejectsOutOfRangeLevel(t *testing.T) {
	dir := t.TempDir()
	path := writeBzip2File(t, dir, "bad.bz2", '0')

	p := New(toolexec.NewRunner())
	_, ok, err := p.ParseHeader(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseHeaderReturnsFalseForShortFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.bz2")
	require.NoError(t, os.WriteFile(path, []byte("BZ"), 0o644))

	p := New(toolexec.NewRunner())
	_, ok, err := p.ParseHeader(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPatchHeaderRewritesLevelByte(t *testing.T) {
	dir := t.TempDir()
	path := writeBzip2File(t, dir, "a.bz2", '1')
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	p := New(toolexec.NewRunner())
	patched := p.PatchHeader(raw, Header{Level: 9, BlockSize: 900000})
	assert.Equal(t, byte('9'), patched[levelPos])
}

func TestExtension(t *testing.T) {
	p := New(toolexec.NewRunner())
	assert.Equal(t, ".bz2", p.Extension())
}

func TestFormatHeaderMentionsLevel(t *testing.T) {
	p := New(toolexec.NewRunner())
	out := p.FormatHeader(Header{Level: 6, BlockSize: 600000})
	assert.Contains(t, out, "level: 6")
	assert.Contains(t, out, "block_size: 600000")
}
