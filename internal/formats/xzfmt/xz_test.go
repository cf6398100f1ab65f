// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package xzfmt

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/crossseed-tools/piecemend/internal/toolexec"
)

func writeXzFile(t *testing.T, dir, name string, content []byte, checksum xz.Checksum) string {
	t.Helper()
	path := filepath.Join(dir, name)
	var buf bytes.Buffer
	zw, err := xz.WriterConfig{CheckSum: checksum}.NewWriter(&buf)
	require.NoError(t, err)
	_, err = zw.Write(content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestParseHeaderReadsCRC64Flag(t *testing.T) {
	dir := t.TempDir()
	path := writeXzFile(t, dir, "a.xz", []byte("payload"), xz.CRC64)

	p := New(toolexec.NewRunner())
	headerAny, ok, err := p.ParseHeader(path)
	require.NoError(t, err)
	require.True(t, ok)

	h := headerAny.(Header)
	assert.True(t, h.HasCRC64)
}

func TestParseHeaderRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notxz.xz")
	require.NoError(t, os.WriteFile(path, []byte("not an xz stream at all, padded"), 0o644))

	p := New(toolexec.NewRunner())
	_, ok, err := p.ParseHeader(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseHeaderReturnsFalseForShortFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.xz")
	require.NoError(t, os.WriteFile(path, magic, 0o644))

	p := New(toolexec.NewRunner())
	_, ok, err := p.ParseHeader(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPatchHeaderRewritesFlags(t *testing.T) {
	dir := t.TempDir()
	path := writeXzFile(t, dir, "a.xz", []byte("payload"), xz.CRC32)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	p := New(toolexec.NewRunner())
	patched := p.PatchHeader(raw, Header{Flags: flagsCRC64, HasCRC64: true})
	flags := uint16(patched[6]) | uint16(patched[7])<<8
	assert.Equal(t, uint16(flagsCRC64), flags)
}

func TestGenerateCandidatesHeaderMatchDecompresses(t *testing.T) {
	dir := t.TempDir()
	content := []byte("the quick brown fox jumps over the lazy dog, repeated for good measure")
	xzPath := writeXzFile(t, dir, "a.xz", content, xz.CRC64)
	rawPath := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(rawPath, content, 0o644))

	p := New(toolexec.NewRunner())
	headerAny, ok, err := p.ParseHeader(xzPath)
	require.NoError(t, err)
	require.True(t, ok)

	candidates := p.GenerateCandidates(rawPath, headerAny, true)
	require.NotEmpty(t, candidates)

	var matchBytes []byte
	for _, c := range candidates {
		if c.Label == "header_match" {
			matchBytes = c.Bytes
			break
		}
	}
	require.NotNil(t, matchBytes)

	zr, err := xz.NewReader(bytes.NewReader(matchBytes))
	require.NoError(t, err)
	var out bytes.Buffer
	_, err = out.ReadFrom(zr)
	require.NoError(t, err)
	assert.Equal(t, content, out.Bytes())
}

func TestExtension(t *testing.T) {
	p := New(toolexec.NewRunner())
	assert.Equal(t, ".xz", p.Extension())
}
