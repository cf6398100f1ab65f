// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package hasher

import (
	"crypto/sha1"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSHA1Piece(t *testing.T) {
	data := []byte("hello piece")
	want := sha1.Sum(data)
	assert.Equal(t, want, SHA1Piece(data))
}

func TestSHA256Piece(t *testing.T) {
	data := []byte("hello piece")
	want := sha256.Sum256(data)
	assert.Equal(t, want, SHA256Piece(data))
}

func TestMatchSHA1(t *testing.T) {
	data := []byte("some bytes")
	sum := sha1.Sum(data)
	assert.True(t, Match(data, sum[:]))
	assert.False(t, Match([]byte("other bytes"), sum[:]))
}

func TestMatchSHA256(t *testing.T) {
	data := []byte("some bytes")
	sum := sha256.Sum256(data)
	assert.True(t, Match(data, sum[:]))
	assert.False(t, Match([]byte("other bytes"), sum[:]))
}

func TestMatchPanicsOnUnsupportedWidth(t *testing.T) {
	assert.Panics(t, func() {
		Match([]byte("x"), make([]byte, 16))
	})
}
