// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package hasher computes the piece digests used to compare a candidate
// byte range against a torrent's recorded piece hashes.
package hasher

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
)

// SHA1Piece returns the SHA-1 digest of a v1 piece.
func SHA1Piece(b []byte) [20]byte {
	return sha1.Sum(b)
}

// SHA256Piece returns the SHA-256 digest of a v2/hybrid piece.
func SHA256Piece(b []byte) [32]byte {
	return sha256.Sum256(b)
}

// Match reports whether b hashes (at the width implied by len(want)) to
// want. It panics if want is neither 20 nor 32 bytes, since that indicates
// a TorrentMeta.PieceHashSize() bug upstream rather than bad input data.
func Match(b, want []byte) bool {
	switch len(want) {
	case 20:
		got := SHA1Piece(b)
		return bytes.Equal(got[:], want)
	case 32:
		got := SHA256Piece(b)
		return bytes.Equal(got[:], want)
	default:
		panic("hasher: unsupported piece hash width")
	}
}
