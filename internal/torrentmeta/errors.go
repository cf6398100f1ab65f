// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torrentmeta

import "fmt"

// ParseErrorKind enumerates the ways a decoded bencode tree can fail to
// become a valid TorrentMeta.
type ParseErrorKind int

const (
	// ErrRootNotDict means the top-level decoded value was not a dictionary.
	ErrRootNotDict ParseErrorKind = iota
	// ErrMissingInfo means the root dict had no "info" entry, or it was
	// not itself a dictionary.
	ErrMissingInfo
	// ErrMissingOrInvalidPieceLength means "piece length" was absent, not
	// an integer, or not positive.
	ErrMissingOrInvalidPieceLength
	// ErrMissingOrInvalidPieces means "pieces" (v1) or "piece layers"
	// (v2/hybrid) data needed to build the piece list was absent or the
	// wrong type.
	ErrMissingOrInvalidPieces
	// ErrPiecesNotMultipleOf20 means the v1 "pieces" byte string's
	// length was not a multiple of 20.
	ErrPiecesNotMultipleOf20
	// ErrInvalidFilesEntry means neither "length" nor a usable "files"/
	// "file tree" entry was present for the torrent's file list.
	ErrInvalidFilesEntry
)

func (k ParseErrorKind) String() string {
	switch k {
	case ErrRootNotDict:
		return "RootNotDict"
	case ErrMissingInfo:
		return "MissingInfo"
	case ErrMissingOrInvalidPieceLength:
		return "MissingOrInvalidPieceLength"
	case ErrMissingOrInvalidPieces:
		return "MissingOrInvalidPieces"
	case ErrPiecesNotMultipleOf20:
		return "PiecesNotMultipleOf20"
	case ErrInvalidFilesEntry:
		return "InvalidFilesEntry"
	default:
		return "Unknown"
	}
}

// ParseError reports why a decoded bencode tree could not be normalized
// into a TorrentMeta.
type ParseError struct {
	Kind ParseErrorKind
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("torrentmeta: %s", e.Kind)
}
