// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package torrentmeta builds a normalized, BEP47-aware metadata model from
// a decoded bencode tree.
package torrentmeta

import "strings"

// Version identifies which metainfo revision a torrent was published as.
type Version int

const (
	// V1 is a classic single-hash-per-piece torrent.
	V1 Version = iota
	// V2 is a pure BEP52 torrent (SHA-256 piece layers, no v1 pieces field).
	V2
	// Hybrid carries both v1 and v2 piece data for backward compatibility.
	Hybrid
)

func (v Version) String() string {
	switch v {
	case V1:
		return "v1"
	case V2:
		return "v2"
	case Hybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// FileAttr is one character of a BEP47 attr string.
type FileAttr byte

const (
	AttrSymlink    FileAttr = 'l'
	AttrExecutable FileAttr = 'x'
	AttrHidden     FileAttr = 'h'
	AttrPadding    FileAttr = 'p'
)

// TorrentFile describes one file entry inside a torrent's file list,
// including the BEP47 extension fields.
type TorrentFile struct {
	RelPath string

	// HasLength reports whether Length was present in the source entry;
	// an absent length is treated as zero for offset arithmetic but is
	// distinguished here because a present-and-zero length is legal.
	HasLength bool
	Length    int64

	Offset int64

	// HasSHA1 reports whether a BEP47 per-file sha1 digest was present
	// and exactly 20 bytes.
	HasSHA1 bool
	SHA1    [20]byte

	Attr string

	SymlinkPath []string
}

// IsPadding reports whether the BEP47 attr string marks this as a padding
// file, which is never produced on disk.
func (f TorrentFile) IsPadding() bool {
	return strings.ContainsRune(f.Attr, rune(AttrPadding))
}

// IsSymlink reports whether the BEP47 attr string marks this as a symlink.
func (f TorrentFile) IsSymlink() bool {
	return strings.ContainsRune(f.Attr, rune(AttrSymlink))
}

// TorrentMeta is the normalized, immutable view of a torrent's metainfo
// needed by the recovery planner.
type TorrentMeta struct {
	Name        string
	Files       []TorrentFile
	PieceLength int64
	Pieces      [][]byte // 20 bytes per piece for V1, 32 bytes for V2 and Hybrid
	Version     Version
}

// TotalLength returns the sum of all file lengths (absent lengths count
// as zero), matching the cumulative offset arithmetic used to derive
// TorrentFile.Offset.
func (m TorrentMeta) TotalLength() int64 {
	var total int64
	for _, f := range m.Files {
		if f.HasLength {
			total += f.Length
		}
	}
	return total
}

// PieceCount returns len(Pieces).
func (m TorrentMeta) PieceCount() int {
	return len(m.Pieces)
}

// PieceHashSize returns the digest width used to compare candidates
// against this torrent's piece list: 20 bytes (SHA-1) for V1, 32 bytes
// (SHA-256) for V2 and Hybrid.
func (m TorrentMeta) PieceHashSize() int {
	if m.Version == V1 {
		return 20
	}
	return 32
}
