// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"os"
	"path/filepath"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/pkg/errors"
	zbencode "github.com/zeebo/bencode"

	"github.com/crossseed-tools/piecemend/internal/bencode"
	"github.com/crossseed-tools/piecemend/internal/torrentmeta"
)

// loadTorrentMeta reads a .torrent file off disk and normalizes it into a
// TorrentMeta. It first validates the file loads through
// anacrolix/torrent/metainfo's well-tested parser — catching gross
// corruption early with a clear error — then re-decodes the same bytes
// with internal/bencode so internal/torrentmeta can see the BEP47
// extension fields anacrolix/torrent/metainfo does not model.
//
// Third-party torrent files occasionally violate BEP3's dict-key
// ordering requirement; strict decode is tried first and DecodeLenient
// is used as a fallback, matching the tolerance github.com/zeebo/bencode
// affords for legacy resume files elsewhere in this stack.
func loadTorrentMeta(path string) (torrentmeta.TorrentMeta, error) {
	if _, err := metainfo.LoadFromFile(path); err != nil {
		return torrentmeta.TorrentMeta{}, errors.Wrapf(err, "loader: %q is not a well-formed torrent file", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return torrentmeta.TorrentMeta{}, errors.Wrapf(err, "loader: read %q", path)
	}

	root, err := bencode.Decode(raw)
	if err != nil {
		root, err = bencode.DecodeLenient(raw)
		if err != nil {
			// Last resort: confirm the bytes are at least decodable as
			// generic bencode via zeebo/bencode, so the error we surface
			// distinguishes "not bencode at all" from "bencode, but our
			// stricter decoder rejected it".
			var probe any
			if zerr := zbencode.DecodeBytes(raw, &probe); zerr != nil {
				return torrentmeta.TorrentMeta{}, errors.Wrapf(err, "loader: decode %q", path)
			}
			return torrentmeta.TorrentMeta{}, errors.Wrapf(err, "loader: decode %q (valid bencode, but not a valid torrent)", path)
		}
	}

	return torrentmeta.Parse(root, filepath.Base(path))
}
