// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package recovery

import (
	"path"
	"regexp"
)

// innerBzTag matches the producer-convention level-tag suffix some bzip2
// tools embed before the final extension: ".bz1", ".bz6", ".bz9" or
// ".pbz1", ".pbz6", ".pbz9". A bare ".pbz" with no digit is deliberately NOT
// matched here; that case falls through to the plain strip below.
var innerBzTag = regexp.MustCompile(`\.p?bz[169]$`)

// rawBasename derives the basename used to look up a torrent file's raw
// (uncompressed) source: strip the trailing extension, and for .bz2
// additionally strip a recognized inner level-tag suffix.
func rawBasename(relPath string) string {
	base := path.Base(relPath)
	ext := path.Ext(base)
	stem := base[:len(base)-len(ext)]

	if ext == ".bz2" {
		if loc := innerBzTag.FindStringIndex(stem); loc != nil && loc[1] == len(stem) {
			stem = stem[:loc[0]]
		}
	}

	return stem
}
