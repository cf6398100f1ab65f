// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package fsindex builds basename-keyed indices over directory trees of
// reference files, and selects the best candidate among duplicates.
package fsindex

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Entry is one indexed file.
type Entry struct {
	Path    string
	Size    int64
	ModTime int64 // unix nanoseconds
}

// BasenameIndex maps a file's basename to every path discovered under that
// name, in walk order. Duplicates across directories are retained; callers
// disambiguate with Choose.
type BasenameIndex struct {
	byName map[string][]Entry
}

// Build recursively walks each root, indexing every regular file by its
// basename. Symlinks and non-regular files are ignored. A root that does
// not exist is not an error.
func Build(roots []string) (BasenameIndex, error) {
	idx := BasenameIndex{byName: make(map[string][]Entry)}

	for _, root := range roots {
		info, err := os.Lstat(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return BasenameIndex{}, errors.Wrapf(err, "fsindex: stat root %q", root)
		}
		if !info.IsDir() {
			continue
		}

		var total int64
		var count int
		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			if fi.Mode()&os.ModeSymlink != 0 || !fi.Mode().IsRegular() {
				return nil
			}

			name := filepath.Base(path)
			idx.byName[name] = append(idx.byName[name], Entry{
				Path:    path,
				Size:    fi.Size(),
				ModTime: fi.ModTime().UnixNano(),
			})
			total += fi.Size()
			count++
			return nil
		})
		if walkErr != nil {
			return BasenameIndex{}, errors.Wrapf(walkErr, "fsindex: walk root %q", root)
		}

		log.Debug().
			Str("root", root).
			Int("files", count).
			Str("bytes", humanize.Bytes(uint64(total))).
			Msg("indexed directory")
	}

	return idx, nil
}

// Lookup returns the entries discovered for basename, in walk order.
func (b BasenameIndex) Lookup(basename string) []Entry {
	return b.byName[basename]
}

// Choose implements the candidate-selection rule: when expectedSize is
// non-nil, the subset of entries with exactly that size is preferred (a
// single match wins outright, multiple matches fall back to latest
// mtime); otherwise, or if no entry matches expectedSize, the latest-mtime
// entry across the full list is returned. An empty list returns ("", false).
func Choose(entries []Entry, expectedSize *int64) (string, bool) {
	if len(entries) == 0 {
		return "", false
	}

	if expectedSize != nil {
		var sized []Entry
		for _, e := range entries {
			if e.Size == *expectedSize {
				sized = append(sized, e)
			}
		}
		if len(sized) == 1 {
			return sized[0].Path, true
		}
		if len(sized) > 1 {
			return latest(sized), true
		}
	}

	return latest(entries), true
}

func latest(entries []Entry) string {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ModTime < sorted[j].ModTime
	})
	return sorted[len(sorted)-1].Path
}
