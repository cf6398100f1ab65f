// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package recovery implements the per-file recovery planner: strategy
// selection between direct partial reuse, BEP47 SHA1-gated recompression,
// and brute-force candidate generation, gated entirely on first-piece
// hash comparison against the torrent's recorded piece list.
package recovery

import (
	"context"
	"crypto/sha1" //nolint:gosec // BEP47 full-file gate, not a security boundary
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/crossseed-tools/piecemend/internal/formats"
	"github.com/crossseed-tools/piecemend/internal/fsindex"
	"github.com/crossseed-tools/piecemend/internal/hasher"
	"github.com/crossseed-tools/piecemend/internal/torrentmeta"
)

// Options configures one Recover invocation.
type Options struct {
	// OutRoot is the directory under which out_root/torrent_name/... is
	// written.
	OutRoot string

	// Overwrite allows clobbering an existing destination file.
	Overwrite bool

	// DryRun suppresses filesystem mutation while still incrementing
	// counters as if writes succeeded.
	DryRun bool

	// Workers bounds the per-file worker pool. Zero selects
	// runtime.GOMAXPROCS(0). Files are recovered independently of one
	// another, so this loop is safe to parallelize; candidate search
	// within a single file is not (see firstMatch).
	Workers int
}

// Recover walks meta's files in torrent order, selects a reconstruction
// strategy for each, and writes the first match through to out_root.
func Recover(ctx context.Context, meta torrentmeta.TorrentMeta, rawIndex, partialIndex fsindex.BasenameIndex, registry *formats.Registry, opts Options) (*Result, error) {
	result := NewResult()

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range meta.Files {
		tf := meta.Files[i]
		g.Go(func() error {
			return recoverFile(gctx, meta, tf, rawIndex, partialIndex, registry, opts, result)
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

func recoverFile(ctx context.Context, meta torrentmeta.TorrentMeta, tf torrentmeta.TorrentFile, rawIndex, partialIndex fsindex.BasenameIndex, registry *formats.Registry, opts Options, result *Result) error {
	logger := log.With().Str("file", tf.RelPath).Logger()

	// 1. Skip filter.
	if tf.IsPadding() {
		result.incSkipped()
		logger.Debug().Str("state", "skipped").Str("reason", "padding").Msg("recovery file terminal state")
		return nil
	}

	plugin, ok := registry.Lookup(filepath.Ext(tf.RelPath))
	if !ok {
		result.incSkipped()
		logger.Debug().Str("state", "skipped").Str("reason", "unsupported_extension").Msg("recovery file terminal state")
		return nil
	}

	destPath := filepath.Join(opts.OutRoot, meta.Name, filepath.FromSlash(tf.RelPath))
	if _, err := os.Stat(destPath); err == nil && !opts.Overwrite {
		result.incSkipped()
		logger.Debug().Str("state", "skipped").Str("reason", "exists").Msg("recovery file terminal state")
		return nil
	}

	// 2. Locate first piece.
	if !tf.HasLength || meta.PieceLength <= 0 {
		result.incMissing()
		logger.Debug().Str("state", "missing").Str("reason", "no_length").Msg("recovery file terminal state")
		return nil
	}
	pieceIndex := tf.Offset / meta.PieceLength
	if pieceIndex >= int64(len(meta.Pieces)) {
		result.incMissing()
		logger.Debug().Str("state", "missing").Str("reason", "piece_index_out_of_range").Msg("recovery file terminal state")
		return nil
	}
	targetHash := meta.Pieces[pieceIndex]

	basename := filepath.Base(filepath.FromSlash(tf.RelPath))
	rawBase := rawBasename(tf.RelPath)

	// 3. Direct partial reuse.
	partialEntries := partialIndex.Lookup(basename)
	var header any
	var hasHeader bool
	if partialPath, ok := fsindex.Choose(partialEntries, &tf.Length); ok {
		data, err := os.ReadFile(partialPath)
		if err != nil {
			return errors.Wrapf(err, "recovery: read partial %q", partialPath)
		}
		reusable := int64(len(data)) >= meta.PieceLength && hasher.Match(data[:meta.PieceLength], targetHash)
		if !reusable && int64(len(data)) == tf.Length && tf.Length < meta.PieceLength {
			// Whole-file reuse: a file shorter than one piece is its own
			// first piece.
			reusable = hasher.Match(data, targetHash)
		}
		if reusable {
			if err := writeOutput(destPath, data, opts); err != nil {
				return err
			}
			result.incRecovered()
			logger.Debug().Str("state", "recovered").Str("source", partialPath).Msg("recovery file terminal state")
			return nil
		}

		// 4. Parse reference header from the partial, even if too short
		// to reuse directly.
		if h, ok, err := plugin.ParseHeader(partialPath); err == nil && ok {
			header, hasHeader = h, true
		}
	}

	// 5. BEP47 SHA1 gate.
	if tf.HasSHA1 {
		for _, entry := range rawIndex.Lookup(rawBase) {
			if entry.Size != tf.Length {
				continue
			}
			sum, err := fileSHA1(entry.Path)
			if err != nil {
				return errors.Wrapf(err, "recovery: sha1 %q", entry.Path)
			}
			if sum != tf.SHA1 {
				continue
			}

			candidates := plugin.GenerateCandidates(entry.Path, header, hasHeader)
			if cand, ok := firstMatch(candidates, meta.PieceLength, targetHash); ok {
				if err := writeOutput(destPath, cand.Bytes, opts); err != nil {
					return err
				}
				result.incReproduced(formatName(plugin))
				logger.Debug().
					Str("state", "reproduced").
					Str("strategy", "sha1_gate").
					Str("label", cand.Label).
					Msg("recovery file terminal state")
				return nil
			}
		}
	}

	// 6. Brute-force reproduction.
	rawPath, ok := fsindex.Choose(rawIndex.Lookup(rawBase), nil)
	if !ok {
		result.incMissing()
		logger.Debug().Str("state", "missing").Str("reason", "no_raw_source").Msg("recovery file terminal state")
		return nil
	}

	candidates := plugin.GenerateCandidates(rawPath, header, hasHeader)
	if cand, ok := firstMatch(candidates, meta.PieceLength, targetHash); ok {
		if err := writeOutput(destPath, cand.Bytes, opts); err != nil {
			return err
		}
		result.incReproduced(formatName(plugin))
		logger.Debug().
			Str("state", "reproduced").
			Str("strategy", "brute_force").
			Str("label", cand.Label).
			Msg("recovery file terminal state")
		return nil
	}

	result.incMissing()
	logger.Debug().
		Str("state", "missing").
		Str("reason", "no_candidate_matched").
		Int("candidates_tried", len(candidates)).
		Msg("recovery file terminal state")
	return nil
}

// firstMatch returns the first candidate, in generation order, whose
// first pieceLength bytes hash to targetHash. Ordering here is what
// makes the winning label deterministic; this search must never be
// parallelized within a single file.
func firstMatch(candidates []formats.Candidate, pieceLength int64, targetHash []byte) (formats.Candidate, bool) {
	for _, c := range candidates {
		if int64(len(c.Bytes)) < pieceLength {
			continue
		}
		if hasher.Match(c.Bytes[:pieceLength], targetHash) {
			return c, true
		}
	}
	return formats.Candidate{}, false
}

// formatName maps a plugin's extension to the reproduced-counter's
// format key (reproduced_per_format[gzip|bzip2|xz|zstd]).
func formatName(p formats.Plugin) string {
	switch p.Extension() {
	case ".gz":
		return "gzip"
	case ".bz2":
		return "bzip2"
	case ".xz":
		return "xz"
	case ".zst":
		return "zstd"
	default:
		return p.Extension()
	}
}

func fileSHA1(path string) ([20]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return [20]byte{}, err
	}
	defer f.Close()

	h := sha1.New() //nolint:gosec // BEP47 content-identity gate, not a security boundary
	if _, err := io.Copy(h, f); err != nil {
		return [20]byte{}, err
	}
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}

// writeOutput writes data to destPath, creating parent directories on
// demand and unlinking an existing destination when overwrite is set.
// In dry-run mode no filesystem mutation occurs.
func writeOutput(destPath string, data []byte, opts Options) error {
	if opts.DryRun {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return errors.Wrapf(err, "recovery: mkdir for %q", destPath)
	}

	if opts.Overwrite {
		if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "recovery: remove existing %q", destPath)
		}
	}

	if err := os.WriteFile(destPath, data, 0o644); err != nil {
		return errors.Wrapf(err, "recovery: write %q", destPath)
	}

	log.Debug().
		Str("path", destPath).
		Str("bytes", humanize.Bytes(uint64(len(data)))).
		Msg("wrote recovered file")
	return nil
}
