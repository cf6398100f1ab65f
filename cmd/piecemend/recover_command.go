// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/crossseed-tools/piecemend/internal/config"
	"github.com/crossseed-tools/piecemend/internal/formats"
	"github.com/crossseed-tools/piecemend/internal/formats/bzip2fmt"
	"github.com/crossseed-tools/piecemend/internal/formats/gzipfmt"
	"github.com/crossseed-tools/piecemend/internal/formats/xzfmt"
	"github.com/crossseed-tools/piecemend/internal/formats/zstdfmt"
	"github.com/crossseed-tools/piecemend/internal/fsindex"
	"github.com/crossseed-tools/piecemend/internal/logging"
	"github.com/crossseed-tools/piecemend/internal/recovery"
	"github.com/crossseed-tools/piecemend/internal/toolexec"
)

// exitMissing and exitVerificationFailure are the recover command's
// exit-code contract: 0 on missing == 0, 2 on missing > 0, 1 on a fatal
// failure (decode error, unreadable source, config error).
const (
	exitMissing             = 2
	exitVerificationFailure = 1
)

func newRecoverCommand() *cobra.Command {
	var (
		configPath   string
		torrentPath  string
		rawRoots     []string
		partialRoots []string
		outRoot      string
		overwrite    bool
		dryRun       bool
		workers      int
		logLevel     string
		logPretty    bool
	)

	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Reconstruct the compressed files referenced by a .torrent file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := &config.Config{LogLevel: "info"}
			if configPath != "" {
				loaded, err := config.New(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if logPretty {
				cfg.LogPretty = true
			}
			logging.Configure(cfg.LogLevel, cfg.LogPretty)

			if len(rawRoots) > 0 {
				cfg.RawRoots = rawRoots
			}
			if len(partialRoots) > 0 {
				cfg.PartialRoots = partialRoots
			}
			if outRoot != "" {
				cfg.OutRoot = outRoot
			}
			if overwrite {
				cfg.Overwrite = true
			}
			if dryRun {
				cfg.DryRun = true
			}
			if workers > 0 {
				cfg.Workers = workers
			}

			if torrentPath == "" {
				return errors.New("--torrent is required")
			}
			if cfg.OutRoot == "" {
				return errors.New("--out (or config outRoot) is required")
			}

			meta, err := loadTorrentMeta(torrentPath)
			if err != nil {
				os.Exit(exitVerificationFailure)
				return err
			}

			runner := toolexec.NewRunner()
			if cfg.ToolSearchPath != "" {
				runner = toolexec.NewRunnerWithSearchPath(cfg.ToolSearchPath)
			}
			registry := formats.NewRegistry(
				gzipfmt.NewWithLevelCap(runner, cfg.LevelCaps[".gz"]),
				bzip2fmt.NewWithLevelCap(runner, cfg.LevelCaps[".bz2"]),
				xzfmt.NewWithLevelCap(runner, cfg.LevelCaps[".xz"]),
				zstdfmt.NewWithLevelCap(runner, cfg.LevelCaps[".zst"]),
			)

			rawIndex, err := fsindex.Build(cfg.RawRoots)
			if err != nil {
				return err
			}
			partialIndex, err := fsindex.Build(cfg.PartialRoots)
			if err != nil {
				return err
			}

			result, err := recovery.Recover(cmd.Context(), meta, rawIndex, partialIndex, registry, recovery.Options{
				OutRoot:   cfg.OutRoot,
				Overwrite: cfg.Overwrite,
				DryRun:    cfg.DryRun,
				Workers:   cfg.Workers,
			})
			if err != nil {
				return err
			}
			result.LogSummary(nil)

			cmd.Printf("recovered: %d\n", result.Recovered)
			for _, format := range []string{"gzip", "bzip2", "xz", "zstd"} {
				cmd.Printf("reproduced.%s: %d\n", format, result.ReproducedPerFormat[format])
			}
			cmd.Printf("skipped: %d\n", result.Skipped)
			cmd.Printf("missing: %d\n", result.Missing)

			if result.Missing > 0 {
				os.Exit(exitMissing)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to a TOML configuration file")
	cmd.Flags().StringVar(&torrentPath, "torrent", "", "Path to the .torrent metainfo file")
	cmd.Flags().StringArrayVar(&rawRoots, "raw", nil, "Directory of uncompressed originals (repeatable)")
	cmd.Flags().StringArrayVar(&partialRoots, "partial", nil, "Directory of partial downloads (repeatable)")
	cmd.Flags().StringVar(&outRoot, "out", "", "Output root directory")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing destination files")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be recovered without writing")
	cmd.Flags().IntVar(&workers, "workers", 0, "Bound the per-file worker pool (0 = GOMAXPROCS)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	cmd.Flags().BoolVar(&logPretty, "log-pretty", false, "Use a human-readable console log writer")

	return cmd
}
