// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package bzip2fmt implements the bzip2 format plugin. bzip2's header is
// the simplest of the four families: a 4-byte magic/level prefix and
// nothing else, so there is no in-process encoder in the standard
// library (compress/bzip2 is decode-only) — candidate generation is
// external-process only, matching the original producer's reliance on
// the bzip2/pbzip2 binaries.
package bzip2fmt

import (
	"context"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/crossseed-tools/piecemend/internal/formats"
	"github.com/crossseed-tools/piecemend/internal/toolexec"
)

const (
	magic      = "BZh"
	headerSize = 4
	levelPos   = 3

	minLevel = 1
	maxLevel = 9
)

// Header is bzip2's compression-level header. Unlike gzip, bzip2 carries
// no timestamp or filename metadata: the level byte alone determines the
// block size used for the whole stream.
type Header struct {
	Level     int
	BlockSize int
}

// Plugin is the bzip2 format.Plugin implementation.
type Plugin struct {
	runner   *toolexec.Runner
	levelCap int
}

// New returns a bzip2 Plugin backed by runner for external-tool candidates.
func New(runner *toolexec.Runner) *Plugin {
	return &Plugin{runner: runner}
}

// NewWithLevelCap is like New but bounds brute-force candidate generation
// to levels at or below levelCap (0 means no cap).
func NewWithLevelCap(runner *toolexec.Runner, levelCap int) *Plugin {
	return &Plugin{runner: runner, levelCap: levelCap}
}

func (p *Plugin) Extension() string { return ".bz2" }

// ParseHeader reads the fixed 4-byte "BZh<level>" prefix.
func (p *Plugin) ParseHeader(path string) (any, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, errors.Wrapf(err, "bzip2fmt: open %s", path)
	}
	defer f.Close()

	buf := make([]byte, headerSize)
	n, err := f.Read(buf)
	if n < headerSize {
		return nil, false, nil
	}
	if string(buf[:3]) != magic {
		return nil, false, nil
	}
	if buf[levelPos] < '1' || buf[levelPos] > '9' {
		return nil, false, nil
	}

	level := int(buf[levelPos] - '0')
	return Header{Level: level, BlockSize: level * 100000}, true, nil
}

// FormatHeader renders a stable, human-readable multi-line description.
func (p *Plugin) FormatHeader(header any) string {
	h, ok := header.(Header)
	if !ok {
		return ""
	}
	return "bzip2 header:\n" +
		"  level: " + strconv.Itoa(h.Level) + "\n" +
		"  block_size: " + strconv.Itoa(h.BlockSize) + "\n"
}

// PatchHeader rewrites the single compression-level byte at offset 3.
func (p *Plugin) PatchHeader(streamBytes []byte, header any) []byte {
	h, ok := header.(Header)
	if !ok || len(streamBytes) < headerSize || string(streamBytes[:3]) != magic {
		return streamBytes
	}
	out := make([]byte, len(streamBytes))
	copy(out, streamBytes)
	out[levelPos] = byte('0' + h.Level)
	return out
}

// bzip2 level set tried during brute force: lowest, a middle default, and highest.
var levels = []int{minLevel, 6, maxLevel}

// GenerateCandidates is external-process only: bzip2 and pbzip2 (first
// choice and its parallel variant), each at {1,6,9}. There is no
// in-process "header_match" step since compress/bzip2 cannot encode.
func (p *Plugin) GenerateCandidates(rawPath string, header any, hasHeader bool) []formats.Candidate {
	ctx := context.Background()
	var out []formats.Candidate

	for _, toolName := range []string{"bzip2", "pbzip2"} {
		tool := toolexec.Tool{Name: toolName}
		if !p.runner.Available(ctx, tool) {
			continue
		}
		for _, level := range formats.CapLevels(levels, p.levelCap) {
			args := []string{"-" + strconv.Itoa(level), "-c", rawPath}
			bytesOut, err := p.runner.Run(ctx, tool, args)
			if err != nil {
				continue
			}
			if hasHeader {
				if h, ok := header.(Header); ok {
					bytesOut = p.PatchHeader(bytesOut, h)
				}
			}
			out = append(out, formats.Candidate{
				Label: toolName + " -" + strconv.Itoa(level),
				Bytes: bytesOut,
			})
		}
	}

	return out
}
