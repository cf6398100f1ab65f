// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package zstdfmt implements the zstd frame-header format plugin.
// In-process candidate generation uses github.com/klauspost/compress/zstd,
// already a teacher dependency used today only by its HTTP compression
// middleware; header parse/patch operates on the raw frame-header byte
// since the window-log/flags layout isn't exposed by the decoder API.
package zstdfmt

import (
	"bytes"
	"context"
	"os"
	"strconv"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/crossseed-tools/piecemend/internal/formats"
	"github.com/crossseed-tools/piecemend/internal/toolexec"
)

var magic = []byte{0x28, 0xb5, 0x2f, 0xfd}

const (
	headerMinSize = 6 // magic(4) + frame header descriptor(2)

	windowLogMask    = 0x0f
	flagSingleSeg    = 0x20
	flagChecksum     = 0x10
	flagDictIDUnused = 0x08
)

// Header is zstd's frame-header descriptor byte, decoded.
type Header struct {
	WindowLog     int
	SingleSegment bool
	HasChecksum   bool
	HasDictID     bool
}

// Plugin is the zstd format.Plugin implementation.
type Plugin struct {
	runner   *toolexec.Runner
	levelCap int
}

// New returns a zstd Plugin backed by runner for external-tool candidates.
func New(runner *toolexec.Runner) *Plugin {
	return &Plugin{runner: runner}
}

// NewWithLevelCap is like New but bounds brute-force candidate generation
// to levels at or below levelCap (0 means no cap).
func NewWithLevelCap(runner *toolexec.Runner, levelCap int) *Plugin {
	return &Plugin{runner: runner, levelCap: levelCap}
}

func (p *Plugin) Extension() string { return ".zst" }

// ParseHeader reads the 6-byte magic + frame-header-descriptor prefix.
func (p *Plugin) ParseHeader(path string) (any, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, errors.Wrapf(err, "zstdfmt: open %s", path)
	}
	defer f.Close()

	buf := make([]byte, headerMinSize)
	n, err := f.Read(buf)
	if n < headerMinSize {
		return nil, false, nil
	}
	if !bytes.Equal(buf[:4], magic) {
		return nil, false, nil
	}

	descriptor := uint16(buf[4]) | uint16(buf[5])<<8
	return Header{
		WindowLog:     int(descriptor & windowLogMask),
		SingleSegment: descriptor&flagSingleSeg != 0,
		HasChecksum:   descriptor&flagChecksum != 0,
		HasDictID:     descriptor&flagDictIDUnused != 0,
	}, true, nil
}

// FormatHeader renders a stable, human-readable multi-line description.
func (p *Plugin) FormatHeader(header any) string {
	h, ok := header.(Header)
	if !ok {
		return ""
	}
	return "zstd header:\n" +
		"  window_log: " + strconv.Itoa(h.WindowLog) + "\n" +
		"  single_segment: " + strconv.FormatBool(h.SingleSegment) + "\n" +
		"  has_checksum: " + strconv.FormatBool(h.HasChecksum) + "\n" +
		"  has_dict_id: " + strconv.FormatBool(h.HasDictID) + "\n"
}

// PatchHeader rewrites the frame-header-descriptor bytes at offsets 4-5:
// window log in the low nibble, single-segment/checksum/dict-id flags in
// the high nibble.
func (p *Plugin) PatchHeader(streamBytes []byte, header any) []byte {
	h, ok := header.(Header)
	if !ok || len(streamBytes) < headerMinSize || !bytes.Equal(streamBytes[:4], magic) {
		return streamBytes
	}

	var descriptor uint16
	descriptor |= uint16(h.WindowLog) & windowLogMask
	if h.SingleSegment {
		descriptor |= flagSingleSeg
	}
	if h.HasChecksum {
		descriptor |= flagChecksum
	}
	if h.HasDictID {
		descriptor |= flagDictIDUnused
	}

	out := make([]byte, len(streamBytes))
	copy(out, streamBytes)
	out[4] = byte(descriptor)
	out[5] = byte(descriptor >> 8)
	return out
}

// zstd level set tried during brute force: lowest, a middle default, and highest.
var levels = []int{1, 3, 22}

// GenerateCandidates produces the header_match in-process candidate
// (when header is supplied) plus the external-tool cross-product: zstd
// and pzstd (first choice and its parallel variant), each at {1,3,22}.
func (p *Plugin) GenerateCandidates(rawPath string, header any, hasHeader bool) []formats.Candidate {
	raw, err := os.ReadFile(rawPath)
	if err != nil {
		return nil
	}

	var out []formats.Candidate

	if hasHeader {
		if h, ok := header.(Header); ok {
			var buf bytes.Buffer
			opts := []zstd.EOption{zstd.WithEncoderCRC(h.HasChecksum)}
			zw, err := zstd.NewWriter(&buf, opts...)
			if err == nil {
				if _, err := zw.Write(raw); err == nil {
					if err := zw.Close(); err == nil {
						out = append(out, formats.Candidate{
							Label: "header_match",
							Bytes: p.PatchHeader(buf.Bytes(), h),
						})
					}
				}
			}
		}
	}

	ctx := context.Background()
	for _, toolName := range []string{"zstd", "pzstd"} {
		tool := toolexec.Tool{Name: toolName}
		if !p.runner.Available(ctx, tool) {
			continue
		}
		for _, level := range formats.CapLevels(levels, p.levelCap) {
			args := []string{"-" + strconv.Itoa(level), "-c", "--stdout", rawPath}
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
