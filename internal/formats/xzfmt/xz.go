// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package xzfmt implements the xz stream-header format plugin.
// In-process candidate generation uses github.com/ulikunitz/xz, already
// a teacher dependency (previously unused at runtime); header parse/patch
// operates on the raw byte layout since the library does not expose
// stream-flags offsets directly.
package xzfmt

import (
	"bytes"
	"context"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"

	"github.com/crossseed-tools/piecemend/internal/formats"
	"github.com/crossseed-tools/piecemend/internal/toolexec"
)

var magic = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}

const (
	headerMinSize = 12 // magic(6) + stream flags(2) + CRC32(4)

	// The check type is the low nibble of the second stream-flags byte;
	// CRC64 is check ID 0x04.
	flagsCheckMask = 0x0f << 8
	flagsCRC64     = 0x04 << 8
)

// Header is the xz stream header's flags field.
type Header struct {
	Flags    uint16
	HasCRC64 bool
}

// Plugin is the xz format.Plugin implementation.
type Plugin struct {
	runner   *toolexec.Runner
	levelCap int
}

// New returns an xz Plugin backed by runner for external-tool candidates.
func New(runner *toolexec.Runner) *Plugin {
	return &Plugin{runner: runner}
}

// NewWithLevelCap is like New but bounds brute-force candidate generation
// to levels at or below levelCap (0 means no cap).
func NewWithLevelCap(runner *toolexec.Runner, levelCap int) *Plugin {
	return &Plugin{runner: runner, levelCap: levelCap}
}

func (p *Plugin) Extension() string { return ".xz" }

// ParseHeader reads the 12-byte stream header: magic, stream flags
// (little-endian u16), CRC32.
func (p *Plugin) ParseHeader(path string) (any, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, errors.Wrapf(err, "xzfmt: open %s", path)
	}
	defer f.Close()

	buf := make([]byte, headerMinSize)
	n, err := f.Read(buf)
	if n < headerMinSize {
		return nil, false, nil
	}
	if !bytes.Equal(buf[:6], magic) {
		return nil, false, nil
	}

	flags := uint16(buf[6]) | uint16(buf[7])<<8
	return Header{Flags: flags, HasCRC64: flags&flagsCheckMask == flagsCRC64}, true, nil
}

// FormatHeader renders a stable, human-readable multi-line description.
func (p *Plugin) FormatHeader(header any) string {
	h, ok := header.(Header)
	if !ok {
		return ""
	}
	return "xz header:\n" +
		"  flags: " + strconv.FormatUint(uint64(h.Flags), 16) + "\n" +
		"  has_crc64: " + strconv.FormatBool(h.HasCRC64) + "\n"
}

// PatchHeader rewrites the stream-flags bytes at offsets 6-7. The CRC32
// trailing the flags is deliberately left untouched: piece-hash
// comparison downstream makes a spurious candidate fail cheaply.
func (p *Plugin) PatchHeader(streamBytes []byte, header any) []byte {
	h, ok := header.(Header)
	if !ok || len(streamBytes) < headerMinSize || !bytes.Equal(streamBytes[:6], magic) {
		return streamBytes
	}
	out := make([]byte, len(streamBytes))
	copy(out, streamBytes)
	out[6] = byte(h.Flags)
	out[7] = byte(h.Flags >> 8)
	return out
}

// xz level set tried during brute force: lowest, a middle default, and highest.
var levels = []int{0, 6, 9}

// GenerateCandidates produces the header_match in-process candidate
// (when header is supplied) plus the external-tool cross-product: xz and
// pixz (first choice and its parallel variant), each at {0,6,9}.
func (p *Plugin) GenerateCandidates(rawPath string, header any, hasHeader bool) []formats.Candidate {
	raw, err := os.ReadFile(rawPath)
	if err != nil {
		return nil
	}

	var out []formats.Candidate

	if hasHeader {
		if h, ok := header.(Header); ok {
			var buf bytes.Buffer
			cfg := xz.WriterConfig{}
			if h.HasCRC64 {
				cfg.CheckSum = xz.CRC64
			} else {
				cfg.CheckSum = xz.CRC32
			}
			zw, err := cfg.NewWriter(&buf)
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
	for _, toolName := range []string{"xz", "pixz"} {
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
