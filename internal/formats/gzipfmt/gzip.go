// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package gzipfmt implements the gzip (RFC 1952) format plugin: header
// parsing/patching operates on the raw byte layout directly, since
// compress/gzip.Reader does not expose header offsets, while in-process
// candidate generation uses compress/gzip itself.
package gzipfmt

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/crossseed-tools/piecemend/internal/formats"
	"github.com/crossseed-tools/piecemend/internal/toolexec"
)

const (
	magic0 = 0x1f
	magic1 = 0x8b

	flagFTEXT    = 1 << 0
	flagFHCRC    = 1 << 1
	flagFEXTRA   = 1 << 2
	flagFNAME    = 1 << 3
	flagFCOMMENT = 1 << 4

	fixedHeaderLen = 10
)

// Header is gzip's RFC 1952 member header.
type Header struct {
	MTime    uint32
	OS       byte
	Flags    byte
	Extra    []byte
	FName    []byte
	FComment []byte
}

// Plugin is the gzip format.Plugin implementation.
type Plugin struct {
	runner   *toolexec.Runner
	levelCap int
}

// New returns a gzip Plugin backed by runner for external-tool candidates.
func New(runner *toolexec.Runner) *Plugin {
	return &Plugin{runner: runner}
}

// NewWithLevelCap is like New but bounds brute-force candidate generation
// to levels at or below levelCap (0 means no cap).
func NewWithLevelCap(runner *toolexec.Runner, levelCap int) *Plugin {
	return &Plugin{runner: runner, levelCap: levelCap}
}

func (p *Plugin) Extension() string { return ".gz" }

// ParseHeader reads the fixed 10-byte header and any flag-gated blocks
// (FEXTRA, FNAME, FCOMMENT, FHCRC) from the start of path.
func (p *Plugin) ParseHeader(path string) (any, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, errors.Wrapf(err, "gzipfmt: open %s", path)
	}
	defer f.Close()

	buf := make([]byte, fixedHeaderLen)
	n, err := f.Read(buf)
	if n < fixedHeaderLen {
		return nil, false, nil
	}
	if buf[0] != magic0 || buf[1] != magic1 {
		return nil, false, nil
	}
	if buf[2] != 8 { // compression method must be DEFLATE
		return nil, false, nil
	}

	h := Header{
		Flags: buf[3],
		MTime: uint32(buf[4]) | uint32(buf[5])<<8 | uint32(buf[6])<<16 | uint32(buf[7])<<24,
		OS:    buf[9],
	}

	rest, err := readAll(f)
	if err != nil {
		return nil, false, errors.Wrap(err, "gzipfmt: read header tail")
	}
	pos := 0

	if h.Flags&flagFEXTRA != 0 {
		if len(rest) < pos+2 {
			return nil, false, nil
		}
		xlen := int(rest[pos]) | int(rest[pos+1])<<8
		pos += 2
		if len(rest) < pos+xlen {
			return nil, false, nil
		}
		h.Extra = append([]byte(nil), rest[pos:pos+xlen]...)
		pos += xlen
	}
	if h.Flags&flagFNAME != 0 {
		name, next, ok := readCString(rest, pos)
		if !ok {
			return nil, false, nil
		}
		h.FName = name
		pos = next
	}
	if h.Flags&flagFCOMMENT != 0 {
		comment, next, ok := readCString(rest, pos)
		if !ok {
			return nil, false, nil
		}
		h.FComment = comment
		pos = next
	}
	if h.Flags&flagFHCRC != 0 {
		if len(rest) < pos+2 {
			return nil, false, nil
		}
	}

	return h, true, nil
}

func readAll(f *os.File) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, 4096)
	for {
		n, err := f.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err != nil {
			break
		}
	}
	return buf.Bytes(), nil
}

func readCString(b []byte, from int) ([]byte, int, bool) {
	for i := from; i < len(b); i++ {
		if b[i] == 0 {
			return append([]byte(nil), b[from:i]...), i + 1, true
		}
	}
	return nil, from, false
}

// FormatHeader renders a stable, human-readable multi-line description.
func (p *Plugin) FormatHeader(header any) string {
	h, ok := header.(Header)
	if !ok {
		return ""
	}
	out := "gzip header:\n"
	out += "  mtime: " + strconv.FormatUint(uint64(h.MTime), 10) + "\n"
	out += "  os: " + strconv.Itoa(int(h.OS)) + "\n"
	out += "  flags: " + strconv.Itoa(int(h.Flags)) + "\n"
	if h.FName != nil {
		out += "  fname: " + string(h.FName) + "\n"
	}
	if h.FComment != nil {
		out += "  fcomment: " + string(h.FComment) + "\n"
	}
	return out
}

// PatchHeader rewrites streamBytes' fixed header (flags, mtime, XFL, OS)
// and rebuilds the FEXTRA/FNAME/FCOMMENT blocks to match header, deleting
// blocks whose flag bit is now clear and inserting ones whose bit is set.
// CRCs are never recomputed.
func (p *Plugin) PatchHeader(streamBytes []byte, header any) []byte {
	h, ok := header.(Header)
	if !ok || len(streamBytes) < fixedHeaderLen {
		return streamBytes
	}

	out := make([]byte, fixedHeaderLen)
	copy(out, streamBytes[:fixedHeaderLen])
	out[3] = h.Flags
	out[4] = byte(h.MTime)
	out[5] = byte(h.MTime >> 8)
	out[6] = byte(h.MTime >> 16)
	out[7] = byte(h.MTime >> 24)
	out[8] = 0 // XFL
	out[9] = h.OS

	if h.Flags&flagFEXTRA != 0 {
		xlen := len(h.Extra)
		out = append(out, byte(xlen), byte(xlen>>8))
		out = append(out, h.Extra...)
	}
	if h.Flags&flagFNAME != 0 {
		out = append(out, h.FName...)
		out = append(out, 0)
	}
	if h.Flags&flagFCOMMENT != 0 {
		out = append(out, h.FComment...)
		out = append(out, 0)
	}

	// The remainder (compressed blocks + trailer) follows the original
	// header exactly as produced by the in-process or external encoder
	// that generated streamBytes; patching only ever touches the header
	// region here because the caller passes freshly generated bytes.
	orig, pos := streamBytes[3], fixedHeaderLen
	if orig&flagFEXTRA != 0 && len(streamBytes) >= pos+2 {
		pos += 2 + (int(streamBytes[pos]) | int(streamBytes[pos+1])<<8)
	}
	if orig&flagFNAME != 0 {
		_, pos, _ = readCString(streamBytes, pos)
	}
	if orig&flagFCOMMENT != 0 {
		_, pos, _ = readCString(streamBytes, pos)
	}
	if orig&flagFHCRC != 0 {
		pos += 2
	}
	if pos < len(streamBytes) {
		out = append(out, streamBytes[pos:]...)
	}
	return out
}

// gzip level set tried during brute force: lowest, a middle default, and highest.
var levels = []int{1, 6, 9}

// flagCombos returns the per-tool flag variants tried during brute force,
// in a fixed order: gzip crosses no_name {true,false} with rsyncable
// {false,true} (4 combos: -n, -n --rsyncable, (none), --rsyncable); pigz
// has no --rsyncable option, so only no_name is varied (2 combos: -n,
// (none)).
func flagCombos(toolName string) [][]string {
	if toolName == "gzip" {
		return [][]string{
			{"-n"},
			{"-n", "--rsyncable"},
			{},
			{"--rsyncable"},
		}
	}
	return [][]string{
		{"-n"},
		{},
	}
}

// GenerateCandidates produces the header_match in-process candidate (when
// header is supplied) plus the external-tool cross-product: gzip and pigz
// (first choice and its parallel variant), each at {1,6,9}, each crossed
// with that tool's flagCombos. Every brute-force candidate is patched
// against header when one was parsed, matching a reference original.
func (p *Plugin) GenerateCandidates(rawPath string, header any, hasHeader bool) []formats.Candidate {
	raw, err := os.ReadFile(rawPath)
	if err != nil {
		return nil
	}

	var out []formats.Candidate
	var h Header
	if hasHeader {
		h, hasHeader = header.(Header)
	}

	if hasHeader {
		var buf bytes.Buffer
		zw, err := gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
		if err == nil {
			zw.Name = string(h.FName)
			zw.Comment = string(h.FComment)
			zw.ModTime = unixTime(h.MTime)
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

	ctx := context.Background()
	for _, toolName := range []string{"gzip", "pigz"} {
		tool := toolexec.Tool{Name: toolName}
		if !p.runner.Available(ctx, tool) {
			continue
		}
		for _, level := range formats.CapLevels(levels, p.levelCap) {
			for _, extraFlags := range flagCombos(toolName) {
				args := append([]string{levelFlag(level)}, extraFlags...)
				args = append(args, "-c", rawPath)
				bytesOut, err := p.runner.Run(ctx, tool, args)
				if err != nil {
					continue
				}
				if hasHeader {
					bytesOut = p.PatchHeader(bytesOut, h)
				}
				label := toolName + " -" + strconv.Itoa(level)
				for _, f := range extraFlags {
					label += " " + f
				}
				out = append(out, formats.Candidate{Label: label, Bytes: bytesOut})
			}
		}
	}

	return out
}

func levelFlag(level int) string {
	return "-" + strconv.Itoa(level)
}

func unixTime(sec uint32) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), 0).UTC()
}
