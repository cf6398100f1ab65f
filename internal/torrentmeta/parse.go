// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torrentmeta

import (
	"path"
	"strings"

	"github.com/crossseed-tools/piecemend/internal/bencode"
)

type (
	// Value aliases bencode.Value for brevity within this package.
	Value = bencode.Value
	// Dict aliases bencode.Dict for brevity within this package.
	Dict = bencode.Dict
)

// Parse normalizes a decoded bencode root value into a TorrentMeta.
// sourceNameHint is used as the torrent name when info.name is absent
// (typically the ".torrent" file's basename, stem only).
//
// See DESIGN.md "Open Questions resolved" for how V2/Hybrid piece lists
// are built from "piece layers" rather than the legacy v1 "pieces" field,
// so that the byte width used for piece-hash comparison (internal/hasher)
// always matches the hash algorithm (SHA-1 or SHA-256) used for that version.
func Parse(root Value, sourceNameHint string) (TorrentMeta, error) {
	rootDict, ok := root.AsDict()
	if !ok {
		return TorrentMeta{}, &ParseError{Kind: ErrRootNotDict}
	}

	infoVal, ok := rootDict.Get("info")
	if !ok {
		return TorrentMeta{}, &ParseError{Kind: ErrMissingInfo}
	}
	info, ok := infoVal.AsDict()
	if !ok {
		return TorrentMeta{}, &ParseError{Kind: ErrMissingInfo}
	}

	pieceLength, ok := getPositiveInt(info, "piece length")
	if !ok {
		return TorrentMeta{}, &ParseError{Kind: ErrMissingOrInvalidPieceLength}
	}

	version := detectVersion(rootDict, info)

	name := decodeUTF8(getString(info, "name"))
	if name == "" {
		name = stemOf(sourceNameHint)
	}

	files, fileTreeEntries, err := buildFiles(info, name)
	if err != nil {
		return TorrentMeta{}, err
	}

	var pieces [][]byte
	switch version {
	case V1:
		pieces, err = v1Pieces(info)
	default:
		pieces, err = v2Pieces(rootDict, fileTreeEntries, files, pieceLength)
	}
	if err != nil {
		return TorrentMeta{}, err
	}

	return TorrentMeta{
		Name:        name,
		Files:       files,
		PieceLength: pieceLength,
		Pieces:      pieces,
		Version:     version,
	}, nil
}

// detectVersion selects the metainfo version: meta version == 2 selects
// v2; if v2 and the legacy pieces/piece length fields are also present,
// it's hybrid; otherwise plain v1.
func detectVersion(root, info *Dict) Version {
	metaVersion, hasMetaVersion := getInt(info, "meta version")
	if !hasMetaVersion || metaVersion != 2 {
		return V1
	}
	_, hasPieces := info.Get("pieces")
	if hasPieces {
		return Hybrid
	}
	return V2
}

func v1Pieces(info *Dict) ([][]byte, error) {
	raw := getString(info, "pieces")
	if raw == nil {
		return nil, &ParseError{Kind: ErrMissingOrInvalidPieces}
	}
	if len(raw)%20 != 0 {
		return nil, &ParseError{Kind: ErrPiecesNotMultipleOf20}
	}
	out := make([][]byte, 0, len(raw)/20)
	for i := 0; i < len(raw); i += 20 {
		out = append(out, raw[i:i+20])
	}
	return out, nil
}

// fileTreeEntry is one leaf discovered while walking info["file tree"].
type fileTreeEntry struct {
	relPath     string
	length      int64
	piecesRoot  []byte
	hasPieces   bool
}

// v2Pieces builds a flat, file-ordered piece list out of BEP52 piece
// layers. Each file's own layer (looked up by its 32-byte pieces root in
// the top-level "piece layers" dict) is split into 32-byte chunks and
// appended in file order. A file whose length is <= piece length has no
// layer entry; its single piece hash is its pieces root directly.
func v2Pieces(root *Dict, tree []fileTreeEntry, files []TorrentFile, pieceLength int64) ([][]byte, error) {
	layersVal, hasLayers := root.Get("piece layers")
	var layers *Dict
	if hasLayers {
		layers, _ = layersVal.AsDict()
	}

	byPath := make(map[string]fileTreeEntry, len(tree))
	for _, e := range tree {
		byPath[e.relPath] = e
	}

	var pieces [][]byte
	for _, f := range files {
		if f.IsPadding() || !f.HasLength {
			continue
		}
		entry, ok := byPath[f.RelPath]
		if !ok || !entry.hasPieces {
			continue
		}

		if entry.length <= pieceLength {
			pieces = append(pieces, entry.piecesRoot)
			continue
		}

		if layers == nil {
			return nil, &ParseError{Kind: ErrMissingOrInvalidPieces}
		}
		layerVal, ok := layers.Get(string(entry.piecesRoot))
		if !ok {
			return nil, &ParseError{Kind: ErrMissingOrInvalidPieces}
		}
		layerBytes, ok := layerVal.AsString()
		if !ok || len(layerBytes)%32 != 0 {
			return nil, &ParseError{Kind: ErrMissingOrInvalidPieces}
		}
		for i := 0; i < len(layerBytes); i += 32 {
			pieces = append(pieces, layerBytes[i:i+32])
		}
	}

	if pieces == nil {
		return nil, &ParseError{Kind: ErrMissingOrInvalidPieces}
	}
	return pieces, nil
}

// buildFiles produces the TorrentFile list and, when a v2 "file tree" is
// present, the raw leaf entries needed to resolve piece layers. It prefers
// the legacy v1 "length"/"files" shape when present (always true for
// hybrid torrents, which must stay backward compatible), and falls back
// to walking "file tree" for pure v2 torrents.
func buildFiles(info *Dict, name string) ([]TorrentFile, []fileTreeEntry, error) {
	if lengthVal, ok := info.Get("length"); ok {
		length, ok := lengthVal.AsInt()
		if !ok || length < 0 {
			return nil, nil, &ParseError{Kind: ErrInvalidFilesEntry}
		}
		files := []TorrentFile{{
			RelPath:   name,
			HasLength: true,
			Length:    length,
			Offset:    0,
		}}
		tree, _ := walkFileTree(info, nil)
		return files, tree, nil
	}

	if filesVal, ok := info.Get("files"); ok {
		files, err := buildV1FileList(filesVal)
		if err != nil {
			return nil, nil, err
		}
		tree, _ := walkFileTree(info, nil)
		return files, tree, nil
	}

	tree, ok := walkFileTree(info, nil)
	if !ok || len(tree) == 0 {
		return nil, nil, &ParseError{Kind: ErrInvalidFilesEntry}
	}

	files := make([]TorrentFile, 0, len(tree))
	var offset int64
	for _, e := range tree {
		files = append(files, TorrentFile{
			RelPath:   e.relPath,
			HasLength: true,
			Length:    e.length,
			Offset:    offset,
		})
		offset += e.length
	}
	return files, tree, nil
}

// buildV1FileList validates and normalizes info.files, dropping any entry
// that is not a dict, lacks "path", or has an empty path, rather than
// failing the whole torrent on one malformed entry.
func buildV1FileList(filesVal Value) ([]TorrentFile, error) {
	list, ok := filesVal.AsList()
	if !ok {
		return nil, &ParseError{Kind: ErrInvalidFilesEntry}
	}

	out := make([]TorrentFile, 0, len(list))
	var offset int64
	for _, entryVal := range list {
		entry, ok := entryVal.AsDict()
		if !ok {
			continue
		}

		pathVal, ok := entry.Get("path")
		if !ok {
			continue
		}
		pathList, ok := pathVal.AsList()
		if !ok || len(pathList) == 0 {
			continue
		}

		parts := make([]string, 0, len(pathList))
		empty := true
		for _, p := range pathList {
			s, ok := p.AsString()
			if !ok {
				continue
			}
			decoded := decodeUTF8(s)
			parts = append(parts, decoded)
			if decoded != "" {
				empty = false
			}
		}
		if empty || len(parts) == 0 {
			continue
		}
		relPath := strings.Join(parts, "/")
		if relPath == "" {
			continue
		}

		tf := TorrentFile{RelPath: relPath, Offset: offset}

		if lengthVal, ok := entry.Get("length"); ok {
			if n, ok := lengthVal.AsInt(); ok && n >= 0 {
				tf.HasLength = true
				tf.Length = n
			}
		}

		if sha1Val, ok := entry.Get("sha1"); ok {
			if raw, ok := sha1Val.AsString(); ok && len(raw) == 20 {
				tf.HasSHA1 = true
				copy(tf.SHA1[:], raw)
			}
		}

		if attrVal, ok := entry.Get("attr"); ok {
			if raw, ok := attrVal.AsString(); ok {
				tf.Attr = decodeUTF8(raw)
			}
		}

		if symVal, ok := entry.Get("symlink path"); ok {
			if symList, ok := symVal.AsList(); ok {
				for _, s := range symList {
					if raw, ok := s.AsString(); ok {
						tf.SymlinkPath = append(tf.SymlinkPath, decodeUTF8(raw))
					}
				}
			}
		}

		offset += tf.Length
		out = append(out, tf)
	}
	return out, nil
}

// walkFileTree recursively flattens a BEP52 "file tree" dict. Each leaf
// is a single-key dict {"": {length: ..., "pieces root": ...}}. Returns
// ok=false if info has no "file tree" entry at all.
func walkFileTree(info *Dict, prefix []string) ([]fileTreeEntry, bool) {
	treeVal, ok := info.Get("file tree")
	if !ok {
		return nil, false
	}
	tree, ok := treeVal.AsDict()
	if !ok {
		return nil, false
	}
	return walkFileTreeDict(tree, prefix), true
}

func walkFileTreeDict(dict *Dict, prefix []string) []fileTreeEntry {
	var out []fileTreeEntry
	for _, key := range dict.Keys() {
		val, _ := dict.Get(key)
		sub, ok := val.AsDict()
		if !ok {
			continue
		}

		if leafVal, ok := sub.Get(""); ok {
			leaf, ok := leafVal.AsDict()
			if !ok {
				continue
			}
			relPath := strings.Join(append(append([]string{}, prefix...), decodeUTF8([]byte(key))), "/")
			entry := fileTreeEntry{relPath: relPath}
			if lengthVal, ok := leaf.Get("length"); ok {
				if n, ok := lengthVal.AsInt(); ok {
					entry.length = n
				}
			}
			if rootVal, ok := leaf.Get("pieces root"); ok {
				if raw, ok := rootVal.AsString(); ok {
					entry.piecesRoot = raw
					entry.hasPieces = true
				}
			}
			out = append(out, entry)
			continue
		}

		out = append(out, walkFileTreeDict(sub, append(append([]string{}, prefix...), decodeUTF8([]byte(key))))...)
	}
	return out
}

func getString(d *Dict, key string) []byte {
	v, ok := d.Get(key)
	if !ok {
		return nil
	}
	s, _ := v.AsString()
	return s
}

func getInt(d *Dict, key string) (int64, bool) {
	v, ok := d.Get(key)
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

func getPositiveInt(d *Dict, key string) (int64, bool) {
	n, ok := getInt(d, key)
	if !ok || n <= 0 {
		return 0, false
	}
	return n, true
}

// decodeUTF8 decodes b as UTF-8, substituting the replacement character
// for invalid sequences.
func decodeUTF8(b []byte) string {
	if b == nil {
		return ""
	}
	return strings.ToValidUTF8(string(b), "�")
}

// stemOf returns the filename stem (no directory, no final extension) of
// a source path hint, used as the torrent name when info.name is absent.
func stemOf(sourceNameHint string) string {
	base := path.Base(path.Clean(sourceNameHint))
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
