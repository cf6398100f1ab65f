// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package bencode

import (
	"bytes"
	"strconv"
)

// DictKeyMode controls how the decoder handles dictionaries whose keys
// are not in strict lexicographic byte order.
type DictKeyMode int

const (
	// StrictDictKeys rejects unsorted dictionary keys with ErrUnsortedDictKeys.
	StrictDictKeys DictKeyMode = iota
	// LenientDictKeys tolerates unsorted keys (re-sorting is not needed
	// here since Dict preserves insertion order for round-tripping, and
	// lookups are by key, not position). Used for parsing third-party
	// torrents that don't honor BEP3's key ordering requirement.
	LenientDictKeys
)

// Decode parses a single bencoded value from data in strict mode. Trailing
// bytes after the value are not an error; callers that need to enforce
// "whole buffer is one value" should check the returned offset themselves
// via DecodeAt.
func Decode(data []byte) (Value, error) {
	v, _, err := DecodeAt(data, 0, StrictDictKeys)
	return v, err
}

// DecodeLenient is like Decode but tolerates unsorted dictionary keys.
func DecodeLenient(data []byte) (Value, error) {
	v, _, err := DecodeAt(data, 0, LenientDictKeys)
	return v, err
}

// DecodeAt parses a single bencoded value starting at offset and returns
// the value along with the offset immediately following it.
func DecodeAt(data []byte, offset int, mode DictKeyMode) (Value, int, error) {
	d := &decoder{data: data, mode: mode}
	v, err := d.value(offset)
	if err != nil {
		return Value{}, 0, err
	}
	return v, d.pos, nil
}

type decoder struct {
	data []byte
	pos  int
	mode DictKeyMode
}

func (d *decoder) value(offset int) (Value, error) {
	d.pos = offset
	if d.pos >= len(d.data) {
		return Value{}, &DecodeError{Kind: ErrUnexpectedEOF, Offset: d.pos}
	}

	switch c := d.data[d.pos]; {
	case c == 'i':
		return d.integer()
	case c == 'l':
		return d.list()
	case c == 'd':
		return d.dict()
	case c >= '0' && c <= '9':
		return d.byteString()
	default:
		return Value{}, &DecodeError{Kind: ErrUnknownToken, Offset: d.pos}
	}
}

// integer parses "i<digits>e", rejecting leading zeros (except the literal
// "i0e") and negative zero ("i-0e").
func (d *decoder) integer() (Value, error) {
	start := d.pos
	d.pos++ // consume 'i'

	end := bytes.IndexByte(d.data[d.pos:], 'e')
	if end < 0 {
		return Value{}, &DecodeError{Kind: ErrUnexpectedEOF, Offset: start}
	}
	end += d.pos

	lit := d.data[d.pos:end]
	if len(lit) == 0 {
		return Value{}, &DecodeError{Kind: ErrInvalidInteger, Offset: start}
	}

	neg := false
	digits := lit
	if lit[0] == '-' {
		neg = true
		digits = lit[1:]
	}
	if len(digits) == 0 {
		return Value{}, &DecodeError{Kind: ErrInvalidInteger, Offset: start}
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return Value{}, &DecodeError{Kind: ErrInvalidInteger, Offset: start}
		}
	}
	if len(digits) > 1 && digits[0] == '0' {
		return Value{}, &DecodeError{Kind: ErrInvalidInteger, Offset: start}
	}
	if neg && digits[0] == '0' {
		// "i-0e" is rejected regardless of digit count.
		return Value{}, &DecodeError{Kind: ErrInvalidInteger, Offset: start}
	}

	n, err := strconv.ParseInt(string(lit), 10, 64)
	if err != nil {
		// lit is already known to be a well-formed decimal literal at
		// this point, so the only way ParseInt can fail is range: it
		// does not fit in a signed 64-bit integer.
		return Value{}, &DecodeError{Kind: ErrOutOfRange, Offset: start}
	}

	d.pos = end + 1 // consume 'e'
	return Value{Kind: KindInt, Int: n}, nil
}

// byteString parses "<len>:<bytes>".
func (d *decoder) byteString() (Value, error) {
	start := d.pos

	colon := bytes.IndexByte(d.data[d.pos:], ':')
	if colon < 0 {
		return Value{}, &DecodeError{Kind: ErrUnexpectedEOF, Offset: start}
	}
	colon += d.pos

	lenLit := d.data[d.pos:colon]
	if len(lenLit) == 0 || (len(lenLit) > 1 && lenLit[0] == '0') {
		return Value{}, &DecodeError{Kind: ErrInvalidLengthPrefix, Offset: start}
	}
	var length int
	for _, c := range lenLit {
		if c < '0' || c > '9' {
			return Value{}, &DecodeError{Kind: ErrInvalidLengthPrefix, Offset: start}
		}
		length = length*10 + int(c-'0')
	}

	dataStart := colon + 1
	dataEnd := dataStart + length
	if length < 0 || dataEnd > len(d.data) {
		return Value{}, &DecodeError{Kind: ErrUnexpectedEOF, Offset: start}
	}

	str := make([]byte, length)
	copy(str, d.data[dataStart:dataEnd])
	d.pos = dataEnd
	return Value{Kind: KindString, Str: str}, nil
}

// list parses "l<values>e".
func (d *decoder) list() (Value, error) {
	start := d.pos
	d.pos++ // consume 'l'

	var items []Value
	for {
		if d.pos >= len(d.data) {
			return Value{}, &DecodeError{Kind: ErrUnexpectedEOF, Offset: start}
		}
		if d.data[d.pos] == 'e' {
			d.pos++
			return Value{Kind: KindList, List: items}, nil
		}
		v, err := d.value(d.pos)
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
	}
}

// dict parses "d<key><value>...e"; keys must be byte strings.
func (d *decoder) dict() (Value, error) {
	start := d.pos
	d.pos++ // consume 'd'

	dict := NewDict()
	prevKey := ""
	havePrev := false

	for {
		if d.pos >= len(d.data) {
			return Value{}, &DecodeError{Kind: ErrUnexpectedEOF, Offset: start}
		}
		if d.data[d.pos] == 'e' {
			d.pos++
			return Value{Kind: KindDict, Dict: dict}, nil
		}

		keyStart := d.pos
		keyVal, err := d.byteString()
		if err != nil {
			return Value{}, err
		}
		key := string(keyVal.Str)

		if d.mode == StrictDictKeys && havePrev && key <= prevKey {
			return Value{}, &DecodeError{Kind: ErrUnsortedDictKeys, Offset: keyStart}
		}
		prevKey, havePrev = key, true

		val, err := d.value(d.pos)
		if err != nil {
			return Value{}, err
		}
		dict.Set(key, val)
	}
}
