// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package bencode

import (
	"fmt"
	"sort"
	"strconv"
)

// Encode renders v as bencoded bytes. Dictionary keys are always written
// in total lexicographic byte order, regardless of the order they were
// inserted in, so Encode(Decode(b)) round-trips for any b whose dicts
// were already sorted. Encode never panics on a well-formed Value tree.
func Encode(v Value) []byte {
	buf := make([]byte, 0, 64)
	return appendValue(buf, v)
}

func appendValue(buf []byte, v Value) []byte {
	switch v.Kind {
	case KindString:
		buf = strconv.AppendInt(buf, int64(len(v.Str)), 10)
		buf = append(buf, ':')
		buf = append(buf, v.Str...)
		return buf
	case KindInt:
		buf = append(buf, 'i')
		buf = strconv.AppendInt(buf, v.Int, 10)
		buf = append(buf, 'e')
		return buf
	case KindList:
		buf = append(buf, 'l')
		for _, item := range v.List {
			buf = appendValue(buf, item)
		}
		buf = append(buf, 'e')
		return buf
	case KindDict:
		buf = append(buf, 'd')
		if v.Dict != nil {
			keys := append([]string(nil), v.Dict.Keys()...)
			sort.Strings(keys)
			for _, k := range keys {
				val, _ := v.Dict.Get(k)
				buf = strconv.AppendInt(buf, int64(len(k)), 10)
				buf = append(buf, ':')
				buf = append(buf, k...)
				buf = appendValue(buf, val)
			}
		}
		buf = append(buf, 'e')
		return buf
	default:
		panic(fmt.Sprintf("bencode: encode of invalid Value kind %d", v.Kind))
	}
}

// String is a convenience constructor for a KindString Value.
func String(s string) Value {
	return Value{Kind: KindString, Str: []byte(s)}
}

// Int is a convenience constructor for a KindInt Value.
func Int(n int64) Value {
	return Value{Kind: KindInt, Int: n}
}

// List is a convenience constructor for a KindList Value.
func List(items ...Value) Value {
	return Value{Kind: KindList, List: items}
}

// DictValue is a convenience constructor for a KindDict Value.
func DictValue(d *Dict) Value {
	return Value{Kind: KindDict, Dict: d}
}
