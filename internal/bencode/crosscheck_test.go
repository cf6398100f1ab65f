// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package bencode

import (
	"testing"

	zbencode "github.com/zeebo/bencode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEncodeOutputIsValidForIndependentDecoder cross-checks this package's
// encoder against a wholly separate bencode implementation, so a bug that
// happens to round-trip through our own decoder (but produces non-standard
// bytes) doesn't slip by unnoticed.
func TestEncodeOutputIsValidForIndependentDecoder(t *testing.T) {
	d := NewDict()
	d.Set("info", DictValue(func() *Dict {
		inner := NewDict()
		inner.Set("length", Int(1024))
		inner.Set("name", String("release.tar.gz"))
		inner.Set("piece length", Int(262144))
		return inner
	}()))
	d.Set("announce", String("https://tracker.example/announce"))

	raw := Encode(DictValue(d))

	var generic map[string]interface{}
	require.NoError(t, zbencode.DecodeBytes(raw, &generic))

	announce, ok := generic["announce"].(string)
	require.True(t, ok)
	assert.Equal(t, "https://tracker.example/announce", announce)

	info, ok := generic["info"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "release.tar.gz", info["name"])
}
