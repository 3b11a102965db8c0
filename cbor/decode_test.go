// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cbor_test

import (
	"io"
	"testing"

	"github.com/blinklabs-io/paygate/cbor"
	test "github.com/blinklabs-io/paygate/internal/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decodeTestDefinition struct {
	CborHex   string
	Object    any
	BytesRead int
}

var decodeTests = []decodeTestDefinition{
	// Simple list of numbers
	{
		CborHex:   "83010203",
		Object:    []any{uint64(1), uint64(2), uint64(3)},
		BytesRead: 4,
	},
	// Multiple CBOR objects
	{
		CborHex:   "81018102",
		Object:    []any{uint64(1)},
		BytesRead: 2,
	},
	// Map followed by trailing garbage
	{
		CborHex:   "a1616101ffff",
		Object:    map[any]any{"a": uint64(1)},
		BytesRead: 4,
	},
}

func TestDecode(t *testing.T) {
	for _, testDef := range decodeTests {
		cborData := test.DecodeHexString(testDef.CborHex)
		var dest any
		bytesRead, err := cbor.Decode(cborData, &dest)
		require.NoError(t, err, "failed to decode CBOR %s", testDef.CborHex)
		assert.Equal(t, testDef.BytesRead, bytesRead)
		assert.Equal(t, testDef.Object, dest)
	}
}

func TestDecodeErrors(t *testing.T) {
	testDefs := map[string]string{
		"truncated map":         "a2616101",
		"truncated string":      "a1616178",
		"indefinite map":        "bf616101ff",
		"duplicate map key":     "a2616101616102",
		"reserved initial byte": "1c",
	}
	for name, cborHex := range testDefs {
		t.Run(name, func(t *testing.T) {
			var dest any
			_, err := cbor.Decode(test.DecodeHexString(cborHex), &dest)
			assert.Error(t, err)
		})
	}
}

func TestDecodeEmpty(t *testing.T) {
	var dest any
	_, err := cbor.Decode(nil, &dest)
	assert.ErrorIs(t, err, cbor.ErrEmptyInput)
}

func TestDecodeTruncatedIsUnexpectedEOF(t *testing.T) {
	var dest any
	_, err := cbor.Decode(test.DecodeHexString("830102"), &dest)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecodeNestingLimit(t *testing.T) {
	// 32 nested single-element arrays around a zero
	data := make([]byte, 0, 33)
	for range 32 {
		data = append(data, 0x81)
	}
	data = append(data, 0x00)
	var dest any
	_, err := cbor.Decode(data, &dest)
	assert.Error(t, err)
}

func TestSplitFirst(t *testing.T) {
	data := test.DecodeHexString("a1616101deadbeef")
	item, rest, err := cbor.SplitFirst(data)
	require.NoError(t, err)
	assert.Equal(t, test.DecodeHexString("a1616101"), item)
	assert.Equal(t, test.DecodeHexString("deadbeef"), rest)
}

func TestMajorType(t *testing.T) {
	mt, ok := cbor.MajorType([]byte{0xa3})
	assert.True(t, ok)
	assert.Equal(t, cbor.CborTypeMap, mt)
	_, ok = cbor.MajorType(nil)
	assert.False(t, ok)
}
