// Copyright 2026 Blink Labs Software
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

package balance_test

import (
	"testing"

	"github.com/blinklabs-io/paygate/balance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferSet(t *testing.T) {
	transfers, err := balance.NewTransferSet(2)
	require.NoError(t, err)
	assert.True(t, transfers.Insert("T1"))
	assert.False(t, transfers.Insert("T1"))
	assert.True(t, transfers.Insert("T2"))
	// Oldest ID is evicted at capacity
	assert.True(t, transfers.Insert("T3"))
	assert.False(t, transfers.Contains("T1"))
	assert.Equal(t, 2, transfers.Len())

	assert.True(t, transfers.Prune("T2"))
	assert.False(t, transfers.Prune("T2"))
	assert.True(t, transfers.Insert("T2"))
	transfers.Purge()
	assert.Equal(t, 0, transfers.Len())

	_, err = balance.NewTransferSet(0)
	assert.ErrorIs(t, err, balance.ErrInvalidCapacity)
}

func TestParseMemo(t *testing.T) {
	key := testKey(t, testKeyHex)
	expected := balance.NewMemo(key, testContentHash)
	contentHashHex := expected.ContentHash

	valid := []any{
		expected,
		&expected,
		map[string]string{"public_key": testKeyHex, "content_hash": contentHashHex},
		map[string]any{"public_key": key.String(), "content_hash": contentHashHex},
		`{"public_key":"` + key.String() + `","content_hash":"` + contentHashHex + `"}`,
		[]byte(`{"public_key":"` + testKeyHex + `","content_hash":"` + contentHashHex + `"}`),
	}
	for _, memo := range valid {
		parsed, err := balance.ParseMemo(memo)
		require.NoError(t, err, "memo %#v", memo)
		assert.Equal(t, expected, parsed)
	}

	invalid := []any{
		nil,
		42,
		(*balance.Memo)(nil),
		map[string]any{"public_key": 1, "content_hash": contentHashHex},
		map[string]string{"public_key": testKeyHex},
		map[string]string{"content_hash": contentHashHex},
		map[string]string{"public_key": "zz", "content_hash": contentHashHex},
		map[string]string{"public_key": testKeyHex, "content_hash": "not-hex"},
		"",
		"[]",
	}
	for _, memo := range invalid {
		_, err := balance.ParseMemo(memo)
		assert.ErrorIs(t, err, balance.ErrMalformedMemo, "memo %#v", memo)
	}
}
