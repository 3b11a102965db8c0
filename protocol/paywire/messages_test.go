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

package paywire_test

import (
	"errors"
	"testing"

	test "github.com/blinklabs-io/paygate/internal/test"
	"github.com/blinklabs-io/paygate/protocol"
	"github.com/blinklabs-io/paygate/protocol/paywire"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDefinition struct {
	CborHex     string
	Message     protocol.Message
	MessageType uint
}

var tests = []testDefinition{
	{
		CborHex:     "a1686d73675f7479706500",
		Message:     paywire.NewMsgRequestAccountDetails(),
		MessageType: paywire.MessageTypeRequestAccountDetails,
	},
	{
		CborHex: "a365707269636566302e30303031676163636f756e746461636374686d73675f7479706501",
		Message: paywire.NewMsgAccountDetails(
			"acct",
			decimal.RequireFromString("0.0001"),
		),
		MessageType: paywire.MessageTypeAccountDetails,
	},
}

func TestDecode(t *testing.T) {
	for _, testDef := range tests {
		cborData := test.DecodeHexString(testDef.CborHex)
		msg, err := paywire.NewMsgFromCbor(testDef.MessageType, cborData)
		require.NoError(t, err)
		// Set the raw CBOR so the comparison should succeed
		testDef.Message.SetCbor(cborData)
		assert.Equal(t, testDef.Message, msg)
	}
}

func TestEncode(t *testing.T) {
	for _, testDef := range tests {
		data, err := paywire.Encode(testDef.Message, nil)
		require.NoError(t, err)
		assert.Equal(t, testDef.CborHex, test.EncodeHexString(data))
	}
}

func allMessages() []protocol.Message {
	return []protocol.Message{
		paywire.NewMsgRequestAccountDetails(),
		paywire.NewMsgAccountDetails("acct", decimal.RequireFromString("0.0001")),
		paywire.NewMsgLowBalance(
			decimal.RequireFromString("-0.0002"),
			decimal.RequireFromString("0.001"),
		),
		paywire.NewMsgPaymentRequest(decimal.RequireFromString("12.5")),
		paywire.NewMsgPaymentRequestTooHigh(decimal.RequireFromString("1")),
		paywire.NewMsgLicenseRequired("content hash mismatch"),
	}
}

func TestRoundTripWithTrailer(t *testing.T) {
	trailers := [][]byte{
		nil,
		{},
		{0x00},
		// Trailer starting with what looks like another CBOR map
		test.DecodeHexString("a1686d73675f7479706501ff00"),
		[]byte("raw chunk data"),
	}
	for _, msg := range allMessages() {
		for _, trailer := range trailers {
			data, err := paywire.Encode(msg, trailer)
			require.NoError(t, err)
			decoded, decodedTrailer, err := paywire.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, msg.Type(), decoded.Type())
			assert.Equal(t, data[:len(data)-len(trailer)], decoded.Cbor())
			msg.SetCbor(decoded.Cbor())
			assert.Equal(t, msg, decoded)
			assert.Len(t, decodedTrailer, len(trailer))
			if len(trailer) > 0 {
				assert.Equal(t, trailer, decodedTrailer)
			}
		}
	}
}

func TestMessageAccessors(t *testing.T) {
	details := paywire.NewMsgAccountDetails("acct", decimal.RequireFromString("0.0001"))
	assert.Equal(t, "0.0001", details.PriceAmount().String())
	lowBalance := paywire.NewMsgLowBalance(decimal.NewFromInt(-1), decimal.NewFromInt(3))
	assert.True(t, decimal.NewFromInt(-1).Equal(lowBalance.BalanceAmount()))
	assert.True(t, decimal.NewFromInt(3).Equal(lowBalance.RequestedAmount()))
	tooHigh := paywire.NewMsgPaymentRequestTooHigh(decimal.NewFromInt(2))
	assert.True(t, decimal.NewFromInt(2).Equal(tooHigh.SuggestedAmount()))
}

func TestDecodeMalformed(t *testing.T) {
	testDefs := []struct {
		name    string
		cborHex string
	}{
		{name: "empty", cborHex: ""},
		{name: "truncated", cborHex: "a1686d73675f74797065"},
		{name: "truncated string", cborHex: "a1686d73675f74"},
		{name: "not a map", cborHex: "83010203"},
		{name: "missing msg_type", cborHex: "a163666f6f01"},
		{name: "unknown msg_type", cborHex: "a1686d73675f7479706509"},
		{name: "negative msg_type", cborHex: "a1686d73675f7479706520"},
		{name: "string msg_type", cborHex: "a1686d73675f747970656130"},
		{name: "missing price", cborHex: "a2676163636f756e746461636374686d73675f7479706501"},
		{name: "negative amount", cborHex: "a266616d6f756e74622d31686d73675f7479706503"},
		{name: "non-numeric amount", cborHex: "a266616d6f756e7463616263686d73675f7479706503"},
		{name: "integer account", cborHex: "a36570726963656131676163636f756e7405686d73675f7479706501"},
		{name: "indefinite length map", cborHex: "bf686d73675f7479706500ff"},
		{name: "duplicate keys", cborHex: "a2686d73675f7479706500686d73675f7479706501"},
		{name: "break code", cborHex: "ff"},
		{name: "reserved additional info", cborHex: "deadbeef"},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			msg, trailer, err := paywire.Decode(test.DecodeHexString(testDef.cborHex))
			assert.ErrorIs(t, err, paywire.ErrMalformedMessage)
			assert.Nil(t, msg)
			assert.Nil(t, trailer)
		})
	}
}

func FuzzDecode(f *testing.F) {
	for _, msg := range allMessages() {
		data, err := paywire.Encode(msg, []byte{0xff, 0x00})
		if err != nil {
			f.Fatal(err)
		}
		f.Add(data)
	}
	f.Add([]byte{})
	f.Add([]byte{0xa1})
	f.Fuzz(func(t *testing.T, data []byte) {
		msg, trailer, err := paywire.Decode(data)
		if err != nil {
			if !errors.Is(err, paywire.ErrMalformedMessage) {
				t.Fatalf("unexpected error type: %s", err)
			}
			return
		}
		if len(msg.Cbor())+len(trailer) != len(data) {
			t.Fatalf("decoded message and trailer do not cover input")
		}
	})
}
