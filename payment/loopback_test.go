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

package payment_test

import (
	"context"
	"testing"

	"github.com/blinklabs-io/paygate/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMemo struct {
	PublicKey string `json:"public_key"`
}

func TestLoopbackSendPayment(t *testing.T) {
	network := payment.NewNetwork()
	alice, err := network.NewClient("alice")
	require.NoError(t, err)
	defer alice.Close()
	bob, err := network.NewClient("bob")
	require.NoError(t, err)
	defer bob.Close()

	amount := decimal.RequireFromString("0.0005")
	memo := testMemo{PublicKey: "abc"}
	require.NoError(t, alice.SendPayment(context.Background(), "bob", amount, memo))

	notification := <-bob.Incoming()
	assert.NotEmpty(t, notification.TransferId)
	assert.True(t, amount.Equal(notification.Amount))
	assert.Equal(t, "bob", notification.DestinationAccount)
	assert.Equal(t, memo, notification.Memo)

	sent := alice.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notification.TransferId, sent[0].TransferId)
}

func TestLoopbackStringMemos(t *testing.T) {
	network := payment.NewNetwork()
	alice, err := network.NewClient("alice")
	require.NoError(t, err)
	defer alice.Close()
	bob, err := network.NewClient("bob", payment.WithStringMemos(true))
	require.NoError(t, err)
	defer bob.Close()

	amount := decimal.NewFromInt(1)
	require.NoError(
		t,
		alice.SendPayment(context.Background(), "bob", amount, testMemo{PublicKey: "abc"}),
	)
	notification := <-bob.Incoming()
	assert.Equal(t, `{"public_key":"abc"}`, notification.Memo)
}

func TestLoopbackErrors(t *testing.T) {
	network := payment.NewNetwork()
	alice, err := network.NewClient("alice", payment.WithNotReady())
	require.NoError(t, err)
	defer alice.Close()
	_, err = network.NewClient("alice")
	assert.Error(t, err)

	ctx := context.Background()
	one := decimal.NewFromInt(1)
	assert.ErrorIs(t, alice.SendPayment(ctx, "bob", one, nil), payment.ErrNotReady)
	alice.SetReady(true)
	assert.ErrorIs(t, alice.SendPayment(ctx, "bob", one, nil), payment.ErrUnknownAccount)
	assert.ErrorIs(
		t,
		alice.SendPayment(ctx, "alice", decimal.Zero, nil),
		payment.ErrInvalidAmount,
	)
}

func TestLoopbackClose(t *testing.T) {
	network := payment.NewNetwork()
	bob, err := network.NewClient("bob")
	require.NoError(t, err)
	require.NoError(t, bob.Close())
	require.NoError(t, bob.Close())
	assert.False(t, bob.Ready())
	_, ok := <-bob.Incoming()
	assert.False(t, ok)
	err = bob.Deliver(context.Background(), payment.Notification{TransferId: "T1"})
	assert.ErrorIs(t, err, payment.ErrClientClosed)
	// The account name is free again once closed
	_, err = network.NewClient("bob")
	assert.NoError(t, err)
}
