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

// Package payment defines the settlement client consumed by the balance
// ledger and the paying side of a session, and provides an in-process
// loopback network implementing it
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNotReady       = errors.New("payment client is not ready")
	ErrUnknownAccount = errors.New("unknown destination account")
	ErrInvalidAmount  = errors.New("payment amount must be positive")
	ErrClientClosed   = errors.New("payment client is closed")
)

// Notification reports a settled transfer to the receiving account
type Notification struct {
	// TransferId uniquely identifies the settled transfer
	TransferId         string
	Amount             decimal.Decimal
	DestinationAccount string
	// Memo is either a structured value or a string/[]byte encoding of one
	Memo any
}

// Client is a settlement client bound to a single local account
type Client interface {
	// Account returns the local account identifier
	Account() string
	// Ready returns whether the client can send payments
	Ready() bool
	// SendPayment transfers destinationAmount to destinationAccount with the provided memo
	SendPayment(
		ctx context.Context,
		destinationAccount string,
		destinationAmount decimal.Decimal,
		memo any,
	) error
	// Incoming returns the channel of notifications for transfers received by the local account
	Incoming() <-chan Notification
}
