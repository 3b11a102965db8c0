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

// Package balance implements the ledger of credit that remote peers hold with
// the local account. Credits come from settlement notifications, which are
// deduplicated by transfer ID and bound to a single session by their memo
package balance

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/paygate/identity"
	"github.com/blinklabs-io/paygate/payment"
	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateTransfer = errors.New("duplicate transfer")
	ErrMissingTransferId = errors.New("missing transfer ID")
	ErrNotAddressed      = errors.New("payment not addressed to local account")
	ErrInvalidAmount     = errors.New("payment amount must be positive")
	ErrUnboundPayment    = errors.New("payment does not match a bound session")
	ErrAccountBound      = errors.New("an account is already bound to this public key and content")
	ErrAccountClosed     = errors.New("account is closed")
	ErrNoLocalAccount    = errors.New("no local account specified")
)

// Result describes what a payment notification did to the ledger
type Result int

const (
	ResultCredited Result = iota
	ResultDuplicate
	ResultNotAddressed
	ResultInvalid
	ResultMalformedMemo
	ResultUnbound
)

func (r Result) String() string {
	switch r {
	case ResultCredited:
		return "Credited"
	case ResultDuplicate:
		return "Duplicate"
	case ResultNotAddressed:
		return "NotAddressed"
	case ResultInvalid:
		return "Invalid"
	case ResultMalformedMemo:
		return "MalformedMemo"
	case ResultUnbound:
		return "Unbound"
	default:
		return "Unknown"
	}
}

// CreditFunc is called after an account has been credited, with the credited
// amount. It is called without any ledger locks held
type CreditFunc func(decimal.Decimal)

// Config is used to configure a Ledger
type Config struct {
	// LocalAccount is the settlement account payments must be addressed to
	LocalAccount string
	Transfers    *TransferSet
	Logger       *slog.Logger
}

// LedgerOptionFunc represents a function used to modify the Ledger config
type LedgerOptionFunc func(*Config)

// NewConfig returns a new Ledger config object with the provided options
func NewConfig(options ...LedgerOptionFunc) Config {
	c := Config{
		Logger: slog.Default(),
	}
	for _, option := range options {
		option(&c)
	}
	return c
}

// WithLocalAccount specifies the local settlement account
func WithLocalAccount(account string) LedgerOptionFunc {
	return func(c *Config) {
		c.LocalAccount = account
	}
}

// WithTransferSet specifies the set used to deduplicate transfer IDs. It can
// be shared between ledgers for the same local account
func WithTransferSet(transfers *TransferSet) LedgerOptionFunc {
	return func(c *Config) {
		c.Transfers = transfers
	}
}

// WithLogger specifies the logger
func WithLogger(logger *slog.Logger) LedgerOptionFunc {
	return func(c *Config) {
		c.Logger = logger
	}
}

type binding struct {
	publicKey   string
	contentHash string
}

// Ledger tracks the balance of each session bound to the local account
type Ledger struct {
	config   Config
	mutex    sync.Mutex
	accounts map[*Account]struct{}
	bindings map[binding]*Account
}

// New returns a Ledger for the configured local account. A TransferSet with
// the default capacity is created if none is configured
func New(cfg Config) (*Ledger, error) {
	if cfg.LocalAccount == "" {
		return nil, ErrNoLocalAccount
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Transfers == nil {
		transfers, err := NewTransferSet(DefaultTransferSetCapacity)
		if err != nil {
			return nil, err
		}
		cfg.Transfers = transfers
	}
	l := &Ledger{
		config:   cfg,
		accounts: make(map[*Account]struct{}),
		bindings: make(map[binding]*Account),
	}
	return l, nil
}

func (l *Ledger) LocalAccount() string {
	return l.config.LocalAccount
}

func (l *Ledger) Transfers() *TransferSet {
	return l.config.Transfers
}

// Account is the ledger entry for a single session
type Account struct {
	ledger   *Ledger
	onCredit CreditFunc
	balance  decimal.Decimal
	binding  *binding
	closed   bool
}

// Open creates an unbound account with the provided starting balance. The
// account cannot receive payments until it is bound
func (l *Ledger) Open(initialBalance decimal.Decimal, onCredit CreditFunc) *Account {
	a := &Account{
		ledger:   l,
		onCredit: onCredit,
		balance:  initialBalance,
	}
	l.mutex.Lock()
	l.accounts[a] = struct{}{}
	l.mutex.Unlock()
	return a
}

// Bind associates the account with the paying peer's public key and the
// content hash. Payments whose memo names the same pair are credited to this
// account. Rebinding to the same pair is a no-op. A pair is bound to at most
// one open account: a peer that reconnects before its previous session's
// account is closed gets ErrAccountBound until that account is closed, and
// payments naming the pair are credited to the older account meanwhile
func (a *Account) Bind(publicKey identity.PublicKey, contentHash []byte) error {
	if len(publicKey) == 0 || len(contentHash) == 0 {
		return errors.New("public key and content hash are required")
	}
	b := binding{
		publicKey:   publicKey.String(),
		contentHash: hex.EncodeToString(contentHash),
	}
	l := a.ledger
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if a.closed {
		return ErrAccountClosed
	}
	if a.binding != nil {
		if *a.binding == b {
			return nil
		}
		return fmt.Errorf("%w: account is bound to %s", ErrAccountBound, a.binding.publicKey)
	}
	if _, ok := l.bindings[b]; ok {
		return fmt.Errorf("%w: %s", ErrAccountBound, b.publicKey)
	}
	a.binding = &b
	l.bindings[b] = a
	return nil
}

// Bound returns whether the account has been bound
func (a *Account) Bound() bool {
	a.ledger.mutex.Lock()
	defer a.ledger.mutex.Unlock()
	return a.binding != nil
}

// Balance returns the current balance of the account
func (a *Account) Balance() decimal.Decimal {
	a.ledger.mutex.Lock()
	defer a.ledger.mutex.Unlock()
	return a.balance
}

// Close removes the account from the ledger. Later payments naming its
// binding are treated as unbound
func (a *Account) Close() {
	l := a.ledger
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	delete(l.accounts, a)
	if a.binding != nil {
		delete(l.bindings, *a.binding)
	}
}

// ChargeRequest debits the account for a served request and returns the new
// balance. The caller is responsible for only charging when serving was
// authorized
func (l *Ledger) ChargeRequest(account *Account, amount decimal.Decimal) decimal.Decimal {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	account.balance = account.balance.Sub(amount)
	if account.balance.IsNegative() {
		l.config.Logger.Error(
			"account balance went negative after charge",
			"component", "balance",
			"balance", account.balance.String(),
			"amount", amount.String(),
		)
	}
	return account.balance
}

// GetBalance returns the combined balance of all accounts bound to the public key
func (l *Ledger) GetBalance(publicKey identity.PublicKey) decimal.Decimal {
	key := publicKey.String()
	l.mutex.Lock()
	defer l.mutex.Unlock()
	ret := decimal.Zero
	for b, account := range l.bindings {
		if b.publicKey == key {
			ret = ret.Add(account.balance)
		}
	}
	return ret
}

// RecordPaymentNotification credits the account bound by the notification's
// memo. Only ResultCredited changes any balance. The returned error describes
// why a notification was ignored
func (l *Ledger) RecordPaymentNotification(n payment.Notification) (Result, error) {
	logger := l.config.Logger.With(
		"component", "balance",
		"transfer_id", n.TransferId,
	)
	if n.TransferId == "" {
		logger.Warn("ignoring payment without transfer ID")
		return ResultInvalid, ErrMissingTransferId
	}
	if !l.config.Transfers.Insert(n.TransferId) {
		logger.Debug("ignoring duplicate payment notification")
		return ResultDuplicate, ErrDuplicateTransfer
	}
	if n.DestinationAccount != l.config.LocalAccount {
		logger.Debug(
			"ignoring payment for another account",
			"destination", n.DestinationAccount,
		)
		return ResultNotAddressed, fmt.Errorf("%w: %s", ErrNotAddressed, n.DestinationAccount)
	}
	if !n.Amount.IsPositive() {
		logger.Warn("ignoring payment with invalid amount", "amount", n.Amount.String())
		return ResultInvalid, fmt.Errorf("%w: %s", ErrInvalidAmount, n.Amount.String())
	}
	memo, err := ParseMemo(n.Memo)
	if err != nil {
		logger.Warn("ignoring payment with malformed memo", "error", err)
		return ResultMalformedMemo, err
	}
	l.mutex.Lock()
	account, ok := l.bindings[binding{publicKey: memo.PublicKey, contentHash: memo.ContentHash}]
	if !ok {
		l.mutex.Unlock()
		logger.Warn(
			"ignoring payment not bound to a session",
			"public_key", memo.PublicKey,
			"content_hash", memo.ContentHash,
		)
		return ResultUnbound, fmt.Errorf("%w: %s", ErrUnboundPayment, memo.PublicKey)
	}
	account.balance = account.balance.Add(n.Amount)
	newBalance := account.balance
	onCredit := account.onCredit
	l.mutex.Unlock()
	logger.Debug(
		"credited payment",
		"public_key", memo.PublicKey,
		"amount", n.Amount.String(),
		"balance", newBalance.String(),
	)
	if onCredit != nil {
		onCredit(n.Amount)
	}
	return ResultCredited, nil
}

// Run records every notification received by the payment client until the
// context is cancelled or the client's incoming channel is closed
func (l *Ledger) Run(ctx context.Context, client payment.Client) error {
	if client.Account() != l.config.LocalAccount {
		return fmt.Errorf(
			"payment client account %q does not match local account %q",
			client.Account(),
			l.config.LocalAccount,
		)
	}
	incoming := client.Incoming()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-incoming:
			if !ok {
				return nil
			}
			// Errors are logged by RecordPaymentNotification
			_, _ = l.RecordPaymentNotification(n)
		}
	}
}
