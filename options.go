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

package paygate

import (
	"log/slog"
	"time"

	"github.com/blinklabs-io/paygate/balance"
	"github.com/blinklabs-io/paygate/connection"
	"github.com/blinklabs-io/paygate/identity"
	"github.com/blinklabs-io/paygate/license"
	"github.com/blinklabs-io/paygate/payment"
	"github.com/blinklabs-io/paygate/protocol"
	"github.com/shopspring/decimal"
)

// DefaultPrepayChunks is the number of chunks a low balance notice asks the
// peer to pay for in advance
const DefaultPrepayChunks = 10

// DefaultNoticeInterval is the shortest time between repeated low balance
// notices while the peer's balance is unchanged
const DefaultNoticeInterval = 5 * time.Second

// Mode selects which side of the payment flow the local peer is on
type Mode int

const (
	ModeInvalid Mode = iota
	// ModeSeeder charges the remote peer for each chunk served
	ModeSeeder
	// ModeLeecher pays the remote peer and never gates requests
	ModeLeecher
)

func (m Mode) String() string {
	switch m {
	case ModeSeeder:
		return "seeder"
	case ModeLeecher:
		return "leecher"
	default:
		return "invalid"
	}
}

// UnsupportedPolicy decides what a seeder does with a peer that does not
// support payments
type UnsupportedPolicy int

const (
	// FailClosed keeps the peer choked for the life of the connection
	FailClosed UnsupportedPolicy = iota
	// FailOpen stops gating and serves the peer normally
	FailOpen
)

// Config is used to configure an Extension
type Config struct {
	Mode Mode
	// Account is the local settlement account advertised to the peer
	Account   string
	Price     decimal.Decimal
	PublicKey identity.PublicKey
	License   license.License
	// Token is an opaque one-shot credential advertised to the peer
	Token             string
	RequireLicense    bool
	UnsupportedPolicy UnsupportedPolicy
	PrepayChunks      int64
	// NoticeInterval limits how often a choked request repeats an unchanged
	// low balance notice. Zero repeats it on every choked request
	NoticeInterval time.Duration
	// MaxPayment is the largest single payment a leecher will send. Zero means no limit
	MaxPayment     decimal.Decimal
	InitialBalance decimal.Decimal
	Ledger         *balance.Ledger
	PaymentClient  payment.Client
	// Scheduler runs deferred request decisions. The Extension starts its own
	// event loop if none is provided
	Scheduler    Scheduler
	ConnectionId connection.ConnectionId
	Logger       *slog.Logger
	// Callbacks
	WarningFunc        WarningFunc
	StateChangeFunc    StateChangeFunc
	MessageFunc        MessageFunc
	AccountDetailsFunc AccountDetailsFunc
	TokenFunc          TokenFunc
	PaymentSentFunc    PaymentSentFunc
	CreditFunc         CreditFunc
}

// Callback function types
type (
	WarningFunc        func(CallbackContext, error)
	StateChangeFunc    func(CallbackContext, protocol.State, protocol.State)
	MessageFunc        func(CallbackContext, protocol.Message, []byte)
	AccountDetailsFunc func(CallbackContext, string, decimal.NullDecimal)
	TokenFunc          func(CallbackContext, string)
	PaymentSentFunc    func(CallbackContext, string, decimal.Decimal, error)
	CreditFunc         func(CallbackContext, decimal.Decimal)
)

// CallbackContext provides context to callback functions
type CallbackContext struct {
	ConnectionId connection.ConnectionId
	Extension    *Extension
}

// PaygateOptionFunc represents a function used to modify the Extension config
type PaygateOptionFunc func(*Config)

// NewConfig returns a new Extension config object with the provided options
func NewConfig(options ...PaygateOptionFunc) Config {
	c := Config{
		Mode:           ModeSeeder,
		PrepayChunks:   DefaultPrepayChunks,
		NoticeInterval: DefaultNoticeInterval,
		Logger:         slog.Default(),
	}
	// Apply provided options functions
	for _, option := range options {
		option(&c)
	}
	return c
}

// WithMode specifies whether the local peer is seeding or leeching
func WithMode(mode Mode) PaygateOptionFunc {
	return func(c *Config) {
		c.Mode = mode
	}
}

// WithAccount specifies the local settlement account
func WithAccount(account string) PaygateOptionFunc {
	return func(c *Config) {
		c.Account = account
	}
}

// WithPrice specifies the price charged per chunk
func WithPrice(price decimal.Decimal) PaygateOptionFunc {
	return func(c *Config) {
		c.Price = price
	}
}

// WithPublicKey specifies the local identity key advertised to the peer and
// used to bind outgoing payments
func WithPublicKey(publicKey identity.PublicKey) PaygateOptionFunc {
	return func(c *Config) {
		c.PublicKey = publicKey
	}
}

// WithLicense specifies the license advertised to the peer
func WithLicense(lic license.License) PaygateOptionFunc {
	return func(c *Config) {
		c.License = lic
	}
}

// WithToken specifies the one-shot access token advertised to the peer
func WithToken(token string) PaygateOptionFunc {
	return func(c *Config) {
		c.Token = token
	}
}

// WithRequireLicense specifies whether the peer must present a valid license to be served
func WithRequireLicense(requireLicense bool) PaygateOptionFunc {
	return func(c *Config) {
		c.RequireLicense = requireLicense
	}
}

// WithUnsupportedPolicy specifies how to treat peers without payment support
func WithUnsupportedPolicy(policy UnsupportedPolicy) PaygateOptionFunc {
	return func(c *Config) {
		c.UnsupportedPolicy = policy
	}
}

// WithPrepayChunks specifies how many chunks a low balance notice asks for
func WithPrepayChunks(prepayChunks int64) PaygateOptionFunc {
	return func(c *Config) {
		c.PrepayChunks = prepayChunks
	}
}

// WithNoticeInterval specifies how often a choked request may repeat an
// unchanged low balance notice
func WithNoticeInterval(noticeInterval time.Duration) PaygateOptionFunc {
	return func(c *Config) {
		c.NoticeInterval = noticeInterval
	}
}

// WithMaxPayment specifies the largest single payment a leecher will send
func WithMaxPayment(maxPayment decimal.Decimal) PaygateOptionFunc {
	return func(c *Config) {
		c.MaxPayment = maxPayment
	}
}

// WithInitialBalance specifies the balance carried over from a previous session
func WithInitialBalance(initialBalance decimal.Decimal) PaygateOptionFunc {
	return func(c *Config) {
		c.InitialBalance = initialBalance
	}
}

// WithLedger specifies the ledger holding the peer's balance
func WithLedger(ledger *balance.Ledger) PaygateOptionFunc {
	return func(c *Config) {
		c.Ledger = ledger
	}
}

// WithPaymentClient specifies the client used to pay the remote peer
func WithPaymentClient(client payment.Client) PaygateOptionFunc {
	return func(c *Config) {
		c.PaymentClient = client
	}
}

// WithScheduler specifies the scheduler for deferred request decisions
func WithScheduler(scheduler Scheduler) PaygateOptionFunc {
	return func(c *Config) {
		c.Scheduler = scheduler
	}
}

// WithConnectionId specifies the ID of the connection
func WithConnectionId(connId connection.ConnectionId) PaygateOptionFunc {
	return func(c *Config) {
		c.ConnectionId = connId
	}
}

// WithLogger specifies the logger
func WithLogger(logger *slog.Logger) PaygateOptionFunc {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithWarningFunc specifies a callback function for warnings
func WithWarningFunc(warningFunc WarningFunc) PaygateOptionFunc {
	return func(c *Config) {
		c.WarningFunc = warningFunc
	}
}

// WithStateChangeFunc specifies a callback function for gate state changes
func WithStateChangeFunc(stateChangeFunc StateChangeFunc) PaygateOptionFunc {
	return func(c *Config) {
		c.StateChangeFunc = stateChangeFunc
	}
}

// WithMessageFunc specifies a callback function for every decoded message
func WithMessageFunc(messageFunc MessageFunc) PaygateOptionFunc {
	return func(c *Config) {
		c.MessageFunc = messageFunc
	}
}

// WithAccountDetailsFunc specifies a callback function for when the peer's account details are learned
func WithAccountDetailsFunc(accountDetailsFunc AccountDetailsFunc) PaygateOptionFunc {
	return func(c *Config) {
		c.AccountDetailsFunc = accountDetailsFunc
	}
}

// WithTokenFunc specifies a callback function for when the peer presents a token
func WithTokenFunc(tokenFunc TokenFunc) PaygateOptionFunc {
	return func(c *Config) {
		c.TokenFunc = tokenFunc
	}
}

// WithPaymentSentFunc specifies a callback function for completed outgoing payments
func WithPaymentSentFunc(paymentSentFunc PaymentSentFunc) PaygateOptionFunc {
	return func(c *Config) {
		c.PaymentSentFunc = paymentSentFunc
	}
}

// WithCreditFunc specifies a callback function for when the peer's balance is credited
func WithCreditFunc(creditFunc CreditFunc) PaygateOptionFunc {
	return func(c *Config) {
		c.CreditFunc = creditFunc
	}
}
