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

// Package paygate gates the data served to a remote peer on payment. An
// Extension attaches to a single peer connection, exchanges payment details
// in the extended handshake and chokes the peer until its balance covers the
// next chunk
package paygate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/paygate/balance"
	"github.com/blinklabs-io/paygate/eventloop"
	"github.com/blinklabs-io/paygate/protocol"
	"github.com/blinklabs-io/paygate/protocol/paywire"
	"github.com/jinzhu/copier"
	"github.com/shopspring/decimal"
)

// Gate states
var (
	StateChoking     = protocol.NewState(1, "Choking")
	StateServing     = protocol.NewState(2, "Serving")
	StatePassthrough = protocol.NewState(3, "Passthrough")
)

// StateMap is the request gate state machine
var StateMap = protocol.StateMap{
	StateChoking: protocol.StateMapEntry{
		Transitions: []protocol.StateTransition{
			{
				NewState: StateServing,
				Reason:   "authorized",
			},
			{
				NewState: StatePassthrough,
				Reason:   "gating disabled",
			},
		},
	},
	StateServing: protocol.StateMapEntry{
		Transitions: []protocol.StateTransition{
			{
				NewState: StateChoking,
				Reason:   "unauthorized",
			},
			{
				NewState: StatePassthrough,
				Reason:   "gating disabled",
			},
		},
	},
	StatePassthrough: protocol.StateMapEntry{
		Terminal: true,
	},
}

// peerSession holds what is known about the remote peer. It only contains
// fields that copier can deep copy
type peerSession struct {
	PeerAccount     string
	PeerPublicKey   string
	PeerLicense     map[string]string
	PeerId          []byte
	ContentHash     []byte
	Token           string
	RemoteSupported bool
	AmForceChoking  bool
}

// SessionSnapshot is a point in time copy of a session
type SessionSnapshot struct {
	PeerAccount string
	// PeerPrice is empty until the peer advertises a price
	PeerPrice       string
	PeerPublicKey   string
	PeerLicense     map[string]string
	PeerBalance     decimal.Decimal
	PeerId          []byte
	ContentHash     []byte
	Token           string
	RemoteSupported bool
	AmForceChoking  bool
	// UnchokeRequested records an unchoke that was intercepted while choking
	UnchokeRequested bool
	State            protocol.State
}

// Extension is the payment extension for a single peer connection
type Extension struct {
	config          *Config
	wire            Wire
	logger          *slog.Logger
	callbackContext CallbackContext
	scheduler       Scheduler
	ownedLoop       *eventloop.Loop
	account         *balance.Account
	ctx             context.Context
	cancel          context.CancelFunc
	waitGroup       sync.WaitGroup
	doneChan        chan struct{}

	mutex   sync.Mutex
	effects []func()
	closed  bool
	session peerSession
	// peerPrice is kept out of peerSession since copier cannot copy decimals
	peerPrice decimal.NullDecimal
	state     protocol.State
	// unsupported is set when a fail-closed peer lacks payment support
	unsupported      bool
	bindRejected     bool
	intercepting     bool
	savedUnchoke     UnchokeFunc
	unchokeRequested atomic.Bool
	// Notice bookkeeping for the seeder
	lastNoticeBalance decimal.NullDecimal
	lastNoticeTime    time.Time
	lastLicenseReason string
	peerMaxPayment    decimal.NullDecimal
	// Payment bookkeeping for the leecher
	paymentInFlight bool
	pendingPayment  decimal.NullDecimal
}

// New attaches a payment extension to the wire. The local capabilities are
// written to the wire's extended handshake, and in seeder mode the peer is
// choked until it has paid
func New(wire Wire, cfg *Config) (*Extension, error) {
	if cfg == nil {
		tmpCfg := NewConfig()
		cfg = &tmpCfg
	}
	switch cfg.Mode {
	case ModeSeeder:
		if cfg.Ledger == nil {
			return nil, ErrNoLedger
		}
		if cfg.Price.IsNegative() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPrice, cfg.Price.String())
		}
	case ModeLeecher:
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, cfg.Mode)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	e := &Extension{
		config: cfg,
		wire:   wire,
		logger: cfg.Logger.With(
			"component", "paygate",
			"protocol", paywire.ProtocolName,
			"connection_id", cfg.ConnectionId.String(),
		),
		scheduler: cfg.Scheduler,
		doneChan:  make(chan struct{}),
	}
	e.callbackContext = CallbackContext{
		ConnectionId: cfg.ConnectionId,
		Extension:    e,
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	if e.scheduler == nil {
		e.ownedLoop = eventloop.New(
			eventloop.NewConfig(eventloop.WithLogger(cfg.Logger)),
		)
		e.ownedLoop.Start()
		e.scheduler = e.ownedLoop
	}
	e.writeHandshake()
	e.lock()
	if cfg.Mode == ModeSeeder {
		e.account = cfg.Ledger.Open(cfg.InitialBalance, e.handleCredit)
		// Sessions start choked until the first evaluation authorizes them
		e.state = StateChoking
		e.enterChokingLocked("session created")
	} else {
		e.state = StatePassthrough
	}
	e.unlock()
	e.logger.Debug(
		"payment extension attached",
		"mode", cfg.Mode.String(),
		"price", cfg.Price.String(),
	)
	return e, nil
}

func (e *Extension) writeHandshake() {
	hs := e.wire.ExtendedHandshake()
	if hs == nil {
		return
	}
	caps := paywire.Capabilities{
		Account: e.config.Account,
		License: e.config.License,
		Token:   e.config.Token,
	}
	if e.config.Mode == ModeSeeder {
		caps.Price = decimal.NewNullDecimal(e.config.Price)
	}
	if len(e.config.PublicKey) > 0 {
		caps.PublicKey = e.config.PublicKey.String()
	}
	paywire.WriteHandshake(hs, caps)
}

// Close detaches the extension. The unchoke function is restored, the
// peer's ledger account is released and outstanding payments are cancelled.
// Close may be called from a forward function or a callback, so it does not
// wait for the extension's goroutines; use Done for that
func (e *Extension) Close() error {
	e.lock()
	if e.closed {
		e.unlock()
		return nil
	}
	e.closed = true
	e.restoreUnchokeLocked()
	if e.account != nil {
		e.account.Close()
	}
	e.cancel()
	if e.ownedLoop != nil {
		e.ownedLoop.Shutdown()
	}
	e.unlock()
	go e.waitShutdown()
	e.logger.Debug("payment extension closed")
	return nil
}

func (e *Extension) waitShutdown() {
	e.waitGroup.Wait()
	if e.ownedLoop != nil {
		<-e.ownedLoop.Done()
	}
	close(e.doneChan)
}

// Done returns a channel that is closed once the extension has been closed
// and its payment goroutines and owned event loop have exited
func (e *Extension) Done() <-chan struct{} {
	return e.doneChan
}

// Mode returns the configured mode
func (e *Extension) Mode() Mode {
	return e.config.Mode
}

// ConnectionId returns the ID of the connection the extension is attached to
func (e *Extension) ConnectionId() string {
	return e.config.ConnectionId.String()
}

// State returns the current gate state
func (e *Extension) State() protocol.State {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.state
}

// Balance returns the peer's balance with the local account. It is always
// zero in leecher mode
func (e *Extension) Balance() decimal.Decimal {
	if e.account == nil {
		return decimal.Zero
	}
	return e.account.Balance()
}

// Snapshot returns a copy of the session state
func (e *Extension) Snapshot() (SessionSnapshot, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	var ret SessionSnapshot
	if err := copier.CopyWithOption(&ret, &e.session, copier.Option{DeepCopy: true}); err != nil {
		return SessionSnapshot{}, fmt.Errorf("copy session: %w", err)
	}
	if e.peerPrice.Valid {
		ret.PeerPrice = e.peerPrice.Decimal.String()
	}
	ret.PeerBalance = e.Balance()
	ret.UnchokeRequested = e.unchokeRequested.Load()
	ret.State = e.state
	return ret, nil
}

// lock acquires the session lock. Work queued with queueEffect runs after
// the matching unlock
func (e *Extension) lock() {
	e.mutex.Lock()
}

func (e *Extension) unlock() {
	effects := e.effects
	e.effects = nil
	e.mutex.Unlock()
	for _, effect := range effects {
		effect()
	}
}

func (e *Extension) queueEffect(effect func()) {
	e.effects = append(e.effects, effect)
}

func (e *Extension) warnLocked(err error) {
	e.logger.Warn(err.Error())
	if e.config.WarningFunc != nil {
		cb := e.config.WarningFunc
		e.queueEffect(func() { cb(e.callbackContext, err) })
	}
}

func (e *Extension) sendLocked(msg protocol.Message) {
	data, err := paywire.Encode(msg, nil)
	if err != nil {
		e.logger.Error("failed to encode message", "error", err)
		return
	}
	msgType := msg.Type()
	e.queueEffect(func() {
		if err := e.wire.SendExtended(paywire.ProtocolName, data); err != nil {
			e.logger.Warn(
				"failed to send message",
				"msg_type", msgType,
				"error", err,
			)
		}
	})
}
