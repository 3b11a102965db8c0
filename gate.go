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
	"encoding/hex"
	"errors"
	"time"

	"github.com/blinklabs-io/paygate/license"
	"github.com/blinklabs-io/paygate/protocol"
	"github.com/blinklabs-io/paygate/protocol/paywire"
	"github.com/shopspring/decimal"
)

// Choke reasons
const (
	reasonInvalidLicense        = "invalid license"
	reasonCapabilityUnsupported = "capability unsupported"
	reasonAwaitingHandshake     = "awaiting extended handshake"
	reasonAuthorized            = "authorized"
	reasonGatingDisabled        = "gating disabled"
)

// Evaluate re-runs the gate decision and returns the resulting state
func (e *Extension) Evaluate() protocol.State {
	e.lock()
	e.evaluateLocked()
	state := e.state
	e.unlock()
	return state
}

// OnRequest intercepts a chunk request from the remote peer. The decision to
// forward the request is made after the current dispatch completes. Requests
// made while choking are dropped without error
func (e *Extension) OnRequest(req Request, forward RequestFunc) {
	e.lock()
	if e.closed {
		e.unlock()
		return
	}
	if e.state == StatePassthrough {
		e.unlock()
		e.forward(req, forward)
		return
	}
	e.bindLocked()
	// A peer that keeps asking while short of funds is reminded to pay
	e.evaluateGateLocked(true)
	e.unlock()
	posted := e.scheduler.Post(func() {
		e.completeRequest(req, forward)
	})
	if !posted {
		e.logger.Debug(
			"dropping request, scheduler stopped",
			"index", req.Index,
			"offset", req.Offset,
		)
	}
}

func (e *Extension) completeRequest(req Request, forward RequestFunc) {
	e.lock()
	if e.closed {
		e.unlock()
		return
	}
	switch e.state {
	case StatePassthrough:
		e.unlock()
		e.forward(req, forward)
		return
	case StateServing:
		balance := e.config.Ledger.ChargeRequest(e.account, e.config.Price)
		e.logger.Debug(
			"charged for request",
			"index", req.Index,
			"offset", req.Offset,
			"length", req.Length,
			"balance", balance.String(),
		)
		// The next request must see the reduced balance
		e.evaluateLocked()
		e.unlock()
		e.forward(req, forward)
	default:
		e.unlock()
		e.logger.Debug(
			"dropping request while choking",
			"index", req.Index,
			"offset", req.Offset,
		)
	}
}

func (e *Extension) forward(req Request, forward RequestFunc) {
	if err := forward(req); err != nil {
		e.logger.Warn(
			"failed to forward request",
			"index", req.Index,
			"offset", req.Offset,
			"error", err,
		)
	}
}

func (e *Extension) handleCredit(amount decimal.Decimal) {
	e.lock()
	if e.closed {
		e.unlock()
		return
	}
	if e.config.CreditFunc != nil {
		cb := e.config.CreditFunc
		e.queueEffect(func() { cb(e.callbackContext, amount) })
	}
	e.evaluateLocked()
	e.unlock()
}

func (e *Extension) evaluateLocked() {
	e.evaluateGateLocked(false)
}

// evaluateGateLocked runs the gate decision. With repeatNotice set, an
// unchanged low balance notice is sent again once NoticeInterval has passed
func (e *Extension) evaluateGateLocked(repeatNotice bool) {
	if e.closed || e.state == StatePassthrough {
		return
	}
	if e.unsupported {
		e.enterChokingLocked(reasonCapabilityUnsupported)
		return
	}
	// Nothing is served before the peer's capabilities are known
	if !e.session.RemoteSupported {
		e.enterChokingLocked(reasonAwaitingHandshake)
		return
	}
	if e.config.RequireLicense {
		if err := license.Validate(e.session.PeerLicense, e.session.ContentHash); err != nil {
			e.enterChokingLocked(reasonInvalidLicense)
			e.licenseNoticeLocked(err)
			return
		}
	}
	balance := e.account.Balance()
	if balance.LessThan(e.config.Price) {
		e.enterChokingLocked(ErrInsufficientBalance.Error())
		e.lowBalanceNoticeLocked(balance, repeatNotice)
		return
	}
	e.enterServingLocked()
}

func (e *Extension) setStateLocked(newState protocol.State, reason string) {
	if e.state == newState {
		return
	}
	oldState := e.state
	if _, err := StateMap.Transition(oldState, newState); err != nil {
		e.logger.Error("refusing gate state change", "error", err)
		return
	}
	e.state = newState
	e.logger.Debug(
		"gate state changed",
		"from", oldState.String(),
		"to", newState.String(),
		"reason", reason,
	)
	if e.config.StateChangeFunc != nil {
		cb := e.config.StateChangeFunc
		e.queueEffect(func() { cb(e.callbackContext, oldState, newState) })
	}
}

func (e *Extension) enterChokingLocked(reason string) {
	if e.state == StateChoking && e.intercepting {
		return
	}
	e.session.AmForceChoking = true
	e.wire.Choke()
	e.interceptUnchokeLocked()
	e.setStateLocked(StateChoking, reason)
}

func (e *Extension) enterServingLocked() {
	if e.state == StateServing {
		return
	}
	e.restoreUnchokeLocked()
	e.session.AmForceChoking = false
	e.lastNoticeBalance = decimal.NullDecimal{}
	e.lastLicenseReason = ""
	e.wire.Unchoke()
	e.setStateLocked(StateServing, reasonAuthorized)
}

// enterPassthroughLocked stops gating for the rest of the connection
func (e *Extension) enterPassthroughLocked() {
	if e.state == StatePassthrough {
		return
	}
	wasChoking := e.session.AmForceChoking
	e.restoreUnchokeLocked()
	e.session.AmForceChoking = false
	if wasChoking {
		e.wire.Unchoke()
	}
	e.setStateLocked(StatePassthrough, reasonGatingDisabled)
}

func (e *Extension) interceptUnchokeLocked() {
	if e.intercepting {
		return
	}
	e.savedUnchoke = e.wire.SetUnchokeFunc(e.interceptedUnchoke)
	e.intercepting = true
}

func (e *Extension) restoreUnchokeLocked() {
	if !e.intercepting {
		return
	}
	e.wire.SetUnchokeFunc(e.savedUnchoke)
	e.savedUnchoke = nil
	e.intercepting = false
	e.unchokeRequested.Store(false)
}

// interceptedUnchoke replaces the wire's unchoke function while the peer is
// choked. It takes no locks, since the wire may call it at any time
func (e *Extension) interceptedUnchoke() {
	if !e.unchokeRequested.Swap(true) {
		e.logger.Debug("intercepted unchoke while choking")
	}
}

// licenseNoticeLocked tells the peer why its license was rejected, once per
// distinct reason
func (e *Extension) licenseNoticeLocked(err error) {
	reason := licenseFailure(err)
	if reason == e.lastLicenseReason {
		return
	}
	e.lastLicenseReason = reason
	e.logger.Debug("peer license rejected", "reason", reason)
	e.sendLocked(paywire.NewMsgLicenseRequired(reason))
}

// licenseFailure returns the precondition that failed validation
func licenseFailure(err error) string {
	for _, target := range []error{
		license.ErrLicenseMissing,
		license.ErrContentHashMissing,
		license.ErrContentHashMismatch,
		license.ErrSignatureMissing,
		license.ErrExpiryMissing,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}

// lowBalanceNoticeLocked asks the peer to top up. The requested amount covers
// the shortfall and the configured number of chunks in advance, capped at the
// most the peer said it is willing to pay. A notice for an unchanged balance
// is only repeated on request, at most once per NoticeInterval
func (e *Extension) lowBalanceNoticeLocked(balance decimal.Decimal, repeat bool) {
	if e.lastNoticeBalance.Valid && e.lastNoticeBalance.Decimal.Equal(balance) {
		if !repeat || time.Since(e.lastNoticeTime) < e.config.NoticeInterval {
			return
		}
	}
	e.lastNoticeBalance = decimal.NewNullDecimal(balance)
	e.lastNoticeTime = time.Now()
	shortfall := e.config.Price.Sub(balance)
	amount := decimal.Max(
		shortfall,
		e.config.Price.Mul(decimal.NewFromInt(e.config.PrepayChunks)),
	)
	if e.peerMaxPayment.Valid && amount.GreaterThan(e.peerMaxPayment.Decimal) {
		amount = decimal.Max(e.peerMaxPayment.Decimal, shortfall)
	}
	e.logger.Debug(
		"requesting payment",
		"balance", balance.String(),
		"amount", amount.String(),
	)
	e.sendLocked(paywire.NewMsgLowBalance(balance, amount))
}

// licenseDigest returns the hex digest of a license for logging
func licenseDigest(lic license.License) string {
	digest, err := lic.Digest()
	if err != nil {
		return ""
	}
	return hex.EncodeToString(digest)
}
