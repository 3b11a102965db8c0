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
	"fmt"

	"github.com/blinklabs-io/paygate/balance"
	"github.com/blinklabs-io/paygate/protocol/paywire"
	"github.com/shopspring/decimal"
)

// OnMessage handles an extension message from the remote peer. Messages that
// fail to decode are dropped
func (e *Extension) OnMessage(payload []byte) {
	msg, trailer, err := paywire.Decode(payload)
	if err != nil {
		e.logger.Debug("dropping malformed message", "error", err)
		return
	}
	e.lock()
	defer e.unlock()
	if e.closed {
		return
	}
	e.logger.Debug("received message", "msg_type", msg.Type())
	if e.config.MessageFunc != nil {
		cb := e.config.MessageFunc
		e.queueEffect(func() { cb(e.callbackContext, msg, trailer) })
	}
	switch m := msg.(type) {
	case *paywire.MsgRequestAccountDetails:
		e.handleRequestAccountDetailsLocked()
	case *paywire.MsgAccountDetails:
		e.handleAccountDetailsLocked(m)
	case *paywire.MsgLowBalance:
		e.handlePaymentRequestLocked(m.RequestedAmount())
	case *paywire.MsgPaymentRequest:
		e.handlePaymentRequestLocked(m.RequestedAmount())
	case *paywire.MsgPaymentRequestTooHigh:
		e.handlePaymentRequestTooHighLocked(m)
	case *paywire.MsgLicenseRequired:
		e.warnLocked(
			fmt.Errorf("%s: %w: %s", paywire.ProtocolName, ErrLicenseRequired, m.Reason),
		)
	}
}

func (e *Extension) handleRequestAccountDetailsLocked() {
	if e.config.Mode != ModeSeeder || e.config.Account == "" {
		return
	}
	e.sendLocked(paywire.NewMsgAccountDetails(e.config.Account, e.config.Price))
}

func (e *Extension) handleAccountDetailsLocked(msg *paywire.MsgAccountDetails) {
	e.session.PeerAccount = msg.Account
	e.peerPrice = decimal.NewNullDecimal(msg.PriceAmount())
	e.accountDetailsLocked()
	if e.pendingPayment.Valid {
		amount := e.pendingPayment.Decimal
		e.pendingPayment = decimal.NullDecimal{}
		e.payLocked(amount)
	}
}

func (e *Extension) handlePaymentRequestLocked(amount decimal.Decimal) {
	if e.config.Mode != ModeLeecher {
		e.logger.Debug("ignoring payment request in seeder mode")
		return
	}
	e.payLocked(amount)
}

func (e *Extension) handlePaymentRequestTooHighLocked(msg *paywire.MsgPaymentRequestTooHigh) {
	if e.config.Mode != ModeSeeder {
		return
	}
	e.peerMaxPayment = decimal.NewNullDecimal(msg.SuggestedAmount())
	// Ask again with an amount the peer accepts
	e.lastNoticeBalance = decimal.NullDecimal{}
	e.evaluateLocked()
}

// payLocked sends a payment to the remote peer, bound to the local public key
// and the content hash. Only one payment is in flight at a time
func (e *Extension) payLocked(amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	client := e.config.PaymentClient
	if client == nil {
		e.logger.Debug("no payment client, ignoring payment request")
		return
	}
	if e.session.PeerAccount == "" {
		e.pendingPayment = decimal.NewNullDecimal(amount)
		e.sendLocked(paywire.NewMsgRequestAccountDetails())
		return
	}
	if e.config.MaxPayment.IsPositive() && amount.GreaterThan(e.config.MaxPayment) {
		e.logger.Debug(
			"payment request too high",
			"amount", amount.String(),
			"max_payment", e.config.MaxPayment.String(),
		)
		e.sendLocked(paywire.NewMsgPaymentRequestTooHigh(e.config.MaxPayment))
		return
	}
	if len(e.config.PublicKey) == 0 || e.session.ContentHash == nil {
		e.logger.Warn("cannot bind payment without a public key and content hash")
		return
	}
	if e.paymentInFlight {
		return
	}
	e.paymentInFlight = true
	destination := e.session.PeerAccount
	memo := balance.NewMemo(e.config.PublicKey, e.session.ContentHash)
	e.waitGroup.Add(1)
	go func() {
		defer e.waitGroup.Done()
		err := client.SendPayment(e.ctx, destination, amount, memo)
		e.lock()
		defer e.unlock()
		e.paymentInFlight = false
		if err != nil {
			e.logger.Warn(
				"payment failed",
				"destination", destination,
				"amount", amount.String(),
				"error", err,
			)
		} else {
			e.logger.Debug(
				"payment sent",
				"destination", destination,
				"amount", amount.String(),
			)
		}
		if e.config.PaymentSentFunc != nil {
			cb := e.config.PaymentSentFunc
			e.queueEffect(func() { cb(e.callbackContext, destination, amount, err) })
		}
	}()
}
