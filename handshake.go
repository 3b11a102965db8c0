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
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/blinklabs-io/paygate/identity"
	"github.com/blinklabs-io/paygate/license"
	"github.com/blinklabs-io/paygate/protocol/paywire"
	"github.com/shopspring/decimal"
)

// OnHandshake handles the raw handshake. The content hash is set by the first
// handshake and cannot change afterward
func (e *Extension) OnHandshake(contentHash []byte, peerId []byte) {
	e.lock()
	defer e.unlock()
	if e.closed {
		return
	}
	if len(peerId) > 0 {
		e.session.PeerId = bytes.Clone(peerId)
	}
	if len(contentHash) == 0 {
		return
	}
	if e.session.ContentHash == nil {
		e.session.ContentHash = bytes.Clone(contentHash)
		e.logger.Debug(
			"received handshake",
			"content_hash", hex.EncodeToString(contentHash),
		)
	} else if !bytes.Equal(e.session.ContentHash, contentHash) {
		e.warnLocked(
			fmt.Errorf(
				"%s: %w: got %x",
				paywire.ProtocolName,
				ErrContentHashChanged,
				contentHash,
			),
		)
		return
	}
	e.bindLocked()
	e.evaluateLocked()
}

// OnExtendedHandshake handles the remote peer's extended handshake
func (e *Extension) OnExtendedHandshake(hs map[string]any) {
	e.lock()
	defer e.unlock()
	if e.closed {
		return
	}
	if !paywire.Supported(hs) {
		e.warnLocked(
			fmt.Errorf("%s: %w", paywire.ProtocolName, ErrCapabilityUnsupported),
		)
		if e.config.Mode != ModeSeeder {
			return
		}
		if e.config.UnsupportedPolicy == FailOpen {
			e.enterPassthroughLocked()
		} else {
			e.unsupported = true
			e.enterChokingLocked(reasonCapabilityUnsupported)
		}
		return
	}
	e.session.RemoteSupported = true
	caps, err := paywire.ReadHandshake(hs)
	if err != nil {
		// Fields that parsed are still used
		e.logger.Warn("ignoring invalid handshake fields", "error", err)
	}
	if caps.Account != "" {
		e.session.PeerAccount = caps.Account
	}
	if caps.Price.Valid {
		e.peerPrice = caps.Price
	}
	if caps.PublicKey != "" {
		if pubKey, err := identity.ParsePublicKey(caps.PublicKey); err != nil {
			e.logger.Warn("ignoring invalid peer public key", "error", err)
		} else {
			e.session.PeerPublicKey = pubKey.String()
			e.logger.Debug(
				"peer identity",
				"public_key", pubKey.String(),
				"key_hash", hex.EncodeToString(pubKey.Hash()),
			)
		}
	}
	if caps.License != nil {
		e.session.PeerLicense = caps.License
		if license.IsValid(caps.License, e.session.ContentHash) {
			e.logger.Debug(
				"peer presented valid license",
				"digest", licenseDigest(caps.License),
			)
		}
	}
	if caps.Token != "" {
		e.session.Token = caps.Token
		if e.config.TokenFunc != nil {
			cb := e.config.TokenFunc
			token := caps.Token
			e.queueEffect(func() { cb(e.callbackContext, token) })
		}
	}
	if caps.Account != "" || caps.Price.Valid {
		e.accountDetailsLocked()
	}
	e.bindLocked()
	e.evaluateLocked()
	if e.config.Mode == ModeLeecher && e.peerPrice.Valid && e.peerPrice.Decimal.IsPositive() {
		e.payLocked(e.peerPrice.Decimal.Mul(decimal.NewFromInt(e.config.PrepayChunks)))
	}
}

func (e *Extension) accountDetailsLocked() {
	if e.config.AccountDetailsFunc == nil {
		return
	}
	cb := e.config.AccountDetailsFunc
	account := e.session.PeerAccount
	price := e.peerPrice
	e.queueEffect(func() { cb(e.callbackContext, account, price) })
}

// bindLocked binds the peer's ledger account once both its public key and
// the content hash are known. A rejected binding is warned about once and
// retried by later requests, since the session holding it may since have
// closed
func (e *Extension) bindLocked() {
	if e.account == nil || e.session.PeerPublicKey == "" || e.session.ContentHash == nil {
		return
	}
	if e.account.Bound() {
		return
	}
	pubKey, err := identity.ParsePublicKey(e.session.PeerPublicKey)
	if err != nil {
		return
	}
	if err := e.account.Bind(pubKey, e.session.ContentHash); err != nil {
		if !e.bindRejected {
			e.bindRejected = true
			e.warnLocked(fmt.Errorf("%s: %w", paywire.ProtocolName, err))
		}
		return
	}
	if e.bindRejected {
		e.bindRejected = false
		e.logger.Debug("bound peer account after earlier rejection")
	}
}
