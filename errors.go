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

import "errors"

var (
	// ErrCapabilityUnsupported is reported when the remote peer does not
	// advertise the payment extension
	ErrCapabilityUnsupported = errors.New("remote peer does not support payments")

	// ErrInsufficientBalance is the choke reason when the peer's balance does
	// not cover the next chunk
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrContentHashChanged is reported when a second handshake names a
	// different content hash
	ErrContentHashChanged = errors.New("content hash cannot change")

	// ErrLicenseRequired is reported when the remote peer asks for a license
	ErrLicenseRequired = errors.New("remote peer requires a license")

	ErrNoLedger     = errors.New("seeder mode requires a ledger")
	ErrInvalidMode  = errors.New("invalid mode")
	ErrInvalidPrice = errors.New("price must not be negative")
)
