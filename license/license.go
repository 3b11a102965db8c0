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

// Package license checks the usage-license claims a peer presents during the
// extended handshake.
//
// A license is a flat map of string claims. The checks performed here only
// establish that the claims refer to the expected content and that the
// signature and expiry claims are present. Neither the signature nor the
// expiry value is verified, so a valid license is not a cryptographic
// guarantee.
package license

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/blinklabs-io/paygate/cbor"
	"golang.org/x/crypto/blake2b"
)

// Well-known claim names
const (
	ClaimContentHash = "content_hash"
	ClaimSignature   = "signature"
	ClaimExpiresAt   = "expires_at"
)

var (
	// ErrInvalidLicense is wrapped by every validation failure
	ErrInvalidLicense = errors.New("invalid license")

	ErrLicenseMissing      = errors.New("no license presented")
	ErrContentHashMissing  = errors.New("license has no content hash")
	ErrContentHashMismatch = errors.New("license content hash does not match")
	ErrSignatureMissing    = errors.New("license has no signature")
	ErrExpiryMissing       = errors.New("license has no expiry")
)

// License is a set of claims asserted by a peer
type License map[string]string

// ContentHash returns the decoded content hash claim
func (l License) ContentHash() ([]byte, error) {
	claim, ok := l[ClaimContentHash]
	if !ok || claim == "" {
		return nil, ErrContentHashMissing
	}
	ret, err := hex.DecodeString(claim)
	if err != nil {
		return nil, fmt.Errorf("decode content hash claim: %w", err)
	}
	return ret, nil
}

// Digest returns the blake2b-256 hash of the canonical CBOR encoding of the
// claims. Two licenses with identical claims always have the same digest
func (l License) Digest() ([]byte, error) {
	if l == nil {
		return nil, ErrLicenseMissing
	}
	data, err := cbor.Encode(map[string]string(l))
	if err != nil {
		return nil, err
	}
	sum := blake2b.Sum256(data)
	return sum[:], nil
}

// Validate checks the license against the content hash of the current
// session. It has no side effects
func Validate(lic License, contentHash []byte) error {
	if lic == nil {
		return fmt.Errorf("%w: %w", ErrInvalidLicense, ErrLicenseMissing)
	}
	claimed, err := lic.ContentHash()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLicense, err)
	}
	if len(contentHash) == 0 || !bytes.Equal(claimed, contentHash) {
		return fmt.Errorf("%w: %w", ErrInvalidLicense, ErrContentHashMismatch)
	}
	// TODO: verify the signature against the licensor key once licenses carry one
	if lic[ClaimSignature] == "" {
		return fmt.Errorf("%w: %w", ErrInvalidLicense, ErrSignatureMissing)
	}
	if lic[ClaimExpiresAt] == "" {
		return fmt.Errorf("%w: %w", ErrInvalidLicense, ErrExpiryMissing)
	}
	return nil
}

// IsValid is a convenience wrapper around Validate
func IsValid(lic License, contentHash []byte) bool {
	return Validate(lic, contentHash) == nil
}
