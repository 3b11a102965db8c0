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

// Package identity handles the ed25519 public keys peers use to bind
// payments to a session
package identity

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/blake2b"
)

const (
	// PublicKeyHrp is the bech32 human-readable prefix for encoded public keys
	PublicKeyHrp = "paypk"
	// KeyHashSize is the size of a public key hash in bytes
	KeyHashSize = 28
)

var (
	ErrInvalidPublicKey = errors.New("invalid public key")
	ErrSmallOrderKey    = errors.New("public key is a small order point")
)

// PublicKey is an ed25519 public key
type PublicKey []byte

// NewPublicKey validates and returns the provided raw key bytes as a PublicKey
func NewPublicKey(raw []byte) (PublicKey, error) {
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf(
			"%w: expected %d bytes, got %d",
			ErrInvalidPublicKey,
			ed25519.PublicKeySize,
			len(raw),
		)
	}
	point := &edwards25519.Point{}
	if _, err := point.SetBytes(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}
	isSmallOrder := (&edwards25519.Point{}).MultByCofactor(point).
		Equal(edwards25519.NewIdentityPoint()) ==
		1
	if isSmallOrder {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, ErrSmallOrderKey)
	}
	ret := make(PublicKey, len(raw))
	copy(ret, raw)
	return ret, nil
}

// ParsePublicKey accepts either the bech32 form produced by String or a hex
// encoded key
func ParsePublicKey(s string) (PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPublicKey)
	}
	if strings.HasPrefix(strings.ToLower(s), PublicKeyHrp+"1") {
		hrp, data, err := bech32.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
		}
		if hrp != PublicKeyHrp {
			return nil, fmt.Errorf("%w: unexpected prefix %q", ErrInvalidPublicKey, hrp)
		}
		raw, err := bech32.ConvertBits(data, 5, 8, false)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
		}
		return NewPublicKey(raw)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}
	return NewPublicKey(raw)
}

// String returns the bech32 encoding of the key
func (k PublicKey) String() string {
	if len(k) == 0 {
		return ""
	}
	data, err := bech32.ConvertBits(k, 8, 5, true)
	if err != nil {
		panic(fmt.Sprintf("unexpected error converting public key: %s", err))
	}
	ret, err := bech32.Encode(PublicKeyHrp, data)
	if err != nil {
		panic(fmt.Sprintf("unexpected error encoding public key: %s", err))
	}
	return ret
}

// Hash returns the blake2b-224 hash of the key
func (k PublicKey) Hash() []byte {
	h, err := blake2b.New(KeyHashSize, nil)
	if err != nil {
		panic(
			fmt.Sprintf(
				"unexpected error creating empty blake2b hash: %s",
				err,
			),
		)
	}
	h.Write(k)
	return h.Sum(nil)
}

// Equal reports whether both keys hold the same bytes
func (k PublicKey) Equal(other PublicKey) bool {
	return bytes.Equal(k, other)
}
