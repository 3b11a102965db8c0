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

package paywire

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Extended handshake keys
const (
	HandshakeKeyExtensions = "m"
	HandshakeKeyAccount    = "account"
	HandshakeKeyPrice      = "price"
	HandshakeKeyLicense    = "license"
	HandshakeKeyPublicKey  = "publicKey"
	HandshakeKeyToken      = "token"
)

// Capabilities are the fields a peer advertises in its extended handshake.
// Empty fields were not advertised
type Capabilities struct {
	Account   string
	Price     decimal.NullDecimal
	PublicKey string
	License   map[string]string
	Token     string
}

// WriteHandshake adds the capability fields to an outgoing extended handshake
// and marks the extension as supported in its extension map
func WriteHandshake(hs map[string]any, caps Capabilities) {
	if caps.Account != "" {
		hs[HandshakeKeyAccount] = caps.Account
	}
	if caps.Price.Valid {
		hs[HandshakeKeyPrice] = caps.Price.Decimal.String()
	}
	if caps.PublicKey != "" {
		hs[HandshakeKeyPublicKey] = caps.PublicKey
	}
	if len(caps.License) > 0 {
		license := make(map[string]string, len(caps.License))
		for k, v := range caps.License {
			license[k] = v
		}
		hs[HandshakeKeyLicense] = license
	}
	if caps.Token != "" {
		hs[HandshakeKeyToken] = caps.Token
	}
	extensions, ok := hs[HandshakeKeyExtensions].(map[string]any)
	if !ok {
		extensions = make(map[string]any)
		hs[HandshakeKeyExtensions] = extensions
	}
	if id, ok := toUint(extensions[ProtocolName]); ok && id > 0 {
		return
	}
	// Use the next free extension ID
	var maxId uint64
	for _, v := range extensions {
		if id, ok := toUint(v); ok && id > maxId {
			maxId = id
		}
	}
	extensions[ProtocolName] = int64(maxId + 1)
}

// Supported returns whether the remote's extended handshake advertises the
// extension with a non-zero ID
func Supported(hs map[string]any) bool {
	var raw any
	switch extensions := hs[HandshakeKeyExtensions].(type) {
	case map[string]any:
		raw = extensions[ProtocolName]
	case map[any]any:
		raw = extensions[ProtocolName]
	default:
		return false
	}
	id, ok := toUint(raw)
	return ok && id > 0
}

// ReadHandshake parses the capability fields from a remote's extended
// handshake. Each field is parsed independently. Fields that fail to parse
// are left empty and reported in the returned error
func ReadHandshake(hs map[string]any) (Capabilities, error) {
	var ret Capabilities
	var errs []error
	if val, ok := hs[HandshakeKeyAccount]; ok {
		if account, err := toString(HandshakeKeyAccount, val); err != nil {
			errs = append(errs, err)
		} else {
			ret.Account = account
		}
	}
	if val, ok := hs[HandshakeKeyPrice]; ok {
		if price, err := toString(HandshakeKeyPrice, val); err != nil {
			errs = append(errs, err)
		} else if amount, err := parseAmount(HandshakeKeyPrice, price); err != nil {
			errs = append(errs, err)
		} else {
			ret.Price = decimal.NewNullDecimal(amount)
		}
	}
	if val, ok := hs[HandshakeKeyPublicKey]; ok {
		if publicKey, err := toString(HandshakeKeyPublicKey, val); err != nil {
			errs = append(errs, err)
		} else {
			ret.PublicKey = publicKey
		}
	}
	if val, ok := hs[HandshakeKeyLicense]; ok {
		if license, err := toStringMap(HandshakeKeyLicense, val); err != nil {
			errs = append(errs, err)
		} else {
			ret.License = license
		}
	}
	if val, ok := hs[HandshakeKeyToken]; ok {
		if token, err := toString(HandshakeKeyToken, val); err != nil {
			errs = append(errs, err)
		} else {
			ret.Token = token
		}
	}
	if len(errs) > 0 {
		return ret, fmt.Errorf("%s: handshake: %w", ProtocolName, errors.Join(errs...))
	}
	return ret, nil
}

func toString(field string, val any) (string, error) {
	switch v := val.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("field %s has unexpected type %T", field, val)
	}
}

func toStringMap(field string, val any) (map[string]string, error) {
	ret := make(map[string]string)
	switch v := val.(type) {
	case map[string]string:
		for k, item := range v {
			ret[k] = item
		}
	case map[string]any:
		for k, item := range v {
			str, err := toString(field+"."+k, item)
			if err != nil {
				return nil, err
			}
			ret[k] = str
		}
	case map[any]any:
		for k, item := range v {
			key, err := toString(field, k)
			if err != nil {
				return nil, err
			}
			str, err := toString(field+"."+key, item)
			if err != nil {
				return nil, err
			}
			ret[key] = str
		}
	default:
		return nil, fmt.Errorf("field %s has unexpected type %T", field, val)
	}
	return ret, nil
}

func toUint(val any) (uint64, bool) {
	switch v := val.(type) {
	case int:
		return uint64(v), v >= 0
	case int8:
		return uint64(v), v >= 0
	case int16:
		return uint64(v), v >= 0
	case int32:
		return uint64(v), v >= 0
	case int64:
		return uint64(v), v >= 0
	case uint:
		return uint64(v), true
	case uint8:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case uint64:
		return v, true
	default:
		return 0, false
	}
}
