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

package balance

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blinklabs-io/paygate/identity"
)

var ErrMalformedMemo = errors.New("malformed payment memo")

// Memo binds a payment to the paying peer's public key and the content being
// transferred
type Memo struct {
	PublicKey   string `json:"public_key"`
	ContentHash string `json:"content_hash"`
}

// NewMemo returns the memo a peer attaches to payments for the given content
func NewMemo(publicKey identity.PublicKey, contentHash []byte) Memo {
	return Memo{
		PublicKey:   publicKey.String(),
		ContentHash: hex.EncodeToString(contentHash),
	}
}

// ParseMemo accepts a memo in structured form or as a JSON encoding in a
// string or byte slice, and returns it in canonical form
func ParseMemo(memo any) (Memo, error) {
	var ret Memo
	switch v := memo.(type) {
	case Memo:
		ret = v
	case *Memo:
		if v == nil {
			return Memo{}, fmt.Errorf("%w: nil memo", ErrMalformedMemo)
		}
		ret = *v
	case map[string]string:
		ret.PublicKey = v["public_key"]
		ret.ContentHash = v["content_hash"]
	case map[string]any:
		var err error
		if ret.PublicKey, err = memoStringField(v, "public_key"); err != nil {
			return Memo{}, err
		}
		if ret.ContentHash, err = memoStringField(v, "content_hash"); err != nil {
			return Memo{}, err
		}
	case string:
		return parseMemoJson([]byte(v))
	case []byte:
		return parseMemoJson(v)
	case json.RawMessage:
		return parseMemoJson(v)
	default:
		return Memo{}, fmt.Errorf("%w: unsupported memo type %T", ErrMalformedMemo, memo)
	}
	return ret.normalize()
}

func parseMemoJson(data []byte) (Memo, error) {
	var ret Memo
	if err := json.Unmarshal(data, &ret); err != nil {
		return Memo{}, fmt.Errorf("%w: %w", ErrMalformedMemo, err)
	}
	return ret.normalize()
}

func memoStringField(m map[string]any, key string) (string, error) {
	val, ok := m[key]
	if !ok {
		return "", nil
	}
	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %s has type %T", ErrMalformedMemo, key, val)
	}
	return str, nil
}

func (m Memo) normalize() (Memo, error) {
	if m.PublicKey == "" {
		return Memo{}, fmt.Errorf("%w: missing public_key", ErrMalformedMemo)
	}
	if m.ContentHash == "" {
		return Memo{}, fmt.Errorf("%w: missing content_hash", ErrMalformedMemo)
	}
	pubKey, err := identity.ParsePublicKey(m.PublicKey)
	if err != nil {
		return Memo{}, fmt.Errorf("%w: %w", ErrMalformedMemo, err)
	}
	contentHash, err := hex.DecodeString(m.ContentHash)
	if err != nil {
		return Memo{}, fmt.Errorf("%w: content_hash: %w", ErrMalformedMemo, err)
	}
	return NewMemo(pubKey, contentHash), nil
}
