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

// Package paywire implements the payment sub-protocol carried over a peer
// wire's extension message channel
package paywire

import "errors"

// Protocol identifiers
const (
	// ProtocolName is the extension name advertised in the extended handshake
	ProtocolName = "paywire"
	// ProtocolVersion identifies the message enumeration in this package
	ProtocolVersion = 1
)

var ErrMalformedMessage = errors.New("malformed message")
