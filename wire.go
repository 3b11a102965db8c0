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

// UnchokeFunc is the function a Wire runs when Unchoke is called
type UnchokeFunc func()

// Wire is the peer connection an Extension is attached to. Its methods are
// called with the Extension's lock held and must not call back into the
// Extension synchronously
type Wire interface {
	// Choke stops serving data to the remote peer
	Choke()
	// Unchoke runs the currently installed UnchokeFunc
	Unchoke()
	// SetUnchokeFunc installs the function run by Unchoke and returns the
	// previously installed one
	SetUnchokeFunc(UnchokeFunc) UnchokeFunc
	// SendExtended sends an extension message to the remote peer
	SendExtended(name string, payload []byte) error
	// ExtendedHandshake returns the outgoing extended handshake payload,
	// which may be modified until it is sent
	ExtendedHandshake() map[string]any
}

// Request is a remote peer's request for a chunk of data
type Request struct {
	Index  uint32
	Offset uint32
	Length uint32
}

// RequestFunc passes a request on to the wire to be served
type RequestFunc func(Request) error

// Scheduler runs a function after the current event dispatch completes
type Scheduler interface {
	// Post queues the function. It returns false if it will never run
	Post(func()) bool
}
