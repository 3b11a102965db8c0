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

// Package mockwire provides an in-memory peer wire for tests
package mockwire

import (
	"sync"

	"github.com/blinklabs-io/paygate"
)

// SentMessage is an extension message sent over the wire
type SentMessage struct {
	Name    string
	Payload []byte
}

// Wire records the calls made to it. Unchoke runs the installed unchoke
// function, which by default marks the wire as unchoked
type Wire struct {
	mutex        sync.Mutex
	choked       bool
	chokeCount   int
	unchokeCount int
	unchokeFunc  paygate.UnchokeFunc
	handshake    map[string]any
	sent         []SentMessage
	sendErr      error
}

var _ paygate.Wire = (*Wire)(nil)

// New returns a choked wire with an empty extended handshake
func New() *Wire {
	w := &Wire{
		choked:    true,
		handshake: make(map[string]any),
	}
	w.unchokeFunc = w.DefaultUnchoke
	return w
}

func (w *Wire) Choke() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.choked = true
	w.chokeCount++
}

// Unchoke runs the currently installed unchoke function
func (w *Wire) Unchoke() {
	w.mutex.Lock()
	f := w.unchokeFunc
	w.mutex.Unlock()
	if f != nil {
		f()
	}
}

// DefaultUnchoke is the wire's own unchoke behavior
func (w *Wire) DefaultUnchoke() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.choked = false
	w.unchokeCount++
}

// SetUnchokeFunc installs the function run by Unchoke and returns the previous one
func (w *Wire) SetUnchokeFunc(f paygate.UnchokeFunc) paygate.UnchokeFunc {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	prev := w.unchokeFunc
	w.unchokeFunc = f
	return prev
}

// UnchokeFunc returns the currently installed unchoke function
func (w *Wire) UnchokeFunc() paygate.UnchokeFunc {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.unchokeFunc
}

func (w *Wire) SendExtended(name string, payload []byte) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.sendErr != nil {
		return w.sendErr
	}
	w.sent = append(w.sent, SentMessage{Name: name, Payload: append([]byte(nil), payload...)})
	return nil
}

// SetSendError makes SendExtended fail with err
func (w *Wire) SetSendError(err error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.sendErr = err
}

func (w *Wire) ExtendedHandshake() map[string]any {
	return w.handshake
}

// Choked returns whether data is currently withheld from the peer
func (w *Wire) Choked() bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.choked
}

func (w *Wire) ChokeCount() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.chokeCount
}

func (w *Wire) UnchokeCount() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.unchokeCount
}

// Sent returns the messages sent so far
func (w *Wire) Sent() []SentMessage {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	ret := make([]SentMessage, len(w.sent))
	copy(ret, w.sent)
	return ret
}

// ClearSent forgets the messages sent so far
func (w *Wire) ClearSent() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.sent = nil
}
