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

package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultIncomingQueueSize = 64

// Network is an in-process settlement network. Payments between its clients
// settle immediately
type Network struct {
	mutex   sync.Mutex
	clients map[string]*LoopbackClient
}

// NewNetwork returns an empty loopback network
func NewNetwork() *Network {
	return &Network{
		clients: make(map[string]*LoopbackClient),
	}
}

// LoopbackOptionFunc represents a function used to modify a loopback client
type LoopbackOptionFunc func(*LoopbackClient)

// WithStringMemos makes the client deliver memos as JSON strings, the way
// ledgers without structured memo support do
func WithStringMemos(stringMemos bool) LoopbackOptionFunc {
	return func(c *LoopbackClient) {
		c.stringMemos = stringMemos
	}
}

// WithIncomingQueueSize sets the buffer size of the incoming notification channel
func WithIncomingQueueSize(size int) LoopbackOptionFunc {
	return func(c *LoopbackClient) {
		c.queueSize = size
	}
}

// WithNotReady creates the client in the not-ready state
func WithNotReady() LoopbackOptionFunc {
	return func(c *LoopbackClient) {
		c.ready = false
	}
}

// NewClient registers a new account on the network
func (n *Network) NewClient(
	account string,
	options ...LoopbackOptionFunc,
) (*LoopbackClient, error) {
	c := &LoopbackClient{
		network:   n,
		account:   account,
		queueSize: DefaultIncomingQueueSize,
		ready:     true,
	}
	for _, option := range options {
		option(c)
	}
	c.incomingChan = make(chan Notification, c.queueSize)
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if _, ok := n.clients[account]; ok {
		return nil, fmt.Errorf("account %q already exists", account)
	}
	n.clients[account] = c
	return c, nil
}

func (n *Network) client(account string) (*LoopbackClient, bool) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	c, ok := n.clients[account]
	return c, ok
}

func (n *Network) removeClient(c *LoopbackClient) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if n.clients[c.account] == c {
		delete(n.clients, c.account)
	}
}

// LoopbackClient is a Client attached to a Network
type LoopbackClient struct {
	network      *Network
	account      string
	stringMemos  bool
	queueSize    int
	incomingChan chan Notification
	mutex        sync.Mutex
	ready        bool
	sent         []Notification
	// deliverMutex guards closing incomingChan against in-flight deliveries
	deliverMutex sync.RWMutex
	closed       atomic.Bool
}

var _ Client = (*LoopbackClient)(nil)

func (c *LoopbackClient) Account() string {
	return c.account
}

func (c *LoopbackClient) Ready() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.ready && !c.closed.Load()
}

// SetReady changes whether the client accepts outgoing payments
func (c *LoopbackClient) SetReady(ready bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.ready = ready
}

func (c *LoopbackClient) Incoming() <-chan Notification {
	return c.incomingChan
}

// SendPayment settles a transfer to another client on the same network
func (c *LoopbackClient) SendPayment(
	ctx context.Context,
	destinationAccount string,
	destinationAmount decimal.Decimal,
	memo any,
) error {
	if !c.Ready() {
		return ErrNotReady
	}
	if !destinationAmount.IsPositive() {
		return ErrInvalidAmount
	}
	dest, ok := c.network.client(destinationAccount)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, destinationAccount)
	}
	if dest.stringMemos {
		data, err := json.Marshal(memo)
		if err != nil {
			return fmt.Errorf("encode memo: %w", err)
		}
		memo = string(data)
	}
	notification := Notification{
		TransferId:         uuid.NewString(),
		Amount:             destinationAmount,
		DestinationAccount: destinationAccount,
		Memo:               memo,
	}
	if err := dest.Deliver(ctx, notification); err != nil {
		return err
	}
	c.mutex.Lock()
	c.sent = append(c.sent, notification)
	c.mutex.Unlock()
	return nil
}

// Deliver queues a notification on the client's incoming channel. It can be
// used to replay a notification
func (c *LoopbackClient) Deliver(ctx context.Context, notification Notification) error {
	c.deliverMutex.RLock()
	defer c.deliverMutex.RUnlock()
	if c.closed.Load() {
		return ErrClientClosed
	}
	select {
	case c.incomingChan <- notification:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sent returns the notifications for payments sent by this client
func (c *LoopbackClient) Sent() []Notification {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	ret := make([]Notification, len(c.sent))
	copy(ret, c.sent)
	return ret
}

// Close removes the client from the network and closes its incoming channel
func (c *LoopbackClient) Close() error {
	c.network.removeClient(c)
	c.deliverMutex.Lock()
	defer c.deliverMutex.Unlock()
	if c.closed.Load() {
		return nil
	}
	c.closed.Store(true)
	close(c.incomingChan)
	return nil
}
