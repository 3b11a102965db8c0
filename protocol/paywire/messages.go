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

	"github.com/blinklabs-io/paygate/cbor"
	"github.com/blinklabs-io/paygate/protocol"
	"github.com/shopspring/decimal"
)

// Message types
const (
	MessageTypeRequestAccountDetails = 0
	MessageTypeAccountDetails        = 1
	MessageTypeLowBalance            = 2
	MessageTypePaymentRequest        = 3
	MessageTypePaymentRequestTooHigh = 4
	MessageTypeLicenseRequired       = 5
)

// NewMsgFromCbor parses a paywire message from CBOR
func NewMsgFromCbor(msgType uint, data []byte) (protocol.Message, error) {
	var ret protocol.Message
	switch msgType {
	case MessageTypeRequestAccountDetails:
		ret = &MsgRequestAccountDetails{}
	case MessageTypeAccountDetails:
		ret = &MsgAccountDetails{}
	case MessageTypeLowBalance:
		ret = &MsgLowBalance{}
	case MessageTypePaymentRequest:
		ret = &MsgPaymentRequest{}
	case MessageTypePaymentRequestTooHigh:
		ret = &MsgPaymentRequestTooHigh{}
	case MessageTypeLicenseRequired:
		ret = &MsgLicenseRequired{}
	default:
		return nil, fmt.Errorf(
			"%s: %w: %d",
			ProtocolName,
			protocol.ErrUnknownMessageType,
			msgType,
		)
	}
	if _, err := cbor.Decode(data, ret); err != nil {
		return nil, fmt.Errorf("%s: decode error: %w", ProtocolName, err)
	}
	if v, ok := ret.(validator); ok {
		if err := v.validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", ProtocolName, err)
		}
	}
	// Store the raw message CBOR
	ret.SetCbor(data)
	return ret, nil
}

// Encode returns the CBOR encoding of the message followed by the trailer
func Encode(msg protocol.Message, trailer []byte) ([]byte, error) {
	data, err := cbor.Encode(msg)
	if err != nil {
		return nil, fmt.Errorf("%s: encode error: %w", ProtocolName, err)
	}
	ret := make([]byte, 0, len(data)+len(trailer))
	ret = append(ret, data...)
	ret = append(ret, trailer...)
	return ret, nil
}

type messageHeader struct {
	MessageType *uint64 `cbor:"msg_type"`
}

// Decode parses the message at the start of data. Any bytes following the
// message are returned as the trailer. All errors wrap ErrMalformedMessage
func Decode(data []byte) (protocol.Message, []byte, error) {
	item, trailer, err := cbor.SplitFirst(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if majorType, _ := cbor.MajorType(item); majorType != cbor.CborTypeMap {
		return nil, nil, fmt.Errorf("%w: message is not a map", ErrMalformedMessage)
	}
	var header messageHeader
	if _, err := cbor.Decode(item, &header); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if header.MessageType == nil {
		return nil, nil, fmt.Errorf("%w: missing msg_type", ErrMalformedMessage)
	}
	msg, err := NewMsgFromCbor(uint(*header.MessageType), item)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	return msg, trailer, nil
}

type validator interface {
	validate() error
}

func parseAmount(field string, value string) (decimal.Decimal, error) {
	ret, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if ret.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("negative %s %q", field, value)
	}
	return ret, nil
}

func validateAmount(field string, value string) error {
	_, err := parseAmount(field, value)
	return err
}

// mustAmount is used by accessors on messages which were either built by a
// constructor or validated during decode
func mustAmount(value string) decimal.Decimal {
	ret, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return ret
}

type MsgRequestAccountDetails struct {
	protocol.MessageBase
}

func NewMsgRequestAccountDetails() *MsgRequestAccountDetails {
	m := &MsgRequestAccountDetails{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeRequestAccountDetails,
		},
	}
	return m
}

type MsgAccountDetails struct {
	protocol.MessageBase
	Account string `cbor:"account"`
	Price   string `cbor:"price"`
}

func NewMsgAccountDetails(account string, price decimal.Decimal) *MsgAccountDetails {
	m := &MsgAccountDetails{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeAccountDetails,
		},
		Account: account,
		Price:   price.String(),
	}
	return m
}

func (m *MsgAccountDetails) validate() error {
	if m.Account == "" {
		return errors.New("missing account")
	}
	return validateAmount("price", m.Price)
}

// PriceAmount returns the advertised price per chunk
func (m *MsgAccountDetails) PriceAmount() decimal.Decimal {
	return mustAmount(m.Price)
}

// MsgLowBalance tells the paying peer that its balance does not cover the
// next chunk, and how much it should send
type MsgLowBalance struct {
	protocol.MessageBase
	Balance string `cbor:"bal"`
	Amount  string `cbor:"amount"`
}

func NewMsgLowBalance(balance decimal.Decimal, amount decimal.Decimal) *MsgLowBalance {
	m := &MsgLowBalance{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeLowBalance,
		},
		Balance: balance.String(),
		Amount:  amount.String(),
	}
	return m
}

func (m *MsgLowBalance) validate() error {
	// The balance may legitimately be negative
	if _, err := decimal.NewFromString(m.Balance); err != nil {
		return fmt.Errorf("invalid bal %q: %w", m.Balance, err)
	}
	return validateAmount("amount", m.Amount)
}

func (m *MsgLowBalance) BalanceAmount() decimal.Decimal {
	return mustAmount(m.Balance)
}

func (m *MsgLowBalance) RequestedAmount() decimal.Decimal {
	return mustAmount(m.Amount)
}

type MsgPaymentRequest struct {
	protocol.MessageBase
	Amount string `cbor:"amount"`
}

func NewMsgPaymentRequest(amount decimal.Decimal) *MsgPaymentRequest {
	m := &MsgPaymentRequest{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypePaymentRequest,
		},
		Amount: amount.String(),
	}
	return m
}

func (m *MsgPaymentRequest) validate() error {
	return validateAmount("amount", m.Amount)
}

func (m *MsgPaymentRequest) RequestedAmount() decimal.Decimal {
	return mustAmount(m.Amount)
}

// MsgPaymentRequestTooHigh declines a payment request and suggests the
// largest amount the sender is willing to pay at once
type MsgPaymentRequestTooHigh struct {
	protocol.MessageBase
	Amount string `cbor:"amount"`
}

func NewMsgPaymentRequestTooHigh(amount decimal.Decimal) *MsgPaymentRequestTooHigh {
	m := &MsgPaymentRequestTooHigh{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypePaymentRequestTooHigh,
		},
		Amount: amount.String(),
	}
	return m
}

func (m *MsgPaymentRequestTooHigh) validate() error {
	return validateAmount("amount", m.Amount)
}

func (m *MsgPaymentRequestTooHigh) SuggestedAmount() decimal.Decimal {
	return mustAmount(m.Amount)
}

type MsgLicenseRequired struct {
	protocol.MessageBase
	Reason string `cbor:"reason"`
}

func NewMsgLicenseRequired(reason string) *MsgLicenseRequired {
	m := &MsgLicenseRequired{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeLicenseRequired,
		},
		Reason: reason,
	}
	return m
}
