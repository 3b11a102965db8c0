// Copyright 2025 Blink Labs Software
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

package protocol

import "errors"

// ErrInvalidStateTransition is returned when a state machine is asked to make a move its state map does not permit
var ErrInvalidStateTransition = errors.New("invalid state transition")

// ErrUnknownMessageType is returned when a message type is outside the protocol's closed enumeration
var ErrUnknownMessageType = errors.New("unknown message type")
