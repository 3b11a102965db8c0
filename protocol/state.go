// Copyright 2023 Blink Labs Software
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

import "fmt"

// State identifies a node in a protocol state machine
type State struct {
	Id   uint
	Name string
}

// NewState returns a new State with the provided ID and name
func NewState(id uint, name string) State {
	return State{
		Id:   id,
		Name: name,
	}
}

func (s State) String() string {
	return s.Name
}

// StateTransition describes a permitted move to NewState
type StateTransition struct {
	NewState State
	// Reason is a short label describing what drives the transition
	Reason string
}

// StateMapEntry lists the transitions permitted out of a state
type StateMapEntry struct {
	Transitions []StateTransition
	// Terminal states accept no further transitions
	Terminal bool
}

// StateMap describes a protocol state machine
type StateMap map[State]StateMapEntry

// Copy returns a copy of the state map. This is mostly for convenience,
// since we need to copy the state map in various places
func (s StateMap) Copy() StateMap {
	ret := StateMap{}
	for k, v := range s {
		ret[k] = v
	}
	return ret
}

// Allows returns whether the state map permits moving from one state to another.
// Remaining in the current state is always permitted for non-terminal states
func (s StateMap) Allows(from State, to State) bool {
	entry, ok := s[from]
	if !ok || entry.Terminal {
		return false
	}
	if from == to {
		return true
	}
	for _, transition := range entry.Transitions {
		if transition.NewState == to {
			return true
		}
	}
	return false
}

// Transition returns the new state when the move is permitted and an error otherwise
func (s StateMap) Transition(from State, to State) (State, error) {
	if !s.Allows(from, to) {
		return from, fmt.Errorf(
			"%w: %s -> %s",
			ErrInvalidStateTransition,
			from,
			to,
		)
	}
	return to, nil
}
