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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMapTransitions(t *testing.T) {
	stateIdle := NewState(1, "Idle")
	stateWorking := NewState(2, "Working")
	stateDone := NewState(3, "Done")

	stateMap := StateMap{
		stateIdle: StateMapEntry{
			Transitions: []StateTransition{
				{NewState: stateWorking, Reason: "start"},
			},
		},
		stateWorking: StateMapEntry{
			Transitions: []StateTransition{
				{NewState: stateIdle, Reason: "pause"},
				{NewState: stateDone, Reason: "finish"},
			},
		},
		stateDone: StateMapEntry{
			Terminal: true,
		},
	}

	t.Run("permits listed transitions", func(t *testing.T) {
		assert.True(t, stateMap.Allows(stateIdle, stateWorking))
		assert.True(t, stateMap.Allows(stateWorking, stateDone))
	})

	t.Run("permits remaining in a non-terminal state", func(t *testing.T) {
		assert.True(t, stateMap.Allows(stateIdle, stateIdle))
	})

	t.Run("rejects unlisted transitions", func(t *testing.T) {
		newState, err := stateMap.Transition(stateIdle, stateDone)
		require.ErrorIs(t, err, ErrInvalidStateTransition)
		assert.Equal(t, stateIdle, newState)
	})

	t.Run("rejects leaving a terminal state", func(t *testing.T) {
		assert.False(t, stateMap.Allows(stateDone, stateIdle))
		assert.False(t, stateMap.Allows(stateDone, stateDone))
	})

	t.Run("rejects unknown states", func(t *testing.T) {
		assert.False(t, stateMap.Allows(NewState(99, "Unknown"), stateIdle))
	})
}

func TestStateMapCopy(t *testing.T) {
	stateA := NewState(1, "A")
	stateB := NewState(2, "B")
	orig := StateMap{
		stateA: StateMapEntry{},
	}
	cp := orig.Copy()
	cp[stateB] = StateMapEntry{Terminal: true}
	assert.Len(t, orig, 1)
	assert.Len(t, cp, 2)
}

func TestMessageBaseCbor(t *testing.T) {
	raw := []byte{0xa1, 0x01, 0x02}
	m := &MessageBase{MessageType: 3}
	m.SetCbor(raw)
	raw[0] = 0x00
	assert.Equal(t, []byte{0xa1, 0x01, 0x02}, m.Cbor())
	assert.Equal(t, uint8(3), m.Type())
	m.SetCbor(nil)
	assert.Nil(t, m.Cbor())
}
