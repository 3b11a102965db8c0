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

import (
	"sync"

	"github.com/blinklabs-io/paygate/connection"
	"github.com/blinklabs-io/paygate/protocol"
)

// SessionManagerSessionClosedFunc is a function that takes a connection ID and an optional error
type SessionManagerSessionClosedFunc func(connection.ConnectionId, error)

// SessionManager tracks the extensions attached to live connections
type SessionManager struct {
	config        SessionManagerConfig
	sessions      map[connection.ConnectionId]*Extension
	sessionsMutex sync.Mutex
}

type SessionManagerConfig struct {
	SessionClosedFunc SessionManagerSessionClosedFunc
}

func NewSessionManager(cfg SessionManagerConfig) *SessionManager {
	return &SessionManager{
		config:   cfg,
		sessions: make(map[connection.ConnectionId]*Extension),
	}
}

// AddSession starts tracking an extension. An extension already tracked for
// the same connection is closed and replaced
func (s *SessionManager) AddSession(ext *Extension) {
	connId := ext.config.ConnectionId
	s.sessionsMutex.Lock()
	prev := s.sessions[connId]
	s.sessions[connId] = ext
	s.sessionsMutex.Unlock()
	if prev != nil && prev != ext {
		s.closeSession(connId, prev)
	}
}

// RemoveSession closes the connection's extension and stops tracking it
func (s *SessionManager) RemoveSession(connId connection.ConnectionId) {
	s.sessionsMutex.Lock()
	ext, ok := s.sessions[connId]
	delete(s.sessions, connId)
	s.sessionsMutex.Unlock()
	if ok {
		s.closeSession(connId, ext)
	}
}

func (s *SessionManager) closeSession(connId connection.ConnectionId, ext *Extension) {
	err := ext.Close()
	// Call configured session closed callback func
	if s.config.SessionClosedFunc != nil {
		s.config.SessionClosedFunc(connId, err)
	}
}

func (s *SessionManager) GetSessionById(connId connection.ConnectionId) *Extension {
	s.sessionsMutex.Lock()
	defer s.sessionsMutex.Unlock()
	return s.sessions[connId]
}

// Sessions returns all tracked extensions
func (s *SessionManager) Sessions() []*Extension {
	s.sessionsMutex.Lock()
	defer s.sessionsMutex.Unlock()
	ret := make([]*Extension, 0, len(s.sessions))
	for _, ext := range s.sessions {
		ret = append(ret, ext)
	}
	return ret
}

// SessionsByState returns the tracked extensions whose gate is in one of the provided states
func (s *SessionManager) SessionsByState(states ...protocol.State) []*Extension {
	var ret []*Extension
	for _, ext := range s.Sessions() {
		state := ext.State()
		for _, tmpState := range states {
			if state == tmpState {
				ret = append(ret, ext)
				break
			}
		}
	}
	return ret
}

// Close closes and removes all tracked extensions
func (s *SessionManager) Close() {
	s.sessionsMutex.Lock()
	sessions := s.sessions
	s.sessions = make(map[connection.ConnectionId]*Extension)
	s.sessionsMutex.Unlock()
	for connId, ext := range sessions {
		s.closeSession(connId, ext)
	}
}
