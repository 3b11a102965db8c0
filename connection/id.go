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

// Package connection identifies peer connections
package connection

import (
	"fmt"
	"net"
)

// ConnectionId uniquely identifies a connection between two peers
type ConnectionId struct {
	LocalAddr  net.Addr
	RemoteAddr net.Addr
}

// String returns a string representation of the connection ID
func (c ConnectionId) String() string {
	return fmt.Sprintf("%s<>%s", addrString(c.LocalAddr), addrString(c.RemoteAddr))
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return "unknown"
	}
	return fmt.Sprintf("%s:%s", addr.Network(), addr.String())
}
