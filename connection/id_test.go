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

package connection_test

import (
	"net"
	"testing"

	"github.com/blinklabs-io/paygate/connection"
	"github.com/stretchr/testify/assert"
)

func TestConnectionIdString(t *testing.T) {
	id := connection.ConnectionId{
		LocalAddr: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 6881},
		RemoteAddr: &net.TCPAddr{IP: net.IPv4(10, 0, 0, 2), Port: 51413},
	}
	assert.Equal(t, "tcp:127.0.0.1:6881<>tcp:10.0.0.2:51413", id.String())
	assert.Equal(t, "unknown<>unknown", connection.ConnectionId{}.String())
}
