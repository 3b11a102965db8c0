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

package balance

import (
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultTransferSetCapacity is the number of transfer IDs retained when no
// capacity is specified
const DefaultTransferSetCapacity = 1 << 20

var ErrInvalidCapacity = errors.New("transfer set capacity must be positive")

// TransferSet records the settlement transfer IDs that have already been
// credited. It retains at most its capacity, evicting the least recently
// inserted IDs first. It is safe for concurrent use
type TransferSet struct {
	cache *lru.Cache[string, struct{}]
}

// NewTransferSet returns an empty TransferSet holding up to capacity IDs
func NewTransferSet(capacity int) (*TransferSet, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	cache, err := lru.New[string, struct{}](capacity)
	if err != nil {
		return nil, err
	}
	return &TransferSet{cache: cache}, nil
}

// Insert adds the transfer ID to the set. It returns false if the ID was
// already present
func (s *TransferSet) Insert(transferId string) bool {
	found, _ := s.cache.ContainsOrAdd(transferId, struct{}{})
	return !found
}

// Contains returns whether the transfer ID is retained. It does not affect
// eviction order
func (s *TransferSet) Contains(transferId string) bool {
	return s.cache.Contains(transferId)
}

// Prune removes a transfer ID from the set
func (s *TransferSet) Prune(transferId string) bool {
	return s.cache.Remove(transferId)
}

// Purge removes all transfer IDs
func (s *TransferSet) Purge() {
	s.cache.Purge()
}

func (s *TransferSet) Len() int {
	return s.cache.Len()
}
