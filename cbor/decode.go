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

package cbor

import (
	"bytes"
	"errors"
	"io"
	"sync"

	_cbor "github.com/fxamacker/cbor/v2"
)

var (
	cachedDecMode     _cbor.DecMode
	cachedDecModeErr  error
	cachedDecModeOnce sync.Once
)

// ErrEmptyInput is returned when there is no data to decode
var ErrEmptyInput = errors.New("no CBOR data to decode")

// getDecMode returns a cached DecMode, initializing it on first use.
// Uses sync.Once for thread-safe lazy initialization.
// Returns the cached error if initialization failed.
func getDecMode() (_cbor.DecMode, error) {
	cachedDecModeOnce.Do(func() {
		decOptions := _cbor.DecOptions{
			// All decoded data comes from untrusted peers
			MaxNestedLevels:  MaxNestedLevels,
			MaxMapPairs:      MaxMapPairs,
			MaxArrayElements: MaxArrayElements,
			IndefLength:      _cbor.IndefLengthForbidden,
			DupMapKey:        _cbor.DupMapKeyEnforcedAPF,
		}
		cachedDecMode, cachedDecModeErr = decOptions.DecMode()
	})
	return cachedDecMode, cachedDecModeErr
}

// Decode decodes the first CBOR item in dataBytes into dest and returns the
// number of bytes consumed. Any data after the first item is left untouched
func Decode(dataBytes []byte, dest any) (int, error) {
	if len(dataBytes) == 0 {
		return 0, ErrEmptyInput
	}
	decMode, err := getDecMode()
	if err != nil {
		return 0, err
	}
	if decMode == nil {
		return 0, errors.New("CBOR decoder mode not initialized")
	}
	dec := decMode.NewDecoder(bytes.NewReader(dataBytes))
	if err := dec.Decode(dest); err != nil {
		// A partial item at the end of the input is reported as a short read
		if errors.Is(err, io.EOF) {
			return dec.NumBytesRead(), io.ErrUnexpectedEOF
		}
		return dec.NumBytesRead(), err
	}
	return dec.NumBytesRead(), nil
}

// SplitFirst separates the first well-formed CBOR item in data from whatever
// follows it. The returned slices alias data
func SplitFirst(data []byte) ([]byte, []byte, error) {
	var tmp RawMessage
	n, err := Decode(data, &tmp)
	if err != nil {
		return nil, nil, err
	}
	return data[:n], data[n:], nil
}
