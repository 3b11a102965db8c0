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

package license_test

import (
	"encoding/hex"
	"testing"

	"github.com/blinklabs-io/paygate/license"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testContentHash = []byte{
	0xa3, 0x73, 0x47, 0x17, 0xa9, 0x6b, 0xaa, 0xf7, 0xab, 0x9a,
	0xfa, 0xd2, 0x0a, 0xc4, 0x73, 0x71, 0x06, 0x6a, 0xcc, 0x6a,
}

func validLicense() license.License {
	return license.License{
		license.ClaimContentHash: hex.EncodeToString(testContentHash),
		license.ClaimSignature:   "c2lnbmF0dXJl",
		license.ClaimExpiresAt:   "2027-01-01T00:00:00Z",
	}
}

func TestValidate(t *testing.T) {
	testDefs := []struct {
		name        string
		license     license.License
		contentHash []byte
		expectedErr error
	}{
		{
			name:        "valid",
			license:     validLicense(),
			contentHash: testContentHash,
		},
		{
			name:        "missing license",
			license:     nil,
			contentHash: testContentHash,
			expectedErr: license.ErrLicenseMissing,
		},
		{
			name: "missing content hash claim",
			license: license.License{
				license.ClaimSignature: "sig",
				license.ClaimExpiresAt: "soon",
			},
			contentHash: testContentHash,
			expectedErr: license.ErrContentHashMissing,
		},
		{
			name: "different content hash",
			license: func() license.License {
				l := validLicense()
				l[license.ClaimContentHash] = "00112233"
				return l
			}(),
			contentHash: testContentHash,
			expectedErr: license.ErrContentHashMismatch,
		},
		{
			name:        "session content hash unknown",
			license:     validLicense(),
			contentHash: nil,
			expectedErr: license.ErrContentHashMismatch,
		},
		{
			name: "empty signature",
			license: func() license.License {
				l := validLicense()
				l[license.ClaimSignature] = ""
				return l
			}(),
			contentHash: testContentHash,
			expectedErr: license.ErrSignatureMissing,
		},
		{
			name: "missing expiry",
			license: func() license.License {
				l := validLicense()
				delete(l, license.ClaimExpiresAt)
				return l
			}(),
			contentHash: testContentHash,
			expectedErr: license.ErrExpiryMissing,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			err := license.Validate(testDef.license, testDef.contentHash)
			if testDef.expectedErr == nil {
				assert.NoError(t, err)
				assert.True(t, license.IsValid(testDef.license, testDef.contentHash))
				return
			}
			assert.ErrorIs(t, err, license.ErrInvalidLicense)
			assert.ErrorIs(t, err, testDef.expectedErr)
			assert.False(t, license.IsValid(testDef.license, testDef.contentHash))
		})
	}
}

func TestContentHashCaseInsensitive(t *testing.T) {
	l := validLicense()
	l[license.ClaimContentHash] = "A3734717A96BAAF7AB9AFAD20AC47371066ACC6A"
	assert.True(t, license.IsValid(l, testContentHash))
}

func TestDigest(t *testing.T) {
	a := validLicense()
	b := validLicense()
	digestA, err := a.Digest()
	require.NoError(t, err)
	digestB, err := b.Digest()
	require.NoError(t, err)
	assert.Len(t, digestA, 32)
	assert.Equal(t, digestA, digestB)
	b[license.ClaimSignature] = "other"
	digestB, err = b.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, digestA, digestB)
	_, err = license.License(nil).Digest()
	assert.ErrorIs(t, err, license.ErrLicenseMissing)
}
