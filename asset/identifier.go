// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package asset

import (
	"encoding/hex"

	"github.com/bitmark-inc/confidentiald/fault"
)

// AssetIdSize - bytes in an asset id
const AssetIdSize = 32

// AssetId - unique identifier of one confidential asset
type AssetId [AssetIdSize]byte

// String - hex representation
func (id AssetId) String() string {
	return hex.EncodeToString(id[:])
}

// MarshalText - implement encoding.TextMarshaler
func (id AssetId) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(id[:])), nil
}

// UnmarshalText - implement encoding.TextUnmarshaler
func (id *AssetId) UnmarshalText(s []byte) error {
	b, err := hex.DecodeString(string(s))
	if nil != err {
		return fault.ErrNotAValidHexString
	}
	if AssetIdSize != len(b) {
		return fault.ErrKeyLength
	}
	copy(id[:], b)
	return nil
}

// AssetIdFromBytes - validate length and copy
func AssetIdFromBytes(data []byte) (AssetId, error) {
	var id AssetId
	if AssetIdSize != len(data) {
		return id, fault.ErrKeyLength
	}
	copy(id[:], data)
	return id, nil
}
