// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package balance

import (
	"encoding/binary"
	"time"

	"github.com/bitmark-inc/confidentiald/asset"
	"github.com/bitmark-inc/confidentiald/fault"
)

// row layout:
//
//	version     8 bytes big endian
//	flags       1 byte
//	confirmed  64 bytes ciphertext
//	pending    64 bytes ciphertext
//	mirror      8 bytes big endian
//	updatedAt   8 bytes unix seconds
const (
	accountKeySize = 32
	cipherSize     = 64

	flagMirror = 0x01

	versionOffset   = 0
	flagsOffset     = 8
	confirmedOffset = 9
	pendingOffset   = confirmedOffset + cipherSize
	mirrorOffset    = pendingOffset + cipherSize
	updatedAtOffset = mirrorOffset + 8
	recordSize      = updatedAtOffset + 8
)

// Record - one decoded ledger row
type Record struct {
	Version   uint64
	Confirmed []byte
	Pending   []byte
	Mirror    *uint64 // nil unless a mirror value is held
	UpdatedAt time.Time
}

func packRecord(r *Record) []byte {
	out := make([]byte, recordSize)
	binary.BigEndian.PutUint64(out[versionOffset:], r.Version)
	if nil != r.Mirror {
		out[flagsOffset] |= flagMirror
		binary.BigEndian.PutUint64(out[mirrorOffset:], *r.Mirror)
	}
	copy(out[confirmedOffset:], r.Confirmed)
	copy(out[pendingOffset:], r.Pending)
	binary.BigEndian.PutUint64(out[updatedAtOffset:], uint64(r.UpdatedAt.Unix()))
	return out
}

func unpackRecord(data []byte) (*Record, error) {
	if recordSize != len(data) {
		return nil, fault.ErrBalanceNotFound
	}
	r := &Record{
		Version:   binary.BigEndian.Uint64(data[versionOffset:]),
		Confirmed: append([]byte(nil), data[confirmedOffset:confirmedOffset+cipherSize]...),
		Pending:   append([]byte(nil), data[pendingOffset:pendingOffset+cipherSize]...),
		UpdatedAt: time.Unix(int64(binary.BigEndian.Uint64(data[updatedAtOffset:])), 0).UTC(),
	}
	if 0 != data[flagsOffset]&flagMirror {
		m := binary.BigEndian.Uint64(data[mirrorOffset:])
		r.Mirror = &m
	}
	return r, nil
}

// rowKey - account then asset so one account's holdings are adjacent
func rowKey(account []byte, assetId asset.AssetId) []byte {
	key := make([]byte, 0, len(account)+asset.AssetIdSize)
	key = append(key, account...)
	key = append(key, assetId[:]...)
	return key
}
