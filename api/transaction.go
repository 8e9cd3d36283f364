// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package api

import (
	"encoding/hex"
	"time"

	"github.com/bitmark-inc/confidentiald/fault"
	"github.com/bitmark-inc/confidentiald/tracker"
)

// TransactionStatus - recorded outcome of a chain submission
type TransactionStatus struct {
	Found       bool      `json:"found"`
	BlockHash   string    `json:"block_hash,omitempty"`
	BlockNumber uint64    `json:"block_number,omitempty"`
	Success     bool      `json:"success,omitempty"`
	Error       string    `json:"error,omitempty"`
	Events      []string  `json:"events,omitempty"`
	RecordedAt  time.Time `json:"recorded_at,omitempty"`
}

// GetTransactionStatus - look up a transaction by its hash
//
// an unconfirmed or unknown transaction reports Found false rather
// than an error: not having arrived yet is a normal state
func GetTransactionStatus(txHash string) (*TransactionStatus, error) {

	if !initialised() {
		return nil, fault.ErrNotInitialised
	}

	hash, err := hex.DecodeString(txHash)
	if nil != err {
		return nil, fault.ErrNotAValidHexString
	}
	if tracker.HashSize != len(hash) {
		return nil, fault.ErrKeyLength
	}

	entry, found := tracker.Status(hash)
	if !found {
		return &TransactionStatus{Found: false}, nil
	}
	return &TransactionStatus{
		Found:       true,
		BlockHash:   hex.EncodeToString(entry.BlockHash),
		BlockNumber: entry.BlockNumber,
		Success:     entry.Success,
		Error:       entry.Error,
		Events:      entry.Events,
		RecordedAt:  entry.RecordedAt,
	}, nil
}
