// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

// Confirmation - one transaction confirmed by the chain
type Confirmation struct {
	TxHash      []byte
	BlockHash   []byte
	BlockNumber uint64
	Success     bool
	Error       string
	Events      []string
}

// Client - transport to the chain node
//
// Send delivers one submission; it may block briefly but must not
// wait for confirmation.  Confirmations is the stream of confirmed
// transactions; the channel closes when the client shuts down.
type Client interface {
	Send(payload []byte) error
	Confirmations() <-chan Confirmation
	Close() error
}
