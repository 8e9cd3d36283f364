// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package settlement

import (
	"encoding/binary"

	"github.com/bitmark-inc/confidentiald/asset"
	"github.com/bitmark-inc/confidentiald/fault"
	"github.com/bitmark-inc/confidentiald/vault"
)

// VenueId - sequence number of a venue
type VenueId uint64

// SettlementId - sequence number of a settlement
type SettlementId uint64

// LegState - affirmation progress of a single leg
type LegState byte

// leg states
const (
	LegCreated LegState = iota
	LegSenderAffirmed
	LegReceiverAffirmed
	LegExecuted
	LegFailed
)

func (s LegState) String() string {
	switch s {
	case LegCreated:
		return "created"
	case LegSenderAffirmed:
		return "sender-affirmed"
	case LegReceiverAffirmed:
		return "receiver-affirmed"
	case LegExecuted:
		return "executed"
	case LegFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status - overall settlement state derived from its legs
type Status byte

// settlement statuses
const (
	StatusPending Status = iota
	StatusExecuting
	StatusExecuted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusExecuting:
		return "executing"
	case StatusExecuted:
		return "executed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Mediator - an overseer on a leg: the signer that affirms and the
// confidential account the transfer amount is encrypted to
type Mediator struct {
	Signer  vault.SignerId
	Account []byte
}

// Leg - one asset transfer inside a settlement
type Leg struct {
	Asset     asset.AssetId
	Sender    []byte
	Receiver  []byte
	Mediators []Mediator
}

// account public keys are scheme public keys
const accountKeySize = 32

// a mask of uint16 bits tracks mediator affirmations
const maxMediators = 16

// settlement record flags
const (
	flagFailed    byte = 0x01
	flagExecuting byte = 0x02
	flagExecuted  byte = 0x04
)

// stored per-leg state
type legRecord struct {
	Leg
	State          LegState
	Pending        bool // sender affirmation broadcast, not yet confirmed
	MediatorMask   uint16
	Proof          []byte
	Binding        []byte // sender confirmed ciphertext the proof was built on
	SenderAmount   []byte
	ReceiverAmount []byte
}

// every mediator bit set and the receiver has affirmed
func (leg *legRecord) fullyAffirmed() bool {
	if LegReceiverAffirmed != leg.State {
		return false
	}
	for i := 0; i < len(leg.Mediators); i += 1 {
		if 0 == leg.MediatorMask&(1<<uint(i)) {
			return false
		}
	}
	return true
}

// stored settlement
type settlementRecord struct {
	Venue     VenueId
	Memo      string
	CreatedAt uint64
	Flags     byte
	EventSeq  uint64
	Legs      []*legRecord
}

func (record *settlementRecord) status() Status {
	switch {
	case 0 != record.Flags&flagFailed:
		return StatusFailed
	case 0 != record.Flags&flagExecuted:
		return StatusExecuted
	case 0 != record.Flags&flagExecuting:
		return StatusExecuting
	default:
		return StatusPending
	}
}

// key helpers

func uint64Key(n uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, n)
	return key
}

func settlementKey(settlementId SettlementId) []byte {
	return uint64Key(uint64(settlementId))
}

func venueKey(venueId VenueId) []byte {
	return uint64Key(uint64(venueId))
}

func eventKey(settlementId SettlementId, seq uint64) []byte {
	key := make([]byte, 16)
	binary.BigEndian.PutUint64(key[:8], uint64(settlementId))
	binary.BigEndian.PutUint64(key[8:], seq)
	return key
}

// record packing

func appendUint64(out []byte, v uint64) []byte {
	var buffer [8]byte
	binary.BigEndian.PutUint64(buffer[:], v)
	return append(out, buffer[:]...)
}

func appendUint16(out []byte, v uint16) []byte {
	var buffer [2]byte
	binary.BigEndian.PutUint16(buffer[:], v)
	return append(out, buffer[:]...)
}

func appendBlob16(out []byte, b []byte) []byte {
	out = appendUint16(out, uint16(len(b)))
	return append(out, b...)
}

func appendBlob32(out []byte, b []byte) []byte {
	var buffer [4]byte
	binary.BigEndian.PutUint32(buffer[:], uint32(len(b)))
	out = append(out, buffer[:]...)
	return append(out, b...)
}

func packSettlement(record *settlementRecord) []byte {

	out := appendUint64(nil, uint64(record.Venue))
	out = appendUint64(out, record.CreatedAt)
	out = append(out, record.Flags)
	out = appendUint64(out, record.EventSeq)
	out = appendBlob16(out, []byte(record.Memo))

	out = appendUint16(out, uint16(len(record.Legs)))
	for _, leg := range record.Legs {
		out = append(out, leg.Asset[:]...)
		out = append(out, leg.Sender...)
		out = append(out, leg.Receiver...)
		out = append(out, byte(leg.State))
		pending := byte(0)
		if leg.Pending {
			pending = 1
		}
		out = append(out, pending)
		out = appendUint16(out, leg.MediatorMask)
		out = append(out, byte(len(leg.Mediators)))
		for _, mediator := range leg.Mediators {
			out = append(out, mediator.Signer[:]...)
			out = append(out, mediator.Account...)
		}
		out = appendBlob32(out, leg.Proof)
		out = appendBlob16(out, leg.Binding)
		out = appendBlob16(out, leg.SenderAmount)
		out = appendBlob16(out, leg.ReceiverAmount)
	}
	return out
}

func unpackSettlement(data []byte) (*settlementRecord, error) {

	offset := 0

	readUint64 := func() (uint64, bool) {
		if offset+8 > len(data) {
			return 0, false
		}
		v := binary.BigEndian.Uint64(data[offset : offset+8])
		offset += 8
		return v, true
	}
	readUint16 := func() (uint16, bool) {
		if offset+2 > len(data) {
			return 0, false
		}
		v := binary.BigEndian.Uint16(data[offset : offset+2])
		offset += 2
		return v, true
	}
	readByte := func() (byte, bool) {
		if offset+1 > len(data) {
			return 0, false
		}
		v := data[offset]
		offset += 1
		return v, true
	}
	readBytes := func(n int) ([]byte, bool) {
		if n < 0 || offset+n > len(data) {
			return nil, false
		}
		b := make([]byte, n)
		copy(b, data[offset:offset+n])
		offset += n
		return b, true
	}
	readBlob16 := func() ([]byte, bool) {
		n, ok := readUint16()
		if !ok {
			return nil, false
		}
		return readBytes(int(n))
	}

	record := &settlementRecord{}

	venue, ok := readUint64()
	if !ok {
		return nil, fault.ErrKeyLength
	}
	record.Venue = VenueId(venue)

	if record.CreatedAt, ok = readUint64(); !ok {
		return nil, fault.ErrKeyLength
	}
	if record.Flags, ok = readByte(); !ok {
		return nil, fault.ErrKeyLength
	}
	if record.EventSeq, ok = readUint64(); !ok {
		return nil, fault.ErrKeyLength
	}
	memo, ok := readBlob16()
	if !ok {
		return nil, fault.ErrKeyLength
	}
	record.Memo = string(memo)

	legCount, ok := readUint16()
	if !ok {
		return nil, fault.ErrKeyLength
	}
	record.Legs = make([]*legRecord, legCount)

	for i := 0; i < int(legCount); i += 1 {
		leg := &legRecord{}

		assetBytes, ok := readBytes(len(leg.Asset))
		if !ok {
			return nil, fault.ErrKeyLength
		}
		copy(leg.Asset[:], assetBytes)

		if leg.Sender, ok = readBytes(accountKeySize); !ok {
			return nil, fault.ErrKeyLength
		}
		if leg.Receiver, ok = readBytes(accountKeySize); !ok {
			return nil, fault.ErrKeyLength
		}
		state, ok := readByte()
		if !ok {
			return nil, fault.ErrKeyLength
		}
		leg.State = LegState(state)

		pending, ok := readByte()
		if !ok {
			return nil, fault.ErrKeyLength
		}
		leg.Pending = 0 != pending

		if leg.MediatorMask, ok = readUint16(); !ok {
			return nil, fault.ErrKeyLength
		}
		mediatorCount, ok := readByte()
		if !ok {
			return nil, fault.ErrKeyLength
		}
		leg.Mediators = make([]Mediator, mediatorCount)
		for j := 0; j < int(mediatorCount); j += 1 {
			signerBytes, ok := readBytes(len(leg.Mediators[j].Signer))
			if !ok {
				return nil, fault.ErrKeyLength
			}
			copy(leg.Mediators[j].Signer[:], signerBytes)
			if leg.Mediators[j].Account, ok = readBytes(accountKeySize); !ok {
				return nil, fault.ErrKeyLength
			}
		}

		proofLen := 0
		if offset+4 > len(data) {
			return nil, fault.ErrKeyLength
		}
		proofLen = int(binary.BigEndian.Uint32(data[offset : offset+4]))
		offset += 4
		if leg.Proof, ok = readBytes(proofLen); !ok {
			return nil, fault.ErrKeyLength
		}
		if leg.Binding, ok = readBlob16(); !ok {
			return nil, fault.ErrKeyLength
		}
		if leg.SenderAmount, ok = readBlob16(); !ok {
			return nil, fault.ErrKeyLength
		}
		if leg.ReceiverAmount, ok = readBlob16(); !ok {
			return nil, fault.ErrKeyLength
		}
		record.Legs[i] = leg
	}

	if offset != len(data) {
		return nil, fault.ErrKeyLength
	}
	return record, nil
}
