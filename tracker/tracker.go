// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package tracker - record of chain transactions already processed
//
// The watcher feeds every confirmation through Record before any
// balance or settlement effect is applied.  A repeated
// (block hash, tx hash) pair is rejected, which is what makes chain
// redelivery harmless: the effect behind a duplicate is never run
// twice.
package tracker

import (
	"bytes"
	"encoding/binary"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/confidentiald/fault"
	"github.com/bitmark-inc/confidentiald/storage"
)

// hash sizes on the wire
const (
	HashSize = 32
)

// Entry - one recorded chain transaction
type Entry struct {
	BlockHash   []byte
	BlockNumber uint64
	Success     bool
	Error       string
	Events      []string
	RecordedAt  time.Time
}

// globals
type globalDataType struct {
	sync.RWMutex
	log         *logger.L
	initialised bool
}

var globalData globalDataType

// Initialise - prepare the tracker
func Initialise() error {

	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}

	globalData.log = logger.New("tracker")
	globalData.log.Info("starting…")

	globalData.initialised = true
	return nil
}

// Finalise - shut down the tracker
func Finalise() error {

	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.ErrNotInitialised
	}

	globalData.initialised = false

	globalData.log.Info("finished")
	globalData.log.Flush()
	return nil
}

// Record - store one confirmed transaction
//
// rejects a repeat of the same (blockHash, txHash); a different
// block hash for a known transaction replaces the stored entry,
// which is what a reorg redelivery looks like
func Record(blockHash []byte, txHash []byte, blockNumber uint64, success bool, errMsg string, events []string) error {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return fault.ErrNotInitialised
	}
	if HashSize != len(blockHash) || HashSize != len(txHash) {
		return fault.ErrKeyLength
	}

	trx, err := storage.NewDBTransaction()
	if nil != err {
		return err
	}

	existing := trx.Get(storage.Pool.Transactions, txHash)
	if nil != existing && len(existing) >= HashSize &&
		bytes.Equal(existing[:HashSize], blockHash) {
		trx.Abort()
		return fault.ErrDuplicateTransaction
	}

	entry := &Entry{
		BlockHash:   blockHash,
		BlockNumber: blockNumber,
		Success:     success,
		Error:       errMsg,
		Events:      events,
		RecordedAt:  time.Now().UTC(),
	}

	trx.Put(storage.Pool.Transactions, txHash, packEntry(entry))
	if err := trx.Commit(); nil != err {
		return err
	}

	globalData.log.Infof("recorded tx %x block %d success %t", txHash, blockNumber, success)
	return nil
}

// Status - look up a transaction by its hash
func Status(txHash []byte) (*Entry, bool) {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return nil, false
	}

	data := storage.Pool.Transactions.Get(txHash)
	if nil == data {
		return nil, false
	}
	entry, err := unpackEntry(data)
	if nil != err {
		logger.Panicf("tracker: corrupt entry for tx %x: %s", txHash, err)
	}
	return entry, true
}

// entry layout:
//
//	blockHash    32
//	blockNumber   8
//	success       1
//	recordedAt    8
//	errLen        2 + error bytes
//	eventCount    2, then per event: len 2 + bytes
func packEntry(entry *Entry) []byte {

	size := HashSize + 8 + 1 + 8 + 2 + len(entry.Error) + 2
	for _, e := range entry.Events {
		size += 2 + len(e)
	}

	out := make([]byte, 0, size)
	out = append(out, entry.BlockHash...)
	out = appendUint64(out, entry.BlockNumber)
	if entry.Success {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = appendUint64(out, uint64(entry.RecordedAt.Unix()))
	out = appendString(out, entry.Error)
	out = appendUint16(out, uint16(len(entry.Events)))
	for _, e := range entry.Events {
		out = appendString(out, e)
	}
	return out
}

func unpackEntry(data []byte) (*Entry, error) {

	const fixed = HashSize + 8 + 1 + 8 + 2
	if len(data) < fixed {
		return nil, fault.ErrKeyLength
	}

	entry := &Entry{
		BlockHash:   append([]byte(nil), data[:HashSize]...),
		BlockNumber: binary.BigEndian.Uint64(data[HashSize:]),
		Success:     1 == data[HashSize+8],
		RecordedAt:  time.Unix(int64(binary.BigEndian.Uint64(data[HashSize+9:])), 0).UTC(),
	}

	offset := HashSize + 17
	s, offset, err := readString(data, offset)
	if nil != err {
		return nil, err
	}
	entry.Error = s

	if offset+2 > len(data) {
		return nil, fault.ErrKeyLength
	}
	count := int(binary.BigEndian.Uint16(data[offset:]))
	offset += 2
	for i := 0; i < count; i += 1 {
		s, offset, err = readString(data, offset)
		if nil != err {
			return nil, err
		}
		entry.Events = append(entry.Events, s)
	}
	return entry, nil
}

func appendUint64(out []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(out, b[:]...)
}

func appendUint16(out []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(out, b[:]...)
}

func appendString(out []byte, s string) []byte {
	out = appendUint16(out, uint16(len(s)))
	return append(out, s...)
}

func readString(data []byte, offset int) (string, int, error) {
	if offset+2 > len(data) {
		return "", 0, fault.ErrKeyLength
	}
	n := int(binary.BigEndian.Uint16(data[offset:]))
	offset += 2
	if offset+n > len(data) {
		return "", 0, fault.ErrKeyLength
	}
	return string(data[offset : offset+n]), offset + n, nil
}
