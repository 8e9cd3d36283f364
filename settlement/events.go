// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package settlement

import (
	"encoding/binary"
	"time"

	"github.com/bitmark-inc/confidentiald/fault"
	"github.com/bitmark-inc/confidentiald/storage"
)

// EventKind - what happened to a settlement
type EventKind byte

// event kinds
const (
	EventCreated EventKind = iota
	EventSenderAffirmed
	EventReceiverAffirmed
	EventMediatorAffirmed
	EventExecuted
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventSenderAffirmed:
		return "sender-affirmed"
	case EventReceiverAffirmed:
		return "receiver-affirmed"
	case EventMediatorAffirmed:
		return "mediator-affirmed"
	case EventExecuted:
		return "executed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event - one entry of a settlement's append-only history
type Event struct {
	Seq       uint64
	Kind      EventKind
	Reason    string
	CreatedAt time.Time
}

// append an event inside the caller's transaction; the caller holds
// the settlement transition lock and bumps record.EventSeq
func appendEvent(trx storage.Transaction, settlementId SettlementId, record *settlementRecord, kind EventKind, reason string) {

	out := []byte{byte(kind)}
	out = appendUint64(out, uint64(time.Now().Unix()))
	out = appendBlob16(out, []byte(reason))

	trx.Put(storage.Pool.SettlementEvents, eventKey(settlementId, record.EventSeq), out)
	record.EventSeq += 1
}

func unpackEvent(seq uint64, data []byte) (*Event, error) {
	if len(data) < 11 {
		return nil, fault.ErrKeyLength
	}
	reasonLength := int(binary.BigEndian.Uint16(data[9:11]))
	if 11+reasonLength != len(data) {
		return nil, fault.ErrKeyLength
	}
	return &Event{
		Seq:       seq,
		Kind:      EventKind(data[0]),
		Reason:    string(data[11 : 11+reasonLength]),
		CreatedAt: time.Unix(int64(binary.BigEndian.Uint64(data[1:9])), 0),
	}, nil
}

// Events - replay the full history of a settlement in order
func Events(settlementId SettlementId) ([]Event, error) {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return nil, fault.ErrNotInitialised
	}

	if nil == storage.Pool.Settlements.Get(settlementKey(settlementId)) {
		return nil, fault.ErrSettlementNotFound
	}

	events := []Event{}
	for seq := uint64(0); ; seq += 1 {
		data := storage.Pool.SettlementEvents.Get(eventKey(settlementId, seq))
		if nil == data {
			break
		}
		event, err := unpackEvent(seq, data)
		if nil != err {
			globalData.log.Criticalf("corrupt event record: settlement: %d seq: %d", settlementId, seq)
			return nil, err
		}
		events = append(events, *event)
	}
	return events, nil
}
