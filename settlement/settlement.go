// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package settlement

import (
	"context"
	"time"

	"github.com/bitmark-inc/confidentiald/asset"
	"github.com/bitmark-inc/confidentiald/balance"
	"github.com/bitmark-inc/confidentiald/chain"
	"github.com/bitmark-inc/confidentiald/fault"
	"github.com/bitmark-inc/confidentiald/proof"
	"github.com/bitmark-inc/confidentiald/storage"
	"github.com/bitmark-inc/confidentiald/vault"
)

// sequence counter key in the next ids pool
var settlementCounterKey = []byte("settlement")

// chain payload kinds
const (
	payloadAffirm  byte = 0x01
	payloadExecute byte = 0x02
)

// LegView - read-only view of one leg
type LegView struct {
	Asset            asset.AssetId
	Sender           []byte
	Receiver         []byte
	Mediators        []Mediator
	State            LegState
	MediatorAffirmed []bool
}

// Settlement - read-only view of a settlement
type Settlement struct {
	Id        SettlementId
	Venue     VenueId
	Memo      string
	CreatedAt time.Time
	Status    Status
	Legs      []LegView
}

// Create - persist a settlement with its leg order frozen
//
// every leg must reference an initialised sender and receiver balance
// for its asset and every mediator must be a registered signer
func Create(venueId VenueId, legs []Leg, memo string) (SettlementId, error) {

	if !initialised() {
		return 0, fault.ErrNotInitialised
	}
	if 0 == len(legs) {
		return 0, fault.ErrMissingParameters
	}

	if _, err := VenueOwner(venueId); nil != err {
		return 0, err
	}

	for _, leg := range legs {
		if accountKeySize != len(leg.Sender) || accountKeySize != len(leg.Receiver) {
			return 0, fault.ErrKeyLength
		}
		if len(leg.Mediators) > maxMediators {
			return 0, fault.ErrInvalidCount
		}
		if !asset.Exists(leg.Asset) {
			return 0, fault.ErrAssetNotFound
		}
		if !balance.IsInitialised(leg.Sender, leg.Asset) {
			return 0, fault.ErrBalanceNotFound
		}
		if !balance.IsInitialised(leg.Receiver, leg.Asset) {
			return 0, fault.ErrBalanceNotFound
		}
		for _, mediator := range leg.Mediators {
			if accountKeySize != len(mediator.Account) {
				return 0, fault.ErrKeyLength
			}
			if _, err := vault.SignerName(mediator.Signer); nil != err {
				return 0, err
			}
		}
	}

	record := &settlementRecord{
		Venue:     venueId,
		Memo:      memo,
		CreatedAt: uint64(time.Now().Unix()),
		Legs:      make([]*legRecord, len(legs)),
	}
	for i, leg := range legs {
		record.Legs[i] = &legRecord{Leg: leg, State: LegCreated}
	}

	trx, err := storage.NewDBTransaction()
	if nil != err {
		return 0, err
	}

	n, _ := trx.GetN(storage.Pool.NextIds, settlementCounterKey)
	settlementId := SettlementId(n + 1)
	trx.PutN(storage.Pool.NextIds, settlementCounterKey, n+1)

	appendEvent(trx, settlementId, record, EventCreated, "")
	trx.Put(storage.Pool.Settlements, settlementKey(settlementId), packSettlement(record))

	err = trx.Commit()
	if nil != err {
		return 0, err
	}

	globalData.log.Infof("settlement: %d venue: %d legs: %d", settlementId, venueId, len(legs))
	return settlementId, nil
}

// Get - current state of a settlement
func Get(settlementId SettlementId) (*Settlement, error) {

	if !initialised() {
		return nil, fault.ErrNotInitialised
	}

	record, err := load(settlementId)
	if nil != err {
		return nil, err
	}

	view := &Settlement{
		Id:        settlementId,
		Venue:     record.Venue,
		Memo:      record.Memo,
		CreatedAt: time.Unix(int64(record.CreatedAt), 0),
		Status:    record.status(),
		Legs:      make([]LegView, len(record.Legs)),
	}
	for i, leg := range record.Legs {
		affirmed := make([]bool, len(leg.Mediators))
		for j := range leg.Mediators {
			affirmed[j] = 0 != leg.MediatorMask&(1<<uint(j))
		}
		view.Legs[i] = LegView{
			Asset:            leg.Asset,
			Sender:           leg.Sender,
			Receiver:         leg.Receiver,
			Mediators:        leg.Mediators,
			State:            leg.State,
			MediatorAffirmed: affirmed,
		}
	}
	return view, nil
}

// AffirmAsSender - prove the transfer and broadcast it
//
// the proof is generated from the sender's current confirmed balance
// and submitted for on-chain recording; the leg flips to sender
// affirmed and the sender is debited only when the confirmation
// arrives, so a proof the chain rejects costs nothing
func AffirmAsSender(ctx context.Context, settlementId SettlementId, legIndex int, amount uint64) ([]byte, error) {

	if !initialised() {
		return nil, fault.ErrNotInitialised
	}

	lock := transitionLock(settlementId)
	lock.Lock()
	defer lock.Unlock()

	record, err := load(settlementId)
	if nil != err {
		return nil, err
	}
	leg, err := legAt(record, legIndex)
	if nil != err {
		return nil, err
	}
	if LegCreated != leg.State || leg.Pending {
		return nil, fault.ErrLegAlreadyAffirmed
	}

	row, err := balance.Get(leg.Sender, leg.Asset)
	if nil != err {
		return nil, err
	}

	secret, err := vault.Secret(leg.Sender)
	if nil != err {
		return nil, err
	}
	defer secret.Release()

	secretBytes, err := secret.Bytes()
	if nil != err {
		return nil, err
	}

	auditors := make([][]byte, len(leg.Mediators))
	for i, mediator := range leg.Mediators {
		auditors[i] = mediator.Account
	}

	result, err := proof.GenerateSenderProof(ctx, secretBytes, row.Confirmed, leg.Receiver, auditors, amount)
	if nil != err {
		return nil, err
	}

	payload := []byte{payloadAffirm}
	payload = appendUint64(payload, uint64(settlementId))
	payload = appendUint16(payload, uint16(legIndex))
	payload = append(payload, result.Proof...)

	txHash, err := chain.Submit(payload, senderConfirmed(settlementId, legIndex))
	if nil != err {
		return nil, err
	}

	leg.Pending = true
	leg.Proof = result.Proof
	leg.Binding = row.Confirmed
	leg.SenderAmount = result.SenderAmount
	leg.ReceiverAmount = result.ReceiverAmount

	err = store(settlementId, record, nil, "")
	if nil != err {
		return nil, err
	}

	globalData.log.Infof("settlement: %d leg: %d sender affirmation broadcast", settlementId, legIndex)
	return txHash, nil
}

// confirmation handler for a sender affirmation
func senderConfirmed(settlementId SettlementId, legIndex int) func(chain.Confirmation) {
	return func(confirmation chain.Confirmation) {

		lock := transitionLock(settlementId)
		lock.Lock()
		defer lock.Unlock()

		record, err := load(settlementId)
		if nil != err {
			globalData.log.Errorf("settlement: %d vanished on confirmation: %s", settlementId, err)
			return
		}
		leg, err := legAt(record, legIndex)
		if nil != err || !leg.Pending {
			globalData.log.Errorf("settlement: %d leg: %d unexpected confirmation", settlementId, legIndex)
			return
		}
		leg.Pending = false

		if !confirmation.Success {
			failSettlement(settlementId, record, leg, "chain rejected sender affirmation: "+confirmation.Error)
			return
		}

		err = balance.DebitConfirmed(leg.Sender, leg.Asset, leg.SenderAmount)
		if nil != err {
			failSettlement(settlementId, record, leg, "sender debit failed: "+err.Error())
			return
		}

		leg.State = LegSenderAffirmed
		kind := EventSenderAffirmed
		err = store(settlementId, record, &kind, "")
		if nil != err {
			globalData.log.Errorf("settlement: %d leg: %d store failed: %s", settlementId, legIndex, err)
			return
		}
		globalData.log.Infof("settlement: %d leg: %d sender affirmed", settlementId, legIndex)
	}
}

// AffirmAsReceiver - verify the recorded sender proof and affirm
//
// an invalid proof fails the leg and the settlement; balances are
// never touched here
func AffirmAsReceiver(ctx context.Context, settlementId SettlementId, legIndex int) error {

	if !initialised() {
		return fault.ErrNotInitialised
	}

	lock := transitionLock(settlementId)
	lock.Lock()
	defer lock.Unlock()

	record, err := load(settlementId)
	if nil != err {
		return err
	}
	leg, err := legAt(record, legIndex)
	if nil != err {
		return err
	}
	switch leg.State {
	case LegSenderAffirmed:
		// expected
	case LegCreated:
		return fault.ErrLegNotAffirmedBySender
	case LegFailed:
		return fault.ErrSettlementFailed
	default:
		return fault.ErrLegAlreadyAffirmed
	}

	result, err := verifyLegProof(ctx, leg, nil)
	if nil != err {
		return err
	}
	if !result.Valid {
		failed := failSettlement(settlementId, record, leg, "receiver rejected proof: "+result.Reason.Error())
		if nil != failed {
			return failed
		}
		return result.Reason
	}

	leg.State = LegReceiverAffirmed
	kind := EventReceiverAffirmed
	err = store(settlementId, record, &kind, "")
	if nil != err {
		return err
	}

	globalData.log.Infof("settlement: %d leg: %d receiver affirmed", settlementId, legIndex)
	return nil
}

// AffirmAsMediator - one mediator's independent verification
//
// mediators can affirm in any order once the sender proof is on
// record; execution still waits for the receiver and the full
// mediator set
func AffirmAsMediator(ctx context.Context, settlementId SettlementId, legIndex int, mediator vault.SignerId) error {

	if !initialised() {
		return fault.ErrNotInitialised
	}

	lock := transitionLock(settlementId)
	lock.Lock()
	defer lock.Unlock()

	record, err := load(settlementId)
	if nil != err {
		return err
	}
	leg, err := legAt(record, legIndex)
	if nil != err {
		return err
	}
	switch leg.State {
	case LegSenderAffirmed, LegReceiverAffirmed:
		// expected
	case LegCreated:
		return fault.ErrLegNotAffirmedBySender
	case LegFailed:
		return fault.ErrSettlementFailed
	default:
		return fault.ErrLegAlreadyAffirmed
	}

	position := -1
	for i, m := range leg.Mediators {
		if m.Signer == mediator {
			position = i
			break
		}
	}
	if position < 0 {
		return fault.ErrMediatorNotOnLeg
	}
	if 0 != leg.MediatorMask&(1<<uint(position)) {
		return fault.ErrLegAlreadyAffirmed
	}

	result, err := verifyLegProof(ctx, leg, nil)
	if nil != err {
		return err
	}
	if !result.Valid {
		failed := failSettlement(settlementId, record, leg, "mediator rejected proof: "+result.Reason.Error())
		if nil != failed {
			return failed
		}
		return result.Reason
	}

	leg.MediatorMask |= 1 << uint(position)
	kind := EventMediatorAffirmed
	err = store(settlementId, record, &kind, "")
	if nil != err {
		return err
	}

	globalData.log.Infof("settlement: %d leg: %d mediator %s affirmed", settlementId, legIndex, mediator)
	return nil
}

// Execute - broadcast the batched execution transaction
//
// every leg needs its sender, receiver and full mediator set affirmed;
// receivers are credited (pending) only when the chain confirms, and a
// chain failure leaves every balance untouched
func Execute(ctx context.Context, settlementId SettlementId) ([]byte, error) {

	if !initialised() {
		return nil, fault.ErrNotInitialised
	}

	lock := transitionLock(settlementId)
	lock.Lock()
	defer lock.Unlock()

	record, err := load(settlementId)
	if nil != err {
		return nil, err
	}

	switch record.status() {
	case StatusPending:
		// expected
	case StatusFailed:
		return nil, fault.ErrSettlementFailed
	default:
		return nil, fault.ErrSettlementAlreadyExecuted
	}

	for _, leg := range record.Legs {
		if !leg.fullyAffirmed() {
			return nil, fault.ErrSettlementNotReady
		}
	}

	owner, err := venueOwner(record.Venue)
	if nil != err {
		return nil, err
	}

	payload := []byte{payloadExecute}
	payload = appendUint64(payload, uint64(settlementId))

	signature, err := vault.SignSubmission(owner, payload)
	if nil != err {
		return nil, err
	}
	payload = append(payload, signature...)

	txHash, err := chain.Submit(payload, executionConfirmed(settlementId))
	if nil != err {
		return nil, err
	}

	record.Flags |= flagExecuting
	err = store(settlementId, record, nil, "")
	if nil != err {
		return nil, err
	}

	globalData.log.Infof("settlement: %d execution broadcast", settlementId)
	return txHash, nil
}

// confirmation handler for an execution
func executionConfirmed(settlementId SettlementId) func(chain.Confirmation) {
	return func(confirmation chain.Confirmation) {

		lock := transitionLock(settlementId)
		lock.Lock()
		defer lock.Unlock()

		record, err := load(settlementId)
		if nil != err {
			globalData.log.Errorf("settlement: %d vanished on confirmation: %s", settlementId, err)
			return
		}
		if 0 == record.Flags&flagExecuting {
			globalData.log.Errorf("settlement: %d unexpected execution confirmation", settlementId)
			return
		}
		record.Flags &^= flagExecuting

		if !confirmation.Success {
			record.Flags |= flagFailed
			kind := EventFailed
			err = store(settlementId, record, &kind, "chain rejected execution: "+confirmation.Error)
			if nil != err {
				globalData.log.Errorf("settlement: %d store failed: %s", settlementId, err)
			}
			return
		}

		for i, leg := range record.Legs {
			err = balance.CreditPending(leg.Receiver, leg.Asset, leg.ReceiverAmount)
			if nil != err {
				globalData.log.Errorf("settlement: %d leg: %d receiver credit failed: %s", settlementId, i, err)
				failSettlement(settlementId, record, leg, "receiver credit failed: "+err.Error())
				return
			}
			leg.State = LegExecuted
		}

		record.Flags |= flagExecuted
		kind := EventExecuted
		err = store(settlementId, record, &kind, "")
		if nil != err {
			globalData.log.Errorf("settlement: %d store failed: %s", settlementId, err)
			return
		}
		globalData.log.Infof("settlement: %d executed", settlementId)
	}
}

// internal helpers

func initialised() bool {
	globalData.RLock()
	defer globalData.RUnlock()
	return globalData.initialised
}

func load(settlementId SettlementId) (*settlementRecord, error) {

	data := storage.Pool.Settlements.Get(settlementKey(settlementId))
	if nil == data {
		return nil, fault.ErrSettlementNotFound
	}
	record, err := unpackSettlement(data)
	if nil != err {
		globalData.log.Criticalf("corrupt settlement record: %d", settlementId)
		return nil, err
	}
	return record, nil
}

func legAt(record *settlementRecord, legIndex int) (*legRecord, error) {
	if legIndex < 0 || legIndex >= len(record.Legs) {
		return nil, fault.ErrInvalidLegIndex
	}
	if 0 != record.Flags&flagFailed {
		return nil, fault.ErrSettlementFailed
	}
	return record.Legs[legIndex], nil
}

// persist the record, optionally appending one event
func store(settlementId SettlementId, record *settlementRecord, kind *EventKind, reason string) error {

	trx, err := storage.NewDBTransaction()
	if nil != err {
		return err
	}
	if nil != kind {
		appendEvent(trx, settlementId, record, *kind, reason)
	}
	trx.Put(storage.Pool.Settlements, settlementKey(settlementId), packSettlement(record))
	return trx.Commit()
}

// fail a leg and with it the whole settlement, recording why
func failSettlement(settlementId SettlementId, record *settlementRecord, leg *legRecord, reason string) error {

	leg.State = LegFailed
	record.Flags |= flagFailed

	kind := EventFailed
	err := store(settlementId, record, &kind, reason)
	if nil != err {
		globalData.log.Errorf("settlement: %d store failed: %s", settlementId, err)
		return err
	}
	globalData.log.Warnf("settlement: %d failed: %s", settlementId, reason)
	return nil
}

// verify the recorded sender proof for a leg against its original
// sender balance ciphertext
func verifyLegProof(ctx context.Context, leg *legRecord, expectedAmount *uint64) (proof.VerificationResult, error) {

	auditors := make([][]byte, len(leg.Mediators))
	for i, mediator := range leg.Mediators {
		auditors[i] = mediator.Account
	}
	return proof.VerifyProof(ctx, leg.Proof, leg.Sender, leg.Receiver, auditors, leg.Binding, expectedAmount)
}
