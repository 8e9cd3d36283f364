// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package api

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/bitmark-inc/confidentiald/asset"
	"github.com/bitmark-inc/confidentiald/fault"
	"github.com/bitmark-inc/confidentiald/settlement"
	"github.com/bitmark-inc/confidentiald/vault"
)

// LegRequest - one leg of a settlement request
type LegRequest struct {
	Asset     string            `json:"asset"`
	Sender    string            `json:"sender"`
	Receiver  string            `json:"receiver"`
	Mediators []MediatorRequest `json:"mediators,omitempty"`
}

// MediatorRequest - a mediator on a requested leg
type MediatorRequest struct {
	Signer  string `json:"signer"`
	Account string `json:"account"`
}

// LegInfo - current state of one leg
type LegInfo struct {
	Asset            string   `json:"asset"`
	Sender           string   `json:"sender"`
	Receiver         string   `json:"receiver"`
	State            string   `json:"state"`
	MediatorAffirmed []bool   `json:"mediator_affirmed,omitempty"`
	Mediators        []string `json:"mediators,omitempty"`
}

// SettlementInfo - current state of a settlement
type SettlementInfo struct {
	Id        uint64    `json:"id"`
	Venue     uint64    `json:"venue"`
	Memo      string    `json:"memo,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	Legs      []LegInfo `json:"legs"`
}

// EventInfo - one settlement history entry
type EventInfo struct {
	Seq       uint64    `json:"seq"`
	Kind      string    `json:"kind"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateVenue - allocate a venue owned by a named signer
func CreateVenue(signerName string) (uint64, error) {

	if !initialised() {
		return 0, fault.ErrNotInitialised
	}

	owner, err := vault.ResolveSigner(signerName)
	if nil != err {
		return 0, err
	}
	venueId, err := settlement.CreateVenue(owner)
	if nil != err {
		return 0, err
	}
	return uint64(venueId), nil
}

// CreateSettlement - persist a settlement under a venue
func CreateSettlement(venueId uint64, legs []LegRequest, memo string) (uint64, error) {

	if !initialised() {
		return 0, fault.ErrNotInitialised
	}

	resolved := make([]settlement.Leg, len(legs))
	for i, request := range legs {
		assetId, err := asset.Resolve(request.Asset)
		if nil != err {
			return 0, err
		}
		sender, err := decodeAccount(request.Sender)
		if nil != err {
			return 0, err
		}
		receiver, err := decodeAccount(request.Receiver)
		if nil != err {
			return 0, err
		}
		mediators := make([]settlement.Mediator, len(request.Mediators))
		for j, m := range request.Mediators {
			signerId, err := vault.ResolveSigner(m.Signer)
			if nil != err {
				return 0, err
			}
			account, err := decodeAccount(m.Account)
			if nil != err {
				return 0, err
			}
			mediators[j] = settlement.Mediator{
				Signer:  signerId,
				Account: account,
			}
		}
		resolved[i] = settlement.Leg{
			Asset:     assetId,
			Sender:    sender,
			Receiver:  receiver,
			Mediators: mediators,
		}
	}

	settlementId, err := settlement.Create(settlement.VenueId(venueId), resolved, memo)
	if nil != err {
		return 0, err
	}
	return uint64(settlementId), nil
}

// GetSettlement - current settlement state including every leg
func GetSettlement(settlementId uint64) (*SettlementInfo, error) {

	if !initialised() {
		return nil, fault.ErrNotInitialised
	}

	view, err := settlement.Get(settlement.SettlementId(settlementId))
	if nil != err {
		return nil, err
	}

	info := &SettlementInfo{
		Id:        settlementId,
		Venue:     uint64(view.Venue),
		Memo:      view.Memo,
		Status:    view.Status.String(),
		CreatedAt: view.CreatedAt,
		Legs:      make([]LegInfo, len(view.Legs)),
	}
	for i, leg := range view.Legs {
		mediators := make([]string, len(leg.Mediators))
		for j, m := range leg.Mediators {
			mediators[j] = m.Signer.String()
		}
		info.Legs[i] = LegInfo{
			Asset:            leg.Asset.String(),
			Sender:           hex.EncodeToString(leg.Sender),
			Receiver:         hex.EncodeToString(leg.Receiver),
			State:            leg.State.String(),
			MediatorAffirmed: leg.MediatorAffirmed,
			Mediators:        mediators,
		}
	}
	return info, nil
}

// GetSettlementEvents - replay a settlement's history
func GetSettlementEvents(settlementId uint64) ([]EventInfo, error) {

	if !initialised() {
		return nil, fault.ErrNotInitialised
	}

	events, err := settlement.Events(settlement.SettlementId(settlementId))
	if nil != err {
		return nil, err
	}

	infos := make([]EventInfo, len(events))
	for i, event := range events {
		infos[i] = EventInfo{
			Seq:       event.Seq,
			Kind:      event.Kind.String(),
			Reason:    event.Reason,
			CreatedAt: event.CreatedAt,
		}
	}
	return infos, nil
}

// AffirmAsSender - prove and broadcast a leg transfer
func AffirmAsSender(ctx context.Context, settlementId uint64, legIndex int, amount uint64) (string, error) {

	if !initialised() {
		return "", fault.ErrNotInitialised
	}

	txHash, err := settlement.AffirmAsSender(ctx, settlement.SettlementId(settlementId), legIndex, amount)
	if nil != err {
		return "", err
	}
	return hex.EncodeToString(txHash), nil
}

// AffirmAsReceiver - verify and affirm a leg as its receiver
func AffirmAsReceiver(ctx context.Context, settlementId uint64, legIndex int) error {

	if !initialised() {
		return fault.ErrNotInitialised
	}
	return settlement.AffirmAsReceiver(ctx, settlement.SettlementId(settlementId), legIndex)
}

// AffirmAsMediator - verify and affirm a leg as a named mediator
func AffirmAsMediator(ctx context.Context, settlementId uint64, legIndex int, signerName string) error {

	if !initialised() {
		return fault.ErrNotInitialised
	}

	mediator, err := vault.ResolveSigner(signerName)
	if nil != err {
		return err
	}
	return settlement.AffirmAsMediator(ctx, settlement.SettlementId(settlementId), legIndex, mediator)
}

// ExecuteSettlement - broadcast the batched execution
func ExecuteSettlement(ctx context.Context, settlementId uint64) (string, error) {

	if !initialised() {
		return "", fault.ErrNotInitialised
	}

	txHash, err := settlement.Execute(ctx, settlement.SettlementId(settlementId))
	if nil != err {
		return "", err
	}
	return hex.EncodeToString(txHash), nil
}
