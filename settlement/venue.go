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
	"github.com/bitmark-inc/confidentiald/vault"
)

// sequence counter key in the next ids pool
var venueCounterKey = []byte("venue")

// CreateVenue - allocate a venue owned by a signer
func CreateVenue(owner vault.SignerId) (VenueId, error) {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return 0, fault.ErrNotInitialised
	}

	// ownership needs a registered signer
	_, err := vault.SignerName(owner)
	if nil != err {
		return 0, err
	}

	trx, err := storage.NewDBTransaction()
	if nil != err {
		return 0, err
	}

	n, _ := trx.GetN(storage.Pool.NextIds, venueCounterKey)
	venueId := VenueId(n + 1)
	trx.PutN(storage.Pool.NextIds, venueCounterKey, n+1)

	record := make([]byte, 0, len(owner)+8)
	record = append(record, owner[:]...)
	record = appendUint64(record, uint64(time.Now().Unix()))
	trx.Put(storage.Pool.Venues, venueKey(venueId), record)

	err = trx.Commit()
	if nil != err {
		return 0, err
	}

	globalData.log.Infof("venue: %d owner: %s", venueId, owner)
	return venueId, nil
}

// VenueOwner - the signer that created a venue
func VenueOwner(venueId VenueId) (vault.SignerId, error) {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return vault.SignerId{}, fault.ErrNotInitialised
	}
	return venueOwner(venueId)
}

func venueOwner(venueId VenueId) (vault.SignerId, error) {

	data := storage.Pool.Venues.Get(venueKey(venueId))
	if nil == data {
		return vault.SignerId{}, fault.ErrVenueNotFound
	}

	var owner vault.SignerId
	if len(data) != len(owner)+8 {
		globalData.log.Criticalf("corrupt venue record: %d", venueId)
		return vault.SignerId{}, fault.ErrKeyLength
	}
	copy(owner[:], data[:len(owner)])
	return owner, nil
}

// VenueCreatedAt - when a venue was created
func VenueCreatedAt(venueId VenueId) (time.Time, error) {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return time.Time{}, fault.ErrNotInitialised
	}

	data := storage.Pool.Venues.Get(venueKey(venueId))
	if nil == data {
		return time.Time{}, fault.ErrVenueNotFound
	}
	if len(data) < 8 {
		return time.Time{}, fault.ErrKeyLength
	}
	createdAt := binary.BigEndian.Uint64(data[len(data)-8:])
	return time.Unix(int64(createdAt), 0), nil
}
