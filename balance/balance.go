// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package balance

import (
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/confidentiald/asset"
	"github.com/bitmark-inc/confidentiald/fault"
	"github.com/bitmark-inc/confidentiald/proof"
	"github.com/bitmark-inc/confidentiald/storage"
)

// a block of configuration data
// this is read from the configuration file
type Configuration struct {
	EnableMirror bool `gluamapper:"enable_balance_mirror" json:"enable_balance_mirror"`
}

// writes retry this many times on a version conflict
const writeRetries = 5

// globals
type globalDataType struct {
	sync.RWMutex
	log          *logger.L
	provider     proof.Provider
	enableMirror bool
	initialised  bool
}

// global storage
var globalData globalDataType

// Initialise - attach the ciphertext arithmetic provider
func Initialise(configuration *Configuration, provider proof.Provider) error {

	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}
	if nil == provider {
		return fault.ErrMissingParameters
	}

	globalData.log = logger.New("balance")
	globalData.log.Info("starting…")

	globalData.provider = provider
	globalData.enableMirror = configuration.EnableMirror

	globalData.initialised = true
	return nil
}

// Finalise - shut down the ledger
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

// Init - create the zero balance row for an (account, asset) pair
func Init(account []byte, assetId asset.AssetId) error {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return fault.ErrNotInitialised
	}
	if accountKeySize != len(account) {
		return fault.ErrKeyLength
	}
	if !asset.Exists(assetId) {
		return fault.ErrAssetNotFound
	}

	zero := globalData.provider.Zero()
	row := &Record{
		Version:   1,
		Confirmed: zero,
		Pending:   zero,
		UpdatedAt: time.Now().UTC(),
	}
	if globalData.enableMirror {
		m := uint64(0)
		row.Mirror = &m
	}

	key := rowKey(account, assetId)

	trx, err := storage.NewDBTransaction()
	if nil != err {
		return err
	}
	if trx.Has(storage.Pool.Balances, key) {
		trx.Abort()
		return fault.ErrBalanceAlreadyInitialised
	}
	trx.Put(storage.Pool.Balances, key, packRecord(row))
	if err := trx.Commit(); nil != err {
		return err
	}

	globalData.log.Infof("initialised balance %x asset %s", account, assetId)
	return nil
}

// Get - read one ledger row
func Get(account []byte, assetId asset.AssetId) (*Record, error) {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return nil, fault.ErrNotInitialised
	}

	data := storage.Pool.Balances.Get(rowKey(account, assetId))
	if nil == data {
		return nil, fault.ErrBalanceNotFound
	}
	return unpackRecord(data)
}

// IsInitialised - whether the row exists
func IsInitialised(account []byte, assetId asset.AssetId) bool {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return false
	}
	return storage.Pool.Balances.Has(rowKey(account, assetId))
}

// CreditPending - homomorphically add an incoming amount to the
// pending accumulator
//
// the confirmed balance is untouched so in-flight sender proofs
// against it stay valid
func CreditPending(account []byte, assetId asset.AssetId, delta []byte) error {
	return update(account, assetId, func(row *Record) error {
		pending, err := globalData.provider.Add(row.Pending, delta)
		if nil != err {
			return err
		}
		row.Pending = pending
		return nil
	})
}

// ApplyIncoming - fold pending into confirmed and clear pending
//
// idempotent: a zero pending accumulator folds to no change
func ApplyIncoming(account []byte, assetId asset.AssetId) error {
	return update(account, assetId, func(row *Record) error {
		confirmed, err := globalData.provider.Add(row.Confirmed, row.Pending)
		if nil != err {
			return err
		}
		row.Confirmed = confirmed
		row.Pending = globalData.provider.Zero()
		return nil
	})
}

// DebitConfirmed - homomorphically subtract a confirmed outgoing
// amount
//
// call only after the transfer is verified and chain confirmed
func DebitConfirmed(account []byte, assetId asset.AssetId, delta []byte) error {
	return update(account, assetId, func(row *Record) error {
		confirmed, err := globalData.provider.Sub(row.Confirmed, delta)
		if nil != err {
			return err
		}
		row.Confirmed = confirmed
		return nil
	})
}

// Mint - issuer operation adding a cleartext amount directly to the
// confirmed balance
func Mint(account []byte, assetId asset.AssetId, amount uint64) error {
	return update(account, assetId, func(row *Record) error {
		minted, err := globalData.provider.Encrypt(account, amount)
		if nil != err {
			return err
		}
		confirmed, err := globalData.provider.Add(row.Confirmed, minted)
		if nil != err {
			return err
		}
		row.Confirmed = confirmed
		if nil != row.Mirror {
			m := *row.Mirror + amount
			row.Mirror = &m
		}
		return nil
	})
}

// RecordDecrypted - refresh the cleartext mirror after the owner
// decrypted the confirmed balance
//
// ignored unless the mirror is enabled; the mirror is advisory and
// never consulted by proofs
func RecordDecrypted(account []byte, assetId asset.AssetId, value uint64) error {

	globalData.RLock()
	enabled := globalData.enableMirror
	globalData.RUnlock()

	if !enabled {
		return nil
	}

	return update(account, assetId, func(row *Record) error {
		v := value
		row.Mirror = &v
		return nil
	})
}

// update - read, modify, write with optimistic version checking
//
// the modify callback works on a decoded copy outside the store
// lock; the write re-reads the version and retries when another
// writer got in first
func update(account []byte, assetId asset.AssetId, modify func(*Record) error) error {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return fault.ErrNotInitialised
	}

	key := rowKey(account, assetId)

	for attempt := 0; attempt < writeRetries; attempt += 1 {

		data := storage.Pool.Balances.Get(key)
		if nil == data {
			return fault.ErrBalanceNotFound
		}
		row, err := unpackRecord(data)
		if nil != err {
			return err
		}
		expectedVersion := row.Version

		if err := modify(row); nil != err {
			return err
		}
		row.Version = expectedVersion + 1
		row.UpdatedAt = time.Now().UTC()

		trx, err := storage.NewDBTransaction()
		if nil != err {
			return err
		}
		current := trx.Get(storage.Pool.Balances, key)
		if nil == current {
			trx.Abort()
			return fault.ErrBalanceNotFound
		}
		currentRow, err := unpackRecord(current)
		if nil != err {
			trx.Abort()
			return err
		}
		if currentRow.Version != expectedVersion {
			trx.Abort()
			continue
		}

		trx.Put(storage.Pool.Balances, key, packRecord(row))
		return trx.Commit()
	}

	return fault.ErrConcurrentModification
}
