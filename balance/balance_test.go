// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package balance_test

import (
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/confidentiald/asset"
	"github.com/bitmark-inc/confidentiald/balance"
	"github.com/bitmark-inc/confidentiald/elgamal"
	"github.com/bitmark-inc/confidentiald/fault"
	"github.com/bitmark-inc/confidentiald/storage"
)

const (
	testingDirName   = "testing"
	databaseFileName = testingDirName + "/test"
	testBound        = 1000000
)

var scheme = elgamal.Scheme{}

func setup(t *testing.T, mirror bool) {
	removeFiles()
	err := os.Mkdir(testingDirName, 0o700)
	require.NoError(t, err)

	logging := logger.Configuration{
		Directory: testingDirName,
		File:      "testing.log",
		Size:      1048576,
		Count:     10,
		Console:   false,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	}

	// start logging
	_ = logger.Initialise(logging)

	err = storage.Initialise(databaseFileName, storage.ReadWrite)
	require.NoError(t, err)

	err = asset.Initialise()
	require.NoError(t, err)

	err = balance.Initialise(&balance.Configuration{EnableMirror: mirror}, scheme)
	require.NoError(t, err)
}

func teardown(t *testing.T) {
	balance.Finalise()
	asset.Finalise()
	storage.Finalise()
	logger.Finalise()
	removeFiles()
}

func removeFiles() {
	os.RemoveAll(testingDirName)
}

type account struct {
	secret []byte
	public []byte
}

func newAccount(t *testing.T) account {
	secret, public, err := scheme.GenerateKeyPair()
	require.NoError(t, err)
	return account{secret: secret, public: public}
}

func newAsset(t *testing.T) asset.AssetId {
	id, err := asset.Create("")
	require.NoError(t, err)
	return id
}

func decrypt(t *testing.T, holder account, ciphertext []byte) uint64 {
	value, err := scheme.Decrypt(holder.secret, ciphertext, testBound)
	require.NoError(t, err)
	return value
}

func TestInitAndGet(t *testing.T) {
	setup(t, false)
	defer teardown(t)

	holder := newAccount(t)
	assetId := newAsset(t)

	require.NoError(t, balance.Init(holder.public, assetId))
	assert.True(t, balance.IsInitialised(holder.public, assetId))

	row, err := balance.Get(holder.public, assetId)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), row.Version)
	assert.Equal(t, uint64(0), decrypt(t, holder, row.Confirmed))
	assert.Equal(t, uint64(0), decrypt(t, holder, row.Pending))
	assert.Nil(t, row.Mirror)

	err = balance.Init(holder.public, assetId)
	assert.Equal(t, fault.ErrBalanceAlreadyInitialised, err)

	err = balance.Init(holder.public, asset.AssetId{0xee})
	assert.Equal(t, fault.ErrAssetNotFound, err)

	_, err = balance.Get(holder.public, asset.AssetId{0xee})
	assert.Equal(t, fault.ErrBalanceNotFound, err)
}

func TestCreditPendingAndApply(t *testing.T) {
	setup(t, false)
	defer teardown(t)

	holder := newAccount(t)
	assetId := newAsset(t)
	require.NoError(t, balance.Init(holder.public, assetId))

	incoming, err := scheme.Encrypt(holder.public, 30)
	require.NoError(t, err)
	require.NoError(t, balance.CreditPending(holder.public, assetId, incoming))

	// credit lands in pending only
	row, err := balance.Get(holder.public, assetId)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), decrypt(t, holder, row.Confirmed))
	assert.Equal(t, uint64(30), decrypt(t, holder, row.Pending))

	more, err := scheme.Encrypt(holder.public, 12)
	require.NoError(t, err)
	require.NoError(t, balance.CreditPending(holder.public, assetId, more))

	require.NoError(t, balance.ApplyIncoming(holder.public, assetId))
	row, err = balance.Get(holder.public, assetId)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), decrypt(t, holder, row.Confirmed))
	assert.Equal(t, uint64(0), decrypt(t, holder, row.Pending))

	// applying an empty accumulator changes nothing
	require.NoError(t, balance.ApplyIncoming(holder.public, assetId))
	again, err := balance.Get(holder.public, assetId)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), decrypt(t, holder, again.Confirmed))
	assert.Equal(t, uint64(0), decrypt(t, holder, again.Pending))
}

func TestMintAndDebit(t *testing.T) {
	setup(t, false)
	defer teardown(t)

	holder := newAccount(t)
	assetId := newAsset(t)
	require.NoError(t, balance.Init(holder.public, assetId))

	require.NoError(t, balance.Mint(holder.public, assetId, 100))

	row, err := balance.Get(holder.public, assetId)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), decrypt(t, holder, row.Confirmed))

	outgoing, err := scheme.Encrypt(holder.public, 40)
	require.NoError(t, err)
	require.NoError(t, balance.DebitConfirmed(holder.public, assetId, outgoing))

	row, err = balance.Get(holder.public, assetId)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), decrypt(t, holder, row.Confirmed))
}

func TestVersionAdvances(t *testing.T) {
	setup(t, false)
	defer teardown(t)

	holder := newAccount(t)
	assetId := newAsset(t)
	require.NoError(t, balance.Init(holder.public, assetId))

	require.NoError(t, balance.Mint(holder.public, assetId, 5))
	require.NoError(t, balance.ApplyIncoming(holder.public, assetId))

	row, err := balance.Get(holder.public, assetId)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), row.Version)
}

func TestMirror(t *testing.T) {
	setup(t, true)
	defer teardown(t)

	holder := newAccount(t)
	assetId := newAsset(t)
	require.NoError(t, balance.Init(holder.public, assetId))

	row, err := balance.Get(holder.public, assetId)
	require.NoError(t, err)
	require.NotNil(t, row.Mirror)
	assert.Equal(t, uint64(0), *row.Mirror)

	require.NoError(t, balance.Mint(holder.public, assetId, 25))
	row, err = balance.Get(holder.public, assetId)
	require.NoError(t, err)
	require.NotNil(t, row.Mirror)
	assert.Equal(t, uint64(25), *row.Mirror)

	require.NoError(t, balance.RecordDecrypted(holder.public, assetId, 999))
	row, err = balance.Get(holder.public, assetId)
	require.NoError(t, err)
	require.NotNil(t, row.Mirror)
	assert.Equal(t, uint64(999), *row.Mirror)
}

// run an operation to completion, absorbing optimistic write
// conflicts the way a real caller would
func retryConflicts(t *testing.T, operation func() error) {
	for {
		err := operation()
		if fault.ErrConcurrentModification == err {
			continue
		}
		if nil != err {
			t.Error(err)
		}
		return
	}
}

func TestConcurrentCreditsLoseNoUpdate(t *testing.T) {
	setup(t, false)
	defer teardown(t)

	holder := newAccount(t)
	assetId := newAsset(t)
	require.NoError(t, balance.Init(holder.public, assetId))

	const writers = 8
	const creditsPerWriter = 10

	var wg sync.WaitGroup
	wg.Add(writers)
	for w := 0; w < writers; w += 1 {
		go func() {
			defer wg.Done()
			for i := 0; i < creditsPerWriter; i += 1 {
				delta, err := scheme.Encrypt(holder.public, 1)
				if nil != err {
					t.Error(err)
					return
				}
				retryConflicts(t, func() error {
					return balance.CreditPending(holder.public, assetId, delta)
				})
			}
		}()
	}
	wg.Wait()

	row, err := balance.Get(holder.public, assetId)
	require.NoError(t, err)
	assert.Equal(t, uint64(writers*creditsPerWriter), decrypt(t, holder, row.Pending))
	assert.Equal(t, uint64(0), decrypt(t, holder, row.Confirmed))
}

func TestConcurrentMixedOperations(t *testing.T) {
	setup(t, false)
	defer teardown(t)

	holder := newAccount(t)
	assetId := newAsset(t)
	require.NoError(t, balance.Init(holder.public, assetId))
	require.NoError(t, balance.Mint(holder.public, assetId, 500))

	const credits = 40
	const debits = 25

	var wg sync.WaitGroup
	wg.Add(3)

	// incoming credits
	go func() {
		defer wg.Done()
		for i := 0; i < credits; i += 1 {
			delta, err := scheme.Encrypt(holder.public, 1)
			if nil != err {
				t.Error(err)
				return
			}
			retryConflicts(t, func() error {
				return balance.CreditPending(holder.public, assetId, delta)
			})
		}
	}()

	// confirmed debits racing the credits
	go func() {
		defer wg.Done()
		for i := 0; i < debits; i += 1 {
			delta, err := scheme.Encrypt(holder.public, 1)
			if nil != err {
				t.Error(err)
				return
			}
			retryConflicts(t, func() error {
				return balance.DebitConfirmed(holder.public, assetId, delta)
			})
		}
	}()

	// sweeps folding pending into confirmed mid-flight
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i += 1 {
			retryConflicts(t, func() error {
				return balance.ApplyIncoming(holder.public, assetId)
			})
		}
	}()

	wg.Wait()

	// whatever the interleaving, the homomorphic total is exact
	retryConflicts(t, func() error {
		return balance.ApplyIncoming(holder.public, assetId)
	})
	row, err := balance.Get(holder.public, assetId)
	require.NoError(t, err)
	assert.Equal(t, uint64(500+credits-debits), decrypt(t, holder, row.Confirmed))
	assert.Equal(t, uint64(0), decrypt(t, holder, row.Pending))
}

func TestOperationsOnMissingRow(t *testing.T) {
	setup(t, false)
	defer teardown(t)

	holder := newAccount(t)
	assetId := newAsset(t)

	delta, err := scheme.Encrypt(holder.public, 1)
	require.NoError(t, err)

	assert.Equal(t, fault.ErrBalanceNotFound, balance.CreditPending(holder.public, assetId, delta))
	assert.Equal(t, fault.ErrBalanceNotFound, balance.ApplyIncoming(holder.public, assetId))
	assert.Equal(t, fault.ErrBalanceNotFound, balance.DebitConfirmed(holder.public, assetId, delta))
	assert.Equal(t, fault.ErrBalanceNotFound, balance.Mint(holder.public, assetId, 1))
}
