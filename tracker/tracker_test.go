// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tracker_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/sha3"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/confidentiald/fault"
	"github.com/bitmark-inc/confidentiald/storage"
	"github.com/bitmark-inc/confidentiald/tracker"
)

const (
	testingDirName   = "testing"
	databaseFileName = testingDirName + "/test"
)

func setup(t *testing.T) {
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

	err = tracker.Initialise()
	require.NoError(t, err)
}

func teardown(t *testing.T) {
	tracker.Finalise()
	storage.Finalise()
	logger.Finalise()
	removeFiles()
}

func removeFiles() {
	os.RemoveAll(testingDirName)
}

func hash(s string) []byte {
	h := sha3.Sum256([]byte(s))
	return h[:]
}

func TestRecordAndStatus(t *testing.T) {
	setup(t)
	defer teardown(t)

	blockHash := hash("block-1")
	txHash := hash("tx-1")

	err := tracker.Record(blockHash, txHash, 42, true, "", []string{"settlement.executed"})
	require.NoError(t, err)

	entry, found := tracker.Status(txHash)
	require.True(t, found)
	assert.Equal(t, blockHash, entry.BlockHash)
	assert.Equal(t, uint64(42), entry.BlockNumber)
	assert.True(t, entry.Success)
	assert.Equal(t, "", entry.Error)
	assert.Equal(t, []string{"settlement.executed"}, entry.Events)

	_, found = tracker.Status(hash("tx-unknown"))
	assert.False(t, found)
}

func TestDuplicateRejected(t *testing.T) {
	setup(t)
	defer teardown(t)

	blockHash := hash("block-1")
	txHash := hash("tx-1")

	require.NoError(t, tracker.Record(blockHash, txHash, 7, true, "", nil))

	err := tracker.Record(blockHash, txHash, 7, true, "", nil)
	assert.Equal(t, fault.ErrDuplicateTransaction, err)
}

func TestReorgReplacesEntry(t *testing.T) {
	setup(t)
	defer teardown(t)

	txHash := hash("tx-1")

	require.NoError(t, tracker.Record(hash("block-1"), txHash, 7, true, "", nil))

	// same transaction confirmed in a different block
	require.NoError(t, tracker.Record(hash("block-1a"), txHash, 8, true, "", nil))

	entry, found := tracker.Status(txHash)
	require.True(t, found)
	assert.Equal(t, hash("block-1a"), entry.BlockHash)
	assert.Equal(t, uint64(8), entry.BlockNumber)
}

func TestFailedTransaction(t *testing.T) {
	setup(t)
	defer teardown(t)

	err := tracker.Record(hash("block-2"), hash("tx-2"), 9, false, "insufficient fee", nil)
	require.NoError(t, err)

	entry, found := tracker.Status(hash("tx-2"))
	require.True(t, found)
	assert.False(t, entry.Success)
	assert.Equal(t, "insufficient fee", entry.Error)
}

func TestRejectsBadHashLength(t *testing.T) {
	setup(t)
	defer teardown(t)

	err := tracker.Record([]byte{0x01}, hash("tx"), 1, true, "", nil)
	assert.Equal(t, fault.ErrKeyLength, err)

	err = tracker.Record(hash("block"), []byte{0x01}, 1, true, "", nil)
	assert.Equal(t, fault.ErrKeyLength, err)
}
