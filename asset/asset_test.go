// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package asset_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/confidentiald/asset"
	"github.com/bitmark-inc/confidentiald/fault"
	"github.com/bitmark-inc/confidentiald/storage"
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

	err = asset.Initialise()
	require.NoError(t, err)
}

func teardown(t *testing.T) {
	asset.Finalise()
	storage.Finalise()
	logger.Finalise()
	removeFiles()
}

func removeFiles() {
	os.RemoveAll(testingDirName)
}

func TestCreateAndResolve(t *testing.T) {
	setup(t)
	defer teardown(t)

	id, err := asset.Create("ACME")
	require.NoError(t, err)
	assert.True(t, asset.Exists(id))

	// by ticker
	resolved, err := asset.Resolve("ACME")
	require.NoError(t, err)
	assert.Equal(t, id, resolved)

	// by hex id
	resolved, err = asset.Resolve(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, resolved)

	ticker, err := asset.Ticker(id)
	require.NoError(t, err)
	assert.Equal(t, "ACME", ticker)

	_, err = asset.Resolve("GONE")
	assert.Equal(t, fault.ErrAssetNotFound, err)
}

func TestCreateWithoutTicker(t *testing.T) {
	setup(t)
	defer teardown(t)

	id, err := asset.Create("")
	require.NoError(t, err)
	assert.True(t, asset.Exists(id))

	ticker, err := asset.Ticker(id)
	require.NoError(t, err)
	assert.Equal(t, "", ticker)
}

func TestCreateUniqueIds(t *testing.T) {
	setup(t)
	defer teardown(t)

	seen := make(map[asset.AssetId]struct{})
	for i := 0; i < 10; i += 1 {
		id, err := asset.Create("")
		require.NoError(t, err)
		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestTickerUniqueness(t *testing.T) {
	setup(t)
	defer teardown(t)

	_, err := asset.Create("DUP")
	require.NoError(t, err)

	_, err = asset.Create("DUP")
	assert.Equal(t, fault.ErrTickerAlreadyTaken, err)
}

func TestInvalidTicker(t *testing.T) {
	setup(t)
	defer teardown(t)

	_, err := asset.Create("lowercase")
	assert.Equal(t, fault.ErrInvalidTicker, err)

	_, err = asset.Create("WAY-TOO-LONG-TICKER")
	assert.Equal(t, fault.ErrInvalidTicker, err)
}

func TestRenameTicker(t *testing.T) {
	setup(t)
	defer teardown(t)

	id, err := asset.Create("OLD")
	require.NoError(t, err)
	other, err := asset.Create("HELD")
	require.NoError(t, err)

	require.NoError(t, asset.RenameTicker(id, "NEW"))

	// id unchanged, old spelling released
	resolved, err := asset.Resolve("NEW")
	require.NoError(t, err)
	assert.Equal(t, id, resolved)

	_, err = asset.Resolve("OLD")
	assert.Equal(t, fault.ErrAssetNotFound, err)

	// held spellings stay reserved
	err = asset.RenameTicker(id, "HELD")
	assert.Equal(t, fault.ErrTickerAlreadyTaken, err)

	// unknown asset
	err = asset.RenameTicker(asset.AssetId{0x01}, "FRESH")
	assert.Equal(t, fault.ErrAssetNotFound, err)

	// the other asset is untouched
	ticker, err := asset.Ticker(other)
	require.NoError(t, err)
	assert.Equal(t, "HELD", ticker)
}
