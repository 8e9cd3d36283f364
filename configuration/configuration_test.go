// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/confidentiald/configuration"
	"github.com/bitmark-inc/confidentiald/fault"
)

const testingDirName = "testing"

const configurationText = `
local M = {}

M.data_directory = arg[0]:match("(.*/)")

M.chain = {
    submit = "tcp://127.0.0.1:3130",
    subscribe = "tcp://127.0.0.1:3131",
    rate_per_second = 5.0,
    burst = 2,
    retries = 4,
}

M.proof = {
    workers = 3,
    queue_size = 32,
    max_decrypt_value = 1000000,
}

M.vault = {
    passphrase = os.getenv("TEST_VAULT_PASSPHRASE") or "fallback",
}

M.balance = {
    enable_balance_mirror = true,
}

M.logging = {
    size = 65536,
    count = 5,
    levels = {
        DEFAULT = "info",
    },
}

return M
`

func writeConfiguration(t *testing.T) string {
	os.RemoveAll(testingDirName)
	err := os.Mkdir(testingDirName, 0o700)
	require.NoError(t, err)

	fileName := filepath.Join(testingDirName, "confidentiald.conf")
	err = os.WriteFile(fileName, []byte(configurationText), 0o600)
	require.NoError(t, err)
	return fileName
}

func TestGetConfiguration(t *testing.T) {
	fileName := writeConfiguration(t)
	defer os.RemoveAll(testingDirName)

	os.Setenv("TEST_VAULT_PASSPHRASE", "incorrect horse battery staple")
	defer os.Unsetenv("TEST_VAULT_PASSPHRASE")

	options, err := configuration.GetConfiguration(fileName)
	require.NoError(t, err)

	assert.Equal(t, "tcp://127.0.0.1:3130", options.Chain.Submit)
	assert.Equal(t, "tcp://127.0.0.1:3131", options.Chain.Subscribe)
	assert.Equal(t, 5.0, options.Chain.RatePerSecond)
	assert.Equal(t, 2, options.Chain.Burst)
	assert.Equal(t, 4, options.Chain.Retries)

	assert.Equal(t, 3, options.Proof.Workers)
	assert.Equal(t, 32, options.Proof.QueueSize)
	assert.Equal(t, uint64(1000000), options.Proof.MaxDecryptValue)

	// Lua can pull secrets from the environment
	assert.Equal(t, "incorrect horse battery staple", options.Vault.Passphrase)

	assert.True(t, options.Balance.EnableMirror)

	// relative paths resolve under the data directory
	assert.True(t, filepath.IsAbs(options.DataDirectory))
	assert.True(t, filepath.IsAbs(options.Database))
	assert.Equal(t, filepath.Join(options.DataDirectory, "data", "confidential-data.leveldb"), options.Database)
	assert.Equal(t, filepath.Join(options.DataDirectory, "confidentiald.pid"), options.PidFile)
	assert.Equal(t, filepath.Join(options.DataDirectory, "log"), options.Logging.Directory)

	// defaults survive where the file is silent
	assert.Equal(t, 5, options.Logging.Count)
	assert.Equal(t, 65536, options.Logging.Size)
	assert.Equal(t, "info", options.Logging.Levels["DEFAULT"])
}

func TestGetConfigurationMissingFile(t *testing.T) {
	_, err := configuration.GetConfiguration("no-such-directory/no-such-file.conf")
	assert.Error(t, err)
}

func TestParseConfigurationFileRejectsNonStructPointer(t *testing.T) {
	fileName := writeConfiguration(t)
	defer os.RemoveAll(testingDirName)

	var options configuration.Configuration
	err := configuration.ParseConfigurationFile(fileName, options)
	assert.Equal(t, fault.ErrInvalidStructPointer, err)

	var nothing *configuration.Configuration
	err = configuration.ParseConfigurationFile(fileName, nothing)
	assert.Equal(t, fault.ErrInvalidStructPointer, err)

	count := 0
	err = configuration.ParseConfigurationFile(fileName, &count)
	assert.Equal(t, fault.ErrInvalidStructPointer, err)
}

func TestParseConfigurationFileRejectsNonTableResult(t *testing.T) {
	os.RemoveAll(testingDirName)
	err := os.Mkdir(testingDirName, 0o700)
	require.NoError(t, err)
	defer os.RemoveAll(testingDirName)

	fileName := filepath.Join(testingDirName, "broken.conf")
	err = os.WriteFile(fileName, []byte("return 42\n"), 0o600)
	require.NoError(t, err)

	var options configuration.Configuration
	err = configuration.ParseConfigurationFile(fileName, &options)
	require.Error(t, err)
	assert.True(t, fault.IsErrInvalid(err))
}
