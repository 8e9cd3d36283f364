// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault_test

import (
	"crypto/rand"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/ed25519"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/confidentiald/elgamal"
	"github.com/bitmark-inc/confidentiald/fault"
	"github.com/bitmark-inc/confidentiald/storage"
	"github.com/bitmark-inc/confidentiald/vault"
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

	err = vault.Initialise(
		&vault.Configuration{Passphrase: "incorrect horse battery staple"},
		elgamal.Scheme{},
	)
	require.NoError(t, err)
}

func teardown(t *testing.T) {
	vault.Finalise()
	storage.Finalise()
	logger.Finalise()
	removeFiles()
}

func removeFiles() {
	os.RemoveAll(testingDirName)
}

func TestRegisterAndResolveSigner(t *testing.T) {
	setup(t)
	defer teardown(t)

	id, pub, err := vault.RegisterSigner("issuer")
	require.NoError(t, err)
	assert.Len(t, pub, ed25519.PublicKeySize)

	resolved, err := vault.ResolveSigner("issuer")
	require.NoError(t, err)
	assert.Equal(t, id, resolved)

	stored, err := vault.SignerPublicKey(id)
	require.NoError(t, err)
	assert.Equal(t, pub, stored)

	name, err := vault.SignerName(id)
	require.NoError(t, err)
	assert.Equal(t, "issuer", name)

	// duplicate name
	_, _, err = vault.RegisterSigner("issuer")
	assert.Equal(t, fault.ErrSignerAlreadyExists, err)

	// unknown name
	_, err = vault.ResolveSigner("nobody")
	assert.Equal(t, fault.ErrSignerNotFound, err)
}

func TestSignSubmission(t *testing.T) {
	setup(t)
	defer teardown(t)

	id, pub, err := vault.RegisterSigner("venue-owner")
	require.NoError(t, err)

	payload := []byte("settlement submission payload")
	signature, err := vault.SignSubmission(id, payload)
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(pub), payload, signature))

	_, err = vault.SignSubmission(vault.SignerId{0xff}, payload)
	assert.Equal(t, fault.ErrSignerNotFound, err)
}

func TestImportSigner(t *testing.T) {
	setup(t)
	defer teardown(t)

	pub, prv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	id, storedPub, err := vault.ImportSigner("imported", prv)
	require.NoError(t, err)
	assert.Equal(t, []byte(pub), storedPub)

	signature, err := vault.SignSubmission(id, []byte("x"))
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(pub, []byte("x"), signature))

	_, _, err = vault.ImportSigner("short-key", []byte{0x01})
	assert.Equal(t, fault.ErrInvalidPrivateKey, err)
}

func TestCreateAccountAndSecret(t *testing.T) {
	setup(t)
	defer teardown(t)

	public, err := vault.CreateAccount()
	require.NoError(t, err)
	assert.True(t, vault.HasAccount(public))

	ref, err := vault.Secret(public)
	require.NoError(t, err)

	secret, err := ref.Bytes()
	require.NoError(t, err)

	derived, err := elgamal.Scheme{}.PublicKeyOf(secret)
	require.NoError(t, err)
	assert.Equal(t, public, derived)

	ref.Release()
	_, err = ref.Bytes()
	assert.Equal(t, fault.ErrSecretReleased, err)

	// double release is harmless
	ref.Release()
}

func TestSecretUnknownAccount(t *testing.T) {
	setup(t)
	defer teardown(t)

	_, err := vault.Secret([]byte("no such account"))
	assert.Equal(t, fault.ErrAccountNotFound, err)

	assert.False(t, vault.HasAccount([]byte("no such account")))
}

func TestSignerIdTextRoundTrip(t *testing.T) {
	setup(t)
	defer teardown(t)

	id, _, err := vault.RegisterSigner("text")
	require.NoError(t, err)

	text, err := id.MarshalText()
	require.NoError(t, err)

	var decoded vault.SignerId
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, id, decoded)
}
