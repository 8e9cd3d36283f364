// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package proof_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/confidentiald/elgamal"
	"github.com/bitmark-inc/confidentiald/fault"
	"github.com/bitmark-inc/confidentiald/proof"
)

const (
	testingDirName = "testing"
	testMaxDecrypt = 1000000
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

	err = proof.Initialise(
		&proof.Configuration{
			Workers:         2,
			QueueSize:       8,
			MaxDecryptValue: testMaxDecrypt,
		},
		elgamal.Scheme{},
	)
	require.NoError(t, err)
}

func teardown(t *testing.T) {
	proof.Finalise()
	logger.Finalise()
	removeFiles()
}

func removeFiles() {
	os.RemoveAll(testingDirName)
}

type party struct {
	secret []byte
	public []byte
}

func newParty(t *testing.T) party {
	secret, public, err := elgamal.Scheme{}.GenerateKeyPair()
	require.NoError(t, err)
	return party{secret: secret, public: public}
}

func TestGenerateAndVerifySenderProof(t *testing.T) {
	setup(t)
	defer teardown(t)

	ctx := context.Background()
	scheme := elgamal.Scheme{}

	sender := newParty(t)
	receiver := newParty(t)
	mediator := newParty(t)

	senderBalance, err := scheme.Encrypt(sender.public, 100)
	require.NoError(t, err)

	result, err := proof.GenerateSenderProof(
		ctx, sender.secret, senderBalance,
		receiver.public, [][]byte{mediator.public}, 50,
	)
	require.NoError(t, err)
	require.NotNil(t, result)

	// structural check without amount
	v, err := proof.VerifyProof(
		ctx, result.Proof,
		sender.public, receiver.public, [][]byte{mediator.public},
		senderBalance, nil,
	)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.NoError(t, v.Reason)

	// exact amount check
	amount := uint64(50)
	v, err = proof.VerifyProof(
		ctx, result.Proof,
		sender.public, receiver.public, [][]byte{mediator.public},
		senderBalance, &amount,
	)
	require.NoError(t, err)
	assert.True(t, v.Valid)

	// wrong amount is invalid, not an engine error
	wrong := uint64(49)
	v, err = proof.VerifyProof(
		ctx, result.Proof,
		sender.public, receiver.public, [][]byte{mediator.public},
		senderBalance, &wrong,
	)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, fault.ErrProofAmountMismatch, v.Reason)

	// the embedded ciphertexts decrypt to the transfer amount
	value, err := proof.DecryptBalance(ctx, sender.secret, result.SenderAmount)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), value)

	value, err = proof.DecryptBalance(ctx, receiver.secret, result.ReceiverAmount)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), value)
}

func TestGenerateSenderProofInsufficientBalance(t *testing.T) {
	setup(t)
	defer teardown(t)

	ctx := context.Background()
	scheme := elgamal.Scheme{}

	sender := newParty(t)
	receiver := newParty(t)

	senderBalance, err := scheme.Encrypt(sender.public, 100)
	require.NoError(t, err)

	_, err = proof.GenerateSenderProof(
		ctx, sender.secret, senderBalance,
		receiver.public, nil, 200,
	)
	assert.Equal(t, fault.ErrInsufficientBalance, err)
}

func TestGenerateSenderProofAmountBound(t *testing.T) {
	setup(t)
	defer teardown(t)

	ctx := context.Background()
	scheme := elgamal.Scheme{}

	sender := newParty(t)
	receiver := newParty(t)

	senderBalance, err := scheme.Encrypt(sender.public, 10)
	require.NoError(t, err)

	_, err = proof.GenerateSenderProof(
		ctx, sender.secret, senderBalance,
		receiver.public, nil, testMaxDecrypt+1,
	)
	assert.Equal(t, fault.ErrInvalidAmount, err)
}

func TestVerifyMalformedProof(t *testing.T) {
	setup(t)
	defer teardown(t)

	ctx := context.Background()

	sender := newParty(t)
	receiver := newParty(t)

	v, err := proof.VerifyProof(
		ctx, []byte{0x00, 0x01, 0x02},
		sender.public, receiver.public, nil,
		nil, nil,
	)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, fault.ErrMalformedProof, v.Reason)
}

func TestGenerateSenderProofBadReceiverKey(t *testing.T) {
	setup(t)
	defer teardown(t)

	ctx := context.Background()
	scheme := elgamal.Scheme{}

	sender := newParty(t)

	senderBalance, err := scheme.Encrypt(sender.public, 100)
	require.NoError(t, err)

	_, err = proof.GenerateSenderProof(
		ctx, sender.secret, senderBalance,
		[]byte{0xde, 0xad}, nil, 10,
	)
	assert.Equal(t, fault.ErrProofGenerationFailed, err)
}

func TestDecryptBalanceGarbage(t *testing.T) {
	setup(t)
	defer teardown(t)

	holder := newParty(t)

	_, err := proof.DecryptBalance(context.Background(), holder.secret, []byte{0x01, 0x02, 0x03})
	assert.Equal(t, fault.ErrDecryptionFailed, err)
}

func TestDecryptBalanceBound(t *testing.T) {
	setup(t)
	defer teardown(t)

	ctx := context.Background()
	scheme := elgamal.Scheme{}

	holder := newParty(t)

	over, err := scheme.Encrypt(holder.public, testMaxDecrypt+5)
	require.NoError(t, err)

	_, err = proof.DecryptBalance(ctx, holder.secret, over)
	assert.Equal(t, fault.ErrDecryptionBoundExceeded, err)
}
