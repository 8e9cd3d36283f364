// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package elgamal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/confidentiald/elgamal"
	"github.com/bitmark-inc/confidentiald/fault"
)

const testDecryptBound = 1000000

func TestKeyPairRoundTrip(t *testing.T) {
	sk, pub, err := elgamal.GenerateKeyPair()
	require.NoError(t, err)
	assert.True(t, pub.IsValid())

	restored, err := elgamal.SecretKeyFromBytes(sk.Bytes())
	require.NoError(t, err)
	assert.Equal(t, pub, restored.PublicKey())

	text, err := pub.MarshalText()
	require.NoError(t, err)
	var decoded elgamal.PublicKey
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, pub, decoded)
}

func TestSecretKeyFromBytesRejectsBadInput(t *testing.T) {
	_, err := elgamal.SecretKeyFromBytes([]byte{0x01, 0x02})
	assert.Equal(t, fault.ErrKeyLength, err)

	_, err = elgamal.SecretKeyFromBytes(make([]byte, elgamal.SecretKeySize))
	assert.Equal(t, fault.ErrInvalidPrivateKey, err)
}

func TestPublicKeyFromBytesRejectsGarbage(t *testing.T) {
	garbage := make([]byte, elgamal.PublicKeySize)
	for i := range garbage {
		garbage[i] = 0xff
	}
	_, err := elgamal.PublicKeyFromBytes(garbage)
	assert.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	sk, pub, err := elgamal.GenerateKeyPair()
	require.NoError(t, err)

	for _, amount := range []uint64{0, 1, 7, 999, 123456} {
		ct, err := elgamal.Encrypt(pub, amount)
		require.NoError(t, err)

		recovered, err := sk.Decrypt(ct, testDecryptBound)
		require.NoError(t, err)
		assert.Equal(t, amount, recovered)
	}
}

func TestDecryptBoundExceeded(t *testing.T) {
	sk, pub, err := elgamal.GenerateKeyPair()
	require.NoError(t, err)

	ct, err := elgamal.Encrypt(pub, 5000)
	require.NoError(t, err)

	_, err = sk.Decrypt(ct, 100)
	assert.Equal(t, fault.ErrDecryptionBoundExceeded, err)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	_, pub, err := elgamal.GenerateKeyPair()
	require.NoError(t, err)
	other, _, err := elgamal.GenerateKeyPair()
	require.NoError(t, err)

	ct, err := elgamal.Encrypt(pub, 42)
	require.NoError(t, err)

	_, err = other.Decrypt(ct, 1000)
	assert.Equal(t, fault.ErrDecryptionBoundExceeded, err)
}

func TestHomomorphicAddSub(t *testing.T) {
	sk, pub, err := elgamal.GenerateKeyPair()
	require.NoError(t, err)

	a, err := elgamal.Encrypt(pub, 30)
	require.NoError(t, err)
	b, err := elgamal.Encrypt(pub, 12)
	require.NoError(t, err)

	sum, err := a.Add(b)
	require.NoError(t, err)
	recovered, err := sk.Decrypt(sum, testDecryptBound)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), recovered)

	diff, err := sum.Sub(b)
	require.NoError(t, err)
	recovered, err = sk.Decrypt(diff, testDecryptBound)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), recovered)
}

func TestZeroCipherTextIsIdentity(t *testing.T) {
	sk, pub, err := elgamal.GenerateKeyPair()
	require.NoError(t, err)

	zero := elgamal.Zero()
	recovered, err := sk.Decrypt(zero, testDecryptBound)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), recovered)

	ct, err := elgamal.Encrypt(pub, 77)
	require.NoError(t, err)
	same, err := ct.Add(zero)
	require.NoError(t, err)
	recovered, err = sk.Decrypt(same, testDecryptBound)
	require.NoError(t, err)
	assert.Equal(t, uint64(77), recovered)
}

func TestCipherTextSerialisation(t *testing.T) {
	_, pub, err := elgamal.GenerateKeyPair()
	require.NoError(t, err)

	ct, err := elgamal.Encrypt(pub, 11)
	require.NoError(t, err)

	restored, err := elgamal.CipherTextFromBytes(ct.Bytes())
	require.NoError(t, err)
	assert.Equal(t, ct, restored)

	_, err = elgamal.CipherTextFromBytes([]byte{0x00})
	assert.Equal(t, fault.ErrInvalidCiphertext, err)
}

func TestSenderProofRoundTrip(t *testing.T) {
	senderSK, senderPub, err := elgamal.GenerateKeyPair()
	require.NoError(t, err)
	receiverSK, receiverPub, err := elgamal.GenerateKeyPair()
	require.NoError(t, err)
	_, auditorPub, err := elgamal.GenerateKeyPair()
	require.NoError(t, err)
	auditorSK2, auditorPub2, err := elgamal.GenerateKeyPair()
	require.NoError(t, err)

	auditors := []elgamal.PublicKey{auditorPub, auditorPub2}

	const amount = 50
	binding := []byte("settlement-leg-binding")
	proof, err := elgamal.ProveSender(senderPub, receiverPub, auditors, amount, binding)
	require.NoError(t, err)
	assert.Equal(t, 4, proof.KeyCount())

	parsed, err := elgamal.SenderProofFromBytes(proof.Bytes())
	require.NoError(t, err)

	require.NoError(t, parsed.Verify(senderPub, receiverPub, auditors, binding))
	require.NoError(t, parsed.VerifyAmount(senderPub, receiverPub, auditors, amount, binding))

	err = parsed.VerifyAmount(senderPub, receiverPub, auditors, amount+1, binding)
	assert.Equal(t, fault.ErrProofAmountMismatch, err)

	// every embedded ciphertext decrypts to the same amount under
	// the matching key
	senderCT, err := parsed.CipherTextFor(elgamal.SenderKeyIndex)
	require.NoError(t, err)
	recovered, err := senderSK.Decrypt(senderCT, testDecryptBound)
	require.NoError(t, err)
	assert.Equal(t, uint64(amount), recovered)

	receiverCT, err := parsed.CipherTextFor(elgamal.ReceiverKeyIndex)
	require.NoError(t, err)
	recovered, err = receiverSK.Decrypt(receiverCT, testDecryptBound)
	require.NoError(t, err)
	assert.Equal(t, uint64(amount), recovered)

	auditorCT, err := parsed.CipherTextFor(3)
	require.NoError(t, err)
	recovered, err = auditorSK2.Decrypt(auditorCT, testDecryptBound)
	require.NoError(t, err)
	assert.Equal(t, uint64(amount), recovered)
}

func TestSenderProofRejectsWrongKeys(t *testing.T) {
	_, senderPub, err := elgamal.GenerateKeyPair()
	require.NoError(t, err)
	_, receiverPub, err := elgamal.GenerateKeyPair()
	require.NoError(t, err)
	_, auditorPub, err := elgamal.GenerateKeyPair()
	require.NoError(t, err)
	_, strangerPub, err := elgamal.GenerateKeyPair()
	require.NoError(t, err)

	auditors := []elgamal.PublicKey{auditorPub}

	binding := []byte("leg-0")
	proof, err := elgamal.ProveSender(senderPub, receiverPub, auditors, 9, binding)
	require.NoError(t, err)

	// swapped parties
	err = proof.Verify(receiverPub, senderPub, auditors, binding)
	assert.Equal(t, fault.ErrInvalidProof, err)

	// substituted auditor
	err = proof.Verify(senderPub, receiverPub, []elgamal.PublicKey{strangerPub}, binding)
	assert.Equal(t, fault.ErrInvalidProof, err)

	// wrong cardinality
	err = proof.Verify(senderPub, receiverPub, nil, binding)
	assert.Equal(t, fault.ErrProofCommitmentMismatch, err)

	// different transcript binding
	err = proof.Verify(senderPub, receiverPub, auditors, []byte("leg-1"))
	assert.Equal(t, fault.ErrInvalidProof, err)
}

func TestSenderProofRejectsTruncatedBytes(t *testing.T) {
	_, senderPub, err := elgamal.GenerateKeyPair()
	require.NoError(t, err)
	_, receiverPub, err := elgamal.GenerateKeyPair()
	require.NoError(t, err)

	proof, err := elgamal.ProveSender(senderPub, receiverPub, nil, 3, nil)
	require.NoError(t, err)

	raw := proof.Bytes()

	_, err = elgamal.SenderProofFromBytes(raw[:len(raw)-1])
	assert.Equal(t, fault.ErrMalformedProof, err)

	_, err = elgamal.SenderProofFromBytes(nil)
	assert.Equal(t, fault.ErrMalformedProof, err)

	bad := make([]byte, len(raw))
	copy(bad, raw)
	bad[0] = 0x7f // unknown version
	_, err = elgamal.SenderProofFromBytes(bad)
	assert.Equal(t, fault.ErrMalformedProof, err)
}
