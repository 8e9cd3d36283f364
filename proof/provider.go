// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package proof

// Provider - pluggable confidential arithmetic scheme
//
// everything crosses this boundary as serialised bytes so the engine
// and its callers never depend on a scheme's key or ciphertext types
type Provider interface {

	// key handling
	GenerateKeyPair() (secret []byte, public []byte, err error)
	PublicKeyOf(secret []byte) ([]byte, error)

	// ciphertext arithmetic
	Encrypt(public []byte, amount uint64) ([]byte, error)
	Decrypt(secret []byte, ciphertext []byte, maxValue uint64) (uint64, error)
	Add(a []byte, b []byte) ([]byte, error)
	Sub(a []byte, b []byte) ([]byte, error)
	Zero() []byte

	// sender proofs
	ProveSender(senderPub []byte, receiverPub []byte, auditorPubs [][]byte, amount uint64, binding []byte) (proof []byte, senderCipherText []byte, receiverCipherText []byte, err error)
	Verify(proof []byte, senderPub []byte, receiverPub []byte, auditorPubs [][]byte, binding []byte) error
	VerifyAmount(proof []byte, senderPub []byte, receiverPub []byte, auditorPubs [][]byte, amount uint64, binding []byte) error
	SenderCipherText(proof []byte) ([]byte, error)
	ReceiverCipherText(proof []byte) ([]byte, error)
}

// VerificationResult - outcome of a proof check
//
// Reason is nil when Valid; otherwise one of the fault proof errors
// so callers can distinguish a malformed blob from a proof that is
// well formed but fails its equations
type VerificationResult struct {
	Valid  bool
	Reason error
}
