// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package elgamal

// Scheme - byte-slice surface over the typed API
//
// the proof engine holds providers behind an interface of plain byte
// slices so the scheme can be swapped without touching the callers;
// this adapter is the bn254 ElGamal implementation of that surface
type Scheme struct{}

// GenerateKeyPair - fresh serialised key pair
func (Scheme) GenerateKeyPair() ([]byte, []byte, error) {
	sk, pub, err := GenerateKeyPair()
	if nil != err {
		return nil, nil, err
	}
	secret := sk.Bytes()
	sk.Zero()
	return secret, pub.Bytes(), nil
}

// PublicKeyOf - derive the serialised public key from a secret
func (Scheme) PublicKeyOf(secret []byte) ([]byte, error) {
	sk, err := SecretKeyFromBytes(secret)
	if nil != err {
		return nil, err
	}
	defer sk.Zero()
	pub := sk.PublicKey()
	return pub.Bytes(), nil
}

// Encrypt - encrypt an amount under a serialised public key
func (Scheme) Encrypt(public []byte, amount uint64) ([]byte, error) {
	pub, err := PublicKeyFromBytes(public)
	if nil != err {
		return nil, err
	}
	ct, err := Encrypt(pub, amount)
	if nil != err {
		return nil, err
	}
	return ct.Bytes(), nil
}

// Decrypt - bounded decryption of a serialised ciphertext
func (Scheme) Decrypt(secret []byte, ciphertext []byte, maxValue uint64) (uint64, error) {
	sk, err := SecretKeyFromBytes(secret)
	if nil != err {
		return 0, err
	}
	defer sk.Zero()
	ct, err := CipherTextFromBytes(ciphertext)
	if nil != err {
		return 0, err
	}
	return sk.Decrypt(ct, maxValue)
}

// Add - homomorphic addition of serialised ciphertexts
func (Scheme) Add(a []byte, b []byte) ([]byte, error) {
	ca, err := CipherTextFromBytes(a)
	if nil != err {
		return nil, err
	}
	cb, err := CipherTextFromBytes(b)
	if nil != err {
		return nil, err
	}
	sum, err := ca.Add(cb)
	if nil != err {
		return nil, err
	}
	return sum.Bytes(), nil
}

// Sub - homomorphic subtraction of serialised ciphertexts
func (Scheme) Sub(a []byte, b []byte) ([]byte, error) {
	ca, err := CipherTextFromBytes(a)
	if nil != err {
		return nil, err
	}
	cb, err := CipherTextFromBytes(b)
	if nil != err {
		return nil, err
	}
	diff, err := ca.Sub(cb)
	if nil != err {
		return nil, err
	}
	return diff.Bytes(), nil
}

// Zero - the serialised encryption of zero
func (Scheme) Zero() []byte {
	z := Zero()
	return z.Bytes()
}

// ProveSender - build a sender proof, returning the proof and the
// sender and receiver ciphertexts it embeds
func (Scheme) ProveSender(senderPub []byte, receiverPub []byte, auditorPubs [][]byte, amount uint64, binding []byte) ([]byte, []byte, []byte, error) {
	sender, receiver, auditors, err := decodeKeys(senderPub, receiverPub, auditorPubs)
	if nil != err {
		return nil, nil, nil, err
	}
	proof, err := ProveSender(sender, receiver, auditors, amount, binding)
	if nil != err {
		return nil, nil, nil, err
	}
	senderCT, err := proof.CipherTextFor(SenderKeyIndex)
	if nil != err {
		return nil, nil, nil, err
	}
	receiverCT, err := proof.CipherTextFor(ReceiverKeyIndex)
	if nil != err {
		return nil, nil, nil, err
	}
	return proof.Bytes(), senderCT.Bytes(), receiverCT.Bytes(), nil
}

// Verify - check a serialised proof against the party keys
func (Scheme) Verify(proofBytes []byte, senderPub []byte, receiverPub []byte, auditorPubs [][]byte, binding []byte) error {
	sender, receiver, auditors, err := decodeKeys(senderPub, receiverPub, auditorPubs)
	if nil != err {
		return err
	}
	proof, err := SenderProofFromBytes(proofBytes)
	if nil != err {
		return err
	}
	return proof.Verify(sender, receiver, auditors, binding)
}

// VerifyAmount - check a serialised proof and its exact amount
func (Scheme) VerifyAmount(proofBytes []byte, senderPub []byte, receiverPub []byte, auditorPubs [][]byte, amount uint64, binding []byte) error {
	sender, receiver, auditors, err := decodeKeys(senderPub, receiverPub, auditorPubs)
	if nil != err {
		return err
	}
	proof, err := SenderProofFromBytes(proofBytes)
	if nil != err {
		return err
	}
	return proof.VerifyAmount(sender, receiver, auditors, amount, binding)
}

// ReceiverCipherText - pull the receiver-key ciphertext out of a
// serialised proof
func (Scheme) ReceiverCipherText(proofBytes []byte) ([]byte, error) {
	proof, err := SenderProofFromBytes(proofBytes)
	if nil != err {
		return nil, err
	}
	ct, err := proof.CipherTextFor(ReceiverKeyIndex)
	if nil != err {
		return nil, err
	}
	return ct.Bytes(), nil
}

// SenderCipherText - pull the sender-key ciphertext out of a
// serialised proof
func (Scheme) SenderCipherText(proofBytes []byte) ([]byte, error) {
	proof, err := SenderProofFromBytes(proofBytes)
	if nil != err {
		return nil, err
	}
	ct, err := proof.CipherTextFor(SenderKeyIndex)
	if nil != err {
		return nil, err
	}
	return ct.Bytes(), nil
}

func decodeKeys(senderPub []byte, receiverPub []byte, auditorPubs [][]byte) (PublicKey, PublicKey, []PublicKey, error) {
	sender, err := PublicKeyFromBytes(senderPub)
	if nil != err {
		return PublicKey{}, PublicKey{}, nil, err
	}
	receiver, err := PublicKeyFromBytes(receiverPub)
	if nil != err {
		return PublicKey{}, PublicKey{}, nil, err
	}
	auditors := make([]PublicKey, len(auditorPubs))
	for i, a := range auditorPubs {
		auditors[i], err = PublicKeyFromBytes(a)
		if nil != err {
			return PublicKey{}, PublicKey{}, nil, err
		}
	}
	return sender, receiver, auditors, nil
}
