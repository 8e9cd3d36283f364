// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package elgamal

import (
	"encoding/hex"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/crypto/sha3"

	"github.com/bitmark-inc/confidentiald/fault"
)

// sizes of the serialised forms
const (
	SecretKeySize  = 32
	PublicKeySize  = bn254.SizeOfG1AffineCompressed
	CipherTextSize = 2 * bn254.SizeOfG1AffineCompressed
)

// group generators
//
// G is the standard bn254 G1 generator and carries the randomness,
// H is an independent generator and carries the amount.  H is fixed
// by hash-to-curve so nobody knows its discrete log relative to G.
var (
	genG bn254.G1Affine
	genH bn254.G1Affine
)

func init() {
	_, _, g1, _ := bn254.Generators()
	genG = g1

	h, err := bn254.HashToG1([]byte("confidentiald.elgamal.generator-h.v1"), []byte("confidentiald"))
	if nil != err {
		panic("elgamal: generator derivation failed: " + err.Error())
	}
	genH = h
}

// SecretKey - an ElGamal decryption key
//
// the scalar is kept unexported so callers go through Zero when the
// key leaves scope
type SecretKey struct {
	x fr.Element
}

// PublicKey - compressed encryption key P = x·G
type PublicKey [PublicKeySize]byte

// GenerateKeyPair - create a fresh key pair from the system entropy
// source
func GenerateKeyPair() (*SecretKey, PublicKey, error) {
	var sk SecretKey
	if _, err := sk.x.SetRandom(); nil != err {
		return nil, PublicKey{}, err
	}
	return &sk, sk.PublicKey(), nil
}

// SecretKeyFromBytes - reconstruct a secret key from its serialised
// scalar
func SecretKeyFromBytes(data []byte) (*SecretKey, error) {
	if SecretKeySize != len(data) {
		return nil, fault.ErrKeyLength
	}
	var sk SecretKey
	sk.x.SetBytes(data)
	if sk.x.IsZero() {
		return nil, fault.ErrInvalidPrivateKey
	}
	return &sk, nil
}

// Bytes - serialise the secret scalar
func (sk *SecretKey) Bytes() []byte {
	b := sk.x.Bytes()
	return b[:]
}

// PublicKey - derive the matching public key
func (sk *SecretKey) PublicKey() PublicKey {
	var p bn254.G1Affine
	p.ScalarMultiplication(&genG, sk.x.BigInt(new(big.Int)))
	return PublicKey(p.Bytes())
}

// Zero - wipe the secret scalar
//
// the caller must not use the key afterwards
func (sk *SecretKey) Zero() {
	sk.x.SetZero()
}

// point - decompress, rejecting off-curve and identity encodings
func (pub PublicKey) point() (bn254.G1Affine, error) {
	var p bn254.G1Affine
	if _, err := p.SetBytes(pub[:]); nil != err {
		return p, fault.ErrInvalidPublicKey
	}
	if p.IsInfinity() {
		return p, fault.ErrInvalidPublicKey
	}
	return p, nil
}

// IsValid - check the encoding decompresses to a usable point
func (pub PublicKey) IsValid() bool {
	_, err := pub.point()
	return nil == err
}

// Bytes - the compressed encoding
func (pub PublicKey) Bytes() []byte {
	return pub[:]
}

// String - hex representation for logs and the RPC layer
func (pub PublicKey) String() string {
	return toHex(pub[:])
}

// MarshalText - implement encoding.TextMarshaler
func (pub PublicKey) MarshalText() ([]byte, error) {
	return []byte(toHex(pub[:])), nil
}

// UnmarshalText - implement encoding.TextUnmarshaler
func (pub *PublicKey) UnmarshalText(s []byte) error {
	b, err := fromHex(string(s))
	if nil != err {
		return err
	}
	if PublicKeySize != len(b) {
		return fault.ErrKeyLength
	}
	copy(pub[:], b)
	return nil
}

// PublicKeyFromBytes - validate and copy a compressed encoding
func PublicKeyFromBytes(data []byte) (PublicKey, error) {
	var pub PublicKey
	if PublicKeySize != len(data) {
		return pub, fault.ErrKeyLength
	}
	copy(pub[:], data)
	if !pub.IsValid() {
		return PublicKey{}, fault.ErrInvalidPublicKey
	}
	return pub, nil
}

// Fingerprint - short stable identifier for a public key
func (pub PublicKey) Fingerprint() [8]byte {
	d := sha3.Sum256(pub[:])
	var f [8]byte
	copy(f[:], d[:8])
	return f
}

func toHex(b []byte) string {
	return hex.EncodeToString(b)
}

func fromHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if nil != err {
		return nil, fault.ErrNotAValidHexString
	}
	return b, nil
}
