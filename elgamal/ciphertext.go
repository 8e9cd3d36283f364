// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package elgamal

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/bitmark-inc/confidentiald/fault"
)

// CipherText - an encrypted amount
//
// serialised as the two compressed points C1‖C2 where:
//
//	C1 = r·G
//	C2 = m·H + r·P
type CipherText [CipherTextSize]byte

// Zero - the canonical encryption of zero with zero randomness
//
// both components are the point at infinity, so adding Zero to any
// ciphertext leaves it unchanged
func Zero() CipherText {
	var inf bn254.G1Affine
	return compose(inf, inf)
}

// Encrypt - encrypt an amount under a public key with fresh
// randomness
func Encrypt(pub PublicKey, amount uint64) (CipherText, error) {
	var r fr.Element
	if _, err := r.SetRandom(); nil != err {
		return CipherText{}, err
	}
	return encryptWith(pub, amount, &r)
}

// encryptWith - deterministic encryption for a caller supplied
// randomness, shared by the sender proof
func encryptWith(pub PublicKey, amount uint64, r *fr.Element) (CipherText, error) {
	p, err := pub.point()
	if nil != err {
		return CipherText{}, err
	}

	rBig := r.BigInt(new(big.Int))

	var c1 bn254.G1Affine
	c1.ScalarMultiplication(&genG, rBig)

	var mH, rP, c2 bn254.G1Affine
	mH.ScalarMultiplication(&genH, new(big.Int).SetUint64(amount))
	rP.ScalarMultiplication(&p, rBig)
	c2.Add(&mH, &rP)

	return compose(c1, c2), nil
}

// Add - homomorphic addition of two ciphertexts under the same key
func (ct CipherText) Add(other CipherText) (CipherText, error) {
	a1, a2, err := ct.points()
	if nil != err {
		return CipherText{}, err
	}
	b1, b2, err := other.points()
	if nil != err {
		return CipherText{}, err
	}
	a1.Add(&a1, &b1)
	a2.Add(&a2, &b2)
	return compose(a1, a2), nil
}

// Sub - homomorphic subtraction of two ciphertexts under the same key
func (ct CipherText) Sub(other CipherText) (CipherText, error) {
	a1, a2, err := ct.points()
	if nil != err {
		return CipherText{}, err
	}
	b1, b2, err := other.points()
	if nil != err {
		return CipherText{}, err
	}
	var n1, n2 bn254.G1Affine
	n1.Neg(&b1)
	n2.Neg(&b2)
	a1.Add(&a1, &n1)
	a2.Add(&a2, &n2)
	return compose(a1, a2), nil
}

// IsValid - check both components decompress
func (ct CipherText) IsValid() bool {
	_, _, err := ct.points()
	return nil == err
}

// Bytes - the serialised form
func (ct CipherText) Bytes() []byte {
	return ct[:]
}

// String - hex representation
func (ct CipherText) String() string {
	return toHex(ct[:])
}

// MarshalText - implement encoding.TextMarshaler
func (ct CipherText) MarshalText() ([]byte, error) {
	return []byte(toHex(ct[:])), nil
}

// UnmarshalText - implement encoding.TextUnmarshaler
func (ct *CipherText) UnmarshalText(s []byte) error {
	b, err := fromHex(string(s))
	if nil != err {
		return err
	}
	if CipherTextSize != len(b) {
		return fault.ErrInvalidCiphertext
	}
	copy(ct[:], b)
	return nil
}

// CipherTextFromBytes - validate and copy a serialised ciphertext
func CipherTextFromBytes(data []byte) (CipherText, error) {
	var ct CipherText
	if CipherTextSize != len(data) {
		return ct, fault.ErrInvalidCiphertext
	}
	copy(ct[:], data)
	if !ct.IsValid() {
		return CipherText{}, fault.ErrInvalidCiphertext
	}
	return ct, nil
}

func compose(c1 bn254.G1Affine, c2 bn254.G1Affine) CipherText {
	var ct CipherText
	b1 := c1.Bytes()
	b2 := c2.Bytes()
	copy(ct[:bn254.SizeOfG1AffineCompressed], b1[:])
	copy(ct[bn254.SizeOfG1AffineCompressed:], b2[:])
	return ct
}

func (ct CipherText) points() (bn254.G1Affine, bn254.G1Affine, error) {
	var c1, c2 bn254.G1Affine
	if _, err := c1.SetBytes(ct[:bn254.SizeOfG1AffineCompressed]); nil != err {
		return c1, c2, fault.ErrInvalidCiphertext
	}
	if _, err := c2.SetBytes(ct[bn254.SizeOfG1AffineCompressed:]); nil != err {
		return c1, c2, fault.ErrInvalidCiphertext
	}
	return c1, c2, nil
}

// Decrypt - recover the amount from a ciphertext
//
// computes M = C2 - x·C1 = m·H and then runs a baby-step giant-step
// search for m in [0, maxValue]; returns ErrDecryptionBoundExceeded
// when the amount lies outside the search window
func (sk *SecretKey) Decrypt(ct CipherText, maxValue uint64) (uint64, error) {
	c1, c2, err := ct.points()
	if nil != err {
		return 0, err
	}

	var xC1, m bn254.G1Affine
	xC1.ScalarMultiplication(&c1, sk.x.BigInt(new(big.Int)))
	xC1.Neg(&xC1)
	m.Add(&c2, &xC1)

	return discreteLog(m, maxValue)
}

// DecryptCommitment - recover the amount from a bare m·H commitment
func DecryptCommitment(commitment []byte, maxValue uint64) (uint64, error) {
	var m bn254.G1Affine
	if bn254.SizeOfG1AffineCompressed != len(commitment) {
		return 0, fault.ErrInvalidCiphertext
	}
	if _, err := m.SetBytes(commitment); nil != err {
		return 0, fault.ErrInvalidCiphertext
	}
	return discreteLog(m, maxValue)
}

// discreteLog - baby-step giant-step search for m where target = m·H
func discreteLog(target bn254.G1Affine, maxValue uint64) (uint64, error) {
	if target.IsInfinity() {
		return 0, nil
	}

	stride := integerSqrt(maxValue) + 1

	// baby steps: j·H for j in [1, stride]
	table := make(map[[bn254.SizeOfG1AffineCompressed]byte]uint64, stride)
	var step bn254.G1Affine
	for j := uint64(1); j <= stride; j += 1 {
		step.Add(&step, &genH)
		table[step.Bytes()] = j
	}

	// giant steps: target - i·stride·H
	var giant bn254.G1Affine
	giant.ScalarMultiplication(&genH, new(big.Int).SetUint64(stride))
	giant.Neg(&giant)

	current := target
	for i := uint64(0); i*stride <= maxValue; i += 1 {
		if j, ok := table[current.Bytes()]; ok {
			m := i*stride + j
			if m <= maxValue {
				return m, nil
			}
			break
		}
		current.Add(&current, &giant)
	}

	return 0, fault.ErrDecryptionBoundExceeded
}

func integerSqrt(n uint64) uint64 {
	if 0 == n {
		return 0
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}
