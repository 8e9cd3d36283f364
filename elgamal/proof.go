// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package elgamal

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/crypto/sha3"

	"github.com/bitmark-inc/confidentiald/fault"
)

// transcript domain separation
const senderProofDomain = "confidentiald.sender-proof.v1"

const (
	senderProofVersion = 0x01
	maxProofKeys       = 16

	pointSize        = bn254.SizeOfG1AffineCompressed
	senderProofFixed = 2 + 6*pointSize // version, key count, A, TA, TH, c, sm, sr
)

// SenderProof - proof that one amount was encrypted consistently for
// every involved party
//
// the same randomness r covers all keys, so a single commitment
// A = r·G is shared and each party j holds B_j = m·H + r·P_j; the
// Schnorr responses prove knowledge of (m, r) and tie every B_j to
// the same pair
//
// key order is fixed: sender, receiver, then auditors in the order
// they were supplied to ProveSender
type SenderProof struct {
	a  bn254.G1Affine   // r·G
	b  []bn254.G1Affine // per key: m·H + r·P_j
	ta bn254.G1Affine   // k_r·G
	th bn254.G1Affine   // k_m·H
	tp []bn254.G1Affine // per key: k_r·P_j
	c  fr.Element       // transcript challenge
	sm fr.Element       // k_m + c·m
	sr fr.Element       // k_r + c·r
}

// positions of the mandatory keys
const (
	SenderKeyIndex   = 0
	ReceiverKeyIndex = 1
)

// ProveSender - encrypt an amount for every party and prove the
// encryptions consistent
//
// binding is arbitrary caller context folded into the transcript,
// typically the sender's current balance ciphertext, so the proof
// cannot be replayed against a different state
func ProveSender(sender PublicKey, receiver PublicKey, auditors []PublicKey, amount uint64, binding []byte) (*SenderProof, error) {

	keys := make([]PublicKey, 0, 2+len(auditors))
	keys = append(keys, sender, receiver)
	keys = append(keys, auditors...)
	if len(keys) > maxProofKeys {
		return nil, fault.ErrInvalidCount
	}

	points := make([]bn254.G1Affine, len(keys))
	for i, k := range keys {
		p, err := k.point()
		if nil != err {
			return nil, err
		}
		points[i] = p
	}

	var r, km, kr fr.Element
	if _, err := r.SetRandom(); nil != err {
		return nil, err
	}
	if _, err := km.SetRandom(); nil != err {
		return nil, err
	}
	if _, err := kr.SetRandom(); nil != err {
		return nil, err
	}

	rBig := r.BigInt(new(big.Int))
	krBig := kr.BigInt(new(big.Int))

	proof := &SenderProof{
		b:  make([]bn254.G1Affine, len(keys)),
		tp: make([]bn254.G1Affine, len(keys)),
	}

	proof.a.ScalarMultiplication(&genG, rBig)
	proof.ta.ScalarMultiplication(&genG, krBig)
	proof.th.ScalarMultiplication(&genH, km.BigInt(new(big.Int)))

	var mH bn254.G1Affine
	mH.ScalarMultiplication(&genH, new(big.Int).SetUint64(amount))

	for i := range points {
		var rP bn254.G1Affine
		rP.ScalarMultiplication(&points[i], rBig)
		proof.b[i].Add(&mH, &rP)
		proof.tp[i].ScalarMultiplication(&points[i], krBig)
	}

	proof.c = challenge(keys, proof, binding)

	var m fr.Element
	m.SetUint64(amount)

	// sm = km + c·m ; sr = kr + c·r
	var t fr.Element
	t.Mul(&proof.c, &m)
	proof.sm.Add(&km, &t)
	t.Mul(&proof.c, &r)
	proof.sr.Add(&kr, &t)

	return proof, nil
}

// Verify - check the proof is well formed for the given keys
//
// confirms that every per-key ciphertext encrypts the same amount
// under the same randomness, without learning the amount
func (proof *SenderProof) Verify(sender PublicKey, receiver PublicKey, auditors []PublicKey, binding []byte) error {

	keys := make([]PublicKey, 0, 2+len(auditors))
	keys = append(keys, sender, receiver)
	keys = append(keys, auditors...)

	if len(keys) != len(proof.b) {
		return fault.ErrProofCommitmentMismatch
	}

	points := make([]bn254.G1Affine, len(keys))
	for i, k := range keys {
		p, err := k.point()
		if nil != err {
			return err
		}
		points[i] = p
	}

	c := challenge(keys, proof, binding)
	if !c.Equal(&proof.c) {
		return fault.ErrInvalidProof
	}

	cBig := proof.c.BigInt(new(big.Int))
	smBig := proof.sm.BigInt(new(big.Int))
	srBig := proof.sr.BigInt(new(big.Int))

	// sr·G == TA + c·A
	var lhs, rhs, t bn254.G1Affine
	lhs.ScalarMultiplication(&genG, srBig)
	t.ScalarMultiplication(&proof.a, cBig)
	rhs.Add(&proof.ta, &t)
	if !lhs.Equal(&rhs) {
		return fault.ErrInvalidProof
	}

	// per key: sm·H + sr·P_j == TH + T'_j + c·B_j
	var smH bn254.G1Affine
	smH.ScalarMultiplication(&genH, smBig)
	for i := range points {
		var srP bn254.G1Affine
		srP.ScalarMultiplication(&points[i], srBig)
		lhs.Add(&smH, &srP)

		t.ScalarMultiplication(&proof.b[i], cBig)
		rhs.Add(&proof.th, &proof.tp[i])
		rhs.Add(&rhs, &t)

		if !lhs.Equal(&rhs) {
			return fault.ErrInvalidProof
		}
	}

	return nil
}

// VerifyAmount - check the proof is well formed and encrypts exactly
// the given amount
//
// used where the verifier was told the amount out of band, typically
// a mediator or auditor confirming a settlement leg
func (proof *SenderProof) VerifyAmount(sender PublicKey, receiver PublicKey, auditors []PublicKey, amount uint64, binding []byte) error {

	err := proof.Verify(sender, receiver, auditors, binding)
	if nil != err {
		return err
	}

	p, err := receiver.point()
	if nil != err {
		return err
	}

	cBig := proof.c.BigInt(new(big.Int))
	srBig := proof.sr.BigInt(new(big.Int))

	// sr·P_r == T'_r + c·(B_r - m·H)
	var lhs bn254.G1Affine
	lhs.ScalarMultiplication(&p, srBig)

	var mH, bm, t, rhs bn254.G1Affine
	mH.ScalarMultiplication(&genH, new(big.Int).SetUint64(amount))
	mH.Neg(&mH)
	bm.Add(&proof.b[ReceiverKeyIndex], &mH)
	t.ScalarMultiplication(&bm, cBig)
	rhs.Add(&proof.tp[ReceiverKeyIndex], &t)

	if !lhs.Equal(&rhs) {
		return fault.ErrProofAmountMismatch
	}

	return nil
}

// CipherTextFor - extract the per-party ciphertext embedded in the
// proof
//
// index follows the proof key order: SenderKeyIndex,
// ReceiverKeyIndex, then auditors
func (proof *SenderProof) CipherTextFor(index int) (CipherText, error) {
	if index < 0 || index >= len(proof.b) {
		return CipherText{}, fault.ErrInvalidCount
	}
	return compose(proof.a, proof.b[index]), nil
}

// KeyCount - number of parties covered by the proof
func (proof *SenderProof) KeyCount() int {
	return len(proof.b)
}

// Bytes - serialise the proof
func (proof *SenderProof) Bytes() []byte {

	out := make([]byte, 0, senderProofFixed+len(proof.b)*2*pointSize)
	out = append(out, senderProofVersion, byte(len(proof.b)))

	appendPoint := func(p *bn254.G1Affine) {
		b := p.Bytes()
		out = append(out, b[:]...)
	}
	appendScalar := func(s *fr.Element) {
		b := s.Bytes()
		out = append(out, b[:]...)
	}

	appendPoint(&proof.a)
	appendPoint(&proof.ta)
	appendPoint(&proof.th)
	appendScalar(&proof.c)
	appendScalar(&proof.sm)
	appendScalar(&proof.sr)
	for i := range proof.b {
		appendPoint(&proof.b[i])
		appendPoint(&proof.tp[i])
	}

	return out
}

// SenderProofFromBytes - parse and structurally validate a serialised
// proof
func SenderProofFromBytes(data []byte) (*SenderProof, error) {

	if len(data) < senderProofFixed {
		return nil, fault.ErrMalformedProof
	}
	if senderProofVersion != data[0] {
		return nil, fault.ErrMalformedProof
	}
	n := int(data[1])
	if n < 2 || n > maxProofKeys {
		return nil, fault.ErrMalformedProof
	}
	if len(data) != senderProofFixed+n*2*pointSize {
		return nil, fault.ErrMalformedProof
	}

	proof := &SenderProof{
		b:  make([]bn254.G1Affine, n),
		tp: make([]bn254.G1Affine, n),
	}

	offset := 2
	readPoint := func(p *bn254.G1Affine) error {
		_, err := p.SetBytes(data[offset : offset+pointSize])
		offset += pointSize
		if nil != err {
			return fault.ErrMalformedProof
		}
		return nil
	}
	readScalar := func(s *fr.Element) {
		s.SetBytes(data[offset : offset+pointSize])
		offset += pointSize
	}

	if err := readPoint(&proof.a); nil != err {
		return nil, err
	}
	if err := readPoint(&proof.ta); nil != err {
		return nil, err
	}
	if err := readPoint(&proof.th); nil != err {
		return nil, err
	}
	readScalar(&proof.c)
	readScalar(&proof.sm)
	readScalar(&proof.sr)
	for i := 0; i < n; i += 1 {
		if err := readPoint(&proof.b[i]); nil != err {
			return nil, err
		}
		if err := readPoint(&proof.tp[i]); nil != err {
			return nil, err
		}
	}

	return proof, nil
}

// challenge - Fiat-Shamir transcript hash reduced into the scalar
// field
func challenge(keys []PublicKey, proof *SenderProof, binding []byte) fr.Element {

	h := sha3.New256()
	h.Write([]byte(senderProofDomain))
	h.Write(binding)
	h.Write([]byte{byte(len(keys))})
	for _, k := range keys {
		h.Write(k[:])
	}
	writePoint := func(p *bn254.G1Affine) {
		b := p.Bytes()
		h.Write(b[:])
	}
	writePoint(&proof.a)
	for i := range proof.b {
		writePoint(&proof.b[i])
	}
	writePoint(&proof.ta)
	writePoint(&proof.th)
	for i := range proof.tp {
		writePoint(&proof.tp[i])
	}

	var c fr.Element
	c.SetBytes(h.Sum(nil))
	return c
}
