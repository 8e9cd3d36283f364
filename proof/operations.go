// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package proof

import (
	"context"

	"github.com/bitmark-inc/confidentiald/fault"
)

// SenderProofResult - a generated proof together with the encrypted
// transfer amount under the sender and receiver keys
type SenderProofResult struct {
	Proof          []byte
	SenderAmount   []byte
	ReceiverAmount []byte
}

// GenerateSenderProof - prove a transfer of amount out of the
// sender's current balance
//
// the sender's balance ciphertext is decrypted to check sufficiency
// and bound into the proof transcript; returns
// fault.ErrInsufficientBalance when the amount exceeds the decrypted
// balance and fault.ErrInvalidAmount when it exceeds the decryption
// bound; an engine failure inside the prover surfaces as
// fault.ErrProofGenerationFailed
func GenerateSenderProof(ctx context.Context, senderSecret []byte, senderBalance []byte, receiverPub []byte, auditorPubs [][]byte, amount uint64) (*SenderProofResult, error) {

	item := &job{
		kind:          jobProve,
		senderSecret:  senderSecret,
		senderBalance: senderBalance,
		receiverPub:   receiverPub,
		auditorPubs:   auditorPubs,
		amount:        amount,
		reply:         make(chan jobResult, 1),
	}

	r, err := submit(ctx, item)
	if nil != err {
		return nil, err
	}
	if nil != r.err {
		return nil, r.err
	}
	return r.prove, nil
}

// VerifyProof - check a sender proof against the party keys and the
// sender balance ciphertext it was generated from
//
// expectedAmount is optional: when set the proof must encrypt exactly
// that amount; verification failures are reported in the result, not
// as an error, so a bad proof is distinguishable from an engine
// fault
func VerifyProof(ctx context.Context, proofBytes []byte, senderPub []byte, receiverPub []byte, auditorPubs [][]byte, senderBalance []byte, expectedAmount *uint64) (VerificationResult, error) {

	item := &job{
		kind:           jobVerify,
		proof:          proofBytes,
		senderPub:      senderPub,
		receiverPub:    receiverPub,
		auditorPubs:    auditorPubs,
		senderBalance:  senderBalance,
		expectedAmount: expectedAmount,
		reply:          make(chan jobResult, 1),
	}

	r, err := submit(ctx, item)
	if nil != err {
		return VerificationResult{}, err
	}
	return r.verification, nil
}

// DecryptBalance - recover an amount from a ciphertext
//
// bounded by the configured search range; returns
// fault.ErrDecryptionBoundExceeded past it and
// fault.ErrDecryptionFailed when the ciphertext or key is unusable
func DecryptBalance(ctx context.Context, secret []byte, ciphertext []byte) (uint64, error) {

	item := &job{
		kind:       jobDecrypt,
		secret:     secret,
		ciphertext: ciphertext,
		reply:      make(chan jobResult, 1),
	}

	r, err := submit(ctx, item)
	if nil != err {
		return 0, err
	}
	if nil != r.err {
		return 0, r.err
	}
	return r.value, nil
}

// submit - queue a job and wait for its reply or cancellation
func submit(ctx context.Context, item *job) (jobResult, error) {

	globalData.RLock()
	initialised := globalData.initialised
	jobs := globalData.jobs
	globalData.RUnlock()

	if !initialised {
		return jobResult{}, fault.ErrNotInitialised
	}

	select {
	case jobs <- item:
	case <-ctx.Done():
		return jobResult{}, ctx.Err()
	}

	select {
	case r := <-item.reply:
		return r, nil
	case <-ctx.Done():
		return jobResult{}, ctx.Err()
	}
}
