// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package proof

import (
	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/confidentiald/fault"
)

// job kinds
type jobKind int

const (
	jobProve jobKind = iota
	jobVerify
	jobDecrypt
)

// one queued request
//
// only the fields for its kind are set; reply is buffered so a
// worker never blocks on a caller that gave up waiting
type job struct {
	kind jobKind

	// prove
	senderSecret  []byte
	senderBalance []byte
	receiverPub   []byte
	auditorPubs   [][]byte
	amount        uint64

	// verify
	proof          []byte
	senderPub      []byte
	expectedAmount *uint64

	// decrypt
	secret     []byte
	ciphertext []byte

	reply chan jobResult
}

type jobResult struct {
	prove        *SenderProofResult
	verification VerificationResult
	value        uint64
	err          error
}

// worker - one background process of the pool
type worker struct {
	number int
	log    *logger.L
}

// Run - consume jobs until shutdown
func (w *worker) Run(args interface{}, shutdown <-chan struct{}) {

	jobs := args.(chan *job)
	log := w.log
	log.Infof("worker: %d starting", w.number)

loop:
	for {
		select {
		case <-shutdown:
			break loop
		case item := <-jobs:
			item.reply <- w.process(item)
		}
	}

	log.Infof("worker: %d stopped", w.number)
}

func (w *worker) process(item *job) jobResult {

	provider := globalData.provider
	maxValue := globalData.maxDecryptValue

	switch item.kind {

	case jobProve:
		r, err := prove(w.log, provider, maxValue, item)
		return jobResult{prove: r, err: err}

	case jobVerify:
		return jobResult{verification: runVerify(provider, item)}

	case jobDecrypt:
		value, err := provider.Decrypt(item.secret, item.ciphertext, maxValue)
		if nil != err && fault.ErrDecryptionBoundExceeded != err {
			// keep the bound error distinct so callers can tell an
			// over-range amount from a broken ciphertext or key
			w.log.Warnf("decrypt: %s", err)
			err = fault.ErrDecryptionFailed
		}
		return jobResult{value: value, err: err}

	default:
		logger.Panicf("proof: unknown job kind: %d", item.kind)
		return jobResult{}
	}
}

func prove(log *logger.L, provider Provider, maxValue uint64, item *job) (*SenderProofResult, error) {

	if item.amount > maxValue {
		return nil, fault.ErrInvalidAmount
	}

	senderPub, err := provider.PublicKeyOf(item.senderSecret)
	if nil != err {
		return nil, err
	}

	balance, err := provider.Decrypt(item.senderSecret, item.senderBalance, maxValue)
	if nil != err {
		return nil, err
	}
	if item.amount > balance {
		return nil, fault.ErrInsufficientBalance
	}

	// the current balance ciphertext is folded into the transcript
	// so the proof cannot be replayed after the balance moves
	proofBytes, senderCT, receiverCT, err := provider.ProveSender(
		senderPub,
		item.receiverPub,
		item.auditorPubs,
		item.amount,
		item.senderBalance,
	)
	if nil != err {
		log.Warnf("prove: %s", err)
		return nil, fault.ErrProofGenerationFailed
	}

	return &SenderProofResult{
		Proof:          proofBytes,
		SenderAmount:   senderCT,
		ReceiverAmount: receiverCT,
	}, nil
}

func runVerify(provider Provider, item *job) VerificationResult {

	var err error
	if nil == item.expectedAmount {
		err = provider.Verify(
			item.proof,
			item.senderPub,
			item.receiverPub,
			item.auditorPubs,
			item.senderBalance,
		)
	} else {
		err = provider.VerifyAmount(
			item.proof,
			item.senderPub,
			item.receiverPub,
			item.auditorPubs,
			*item.expectedAmount,
			item.senderBalance,
		)
	}
	if nil != err {
		return VerificationResult{Valid: false, Reason: err}
	}
	return VerificationResult{Valid: true}
}
