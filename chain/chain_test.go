// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/sha3"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/confidentiald/chain"
	"github.com/bitmark-inc/confidentiald/fault"
	"github.com/bitmark-inc/confidentiald/storage"
	"github.com/bitmark-inc/confidentiald/tracker"
)

const (
	testingDirName   = "testing"
	databaseFileName = testingDirName + "/test"
)

// fakeClient - in-process transport standing in for the zmq bridge
type fakeClient struct {
	sendErr       error
	sent          chan []byte
	confirmations chan chain.Confirmation
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		sent:          make(chan []byte, 16),
		confirmations: make(chan chain.Confirmation, 16),
	}
}

func (f *fakeClient) Send(payload []byte) error {
	if nil != f.sendErr {
		return f.sendErr
	}
	f.sent <- payload
	return nil
}

func (f *fakeClient) Confirmations() <-chan chain.Confirmation {
	return f.confirmations
}

func (f *fakeClient) Close() error {
	return nil
}

func setup(t *testing.T, client chain.Client) {
	setupWith(t, client, &chain.Configuration{
		RatePerSecond: 1000,
		Burst:         100,
		Retries:       2,
	})
}

func setupWith(t *testing.T, client chain.Client, configuration *chain.Configuration) {
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

	err = tracker.Initialise()
	require.NoError(t, err)

	err = chain.Initialise(configuration, client)
	require.NoError(t, err)
}

func teardown(t *testing.T) {
	chain.Finalise()
	tracker.Finalise()
	storage.Finalise()
	logger.Finalise()
	removeFiles()
}

func removeFiles() {
	os.RemoveAll(testingDirName)
}

func hashOf(payload []byte) []byte {
	h := sha3.Sum256(payload)
	return h[:]
}

func blockHash(s string) []byte {
	h := sha3.Sum256([]byte(s))
	return h[:]
}

func TestSubmitAndConfirm(t *testing.T) {
	client := newFakeClient()
	setup(t, client)
	defer teardown(t)

	received := make(chan chain.Confirmation, 1)

	payload := []byte("settlement execution")
	txHash, err := chain.Submit(payload, func(c chain.Confirmation) {
		received <- c
	})
	require.NoError(t, err)
	assert.Equal(t, hashOf(payload), txHash)

	// the payload reaches the transport
	select {
	case sent := <-client.sent:
		assert.Equal(t, payload, sent)
	case <-time.After(5 * time.Second):
		t.Fatal("submission never sent")
	}

	// confirmation fires the handler
	client.confirmations <- chain.Confirmation{
		TxHash:      txHash,
		BlockHash:   blockHash("block-9"),
		BlockNumber: 9,
		Success:     true,
		Events:      []string{"settlement.executed"},
	}

	select {
	case confirmation := <-received:
		assert.True(t, confirmation.Success)
		assert.Equal(t, uint64(9), confirmation.BlockNumber)
	case <-time.After(5 * time.Second):
		t.Fatal("handler never fired")
	}

	// and the transaction is tracked
	entry, found := tracker.Status(txHash)
	require.True(t, found)
	assert.True(t, entry.Success)
}

func TestDuplicateConfirmationDropped(t *testing.T) {
	client := newFakeClient()
	setup(t, client)
	defer teardown(t)

	fired := make(chan struct{}, 4)

	payload := []byte("once only")
	txHash, err := chain.Submit(payload, func(chain.Confirmation) {
		fired <- struct{}{}
	})
	require.NoError(t, err)
	<-client.sent

	confirmation := chain.Confirmation{
		TxHash:      txHash,
		BlockHash:   blockHash("block-1"),
		BlockNumber: 1,
		Success:     true,
	}
	client.confirmations <- confirmation
	client.confirmations <- confirmation

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never fired")
	}

	// the duplicate must not fire anything
	select {
	case <-fired:
		t.Fatal("handler fired twice")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestSubmitDeliveryFailure(t *testing.T) {
	client := newFakeClient()
	client.sendErr = fault.ErrChainSubmissionFailed
	setup(t, client)
	defer teardown(t)

	received := make(chan chain.Confirmation, 1)

	txHash, err := chain.Submit([]byte("doomed"), func(c chain.Confirmation) {
		received <- c
	})
	require.NoError(t, err)

	select {
	case confirmation := <-received:
		assert.False(t, confirmation.Success)
		assert.Equal(t, txHash, confirmation.TxHash)
		assert.NotEmpty(t, confirmation.Error)
	case <-time.After(10 * time.Second):
		t.Fatal("failure handler never fired")
	}

	// never reached the chain, so never tracked
	_, found := tracker.Status(txHash)
	assert.False(t, found)
}

// stallingClient - holds every Send until released so the queue can
// be filled deterministically
type stallingClient struct {
	entered       chan struct{}
	release       chan struct{}
	confirmations chan chain.Confirmation
}

func newStallingClient() *stallingClient {
	return &stallingClient{
		entered:       make(chan struct{}, 8),
		release:       make(chan struct{}),
		confirmations: make(chan chain.Confirmation, 16),
	}
}

func (s *stallingClient) Send(payload []byte) error {
	s.entered <- struct{}{}
	<-s.release
	return nil
}

func (s *stallingClient) Confirmations() <-chan chain.Confirmation {
	return s.confirmations
}

func (s *stallingClient) Close() error {
	return nil
}

func TestSubmitBackpressure(t *testing.T) {
	client := newStallingClient()
	setupWith(t, client, &chain.Configuration{
		RatePerSecond: 1000,
		Burst:         100,
		QueueSize:     1,
		Retries:       2,
	})
	defer teardown(t)
	defer close(client.release)

	// first submission is picked up and stalls on the transport
	_, err := chain.Submit([]byte("first"), nil)
	require.NoError(t, err)
	select {
	case <-client.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("transport never entered")
	}

	// second fills the only queue slot
	_, err = chain.Submit([]byte("second"), nil)
	require.NoError(t, err)

	// third is refused rather than blocking the caller
	_, err = chain.Submit([]byte("third"), nil)
	assert.Equal(t, fault.ErrRateLimiting, err)
}

func TestConfirmationWireRoundTrip(t *testing.T) {
	original := &chain.Confirmation{
		TxHash:      hashOf([]byte("tx")),
		BlockHash:   blockHash("block"),
		BlockNumber: 77,
		Success:     false,
		Error:       "leg already affirmed",
		Events:      []string{"settlement.failed", "leg.rejected"},
	}

	packed := chain.PackConfirmation(original)
	parsed, err := chain.ParseConfirmation(packed)
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}
