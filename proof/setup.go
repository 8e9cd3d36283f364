// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package proof

import (
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/confidentiald/background"
	"github.com/bitmark-inc/confidentiald/fault"
)

// a block of configuration data
// this is read from the configuration file
type Configuration struct {
	Workers         int    `gluamapper:"workers" json:"workers"`
	QueueSize       int    `gluamapper:"queue_size" json:"queue_size"`
	MaxDecryptValue uint64 `gluamapper:"max_decrypt_value" json:"max_decrypt_value"`
}

const (
	defaultWorkers         = 4
	defaultQueueSize       = 64
	defaultMaxDecryptValue = 1 << 32
)

// globals for background process
type proofData struct {
	sync.RWMutex // to allow locking

	// logger
	log *logger.L

	// the active scheme
	provider Provider

	// decryption search bound
	maxDecryptValue uint64

	// job dispatch
	jobs chan *job

	// worker pool
	workers []*worker

	// for background
	background *background.T

	// set once during initialise
	initialised bool
}

// global data
var globalData proofData

// Initialise - start the proof engine worker pool
//
// all proving, verification and decryption runs on these workers so
// the CPU heavy group arithmetic never blocks a caller goroutine
func Initialise(configuration *Configuration, provider Provider) error {

	globalData.Lock()
	defer globalData.Unlock()

	// no need to start if already started
	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}
	if nil == provider {
		return fault.ErrMissingParameters
	}

	globalData.log = logger.New("proof")
	globalData.log.Info("starting…")

	workers := configuration.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	queueSize := configuration.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	globalData.maxDecryptValue = configuration.MaxDecryptValue
	if 0 == globalData.maxDecryptValue {
		globalData.maxDecryptValue = defaultMaxDecryptValue
	}

	globalData.provider = provider
	globalData.jobs = make(chan *job, queueSize)

	globalData.workers = make([]*worker, workers)
	processes := make(background.Processes, workers)
	for i := 0; i < workers; i += 1 {
		w := &worker{
			number: i,
			log:    logger.New("proof-worker"),
		}
		globalData.workers[i] = w
		processes[i] = w
	}

	// all data initialised
	globalData.initialised = true

	// start background processes
	globalData.log.Info("start background…")
	globalData.background = background.Start(processes, globalData.jobs)

	return nil
}

// Finalise - stop all background tasks
func Finalise() error {

	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.ErrNotInitialised
	}

	globalData.log.Info("shutting down…")
	globalData.log.Flush()

	// stop background
	globalData.background.Stop()

	// finally...
	globalData.initialised = false

	globalData.log.Info("finished")
	globalData.log.Flush()

	return nil
}

// CurrentProvider - the active scheme
//
// for callers needing pure ciphertext arithmetic without a round
// trip through the worker pool
func CurrentProvider() Provider {
	globalData.RLock()
	defer globalData.RUnlock()
	return globalData.provider
}

// MaxDecryptValue - configured decryption search bound
func MaxDecryptValue() uint64 {
	globalData.RLock()
	defer globalData.RUnlock()
	return globalData.maxDecryptValue
}
