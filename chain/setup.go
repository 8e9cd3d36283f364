// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"encoding/hex"
	"sync"

	"golang.org/x/crypto/sha3"
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/confidentiald/background"
	"github.com/bitmark-inc/confidentiald/fault"
)

// a block of configuration data
// this is read from the configuration file
type Configuration struct {
	Submit          string  `gluamapper:"submit" json:"submit"`
	Subscribe       string  `gluamapper:"subscribe" json:"subscribe"`
	PublicKey       string  `gluamapper:"public_key" json:"public_key"`
	PrivateKey      string  `gluamapper:"private_key" json:"-"`
	ServerPublicKey string  `gluamapper:"server_public_key" json:"server_public_key"`
	RatePerSecond   float64 `gluamapper:"rate_per_second" json:"rate_per_second"`
	Burst           int     `gluamapper:"burst" json:"burst"`
	QueueSize       int     `gluamapper:"queue_size" json:"queue_size"`
	Retries         int     `gluamapper:"retries" json:"retries"`
}

const (
	defaultRatePerSecond = 10.0
	defaultBurst         = 5
	defaultQueueSize     = 256
	defaultRetries       = 3
)

type submissionItem struct {
	txHash  []byte
	payload []byte
}

// globals
type chainData struct {
	sync.RWMutex // to allow locking

	// logger
	log *logger.L

	// transport
	client Client

	// submission pipeline
	queue   chan submissionItem
	limiter *rate.Limiter
	retries int

	// synthetic failures bypassing the tracker
	failures chan Confirmation

	// confirmation handlers by hex tx hash, each fired exactly once
	handlers map[string]func(Confirmation)

	// for background
	background *background.T

	// set once during initialise
	initialised bool
}

// global data
var globalData chainData

// Initialise - connect the bridge and start its background
// processes
//
// client may be nil, in which case a zmq client is built from the
// configuration; tests inject their own transport
func Initialise(configuration *Configuration, client Client) error {

	globalData.Lock()
	defer globalData.Unlock()

	// no need to start if already started
	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}

	globalData.log = logger.New("chain")
	globalData.log.Info("starting…")

	if nil == client {
		created, err := newZmqClient(configuration)
		if nil != err {
			return err
		}
		client = created
	}
	globalData.client = client

	perSecond := configuration.RatePerSecond
	if perSecond <= 0 {
		perSecond = defaultRatePerSecond
	}
	burst := configuration.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	queueSize := configuration.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	globalData.retries = configuration.Retries
	if globalData.retries <= 0 {
		globalData.retries = defaultRetries
	}

	globalData.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	globalData.queue = make(chan submissionItem, queueSize)
	globalData.failures = make(chan Confirmation, 16)
	globalData.handlers = make(map[string]func(Confirmation))

	// all data initialised
	globalData.initialised = true

	// start background processes
	globalData.log.Info("start background…")

	processes := background.Processes{
		&submitter{log: logger.New("chain-submit")},
		&watcher{log: logger.New("chain-watch")},
	}
	globalData.background = background.Start(processes, nil)

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
	globalData.client.Close()

	// finally...
	globalData.initialised = false

	globalData.log.Info("finished")
	globalData.log.Flush()

	return nil
}

// TransactionHash - the hash a payload will be confirmed under
func TransactionHash(payload []byte) []byte {
	digest := sha3.Sum256(payload)
	return digest[:]
}

// Submit - queue a payload for the chain
//
// returns the transaction hash immediately; handler fires exactly
// once with the confirmation, or with a failed confirmation if the
// submission cannot be delivered
func Submit(payload []byte, handler func(Confirmation)) ([]byte, error) {

	globalData.Lock()

	if !globalData.initialised {
		globalData.Unlock()
		return nil, fault.ErrNotInitialised
	}

	txHash := TransactionHash(payload)

	if nil != handler {
		globalData.handlers[hex.EncodeToString(txHash)] = handler
	}

	queue := globalData.queue
	globalData.Unlock()

	item := submissionItem{
		txHash:  txHash,
		payload: append([]byte(nil), payload...),
	}

	select {
	case queue <- item:
		return txHash, nil
	default:
		// queue full: the caller backs off instead of blocking a
		// settlement transition on the transport
		removeHandler(txHash)
		return nil, fault.ErrRateLimiting
	}
}

func removeHandler(txHash []byte) func(Confirmation) {
	key := hex.EncodeToString(txHash)
	globalData.Lock()
	handler := globalData.handlers[key]
	delete(globalData.handlers, key)
	globalData.Unlock()
	return handler
}
