// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package settlement

import (
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/confidentiald/fault"
)

// globals
type globalDataType struct {
	sync.RWMutex
	log         *logger.L
	locks       map[SettlementId]*sync.Mutex
	initialised bool
}

// global storage
var globalData globalDataType

// Initialise - start up the settlement engine
func Initialise() error {

	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}

	globalData.log = logger.New("settlement")
	globalData.log.Info("starting…")

	globalData.locks = make(map[SettlementId]*sync.Mutex)

	globalData.initialised = true
	return nil
}

// Finalise - shut down the settlement engine
func Finalise() error {

	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.ErrNotInitialised
	}

	globalData.locks = nil
	globalData.initialised = false

	globalData.log.Info("finished")
	globalData.log.Flush()
	return nil
}

// fetch the transition lock for one settlement, creating it on first
// use; the lock outlives the settlement so a late confirmation still
// serializes against callers
func transitionLock(settlementId SettlementId) *sync.Mutex {

	globalData.Lock()
	defer globalData.Unlock()

	m, ok := globalData.locks[settlementId]
	if !ok {
		m = new(sync.Mutex)
		globalData.locks[settlementId] = m
	}
	return m
}
