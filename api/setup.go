// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package api

import (
	"encoding/hex"
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/confidentiald/fault"
)

// globals
type globalDataType struct {
	sync.RWMutex
	log         *logger.L
	initialised bool
}

// global storage
var globalData globalDataType

// Initialise - start up the api surface
func Initialise() error {

	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}

	globalData.log = logger.New("api")
	globalData.log.Info("starting…")

	globalData.initialised = true
	return nil
}

// Finalise - shut down the api surface
func Finalise() error {

	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.ErrNotInitialised
	}

	globalData.initialised = false

	globalData.log.Info("finished")
	globalData.log.Flush()
	return nil
}

func initialised() bool {
	globalData.RLock()
	defer globalData.RUnlock()
	return globalData.initialised
}

// decode a hex account public key
func decodeAccount(account string) ([]byte, error) {
	b, err := hex.DecodeString(account)
	if nil != err {
		return nil, fault.ErrNotAValidHexString
	}
	if 32 != len(b) {
		return nil, fault.ErrKeyLength
	}
	return b, nil
}
