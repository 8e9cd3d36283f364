// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/confidentiald/fault"
	"github.com/bitmark-inc/confidentiald/proof"
	"github.com/bitmark-inc/confidentiald/storage"
)

// a block of configuration data
// this is read from the configuration file
type Configuration struct {
	Passphrase string `gluamapper:"passphrase" json:"-"`
}

// reserved key in the signer-keys pool, cannot collide with the
// 32 byte signer ids
var vaultSaltKey = []byte{0x00, 'S', 'A', 'L', 'T'}

// globals
type vaultData struct {
	sync.RWMutex // to allow locking

	// logger
	log *logger.L

	// scheme for account key generation and validation
	provider proof.Provider

	// derived AES key, wiped on finalise
	key []byte

	// read-through lookup cache
	cache *gocache.Cache

	// set once during initialise
	initialised bool
}

// global data
var globalData vaultData

// Initialise - derive the vault key and open the caches
//
// the key derivation salt is created on first run and persisted
// alongside the encrypted secrets
func Initialise(configuration *Configuration, provider proof.Provider) error {

	globalData.Lock()
	defer globalData.Unlock()

	// no need to start if already started
	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}
	if nil == provider || "" == configuration.Passphrase {
		return fault.ErrMissingParameters
	}

	globalData.log = logger.New("vault")
	globalData.log.Info("starting…")

	globalData.provider = provider

	// load or create the salt
	var s *salt
	saved := storage.Pool.SignerKeys.Get(vaultSaltKey)
	if nil == saved {
		created, err := makeSalt()
		if nil != err {
			return err
		}
		storage.Pool.SignerKeys.Put(vaultSaltKey, created[:])
		s = created
	} else {
		if saltSize != len(saved) {
			return fault.ErrKeyLength
		}
		s = new(salt)
		copy(s[:], saved)
	}

	key, err := generateKey(configuration.Passphrase, s)
	if nil != err {
		return err
	}
	globalData.key = key

	globalData.cache = gocache.New(gocache.NoExpiration, 0)

	// all data initialised
	globalData.initialised = true
	return nil
}

// Finalise - wipe the derived key
func Finalise() error {

	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.ErrNotInitialised
	}

	globalData.log.Info("shutting down…")

	for i := range globalData.key {
		globalData.key[i] = 0
	}
	globalData.key = nil
	globalData.cache.Flush()

	globalData.initialised = false

	globalData.log.Info("finished")
	globalData.log.Flush()
	return nil
}
