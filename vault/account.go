// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"bytes"
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"github.com/bitmark-inc/confidentiald/fault"
	"github.com/bitmark-inc/confidentiald/storage"
)

// SecretRef - scoped handle to a decrypted account secret
//
// intended for exactly one proof or decrypt call; Release wipes the
// plaintext and further access fails
type SecretRef struct {
	sync.Mutex
	secret   []byte
	released bool
}

// Bytes - the secret material
func (ref *SecretRef) Bytes() ([]byte, error) {
	ref.Lock()
	defer ref.Unlock()
	if ref.released {
		return nil, fault.ErrSecretReleased
	}
	return ref.secret, nil
}

// Release - wipe the secret
//
// safe to call more than once
func (ref *SecretRef) Release() {
	ref.Lock()
	defer ref.Unlock()
	if ref.released {
		return
	}
	wipe(ref.secret)
	ref.secret = nil
	ref.released = true
}

// CreateAccount - generate a confidential account key pair
//
// the public key is the account identity; the secret is stored
// encrypted under the vault key
func CreateAccount() ([]byte, error) {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return nil, fault.ErrNotInitialised
	}

	secret, public, err := globalData.provider.GenerateKeyPair()
	if nil != err {
		return nil, err
	}
	defer wipe(secret)

	if storage.Pool.Accounts.Has(public) {
		return nil, fault.ErrAccountAlreadyExists
	}

	encrypted, err := encryptSecret(secret, globalData.key)
	if nil != err {
		return nil, err
	}

	storage.Pool.Accounts.Put(public, encrypted)
	globalData.cache.Set(accountCacheKey(public), true, gocache.NoExpiration)
	globalData.log.Infof("created account %x", public)

	return public, nil
}

// HasAccount - whether the account's secret is held here
func HasAccount(public []byte) bool {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return false
	}

	key := accountCacheKey(public)
	if _, found := globalData.cache.Get(key); found {
		return true
	}

	if storage.Pool.Accounts.Has(public) {
		globalData.cache.Set(key, true, gocache.NoExpiration)
		return true
	}
	return false
}

// Secret - decrypt an account secret into a scoped reference
//
// the decrypted key is validated against the account public key so a
// wrong vault passphrase is caught here rather than producing an
// invalid proof later
func Secret(public []byte) (*SecretRef, error) {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return nil, fault.ErrNotInitialised
	}

	encrypted := storage.Pool.Accounts.Get(public)
	if nil == encrypted {
		return nil, fault.ErrAccountNotFound
	}

	secret, err := decryptSecret(encrypted, globalData.key)
	if nil != err {
		return nil, err
	}

	derived, err := globalData.provider.PublicKeyOf(secret)
	if nil != err {
		wipe(secret)
		return nil, fault.ErrWrongPassword
	}
	if !bytes.Equal(derived, public) {
		wipe(secret)
		return nil, fault.ErrWrongPassword
	}

	return &SecretRef{secret: secret}, nil
}

func accountCacheKey(public []byte) string {
	return "account:" + string(public)
}
