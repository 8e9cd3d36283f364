// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"

	gocache "github.com/patrickmn/go-cache"

	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/sha3"

	"github.com/bitmark-inc/confidentiald/fault"
	"github.com/bitmark-inc/confidentiald/storage"
)

// SignerIdSize - bytes in a signer id
const SignerIdSize = 32

// SignerId - sha3-256 of the signer's public key
type SignerId [SignerIdSize]byte

// String - hex representation
func (id SignerId) String() string {
	return hex.EncodeToString(id[:])
}

// MarshalText - implement encoding.TextMarshaler
func (id SignerId) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(id[:])), nil
}

// UnmarshalText - implement encoding.TextUnmarshaler
func (id *SignerId) UnmarshalText(s []byte) error {
	b, err := hex.DecodeString(string(s))
	if nil != err {
		return fault.ErrNotAValidHexString
	}
	if SignerIdSize != len(b) {
		return fault.ErrKeyLength
	}
	copy(id[:], b)
	return nil
}

// SignerIdFromBytes - validate length and copy
func SignerIdFromBytes(data []byte) (SignerId, error) {
	var id SignerId
	if SignerIdSize != len(data) {
		return id, fault.ErrKeyLength
	}
	copy(id[:], data)
	return id, nil
}

// RegisterSigner - create and store a named ed25519 signer
func RegisterSigner(name string) (SignerId, []byte, error) {

	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if nil != err {
		return SignerId{}, nil, err
	}
	defer wipe(privateKey)

	return storeSigner(name, publicKey, privateKey)
}

// ImportSigner - store a signer from an existing ed25519 private key
//
// the caller's copy of the key is not wiped
func ImportSigner(name string, privateKey []byte) (SignerId, []byte, error) {

	if ed25519.PrivateKeySize != len(privateKey) {
		return SignerId{}, nil, fault.ErrInvalidPrivateKey
	}

	key := make([]byte, ed25519.PrivateKeySize)
	copy(key, privateKey)
	defer wipe(key)

	publicKey := ed25519.PrivateKey(key).Public().(ed25519.PublicKey)

	return storeSigner(name, publicKey, key)
}

func storeSigner(name string, publicKey []byte, privateKey []byte) (SignerId, []byte, error) {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return SignerId{}, nil, fault.ErrNotInitialised
	}
	if "" == name {
		return SignerId{}, nil, fault.ErrMissingParameters
	}

	id := SignerId(sha3.Sum256(publicKey))

	encrypted, err := encryptSecret(privateKey, globalData.key)
	if nil != err {
		return SignerId{}, nil, err
	}

	trx, err := storage.NewDBTransaction()
	if nil != err {
		return SignerId{}, nil, err
	}

	if trx.Has(storage.Pool.SignerNames, []byte(name)) {
		trx.Abort()
		return SignerId{}, nil, fault.ErrSignerAlreadyExists
	}
	if trx.Has(storage.Pool.Signers, id[:]) {
		trx.Abort()
		return SignerId{}, nil, fault.ErrKeyAlreadyExists
	}

	record := make([]byte, 0, ed25519.PublicKeySize+len(name))
	record = append(record, publicKey...)
	record = append(record, name...)

	trx.Put(storage.Pool.Signers, id[:], record)
	trx.Put(storage.Pool.SignerNames, []byte(name), id[:])
	trx.Put(storage.Pool.SignerKeys, id[:], encrypted)
	if err := trx.Commit(); nil != err {
		return SignerId{}, nil, err
	}

	globalData.cache.Set(signerCacheKey(name), id, gocache.NoExpiration)
	globalData.log.Infof("registered signer %q id %s", name, id)

	pub := make([]byte, ed25519.PublicKeySize)
	copy(pub, publicKey)
	return id, pub, nil
}

// ResolveSigner - name to signer id
func ResolveSigner(name string) (SignerId, error) {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return SignerId{}, fault.ErrNotInitialised
	}

	if cached, found := globalData.cache.Get(signerCacheKey(name)); found {
		return cached.(SignerId), nil
	}

	value := storage.Pool.SignerNames.Get([]byte(name))
	if nil == value {
		return SignerId{}, fault.ErrSignerNotFound
	}
	id, err := SignerIdFromBytes(value)
	if nil != err {
		return SignerId{}, err
	}

	globalData.cache.Set(signerCacheKey(name), id, gocache.NoExpiration)
	return id, nil
}

// SignerPublicKey - stored public key of a signer
func SignerPublicKey(id SignerId) ([]byte, error) {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return nil, fault.ErrNotInitialised
	}

	record := storage.Pool.Signers.Get(id[:])
	if nil == record || len(record) < ed25519.PublicKeySize {
		return nil, fault.ErrSignerNotFound
	}

	pub := make([]byte, ed25519.PublicKeySize)
	copy(pub, record[:ed25519.PublicKeySize])
	return pub, nil
}

// SignerName - stored name of a signer
func SignerName(id SignerId) (string, error) {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return "", fault.ErrNotInitialised
	}

	record := storage.Pool.Signers.Get(id[:])
	if nil == record || len(record) < ed25519.PublicKeySize {
		return "", fault.ErrSignerNotFound
	}
	return string(record[ed25519.PublicKeySize:]), nil
}

// SignSubmission - sign a chain submission payload with the signer's
// stored key
func SignSubmission(id SignerId, payload []byte) ([]byte, error) {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return nil, fault.ErrNotInitialised
	}

	encrypted := storage.Pool.SignerKeys.Get(id[:])
	if nil == encrypted {
		return nil, fault.ErrSignerNotFound
	}

	privateKey, err := decryptSecret(encrypted, globalData.key)
	if nil != err {
		return nil, err
	}
	defer wipe(privateKey)

	if ed25519.PrivateKeySize != len(privateKey) {
		return nil, fault.ErrWrongPassword
	}

	// a wrong passphrase decrypts to garbage, catch it before it
	// produces an unverifiable signature
	record := storage.Pool.Signers.Get(id[:])
	if nil == record || len(record) < ed25519.PublicKeySize {
		return nil, fault.ErrSignerNotFound
	}
	derived := ed25519.PrivateKey(privateKey).Public().(ed25519.PublicKey)
	if !bytes.Equal(derived, record[:ed25519.PublicKeySize]) {
		return nil, fault.ErrWrongPassword
	}

	return ed25519.Sign(ed25519.PrivateKey(privateKey), payload), nil
}

func signerCacheKey(name string) string {
	return "signer:" + name
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
