// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package asset

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"io"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"golang.org/x/crypto/sha3"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/confidentiald/fault"
	"github.com/bitmark-inc/confidentiald/storage"
)

// ticker length limits
const (
	minTickerLength = 1
	maxTickerLength = 12
)

// counter key in the next-ids pool
var assetCounterKey = []byte("asset")

// globals
type globalDataType struct {
	sync.RWMutex
	log         *logger.L
	cache       *gocache.Cache
	initialised bool
}

// global storage
var globalData globalDataType

// Initialise - open the registry cache
func Initialise() error {

	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}

	globalData.log = logger.New("asset")
	globalData.log.Info("starting…")

	globalData.cache = gocache.New(gocache.NoExpiration, 0)

	globalData.initialised = true
	return nil
}

// Finalise - drop the registry cache
func Finalise() error {

	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.ErrNotInitialised
	}

	globalData.cache.Flush()
	globalData.initialised = false

	globalData.log.Info("finished")
	globalData.log.Flush()
	return nil
}

// Create - register a new asset
//
// the id is derived from a random nonce and a persistent counter so
// it can never collide with or be reused for another asset; ticker
// is optional and must be unique while it is held
func Create(ticker string) (AssetId, error) {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return AssetId{}, fault.ErrNotInitialised
	}

	if "" != ticker && !validTicker(ticker) {
		return AssetId{}, fault.ErrInvalidTicker
	}

	trx, err := storage.NewDBTransaction()
	if nil != err {
		return AssetId{}, err
	}

	if "" != ticker && trx.Has(storage.Pool.Tickers, []byte(ticker)) {
		trx.Abort()
		return AssetId{}, fault.ErrTickerAlreadyTaken
	}

	counter, _ := trx.GetN(storage.Pool.NextIds, assetCounterKey)
	counter += 1

	var nonce [16]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); nil != err {
		trx.Abort()
		return AssetId{}, err
	}

	h := sha3.New256()
	h.Write(nonce[:])
	var c [8]byte
	binary.BigEndian.PutUint64(c[:], counter)
	h.Write(c[:])
	var id AssetId
	copy(id[:], h.Sum(nil))

	record := make([]byte, 8, 8+len(ticker))
	binary.BigEndian.PutUint64(record, uint64(time.Now().UTC().Unix()))
	record = append(record, ticker...)

	trx.PutN(storage.Pool.NextIds, assetCounterKey, counter)
	trx.Put(storage.Pool.Assets, id[:], record)
	if "" != ticker {
		trx.Put(storage.Pool.Tickers, []byte(ticker), id[:])
		trx.Put(storage.Pool.TickerIndex, id[:], []byte(ticker))
	}
	if err := trx.Commit(); nil != err {
		return AssetId{}, err
	}

	if "" != ticker {
		globalData.cache.Set(tickerCacheKey(ticker), id, gocache.NoExpiration)
	}
	globalData.log.Infof("created asset %s ticker %q", id, ticker)

	return id, nil
}

// Exists - whether an asset id is registered
func Exists(id AssetId) bool {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return false
	}
	return storage.Pool.Assets.Has(id[:])
}

// Ticker - current ticker of an asset, empty when none is held
func Ticker(id AssetId) (string, error) {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return "", fault.ErrNotInitialised
	}
	if !storage.Pool.Assets.Has(id[:]) {
		return "", fault.ErrAssetNotFound
	}
	return string(storage.Pool.TickerIndex.Get(id[:])), nil
}

// Resolve - map an asset id in hex, or a ticker, to the asset id
func Resolve(idOrTicker string) (AssetId, error) {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return AssetId{}, fault.ErrNotInitialised
	}

	// a 64 character hex string is always treated as an id;
	// tickers are too short to be mistaken for one
	if 2*AssetIdSize == len(idOrTicker) {
		b, err := hex.DecodeString(idOrTicker)
		if nil == err {
			var id AssetId
			copy(id[:], b)
			if storage.Pool.Assets.Has(id[:]) {
				return id, nil
			}
			return AssetId{}, fault.ErrAssetNotFound
		}
	}

	if cached, found := globalData.cache.Get(tickerCacheKey(idOrTicker)); found {
		return cached.(AssetId), nil
	}

	value := storage.Pool.Tickers.Get([]byte(idOrTicker))
	if nil == value {
		return AssetId{}, fault.ErrAssetNotFound
	}
	id, err := AssetIdFromBytes(value)
	if nil != err {
		return AssetId{}, err
	}

	globalData.cache.Set(tickerCacheKey(idOrTicker), id, gocache.NoExpiration)
	return id, nil
}

// RenameTicker - move an asset to a new ticker
//
// metadata only: the asset id and every balance and settlement row
// keyed by it are untouched
func RenameTicker(id AssetId, newTicker string) error {

	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return fault.ErrNotInitialised
	}
	if !validTicker(newTicker) {
		return fault.ErrInvalidTicker
	}

	trx, err := storage.NewDBTransaction()
	if nil != err {
		return err
	}

	record := trx.Get(storage.Pool.Assets, id[:])
	if nil == record {
		trx.Abort()
		return fault.ErrAssetNotFound
	}
	if trx.Has(storage.Pool.Tickers, []byte(newTicker)) {
		trx.Abort()
		return fault.ErrTickerAlreadyTaken
	}

	oldTicker := trx.Get(storage.Pool.TickerIndex, id[:])
	if nil != oldTicker {
		trx.Delete(storage.Pool.Tickers, oldTicker)
	}

	newRecord := make([]byte, 8, 8+len(newTicker))
	copy(newRecord, record[:8])
	newRecord = append(newRecord, newTicker...)

	trx.Put(storage.Pool.Assets, id[:], newRecord)
	trx.Put(storage.Pool.Tickers, []byte(newTicker), id[:])
	trx.Put(storage.Pool.TickerIndex, id[:], []byte(newTicker))
	if err := trx.Commit(); nil != err {
		return err
	}

	if nil != oldTicker {
		globalData.cache.Delete(tickerCacheKey(string(oldTicker)))
	}
	globalData.cache.Set(tickerCacheKey(newTicker), id, gocache.NoExpiration)
	globalData.log.Infof("asset %s ticker %q renamed to %q", id, oldTicker, newTicker)

	return nil
}

// tickers are short upper case alphanumerics
func validTicker(ticker string) bool {
	if len(ticker) < minTickerLength || len(ticker) > maxTickerLength {
		return false
	}
	for _, c := range ticker {
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case '.' == c || '-' == c:
		default:
			return false
		}
	}
	return true
}

func tickerCacheKey(ticker string) string {
	return "ticker:" + ticker
}
