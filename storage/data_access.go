// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"encoding/hex"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"
)

// low level access to the database
//
// all writes are accumulated in a batch and the same values mirrored
// into the cache, so reads issued between put and write observe the
// pending values; the mutex serialises writers (one transaction or
// one direct write at a time) while reads proceed concurrently
type dataAccess struct {
	sync.Mutex
	db    *leveldb.DB
	batch *leveldb.Batch
	cache Cache
}

func newDataAccess(db *leveldb.DB, c Cache) *dataAccess {
	return &dataAccess{
		db:    db,
		batch: new(leveldb.Batch),
		cache: c,
	}
}

func (d *dataAccess) put(key []byte, value []byte) {
	d.cache.Set(dbPut, cacheKey(key), value)
	d.batch.Put(key, value)
}

func (d *dataAccess) remove(key []byte) {
	d.cache.Set(dbDelete, cacheKey(key), []byte{})
	d.batch.Delete(key)
}

// write out the accumulated batch
func (d *dataAccess) commit() error {
	err := d.db.Write(d.batch, nil)
	d.batch.Reset()
	return err
}

// drop the accumulated batch
//
// cached entries for the dropped writes may be stale, so the whole
// cache is invalidated
func (d *dataAccess) abort() {
	d.batch.Reset()
	d.cache.Clear()
}

func (d *dataAccess) get(key []byte) ([]byte, error) {
	if value, found := d.cache.Get(cacheKey(key)); found {
		return value, nil
	}
	return d.db.Get(key, nil)
}

func (d *dataAccess) has(key []byte) (bool, error) {
	if _, found := d.cache.Get(cacheKey(key)); found {
		return true, nil
	}
	return d.db.Has(key, nil)
}

func (d *dataAccess) iterator(searchRange *ldb_util.Range) iterator.Iterator {
	return d.db.NewIterator(searchRange, nil)
}

func cacheKey(key []byte) string {
	return hex.EncodeToString(key)
}
