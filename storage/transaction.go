// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"encoding/binary"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/bitmark-inc/logger"
)

// Transaction - group a set of puts and deletes over any pools into
// one atomic database write
type Transaction interface {
	Put(*PoolHandle, []byte, []byte)
	PutN(*PoolHandle, []byte, uint64)
	Delete(*PoolHandle, []byte)
	Get(*PoolHandle, []byte) []byte
	GetN(*PoolHandle, []byte) (uint64, bool)
	Has(*PoolHandle, []byte) bool
	Commit() error
	Abort()
}

type transactionImpl struct {
	dataAccess *dataAccess
}

func newTransaction(access *dataAccess) *transactionImpl {
	return &transactionImpl{
		dataAccess: access,
	}
}

// block until exclusive write access is obtained
func (t *transactionImpl) begin() {
	t.dataAccess.Lock()
}

func (t *transactionImpl) Put(p *PoolHandle, key []byte, value []byte) {
	t.dataAccess.put(p.prefixKey(key), value)
}

func (t *transactionImpl) PutN(p *PoolHandle, key []byte, value uint64) {
	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, value)
	t.dataAccess.put(p.prefixKey(key), buffer)
}

func (t *transactionImpl) Delete(p *PoolHandle, key []byte) {
	t.dataAccess.remove(p.prefixKey(key))
}

func (t *transactionImpl) Get(p *PoolHandle, key []byte) []byte {
	value, err := t.dataAccess.get(p.prefixKey(key))
	if leveldb.ErrNotFound == err {
		return nil
	}
	logger.PanicIfError("transaction.Get", err)
	return value
}

func (t *transactionImpl) GetN(p *PoolHandle, key []byte) (uint64, bool) {
	buffer := t.Get(p, key)
	if nil == buffer {
		return 0, false
	}
	if len(buffer) < 8 {
		logger.Panicf("transaction.GetN truncated record for: %x: %s", key, buffer)
	}
	return binary.BigEndian.Uint64(buffer[:8]), true
}

func (t *transactionImpl) Has(p *PoolHandle, key []byte) bool {
	ok, err := t.dataAccess.has(p.prefixKey(key))
	logger.PanicIfError("transaction.Has", err)
	return ok
}

// Commit - write out all accumulated changes
func (t *transactionImpl) Commit() error {
	err := t.dataAccess.commit()
	t.dataAccess.Unlock()
	return err
}

// Abort - drop all accumulated changes
func (t *transactionImpl) Abort() {
	t.dataAccess.abort()
	t.dataAccess.Unlock()
}
