// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// maintain the on-disk data store
//
// maintain separate pools of a number of elements in key->value form
//
// This maintains a LevelDB database split into a series of tables.
// Each table is defined by a prefix byte that is obtained from the
// prefix tag in the struct defining the available tables.
//
// Notes:
// 1. each separate pool has a single byte prefix (to spread the keys in LevelDB)
// 2. ++           = concatenation of byte data
// 3. id           = successive index value as big endian uint64 (8 bytes)
// 4. asset id     = 32 byte SHA3-256 digest
// 5. account      = ElGamal public key (32 bytes)
// 6. hashes       = 32 byte values from the chain client
//
// Signers:
//
//	S ++ signer id             - registered signer
//	                             data: packed signer record (name, public key, encrypted secret)
//	N ++ name                  - signer lookup by unique name
//	                             data: signer id
//	K ++ public key            - signer lookup by unique public key
//	                             data: signer id
//
// Confidential accounts:
//
//	C ++ account               - confidential account
//	                             data: packed account record (encrypted secret, created at)
//
// Assets:
//
//	A ++ asset id              - asset metadata
//	                             data: packed asset record (created at, updated at)
//	R ++ ticker                - ticker reservation
//	                             data: asset id
//	I ++ asset id              - reverse ticker lookup, for rename
//	                             data: ticker
//
// Balances:
//
//	B ++ account ++ asset id   - encrypted balance row
//	                             data: packed balance record
//	                                   (version, flags, confirmed, pending, mirror, updated at)
//
// Settlements:
//
//	V ++ venue id              - venue
//	                             data: packed venue record (signer id, created at)
//	E ++ settlement id         - settlement
//	                             data: packed settlement record (venue id, legs, memo, created at)
//	L ++ settlement id ++ seq  - append-only settlement event log
//	                             data: packed event record (kind, reason, created at)
//
// Chain transactions:
//
//	T ++ block hash ++ tx hash - confirmed chain submission outcome
//	                             data: packed transaction record
//	                                   (block number, success, error, events)
//
// Counters:
//
//	X ++ name                  - next id for signer / venue / settlement sequences
//	                             data: big endian uint64
//
// Testing:
//
//	Z ++ key                   - testing data
package storage
