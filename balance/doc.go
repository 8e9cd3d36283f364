// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package balance - the encrypted balance ledger
//
// One row per (account, asset).  Each row holds two ciphertexts: the
// confirmed balance the account can spend from, and a pending
// accumulator of incoming amounts not yet folded in.  Incoming
// credits only ever touch pending; the account owner folds pending
// into confirmed when ready, so a sender proof generated against the
// confirmed balance stays valid while deposits keep arriving.
//
// Rows carry a version number checked on every write.  Mutations
// retry a bounded number of times on version conflicts and then give
// up, so two concurrent writers cannot silently lose an update.
package balance
