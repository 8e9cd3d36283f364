// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package settlement - multi-party settlement state machine
//
// A venue groups settlements under an owning signer.  A settlement is
// an ordered, immutable sequence of legs; each leg moves one asset
// from a sender account to a receiver account, optionally overseen by
// mediators.  Legs advance independently through affirmation states
// and the settlement executes only when every leg holds its full set
// of affirmations; there is no partial execution.
//
// Transitions that touch the chain are asynchronous: the affirmation
// or execution call returns once the transaction is broadcast and the
// state flips when the confirmation arrives.  Sender balances are
// debited only on confirmed sender affirmation; receiver balances are
// credited (pending) only on confirmed execution.
//
// Transitions on one settlement are serialized; different settlements
// proceed in parallel.  Every transition is recorded in an append-only
// event log so the history of a settlement survives independently of
// the log files.
//
// Confirmation handlers are not persisted.  A leg that was in flight
// when the process stopped stays in flight across a restart.
// TODO: rescan pending legs and executing settlements at startup and
// re-register their confirmation handlers.
package settlement
