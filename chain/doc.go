// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chain - bridge to the settlement chain
//
// Submissions go out over a PUSH socket and confirmations come back
// on a SUB stream.  Both directions are asynchronous: Submit queues
// the payload and returns its transaction hash, and the registered
// handler fires exactly once when the confirmation arrives, whether
// or not the submitter is still waiting.
//
// Every confirmation passes through the transaction tracker before
// any handler runs, so a redelivered confirmation is dropped instead
// of applying its effects twice.
//
// Handlers are held in memory only.  A submission that was awaiting
// its confirmation when the process stopped cannot fire after a
// restart; the caller owns the durable state and must resubmit.
package chain
