// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package api - the produced operation surface
//
// Thin facade over the engine packages for an outer transport layer
// to expose.  Inputs are wire friendly: accounts and hashes as hex,
// assets by identifier or ticker, signers by name.  Every call maps
// onto exactly one engine operation and returns that operation's
// typed fault unchanged.
package api
