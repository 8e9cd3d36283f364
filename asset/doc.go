// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package asset - registry of confidential asset identities
//
// An asset is a 32 byte identifier that is never reused.  A ticker
// is an optional human readable alias; it can be moved to a new
// spelling but the identifier underneath never changes, so balances
// and settlements survive a rename untouched.
package asset
