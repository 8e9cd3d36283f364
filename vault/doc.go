// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package vault - custody of signing and encryption keys
//
// Two kinds of key live here.  Signers are ed25519 pairs used to
// authenticate chain submissions; they are registered under a unique
// name.  Confidential accounts are encryption key pairs whose public
// half identifies the account everywhere else in the system.
//
// All secret material is encrypted at rest with an AES-CBC key
// derived by argon2 from the configured passphrase.  Secrets are
// handed out only as short-lived references that the caller must
// release, which wipes the plaintext copy.
package vault
