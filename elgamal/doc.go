// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package elgamal - additively homomorphic balance encryption
//
// Exponential ElGamal over the bn254 G1 group.  A balance b is held
// as the pair (r·G, b·H + r·P) so two ciphertexts under the same key
// can be combined without revealing either plaintext.  Decryption
// recovers b·H and then searches for b, which is only feasible up to
// a configured bound; callers must treat the bound as part of the
// scheme, not as an error in it.
//
// The curve arithmetic is delegated entirely to
// github.com/consensys/gnark-crypto - no group math is implemented
// here.
//
// The sender proof binds one transfer amount to the receiver and all
// auditor keys with a shared-randomness encryption plus a Schnorr
// style transcript, so any party can check well-formedness and a
// party that knows the expected amount can check the amount itself.
// Range checking of the amount is outside this package.
package elgamal
