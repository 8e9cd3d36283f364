// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// error instances
//
// Provides a single instance of errors to allow easy comparison
package fault

// error base
type GenericError string

// to allow for different classes of errors
type ExistsError GenericError
type InvalidError GenericError
type LengthError GenericError
type NotFoundError GenericError
type ProcessError GenericError
type CryptoError GenericError
type ChainError GenericError

// common errors - keep in alphabetic order
var (
	ErrAccountAlreadyExists      = ExistsError("account already exists")
	ErrAccountNotFound           = NotFoundError("account not found")
	ErrAlreadyInitialised        = ProcessError("already initialised")
	ErrAssetNotFound             = NotFoundError("asset not found")
	ErrBalanceAlreadyInitialised = ExistsError("balance already initialised")
	ErrBalanceNotFound           = NotFoundError("balance not found")
	ErrChainNotConnected         = ChainError("chain not connected")
	ErrChainShuttingDown         = ChainError("chain shutting down")
	ErrChainSubmissionFailed     = ChainError("chain submission failed")
	ErrConcurrentModification    = ExistsError("concurrent modification")
	ErrDecryptionBoundExceeded   = CryptoError("decryption bound exceeded")
	ErrDecryptionFailed          = CryptoError("decryption failed")
	ErrDuplicateTransaction      = ExistsError("duplicate transaction")
	ErrInsufficientBalance       = CryptoError("insufficient balance")
	ErrInvalidAmount             = InvalidError("invalid amount")
	ErrInvalidCiphertext         = LengthError("invalid ciphertext")
	ErrInvalidCount              = InvalidError("invalid count")
	ErrInvalidCursor             = InvalidError("invalid cursor")
	ErrInvalidLegIndex           = InvalidError("invalid leg index")
	ErrInvalidPrivateKey         = LengthError("invalid private key")
	ErrInvalidProof              = CryptoError("invalid proof")
	ErrInvalidPublicKey          = LengthError("invalid public key")
	ErrInvalidStructPointer      = InvalidError("invalid struct pointer")
	ErrInvalidTicker             = InvalidError("invalid ticker")
	ErrKeyAlreadyExists          = ExistsError("key already exists")
	ErrKeyLength                 = LengthError("key length is invalid")
	ErrLegAlreadyAffirmed        = ExistsError("leg already affirmed")
	ErrLegNotAffirmedBySender    = ProcessError("leg not affirmed by sender")
	ErrMalformedProof            = CryptoError("malformed proof")
	ErrMediatorNotOnLeg          = NotFoundError("mediator not on leg")
	ErrMissingParameters         = InvalidError("missing parameters")
	ErrNotAValidHexString        = InvalidError("not a valid hex string")
	ErrNotInitialised            = ProcessError("not initialised")
	ErrProofAmountMismatch       = CryptoError("proof does not match expected amount")
	ErrProofCommitmentMismatch   = CryptoError("proof does not match expected commitments")
	ErrProofGenerationFailed     = CryptoError("proof generation failed")
	ErrRateLimiting              = ProcessError("rate limiting active")
	ErrSecretReleased            = ProcessError("secret reference already released")
	ErrSettlementAlreadyExecuted = ExistsError("settlement already executed")
	ErrSettlementFailed          = ProcessError("settlement failed")
	ErrSettlementNotFound        = NotFoundError("settlement not found")
	ErrSettlementNotReady        = ProcessError("settlement not ready")
	ErrSignerAlreadyExists       = ExistsError("signer already exists")
	ErrSignerNotFound            = NotFoundError("signer not found")
	ErrTickerAlreadyTaken        = ExistsError("ticker already taken")
	ErrVenueNotFound             = NotFoundError("venue not found")
	ErrWrongPassword             = InvalidError("wrong password")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e ExistsError) Error() string   { return string(e) }
func (e InvalidError) Error() string  { return string(e) }
func (e LengthError) Error() string   { return string(e) }
func (e NotFoundError) Error() string { return string(e) }
func (e ProcessError) Error() string  { return string(e) }
func (e CryptoError) Error() string   { return string(e) }
func (e ChainError) Error() string    { return string(e) }

// determine the class of an error
func IsErrExists(e error) bool   { _, ok := e.(ExistsError); return ok }
func IsErrInvalid(e error) bool  { _, ok := e.(InvalidError); return ok }
func IsErrLength(e error) bool   { _, ok := e.(LengthError); return ok }
func IsErrNotFound(e error) bool { _, ok := e.(NotFoundError); return ok }
func IsErrProcess(e error) bool  { _, ok := e.(ProcessError); return ok }
func IsErrCrypto(e error) bool   { _, ok := e.(CryptoError); return ok }
func IsErrChain(e error) bool    { _, ok := e.(ChainError); return ok }
