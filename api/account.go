// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package api

import (
	"context"
	"encoding/hex"

	"github.com/bitmark-inc/confidentiald/asset"
	"github.com/bitmark-inc/confidentiald/balance"
	"github.com/bitmark-inc/confidentiald/fault"
	"github.com/bitmark-inc/confidentiald/proof"
	"github.com/bitmark-inc/confidentiald/vault"
)

// SignerInfo - result of signer creation
type SignerInfo struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	PublicKey string `json:"public_key"`
}

// CreateSigner - register a named signing key
func CreateSigner(name string) (*SignerInfo, error) {

	if !initialised() {
		return nil, fault.ErrNotInitialised
	}

	id, publicKey, err := vault.RegisterSigner(name)
	if nil != err {
		return nil, err
	}
	return &SignerInfo{
		Id:        id.String(),
		Name:      name,
		PublicKey: hex.EncodeToString(publicKey),
	}, nil
}

// CreateAccount - generate a confidential account
func CreateAccount() (string, error) {

	if !initialised() {
		return "", fault.ErrNotInitialised
	}

	publicKey, err := vault.CreateAccount()
	if nil != err {
		return "", err
	}
	return hex.EncodeToString(publicKey), nil
}

// AssetInfo - result of asset creation
type AssetInfo struct {
	Id     string `json:"id"`
	Ticker string `json:"ticker,omitempty"`
}

// CreateAsset - register an asset, optionally under a ticker
func CreateAsset(ticker string) (*AssetInfo, error) {

	if !initialised() {
		return nil, fault.ErrNotInitialised
	}

	id, err := asset.Create(ticker)
	if nil != err {
		return nil, err
	}
	return &AssetInfo{
		Id:     id.String(),
		Ticker: ticker,
	}, nil
}

// InitBalance - create the zero balance row for an account and asset
func InitBalance(account string, assetRef string) error {

	if !initialised() {
		return fault.ErrNotInitialised
	}

	accountKey, assetId, err := resolvePair(account, assetRef)
	if nil != err {
		return err
	}
	return balance.Init(accountKey, assetId)
}

// Mint - issue cleartext supply to an account's confirmed balance
func Mint(account string, assetRef string, amount uint64) error {

	if !initialised() {
		return fault.ErrNotInitialised
	}

	accountKey, assetId, err := resolvePair(account, assetRef)
	if nil != err {
		return err
	}
	return balance.Mint(accountKey, assetId, amount)
}

// BalanceInfo - one encrypted balance row
type BalanceInfo struct {
	Confirmed string  `json:"confirmed"`
	Pending   string  `json:"pending"`
	Version   uint64  `json:"version"`
	Mirror    *uint64 `json:"mirror,omitempty"`
}

// GetBalance - the encrypted balance row for an account and asset
func GetBalance(account string, assetRef string) (*BalanceInfo, error) {

	if !initialised() {
		return nil, fault.ErrNotInitialised
	}

	accountKey, assetId, err := resolvePair(account, assetRef)
	if nil != err {
		return nil, err
	}

	row, err := balance.Get(accountKey, assetId)
	if nil != err {
		return nil, err
	}
	return &BalanceInfo{
		Confirmed: hex.EncodeToString(row.Confirmed),
		Pending:   hex.EncodeToString(row.Pending),
		Version:   row.Version,
		Mirror:    row.Mirror,
	}, nil
}

// ApplyIncoming - sweep an account's pending incoming into confirmed
func ApplyIncoming(account string, assetRef string) error {

	if !initialised() {
		return fault.ErrNotInitialised
	}

	accountKey, assetId, err := resolvePair(account, assetRef)
	if nil != err {
		return err
	}
	return balance.ApplyIncoming(accountKey, assetId)
}

// DecryptBalance - decrypt the confirmed balance with the account's
// own key and refresh the cleartext mirror when one is kept
func DecryptBalance(ctx context.Context, account string, assetRef string) (uint64, error) {

	if !initialised() {
		return 0, fault.ErrNotInitialised
	}

	accountKey, assetId, err := resolvePair(account, assetRef)
	if nil != err {
		return 0, err
	}

	row, err := balance.Get(accountKey, assetId)
	if nil != err {
		return 0, err
	}

	ref, err := vault.Secret(accountKey)
	if nil != err {
		return 0, err
	}
	defer ref.Release()

	secret, err := ref.Bytes()
	if nil != err {
		return 0, err
	}

	value, err := proof.DecryptBalance(ctx, secret, row.Confirmed)
	if nil != err {
		return 0, err
	}

	err = balance.RecordDecrypted(accountKey, assetId, value)
	if nil != err {
		return 0, err
	}
	return value, nil
}

// resolve an account hex key and an asset id or ticker
func resolvePair(account string, assetRef string) ([]byte, asset.AssetId, error) {

	accountKey, err := decodeAccount(account)
	if nil != err {
		return nil, asset.AssetId{}, err
	}
	assetId, err := asset.Resolve(assetRef)
	if nil != err {
		return nil, asset.AssetId{}, err
	}
	return accountKey, assetId, nil
}
