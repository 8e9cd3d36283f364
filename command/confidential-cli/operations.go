// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/confidentiald/api"
	"github.com/bitmark-inc/confidentiald/asset"
	"github.com/bitmark-inc/confidentiald/balance"
	"github.com/bitmark-inc/confidentiald/configuration"
	"github.com/bitmark-inc/confidentiald/elgamal"
	"github.com/bitmark-inc/confidentiald/proof"
	"github.com/bitmark-inc/confidentiald/storage"
	"github.com/bitmark-inc/confidentiald/vault"
)

// bring up the engine packages against the data directory, run the
// action, and shut everything down again
func withEngine(c *cli.Context, action func() error) error {

	configurationFile := c.GlobalString("config-file")
	if "" == configurationFile {
		return cli.NewExitError("config-file is required", 1)
	}

	options, err := configuration.GetConfiguration(configurationFile)
	if nil != err {
		return cli.NewExitError(fmt.Sprintf("configuration: %q error: %s", configurationFile, err), 1)
	}

	if passphrase := c.GlobalString("passphrase"); "" != passphrase {
		options.Vault.Passphrase = passphrase
	}

	if err := logger.Initialise(options.Logging); nil != err {
		return cli.NewExitError(fmt.Sprintf("logger: %s", err), 1)
	}
	defer logger.Finalise()

	scheme := elgamal.Scheme{}

	if err := storage.Initialise(options.Database, storage.ReadWrite); nil != err {
		return cli.NewExitError(fmt.Sprintf("storage: %s", err), 1)
	}
	defer storage.Finalise()

	if err := proof.Initialise(&options.Proof, scheme); nil != err {
		return cli.NewExitError(fmt.Sprintf("proof: %s", err), 1)
	}
	defer proof.Finalise()

	if err := vault.Initialise(&options.Vault, scheme); nil != err {
		return cli.NewExitError(fmt.Sprintf("vault: %s", err), 1)
	}
	defer vault.Finalise()

	if err := asset.Initialise(); nil != err {
		return cli.NewExitError(fmt.Sprintf("asset: %s", err), 1)
	}
	defer asset.Finalise()

	if err := balance.Initialise(&options.Balance, scheme); nil != err {
		return cli.NewExitError(fmt.Sprintf("balance: %s", err), 1)
	}
	defer balance.Finalise()

	if err := api.Initialise(); nil != err {
		return cli.NewExitError(fmt.Sprintf("api: %s", err), 1)
	}
	defer api.Finalise()

	return action()
}

// print a result structure as indented json
func printJson(c *cli.Context, result interface{}) error {
	b, err := json.MarshalIndent(result, "", "  ")
	if nil != err {
		return cli.NewExitError(fmt.Sprintf("json marshal error: %s", err), 1)
	}
	fmt.Fprintf(c.App.Writer, "%s\n", b)
	return nil
}

func runCreateSigner(c *cli.Context) error {
	name := c.Args().Get(0)
	if "" == name {
		return cli.NewExitError("signer NAME is required", 1)
	}
	return withEngine(c, func() error {
		info, err := api.CreateSigner(name)
		if nil != err {
			return cli.NewExitError(fmt.Sprintf("create signer: %s", err), 1)
		}
		return printJson(c, info)
	})
}

func runCreateAccount(c *cli.Context) error {
	return withEngine(c, func() error {
		account, err := api.CreateAccount()
		if nil != err {
			return cli.NewExitError(fmt.Sprintf("create account: %s", err), 1)
		}
		return printJson(c, map[string]string{"account": account})
	})
}

func runCreateAsset(c *cli.Context) error {
	ticker := c.Args().Get(0)
	return withEngine(c, func() error {
		info, err := api.CreateAsset(ticker)
		if nil != err {
			return cli.NewExitError(fmt.Sprintf("create asset: %s", err), 1)
		}
		return printJson(c, info)
	})
}

func runInitBalance(c *cli.Context) error {
	account := c.Args().Get(0)
	assetRef := c.Args().Get(1)
	if "" == account || "" == assetRef {
		return cli.NewExitError("ACCOUNT and ASSET are required", 1)
	}
	return withEngine(c, func() error {
		if err := api.InitBalance(account, assetRef); nil != err {
			return cli.NewExitError(fmt.Sprintf("init balance: %s", err), 1)
		}
		fmt.Fprintf(c.App.Writer, "initialised\n")
		return nil
	})
}

func runMint(c *cli.Context) error {
	account := c.Args().Get(0)
	assetRef := c.Args().Get(1)
	amountArg := c.Args().Get(2)
	if "" == account || "" == assetRef || "" == amountArg {
		return cli.NewExitError("ACCOUNT, ASSET and AMOUNT are required", 1)
	}
	amount, err := strconv.ParseUint(amountArg, 10, 64)
	if nil != err {
		return cli.NewExitError(fmt.Sprintf("invalid amount: %q", amountArg), 1)
	}
	return withEngine(c, func() error {
		if err := api.Mint(account, assetRef, amount); nil != err {
			return cli.NewExitError(fmt.Sprintf("mint: %s", err), 1)
		}
		fmt.Fprintf(c.App.Writer, "minted: %d\n", amount)
		return nil
	})
}

func runShowBalance(c *cli.Context) error {
	account := c.Args().Get(0)
	assetRef := c.Args().Get(1)
	if "" == account || "" == assetRef {
		return cli.NewExitError("ACCOUNT and ASSET are required", 1)
	}
	return withEngine(c, func() error {
		row, err := api.GetBalance(account, assetRef)
		if nil != err {
			return cli.NewExitError(fmt.Sprintf("get balance: %s", err), 1)
		}
		return printJson(c, row)
	})
}

func runDecryptBalance(c *cli.Context) error {
	account := c.Args().Get(0)
	assetRef := c.Args().Get(1)
	if "" == account || "" == assetRef {
		return cli.NewExitError("ACCOUNT and ASSET are required", 1)
	}
	return withEngine(c, func() error {
		value, err := api.DecryptBalance(context.Background(), account, assetRef)
		if nil != err {
			return cli.NewExitError(fmt.Sprintf("decrypt balance: %s", err), 1)
		}
		return printJson(c, map[string]uint64{"value": value})
	})
}
