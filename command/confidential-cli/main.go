// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// offline administration tool
//
// runs the engine packages directly against the data directory, so
// the daemon must not be running at the same time.  used to bootstrap
// signers, assets and funded accounts before first start.
package main

import (
	"os"

	"github.com/urfave/cli"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

func main() {

	app := cli.NewApp()
	app.Name = "confidential-cli"
	app.Usage = "bootstrap and inspect a confidentiald data directory"
	app.Version = version
	app.HideVersion = true

	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config-file, c",
			Value: "",
			Usage: "*confidentiald configuration `FILE`",
		},
		cli.StringFlag{
			Name:  "passphrase, p",
			Value: "",
			Usage: " vault `PASSPHRASE` overriding the configuration",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:      "create-signer",
			Usage:     "register a named signing key",
			ArgsUsage: "NAME",
			Action:    runCreateSigner,
		},
		{
			Name:   "create-account",
			Usage:  "generate a confidential account",
			Action: runCreateAccount,
		},
		{
			Name:      "create-asset",
			Usage:     "register an asset, optionally under a ticker",
			ArgsUsage: "[TICKER]",
			Action:    runCreateAsset,
		},
		{
			Name:      "init-balance",
			Usage:     "create the zero balance row for an account and asset",
			ArgsUsage: "ACCOUNT ASSET",
			Action:    runInitBalance,
		},
		{
			Name:      "mint",
			Usage:     "issue supply to an account's confirmed balance",
			ArgsUsage: "ACCOUNT ASSET AMOUNT",
			Action:    runMint,
		},
		{
			Name:      "show-balance",
			Usage:     "display the encrypted balance row",
			ArgsUsage: "ACCOUNT ASSET",
			Action:    runShowBalance,
		},
		{
			Name:      "decrypt-balance",
			Usage:     "decrypt the confirmed balance with the account's own key",
			ArgsUsage: "ACCOUNT ASSET",
			Action:    runDecryptBalance,
		},
	}

	err := app.Run(os.Args)
	if nil != err {
		os.Exit(1)
	}
}
