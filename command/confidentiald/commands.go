// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bitmark-inc/exitwithstatus"
	zmq "github.com/pebbe/zmq4"
)

const (
	chainPublicKeyFilename  = "chain.public"
	chainPrivateKeyFilename = "chain.private"
)

// setup command handler
//
// commands that run before any configuration or database access;
// they create key files for the chain bridge's curve authentication
func processSetupCommand(program string, arguments []string) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
		arguments = arguments[1:]
	}

	switch command {
	case "gen-chain-identity", "chain":
		directory := "."
		if len(arguments) >= 1 && "" != arguments[0] {
			directory = arguments[0]
		}
		publicKeyFilename := filepath.Join(directory, chainPublicKeyFilename)
		privateKeyFilename := filepath.Join(directory, chainPrivateKeyFilename)

		for _, name := range []string{publicKeyFilename, privateKeyFilename} {
			if _, err := os.Stat(name); nil == err {
				fmt.Printf("key file: %q already exists\n", name)
				exitwithstatus.Exit(1)
			}
		}

		publicKey, privateKey, err := zmq.NewCurveKeypair()
		if nil != err {
			fmt.Printf("generate key pair error: %s\n", err)
			exitwithstatus.Exit(1)
		}

		if err := os.WriteFile(privateKeyFilename, []byte(privateKey+"\n"), 0600); nil != err {
			fmt.Printf("write private key: %q error: %s\n", privateKeyFilename, err)
			exitwithstatus.Exit(1)
		}
		if err := os.WriteFile(publicKeyFilename, []byte(publicKey+"\n"), 0644); nil != err {
			os.Remove(privateKeyFilename)
			fmt.Printf("write public key: %q error: %s\n", publicKeyFilename, err)
			exitwithstatus.Exit(1)
		}

		fmt.Printf("generated public key: %q  private key: %q\n", publicKeyFilename, privateKeyFilename)

	case "version":
		fmt.Println(version)

	case "help", "h", "?":
		fmt.Printf("usage: %s [--help] [--verbose] [--quiet] --config-file=FILE [[command|help] arguments...]\n", program)
		fmt.Printf("supported commands:\n\n")
		fmt.Printf("  help                               (h)       - display this message\n\n")
		fmt.Printf("  version                            (v)       - display the program version\n\n")
		fmt.Printf("  gen-chain-identity [DIR]           (chain)   - create the curve key pair for chain bridge\n")
		fmt.Printf("                                                 authentication in DIR or the current directory\n\n")

	default:
		fmt.Printf("unknown command: %q\n", command)
		fmt.Printf("use: %q to list available commands\n", "help")
		exitwithstatus.Exit(1)
	}

	return true
}
