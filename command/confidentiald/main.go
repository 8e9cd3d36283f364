// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/getoptions"
	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/confidentiald/api"
	"github.com/bitmark-inc/confidentiald/asset"
	"github.com/bitmark-inc/confidentiald/balance"
	"github.com/bitmark-inc/confidentiald/chain"
	"github.com/bitmark-inc/confidentiald/configuration"
	"github.com/bitmark-inc/confidentiald/elgamal"
	"github.com/bitmark-inc/confidentiald/proof"
	"github.com/bitmark-inc/confidentiald/settlement"
	"github.com/bitmark-inc/confidentiald/storage"
	"github.com/bitmark-inc/confidentiald/tracker"
	"github.com/bitmark-inc/confidentiald/vault"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

// main program
func main() {
	// ensure exit handler is first
	defer exitwithstatus.Handler()

	flags := []getoptions.Option{
		{Long: "help", HasArg: getoptions.NO_ARGUMENT, Short: 'h'},
		{Long: "verbose", HasArg: getoptions.NO_ARGUMENT, Short: 'v'},
		{Long: "quiet", HasArg: getoptions.NO_ARGUMENT, Short: 'q'},
		{Long: "version", HasArg: getoptions.NO_ARGUMENT, Short: 'V'},
		{Long: "config-file", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'c'},
	}

	program, options, arguments, err := getoptions.GetOS(flags)
	if nil != err {
		exitwithstatus.Message("%s: getoptions error: %s", program, err)
	}

	if len(options["version"]) > 0 {
		processSetupCommand(program, []string{"version"})
		return
	}

	if len(options["help"]) > 0 {
		processSetupCommand(program, []string{"help"})
		return
	}

	// these commands do not require the configuration
	if len(arguments) > 0 && processSetupCommand(program, arguments) {
		return
	}

	if 1 != len(options["config-file"]) {
		exitwithstatus.Message("%s: only one config-file option is required, %d were detected", program, len(options["config-file"]))
	}

	// read options and parse the configuration file
	configurationFile := options["config-file"][0]
	theConfiguration, err := configuration.GetConfiguration(configurationFile)
	if nil != err {
		exitwithstatus.Message("%s: failed to read configuration from: %q  error: %s", program, configurationFile, err)
	}

	// start logging
	if err = logger.Initialise(theConfiguration.Logging); nil != err {
		exitwithstatus.Message("%s: logger setup failed with error: %s", program, err)
	}
	defer logger.Finalise()

	// create a logger channel for the main program
	log := logger.New("main")
	defer log.Info("finished")
	log.Info("starting…")
	log.Infof("version: %s", version)

	// ------------------
	// start of real main
	// ------------------

	// optional PID file
	// use if not running under a supervisor program like daemon(8)
	if "" != theConfiguration.PidFile {
		lockFile, err := os.OpenFile(theConfiguration.PidFile, os.O_WRONLY|os.O_EXCL|os.O_CREATE, os.ModeExclusive|0600)
		if err != nil {
			if os.IsExist(err) {
				exitwithstatus.Message("%s: another instance is already running", program)
			}
			exitwithstatus.Message("%s: PID file: %q creation failed, error: %s", program, theConfiguration.PidFile, err)
		}
		fmt.Fprintf(lockFile, "%d\n", os.Getpid())
		lockFile.Close()
		defer os.Remove(theConfiguration.PidFile)
	}

	// general info
	log.Infof("database: %q", theConfiguration.Database)
	log.Debugf("chain: %#v", theConfiguration.Chain)
	log.Debugf("proof: %#v", theConfiguration.Proof)

	// start the data storage
	log.Info("initialise storage")
	err = storage.Initialise(theConfiguration.Database, storage.ReadWrite)
	if nil != err {
		log.Criticalf("storage initialise error: %s", err)
		exitwithstatus.Message("storage initialise error: %s", err)
	}
	defer storage.Finalise()

	// the ciphertext and proof scheme used throughout
	scheme := elgamal.Scheme{}

	// start the proof worker pool
	log.Info("initialise proof")
	err = proof.Initialise(&theConfiguration.Proof, scheme)
	if nil != err {
		log.Criticalf("proof initialise error: %s", err)
		exitwithstatus.Message("proof initialise error: %s", err)
	}
	defer proof.Finalise()

	// unlock the key vault
	log.Info("initialise vault")
	err = vault.Initialise(&theConfiguration.Vault, scheme)
	if nil != err {
		log.Criticalf("vault initialise error: %s", err)
		exitwithstatus.Message("vault initialise error: %s", err)
	}
	defer vault.Finalise()

	// start the asset registry
	log.Info("initialise asset")
	err = asset.Initialise()
	if nil != err {
		log.Criticalf("asset initialise error: %s", err)
		exitwithstatus.Message("asset initialise error: %s", err)
	}
	defer asset.Finalise()

	// start the balance ledger
	log.Info("initialise balance")
	err = balance.Initialise(&theConfiguration.Balance, scheme)
	if nil != err {
		log.Criticalf("balance initialise error: %s", err)
		exitwithstatus.Message("balance initialise error: %s", err)
	}
	defer balance.Finalise()

	// transaction tracking must exist before the chain watcher
	log.Info("initialise tracker")
	err = tracker.Initialise()
	if nil != err {
		log.Criticalf("tracker initialise error: %s", err)
		exitwithstatus.Message("tracker initialise error: %s", err)
	}
	defer tracker.Finalise()

	// connect the chain bridge
	log.Info("initialise chain")
	err = chain.Initialise(&theConfiguration.Chain, nil)
	if nil != err {
		log.Criticalf("chain initialise error: %s", err)
		exitwithstatus.Message("chain initialise error: %s", err)
	}
	defer chain.Finalise()

	// start the settlement engine
	log.Info("initialise settlement")
	err = settlement.Initialise()
	if nil != err {
		log.Criticalf("settlement initialise error: %s", err)
		exitwithstatus.Message("settlement initialise error: %s", err)
	}
	defer settlement.Finalise()

	// the produced operation surface
	log.Info("initialise api")
	err = api.Initialise()
	if nil != err {
		log.Criticalf("api initialise error: %s", err)
		exitwithstatus.Message("api initialise error: %s", err)
	}
	defer api.Finalise()

	// wait for CTRL-C before shutting down to allow manual testing
	if 0 == len(options["quiet"]) {
		fmt.Printf("\n\nWaiting for CTRL-C (SIGINT) or 'kill <pid>' (SIGTERM)…")
	}

	// turn Signals into channel messages
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	sig := <-ch
	log.Infof("received signal: %v", sig)
	if 0 == len(options["quiet"]) {
		fmt.Printf("\nreceived signal: %v\n", sig)
		fmt.Printf("\nshutting down…\n")
	}

	log.Info("shutting down…")
}
