// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration

import (
	"os"
	"path/filepath"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/confidentiald/balance"
	"github.com/bitmark-inc/confidentiald/chain"
	"github.com/bitmark-inc/confidentiald/fault"
	"github.com/bitmark-inc/confidentiald/proof"
	"github.com/bitmark-inc/confidentiald/vault"
)

// basic defaults (directories and files are relative to the
// "data_directory" from the configuration file)
const (
	defaultPidFile          = "confidentiald.pid"
	defaultLevelDBDirectory = "data"
	defaultDatabase         = "confidential-data.leveldb"

	defaultLogDirectory = "log"
	defaultLogFile      = "confidentiald.log"
	defaultLogCount     = 10          //  number of log files retained
	defaultLogSize      = 1024 * 1024 // rotate when logfile exceeds this size
)

// LoglevelMap - to hold log levels
type LoglevelMap map[string]string

var defaultLogLevels = LoglevelMap{
	"main":            "info",
	logger.DefaultTag: "error",
}

// Configuration - the daemon configuration
type Configuration struct {
	DataDirectory string                `gluamapper:"data_directory" json:"data_directory"`
	PidFile       string                `gluamapper:"pidfile" json:"pidfile"`
	Database      string                `gluamapper:"database" json:"database"`
	Chain         chain.Configuration   `gluamapper:"chain" json:"chain"`
	Proof         proof.Configuration   `gluamapper:"proof" json:"proof"`
	Vault         vault.Configuration   `gluamapper:"vault" json:"vault"`
	Balance       balance.Configuration `gluamapper:"balance" json:"balance"`
	Logging       logger.Configuration  `gluamapper:"logging" json:"logging"`
}

// GetConfiguration - read and execute the configuration file,
// filling in defaults and making all paths absolute
func GetConfiguration(fileName string) (*Configuration, error) {

	fileName, err := filepath.Abs(filepath.Clean(fileName))
	if nil != err {
		return nil, err
	}

	// absolute path to the directory holding the configuration file
	dataDirectory, _ := filepath.Split(fileName)

	options := &Configuration{
		DataDirectory: dataDirectory,
		PidFile:       defaultPidFile,
		Database:      defaultDatabase,
		Logging: logger.Configuration{
			Directory: defaultLogDirectory,
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Levels:    defaultLogLevels,
		},
	}

	if err := ParseConfigurationFile(fileName, options); nil != err {
		return nil, err
	}

	// absolute file paths from here on
	if "" == options.DataDirectory {
		return nil, fault.ErrMissingParameters
	}
	options.DataDirectory, err = filepath.Abs(options.DataDirectory)
	if nil != err {
		return nil, err
	}

	// fail if the directory does not exist
	fileInfo, err := os.Stat(options.DataDirectory)
	if nil != err {
		return nil, err
	}
	if !fileInfo.IsDir() {
		return nil, fault.ErrMissingParameters
	}

	options.PidFile = ensureAbsolute(options.DataDirectory, options.PidFile)
	options.Database = ensureAbsolute(
		filepath.Join(options.DataDirectory, defaultLevelDBDirectory),
		options.Database,
	)
	options.Logging.Directory = ensureAbsolute(options.DataDirectory, options.Logging.Directory)

	return options, nil
}

// ensure the path is absolute
func ensureAbsolute(directory string, filePath string) string {
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(directory, filePath)
	}
	return filepath.Clean(filePath)
}
