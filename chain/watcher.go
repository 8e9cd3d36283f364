// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/confidentiald/fault"
	"github.com/bitmark-inc/confidentiald/tracker"
)

// watcher - applies incoming confirmations
type watcher struct {
	log *logger.L
}

// Run - consume confirmations until shutdown
func (w *watcher) Run(args interface{}, shutdown <-chan struct{}) {

	log := w.log
	log.Info("starting…")

	confirmations := globalData.client.Confirmations()

loop:
	for {
		select {
		case <-shutdown:
			break loop

		case confirmation, ok := <-confirmations:
			if !ok {
				log.Warn("confirmation stream closed")
				break loop
			}
			w.confirmed(confirmation)

		case failure := <-globalData.failures:
			// delivery failures never reached the chain, so there
			// is nothing to track; just tell the caller
			w.dispatch(failure)
		}
	}

	log.Info("stopped")
}

// confirmed - track first, dispatch second
//
// a duplicate (block, tx) is dropped before any handler can run,
// so redelivered confirmations have no effect
func (w *watcher) confirmed(confirmation Confirmation) {

	log := w.log

	err := tracker.Record(
		confirmation.BlockHash,
		confirmation.TxHash,
		confirmation.BlockNumber,
		confirmation.Success,
		confirmation.Error,
		confirmation.Events,
	)
	if fault.ErrDuplicateTransaction == err {
		log.Infof("dropping duplicate confirmation tx %x", confirmation.TxHash)
		return
	}
	if nil != err {
		log.Errorf("tracking tx %x: %s", confirmation.TxHash, err)
		return
	}

	w.dispatch(confirmation)
}

func (w *watcher) dispatch(confirmation Confirmation) {

	handler := removeHandler(confirmation.TxHash)
	if nil == handler {
		w.log.Debugf("no handler for tx %x", confirmation.TxHash)
		return
	}
	handler(confirmation)
}
