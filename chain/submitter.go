// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"context"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/confidentiald/fault"
)

// delay before the first resend, doubled per attempt
const retryBackoff = 250 * time.Millisecond

// submitter - drains the submission queue onto the transport
type submitter struct {
	log *logger.L
}

// Run - send queued submissions until shutdown
func (s *submitter) Run(args interface{}, shutdown <-chan struct{}) {

	log := s.log
	log.Info("starting…")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-shutdown
		cancel()
	}()

loop:
	for {
		select {
		case <-shutdown:
			break loop
		case item := <-globalData.queue:
			s.deliver(ctx, item)
		}
	}

	log.Info("stopped")
}

func (s *submitter) deliver(ctx context.Context, item submissionItem) {

	log := s.log

	if err := globalData.limiter.Wait(ctx); nil != err {
		// shutting down with the item still queued; tell the handler
		// if the watcher is still draining failures
		select {
		case globalData.failures <- Confirmation{
			TxHash:  item.txHash,
			Success: false,
			Error:   fault.ErrChainShuttingDown.Error(),
		}:
		default:
		}
		return
	}

	backoff := retryBackoff
	var err error
	for attempt := 0; attempt < globalData.retries; attempt += 1 {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		err = globalData.client.Send(item.payload)
		if nil == err {
			log.Debugf("submitted tx %x", item.txHash)
			return
		}
		log.Warnf("submit tx %x attempt %d: %s", item.txHash, attempt+1, err)
	}

	// terminal: the handler sees a failed confirmation instead of
	// silence
	log.Errorf("submit tx %x abandoned: %s", item.txHash, err)
	globalData.failures <- Confirmation{
		TxHash:  item.txHash,
		Success: false,
		Error:   err.Error(),
	}
}
