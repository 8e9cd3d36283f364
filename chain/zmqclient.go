// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"encoding/binary"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/confidentiald/fault"
)

// confirmation stream topic
const confirmationTopic = "confirmation"

// zmqClient - PUSH submissions, SUB confirmation stream
type zmqClient struct {
	log           *logger.L
	push          *zmq.Socket
	sub           *zmq.Socket
	confirmations chan Confirmation
	stop          chan struct{}
	done          chan struct{}
}

func newZmqClient(configuration *Configuration) (*zmqClient, error) {

	log := logger.New("chain-zmq")

	push, err := zmq.NewSocket(zmq.PUSH)
	if nil != err {
		return nil, err
	}
	sub, err := zmq.NewSocket(zmq.SUB)
	if nil != err {
		push.Close()
		return nil, err
	}

	// curve authentication when keys are configured
	if "" != configuration.PrivateKey {
		err = push.ClientAuthCurve(configuration.ServerPublicKey, configuration.PublicKey, configuration.PrivateKey)
		if nil == err {
			err = sub.ClientAuthCurve(configuration.ServerPublicKey, configuration.PublicKey, configuration.PrivateKey)
		}
		if nil != err {
			push.Close()
			sub.Close()
			return nil, err
		}
	}

	_ = push.SetLinger(100 * time.Millisecond)
	_ = push.SetSndtimeo(5 * time.Second)
	if err := push.Connect(configuration.Submit); nil != err {
		push.Close()
		sub.Close()
		return nil, err
	}

	_ = sub.SetRcvtimeo(time.Second)
	if err := sub.SetSubscribe(confirmationTopic); nil != err {
		push.Close()
		sub.Close()
		return nil, err
	}
	if err := sub.Connect(configuration.Subscribe); nil != err {
		push.Close()
		sub.Close()
		return nil, err
	}

	client := &zmqClient{
		log:           log,
		push:          push,
		sub:           sub,
		confirmations: make(chan Confirmation, 64),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}

	// the SUB socket stays on this goroutine; zmq sockets are not
	// safe to share
	go client.receive()

	log.Infof("connected submit %q subscribe %q", configuration.Submit, configuration.Subscribe)
	return client, nil
}

// Send - deliver one submission frame
func (client *zmqClient) Send(payload []byte) error {
	if nil == client.push {
		return fault.ErrChainNotConnected
	}
	_, err := client.push.SendBytes(payload, 0)
	if nil != err {
		return fault.ErrChainSubmissionFailed
	}
	return nil
}

// Confirmations - the parsed confirmation stream
func (client *zmqClient) Confirmations() <-chan Confirmation {
	return client.confirmations
}

// Close - stop the receive loop and release the sockets
//
// a Send after Close reports fault.ErrChainNotConnected
func (client *zmqClient) Close() error {
	close(client.stop)
	<-client.done
	client.push.Close()
	client.push = nil
	return nil
}

func (client *zmqClient) receive() {

	defer close(client.done)
	defer close(client.confirmations)
	defer client.sub.Close()

loop:
	for {
		select {
		case <-client.stop:
			break loop
		default:
		}

		parts, err := client.sub.RecvMessageBytes(0)
		if nil != err {
			// timeout lets the stop channel be polled
			continue loop
		}
		if 2 != len(parts) {
			client.log.Warnf("dropping confirmation with %d frames", len(parts))
			continue loop
		}

		confirmation, err := ParseConfirmation(parts[1])
		if nil != err {
			client.log.Errorf("dropping unparseable confirmation: %s", err)
			continue loop
		}

		select {
		case client.confirmations <- *confirmation:
		case <-client.stop:
			break loop
		}
	}
}

// ParseConfirmation - decode a confirmation frame
//
// frame layout:
//
//	txHash       32
//	blockHash    32
//	blockNumber   8
//	success       1
//	errLen        2 + error bytes
//	eventCount    2, then per event: len 2 + bytes
func ParseConfirmation(data []byte) (*Confirmation, error) {

	const fixed = 32 + 32 + 8 + 1 + 2 + 2
	if len(data) < fixed {
		return nil, fault.ErrChainSubmissionFailed
	}

	confirmation := &Confirmation{
		TxHash:      append([]byte(nil), data[:32]...),
		BlockHash:   append([]byte(nil), data[32:64]...),
		BlockNumber: binary.BigEndian.Uint64(data[64:]),
		Success:     1 == data[72],
	}

	offset := 73
	errMsg, offset, err := readChunk(data, offset)
	if nil != err {
		return nil, err
	}
	confirmation.Error = string(errMsg)

	if offset+2 > len(data) {
		return nil, fault.ErrChainSubmissionFailed
	}
	count := int(binary.BigEndian.Uint16(data[offset:]))
	offset += 2
	for i := 0; i < count; i += 1 {
		var event []byte
		event, offset, err = readChunk(data, offset)
		if nil != err {
			return nil, err
		}
		confirmation.Events = append(confirmation.Events, string(event))
	}
	return confirmation, nil
}

// PackConfirmation - wire form of a confirmation frame
//
// exported for the chain node side of the bridge and for tests
func PackConfirmation(confirmation *Confirmation) []byte {

	size := 73 + 2 + len(confirmation.Error) + 2
	for _, e := range confirmation.Events {
		size += 2 + len(e)
	}

	out := make([]byte, 0, size)
	out = append(out, confirmation.TxHash...)
	out = append(out, confirmation.BlockHash...)
	var b8 [8]byte
	binary.BigEndian.PutUint64(b8[:], confirmation.BlockNumber)
	out = append(out, b8[:]...)
	if confirmation.Success {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = appendChunk(out, []byte(confirmation.Error))
	var b2 [2]byte
	binary.BigEndian.PutUint16(b2[:], uint16(len(confirmation.Events)))
	out = append(out, b2[:]...)
	for _, e := range confirmation.Events {
		out = appendChunk(out, []byte(e))
	}
	return out
}

func appendChunk(out []byte, chunk []byte) []byte {
	var b2 [2]byte
	binary.BigEndian.PutUint16(b2[:], uint16(len(chunk)))
	out = append(out, b2[:]...)
	return append(out, chunk...)
}

func readChunk(data []byte, offset int) ([]byte, int, error) {
	if offset+2 > len(data) {
		return nil, 0, fault.ErrChainSubmissionFailed
	}
	n := int(binary.BigEndian.Uint16(data[offset:]))
	offset += 2
	if offset+n > len(data) {
		return nil, 0, fault.ErrChainSubmissionFailed
	}
	return data[offset : offset+n], offset + n, nil
}
