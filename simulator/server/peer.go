/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package server

import (
	"errors"
	"net"
	"sync"

	"github.com/facebook/petdoor/protocol"
	log "github.com/sirupsen/logrus"
)

// ErrPeerGone is returned by Send once the peer's writer has stopped.
var ErrPeerGone = errors.New("peer is gone")

// sendQueueSize bounds how many outgoing messages may pile up behind a
// slow reader before Send starts blocking.
const sendQueueSize = 64

// Peer is one live TCP connection. Replies and broadcasts both go
// through the send queue, drained by a single writer goroutine, so
// concurrent writes never interleave partial bytes.
type Peer struct {
	id     int
	conn   net.Conn
	framer *protocol.Framer

	send chan []byte
	done chan struct{}
	once sync.Once
}

func newPeer(conn net.Conn) *Peer {
	return &Peer{
		conn:   conn,
		framer: protocol.NewFramer(),
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// ID is the hub-assigned peer id.
func (p *Peer) ID() int {
	return p.id
}

// RemoteAddr is the peer's TCP address.
func (p *Peer) RemoteAddr() net.Addr {
	return p.conn.RemoteAddr()
}

// Send queues one serialized message for delivery.
func (p *Peer) Send(msg []byte) error {
	select {
	case <-p.done:
		return ErrPeerGone
	case p.send <- msg:
		return nil
	}
}

// writeLoop drains the send queue onto the socket. A write error stops
// the peer; the read loop notices the closed connection and cleans up.
func (p *Peer) writeLoop() {
	for {
		select {
		case <-p.done:
			return
		case msg := <-p.send:
			if _, err := p.conn.Write(msg); err != nil {
				log.Debugf("peer #%d write: %v", p.id, err)
				p.close()
				return
			}
		}
	}
}

// close stops the writer and the underlying connection. Idempotent.
func (p *Peer) close() {
	p.once.Do(func() {
		close(p.done)
		if err := p.conn.Close(); err != nil {
			log.Debugf("peer #%d close: %v", p.id, err)
		}
	})
}
