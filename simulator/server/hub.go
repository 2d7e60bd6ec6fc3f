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
	"sync"

	"github.com/facebook/petdoor/protocol"
	log "github.com/sirupsen/logrus"
)

// Hub fans broadcasts out to every connected peer. Membership is
// snapshotted under the lock and iterated outside it, so a slow or dying
// peer never blocks its siblings or deadlocks with its own writer.
type Hub struct {
	mu     sync.Mutex
	peers  map[int]*Peer
	nextID int

	// OnConnect and OnDisconnect are optional host hooks, fired outside
	// the hub lock.
	OnConnect    func(p *Peer)
	OnDisconnect func(p *Peer)
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{peers: map[int]*Peer{}}
}

// register adds a peer and assigns its id.
func (h *Hub) register(p *Peer) {
	h.mu.Lock()
	p.id = h.nextID
	h.nextID++
	h.peers[p.id] = p
	total := len(h.peers)
	h.mu.Unlock()
	log.Debugf("peer #%d (%s) connected, %d total", p.id, p.RemoteAddr(), total)
	if h.OnConnect != nil {
		h.OnConnect(p)
	}
}

// unregister removes a peer. Safe to call more than once.
func (h *Hub) unregister(p *Peer) {
	h.mu.Lock()
	_, present := h.peers[p.id]
	delete(h.peers, p.id)
	total := len(h.peers)
	h.mu.Unlock()
	if !present {
		return
	}
	log.Debugf("peer #%d (%s) disconnected, %d remaining", p.id, p.RemoteAddr(), total)
	if h.OnDisconnect != nil {
		h.OnDisconnect(p)
	}
}

// snapshot copies the current membership.
func (h *Hub) snapshot() []*Peer {
	h.mu.Lock()
	defer h.mu.Unlock()
	peers := make([]*Peer, 0, len(h.peers))
	for _, p := range h.peers {
		peers = append(peers, p)
	}
	return peers
}

// Count reports the number of connected peers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

// Broadcast serializes the message once and queues it on every peer
// registered at this moment. Per-peer failures are logged and isolated.
func (h *Hub) Broadcast(r protocol.Reply) {
	msg, err := r.Marshal()
	if err != nil {
		log.Errorf("marshalling broadcast: %v", err)
		return
	}
	for _, p := range h.snapshot() {
		if err := p.Send(msg); err != nil {
			log.Warningf("broadcast to peer #%d: %v", p.id, err)
		}
	}
}
