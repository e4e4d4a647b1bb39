// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package p2p

import (
	"bytes"
	"crypto/ed25519"
	"sort"
	"sync"
)

// PeerStore keeps peers by node id
type PeerStore struct {
	peers map[int]*Peer
	mtx   sync.RWMutex
}

func NewPeerStore() *PeerStore {
	return &PeerStore{
		peers: make(map[int]*Peer),
	}
}

func (s *PeerStore) Load(id int) *Peer {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.peers[id]
}

// LoadByPublicKey finds the peer owning pubKey, used to authenticate inbound streams
func (s *PeerStore) LoadByPublicKey(pubKey ed25519.PublicKey) *Peer {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	for _, p := range s.peers {
		if bytes.Equal(p.PublicKey(), pubKey) {
			return p
		}
	}
	return nil
}

func (s *PeerStore) Store(p *Peer) *Peer {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.peers[p.ID()] = p
	return p
}

func (s *PeerStore) Delete(id int) *Peer {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	p := s.peers[id]
	delete(s.peers, id)
	return p
}

// List returns peers ordered by node id
func (s *PeerStore) List() []*Peer {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	peers := make([]*Peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].ID() < peers[j].ID() })
	return peers
}

func (s *PeerStore) LoadOrStore(p *Peer) (actual *Peer, loaded bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if actual, loaded = s.peers[p.ID()]; loaded {
		return actual, loaded
	}
	s.peers[p.ID()] = p
	return p, false
}
