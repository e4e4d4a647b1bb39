// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package p2p

import (
	"crypto/ed25519"
	"testing"

	"github.com/aungmawjj/benor/core"
	"github.com/stretchr/testify/assert"
)

func TestPeerStore(t *testing.T) {
	assert := assert.New(t)
	s := NewPeerStore()

	pubKey := core.NodeKey(1, 1).Public().(ed25519.PublicKey)

	// load or store
	p := NewPeer(1, pubKey, nil)
	actual, loaded := s.LoadOrStore(p)
	assert.False(loaded)
	assert.Equal(p, actual)

	p1 := NewPeer(1, pubKey, nil)

	actual, loaded = s.LoadOrStore(p1)
	assert.True(loaded)
	assert.Equal(p, actual)

	// load
	assert.Equal(p, s.Load(1))
	assert.Equal(p, s.LoadByPublicKey(pubKey))
	assert.Nil(s.LoadByPublicKey(core.NodeKey(1, 2).Public().(ed25519.PublicKey)))

	// store
	assert.Equal(p1, s.Store(p1))
	assert.Equal(p1, s.Load(1))

	// list
	p0 := s.Store(NewPeer(0, nil, nil))
	assert.Equal([]*Peer{p0, p1}, s.List())

	// delete
	assert.Equal(p1, s.Delete(1))
	assert.Nil(s.Load(1))
	assert.Equal([]*Peer{p0}, s.List())
}
