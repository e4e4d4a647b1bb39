// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package p2p

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/aungmawjj/benor/core"
	"github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/assert"
)

func TestHost(t *testing.T) {
	assert := assert.New(t)

	priv1 := core.NodeKey(5, 1)
	priv2 := core.NodeKey(5, 2)
	pub1 := priv1.Public().(ed25519.PublicKey)
	pub2 := priv2.Public().(ed25519.PublicKey)

	addr1, _ := multiaddr.NewMultiaddr("/ip4/127.0.0.1/tcp/25101")
	addr2, _ := multiaddr.NewMultiaddr("/ip4/127.0.0.1/tcp/25102")

	host1, err := NewHost(priv1, addr1)
	if !assert.NoError(err) {
		return
	}
	defer host1.Close()
	host2, err := NewHost(priv2, addr2)
	if !assert.NoError(err) {
		return
	}
	defer host2.Close()

	// host2 only accepts streams from peers it knows
	host2.peerStore.Store(NewPeer(1, pub1, addr1))
	host1.AddPeer(NewPeer(2, pub2, addr2))

	p1 := host2.PeerStore().Load(1)
	p2 := host1.PeerStore().Load(2)

	assert.Eventually(func() bool {
		return p1.Status() == PeerStatusConnected && p2.Status() == PeerStatusConnected
	}, 3*time.Second, 10*time.Millisecond)

	s1 := p1.SubscribeMsg()
	msg := []byte("hello")
	assert.NoError(p2.WriteMsg(msg))

	select {
	case e := <-s1.Events():
		assert.Equal(msg, e)
	case <-time.After(time.Second):
		assert.Fail("message not received")
	}

	priv3 := core.NodeKey(5, 3)
	host1.AddPeer(NewPeer(3, priv3.Public().(ed25519.PublicKey), addr2)) // invalid key

	time.Sleep(100 * time.Millisecond)

	p3 := host1.PeerStore().Load(3)
	if assert.NotNil(p3) {
		assert.NotEqual(PeerStatusConnected, p3.Status())
	}
}
