// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package p2p

import (
	"context"
	"crypto/ed25519"
	"errors"
	"sync"
	"time"

	"github.com/aungmawjj/benor/logger"
	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p-core/crypto"
	"github.com/libp2p/go-libp2p-core/host"
	"github.com/libp2p/go-libp2p-core/network"
	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/libp2p/go-libp2p-core/peerstore"
	"github.com/multiformats/go-multiaddr"
)

const protocolID = "/benor/1.0.0"

type Host struct {
	privKey   ed25519.PrivateKey
	localAddr multiaddr.Multiaddr

	peerStore *PeerStore
	libHost   host.Host

	onAddedPeer func(peer *Peer)

	reconnectInterval time.Duration

	quit      chan struct{}
	closeOnce sync.Once
}

func NewHost(privKey ed25519.PrivateKey, localAddr multiaddr.Multiaddr) (*Host, error) {
	host := new(Host)
	host.privKey = privKey
	host.localAddr = localAddr
	host.peerStore = NewPeerStore()
	host.quit = make(chan struct{})

	libHost, err := host.newLibHost()
	if err != nil {
		return nil, err
	}
	host.libHost = libHost
	host.libHost.SetStreamHandler(protocolID, host.handleStream)
	host.reconnectInterval = 2 * time.Second
	go host.reconnectLoop()
	return host, nil
}

func (host *Host) newLibHost() (host.Host, error) {
	priv, err := crypto.UnmarshalEd25519PrivateKey(host.privKey)
	if err != nil {
		return nil, err
	}
	return libp2p.New(
		context.Background(),
		libp2p.Identity(priv),
		libp2p.ListenAddrs(host.localAddr),
	)
}

// handleStream accepts streams from configured peers only
func (host *Host) handleStream(s network.Stream) {
	pubKey, err := getRemotePublicKey(s)
	if err != nil {
		s.Reset()
		return
	}
	peer := host.peerStore.LoadByPublicKey(pubKey)
	if peer == nil {
		logger.I().Debugw("rejected stream from unknown peer", "addr", s.Conn().RemoteMultiaddr())
		s.Reset()
		return
	}
	if err := peer.SetConnecting(); err != nil {
		s.Close()
		return
	}
	peer.OnConnected(s)
}

func (host *Host) reconnectLoop() {
	ticker := time.NewTicker(host.reconnectInterval)
	defer ticker.Stop()
	for {
		select {
		case <-host.quit:
			return
		case <-ticker.C:
		}
		for _, peer := range host.peerStore.List() {
			if peer.Status() == PeerStatusDisconnected {
				go host.connectPeer(peer)
			}
		}
	}
}

func (host *Host) connectPeer(peer *Peer) {
	if err := peer.SetConnecting(); err != nil { // prevent simultaneous connections from both hosts
		return
	}
	s, err := host.newStream(peer)
	if err != nil {
		peer.Disconnect()
		return
	}
	peer.OnConnected(s)
}

func (host *Host) newStream(peer *Peer) (network.Stream, error) {
	id, err := getIDFromPublicKey(peer.PublicKey())
	if err != nil {
		return nil, err
	}
	host.libHost.Peerstore().AddAddr(id, peer.Addr(), peerstore.PermanentAddrTTL)
	return host.libHost.NewStream(context.Background(), id, protocolID)
}

func (host *Host) AddPeer(peer *Peer) {
	peer, loaded := host.peerStore.LoadOrStore(peer)
	if !loaded && host.onAddedPeer != nil {
		host.onAddedPeer(peer)
	}
	go host.connectPeer(peer)
}

func (host *Host) SetPeerAddedHandler(fn func(peer *Peer)) {
	host.onAddedPeer = fn
}

func (host *Host) PeerStore() *PeerStore {
	return host.peerStore
}

func (host *Host) Close() error {
	var err error
	host.closeOnce.Do(func() {
		close(host.quit)
		for _, peer := range host.peerStore.List() {
			peer.Disconnect()
		}
		err = host.libHost.Close()
	})
	return err
}

func getRemotePublicKey(s network.Stream) (ed25519.PublicKey, error) {
	if _, ok := s.Conn().RemotePublicKey().(*crypto.Ed25519PublicKey); !ok {
		return nil, errors.New("invalid pubKey type")
	}
	b, err := s.Conn().RemotePublicKey().Raw()
	if err != nil {
		return nil, err
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, errors.New("invalid pubKey size")
	}
	return ed25519.PublicKey(b), nil
}

func getIDFromPublicKey(pubKey ed25519.PublicKey) (peer.ID, error) {
	var id peer.ID
	if pubKey == nil {
		return id, errors.New("nil peer pubkey")
	}
	key, err := crypto.UnmarshalEd25519PublicKey(pubKey)
	if err != nil {
		return id, err
	}
	return peer.IDFromPublicKey(key)
}
