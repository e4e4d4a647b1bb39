// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package p2p

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/aungmawjj/benor/emitter"
	"github.com/aungmawjj/benor/logger"
	"github.com/multiformats/go-multiaddr"
)

// PeerStatus type
type PeerStatus int8

// PeerStatus
const (
	PeerStatusDisconnected PeerStatus = iota
	PeerStatusConnecting
	PeerStatusConnected
)

const (
	// message size limit in bytes (~1 MB)
	// to avoid out of memory allocation for reading next message
	MessageSizeLimit uint32 = 1 << 20
)

// Peer is a remote node of the network, identified by its node id
type Peer struct {
	id     int
	pubKey ed25519.PublicKey
	addr   multiaddr.Multiaddr
	status PeerStatus

	rwc     io.ReadWriteCloser
	emitter *emitter.Emitter

	mtxRWC    sync.RWMutex
	mtxStatus sync.RWMutex
	mtxWrite  sync.Mutex
}

func NewPeer(id int, pubKey ed25519.PublicKey, addr multiaddr.Multiaddr) *Peer {
	return &Peer{
		id:      id,
		pubKey:  pubKey,
		addr:    addr,
		status:  PeerStatusDisconnected,
		emitter: emitter.New(),
	}
}

func (p *Peer) ID() int {
	return p.id
}

func (p *Peer) PublicKey() ed25519.PublicKey {
	return p.pubKey
}

// Addr return network address of peer
func (p *Peer) Addr() multiaddr.Multiaddr {
	return p.addr
}

func (p *Peer) Status() PeerStatus {
	p.mtxStatus.RLock()
	defer p.mtxStatus.RUnlock()

	return p.status
}

func (p *Peer) Disconnect() error {
	p.mtxStatus.Lock()
	defer p.mtxStatus.Unlock()

	if p.status == PeerStatusConnected {
		logger.I().Infow("peer disconnected", "peer", p.id, "addr", p.addr)
	}
	p.status = PeerStatusDisconnected
	rwc := p.getRWC()
	if rwc != nil {
		return rwc.Close()
	}
	return nil
}

// SetConnecting fails unless the peer is disconnected,
// it keeps both hosts from dialing each other at the same time
func (p *Peer) SetConnecting() error {
	p.mtxStatus.Lock()
	defer p.mtxStatus.Unlock()

	if p.status != PeerStatusDisconnected {
		return fmt.Errorf("status must be disconnected")
	}
	p.status = PeerStatusConnecting
	return nil
}

func (p *Peer) OnConnected(rwc io.ReadWriteCloser) {
	p.mtxStatus.Lock()
	defer p.mtxStatus.Unlock()

	logger.I().Infow("peer connected", "peer", p.id, "addr", p.addr)
	p.status = PeerStatusConnected
	p.setRWC(rwc)
	go p.listen(rwc)
}

func (p *Peer) listen(rwc io.ReadWriteCloser) {
	defer p.Disconnect()
	for {
		msg, err := read(rwc)
		if err != nil {
			return
		}
		p.emitter.Emit(msg)
	}
}

func read(r io.Reader) ([]byte, error) {
	b, err := readFixedSize(r, 4)
	if err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(b)
	if size > MessageSizeLimit {
		return nil, fmt.Errorf("big message size %d", size)
	}
	return readFixedSize(r, size)
}

func readFixedSize(r io.Reader, size uint32) ([]byte, error) {
	b := make([]byte, size)
	_, err := io.ReadFull(r, b)
	return b, err
}

// WriteMsg writes one length prefixed frame
func (p *Peer) WriteMsg(msg []byte) error {
	p.mtxWrite.Lock()
	defer p.mtxWrite.Unlock()

	if p.Status() != PeerStatusConnected {
		return fmt.Errorf("peer %d not connected", p.id)
	}
	return p.write(msg)
}

func (p *Peer) write(b []byte) error {
	payload := make([]byte, 4, 4+len(b))
	binary.BigEndian.PutUint32(payload, uint32(len(b)))
	payload = append(payload, b...)

	_, err := p.getRWC().Write(payload)
	return err
}

// SubscribeMsg returns a subscription of raw frames from the peer
func (p *Peer) SubscribeMsg() *emitter.Subscription {
	return p.emitter.Subscribe(100)
}

func (p *Peer) setRWC(rwc io.ReadWriteCloser) {
	p.mtxRWC.Lock()
	defer p.mtxRWC.Unlock()
	p.rwc = rwc
}

func (p *Peer) getRWC() io.ReadWriteCloser {
	p.mtxRWC.RLock()
	defer p.mtxRWC.RUnlock()
	return p.rwc
}
