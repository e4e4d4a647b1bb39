// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package p2p

import (
	"errors"

	"github.com/aungmawjj/benor/core"
	"github.com/aungmawjj/benor/emitter"
	"github.com/aungmawjj/benor/logger"
)

// errors
var (
	ErrPeerNotFound = errors.New("peer not found")
)

// MsgService exchanges consensus messages over libp2p streams
type MsgService struct {
	host    *Host
	emitter *emitter.Emitter
}

func NewMsgService(host *Host) *MsgService {
	svc := new(MsgService)
	svc.host = host
	svc.emitter = emitter.New()
	svc.host.SetPeerAddedHandler(svc.onAddedPeer)
	return svc
}

func (svc *MsgService) onAddedPeer(peer *Peer) {
	go svc.handlePeerMsg(peer, peer.SubscribeMsg())
}

func (svc *MsgService) handlePeerMsg(peer *Peer, sub *emitter.Subscription) {
	for e := range sub.Events() {
		msg, err := core.UnmarshalMessage(e.([]byte))
		if err != nil {
			continue
		}
		// the stream is authenticated by the peer key, senders cannot pose as another node
		if msg.Sender != peer.ID() {
			logger.I().Debugw("sender mismatch", "peer", peer.ID(), "sender", msg.Sender)
			continue
		}
		svc.emitter.Emit(msg)
	}
}

func (svc *MsgService) SubscribeMessage(buffer int) *emitter.Subscription {
	return svc.emitter.Subscribe(buffer)
}

// Broadcast writes msg to every connected peer, unreachable peers are skipped
func (svc *MsgService) Broadcast(msg *core.Message) error {
	b, err := msg.Marshal()
	if err != nil {
		return err
	}
	for _, peer := range svc.host.PeerStore().List() {
		peer.WriteMsg(b)
	}
	return nil
}

func (svc *MsgService) Send(to int, msg *core.Message) error {
	peer := svc.host.PeerStore().Load(to)
	if peer == nil {
		return ErrPeerNotFound
	}
	b, err := msg.Marshal()
	if err != nil {
		return err
	}
	return peer.WriteMsg(b)
}
