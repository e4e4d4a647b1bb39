// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package consensus

import (
	"github.com/aungmawjj/benor/core"
	"github.com/aungmawjj/benor/logger"
)

// faultyBehavior drives a node configured as faulty.
// Its state keeps a null value and never decides.
type faultyBehavior struct {
	p       *protocol
	started bool

	// rounds already equivocated
	acted map[uint64]struct{}
}

func newFaultyBehavior(p *protocol) *faultyBehavior {
	return &faultyBehavior{
		p:     p,
		acted: make(map[uint64]struct{}),
	}
}

func (fb *faultyBehavior) start() error {
	if fb.started {
		return ErrAlreadyRunning
	}
	fb.started = true
	logger.I().Infow("faulty node started", "node", fb.p.config.NodeID, "mode", fb.p.config.FaultMode)
	fb.act(0)
	return nil
}

func (fb *faultyBehavior) stop() {
	fb.started = false
}

func (fb *faultyBehavior) onMessage(msg *core.Message) {
	if !fb.started {
		return
	}
	fb.act(msg.Round)
}

// act sends every peer its own random proposal and vote for the round
func (fb *faultyBehavior) act(round uint64) {
	if fb.p.config.FaultMode != FaultEquivocate {
		return
	}
	if _, found := fb.acted[round]; found {
		return
	}
	fb.acted[round] = struct{}{}
	fb.forgetBefore(round)

	if fb.p.resources.MsgSvc == nil {
		return
	}
	for peer := 0; peer < fb.p.config.NodeCount; peer++ {
		if peer == fb.p.config.NodeID {
			continue
		}
		proposal := core.NewProposal(fb.p.config.NodeID, round, core.NewValue(fb.p.flipCoin()))
		vote := core.NewVote(fb.p.config.NodeID, round, fb.randomVote())
		fb.send(peer, proposal)
		fb.send(peer, vote)
	}
}

func (fb *faultyBehavior) randomVote() *core.Value {
	if fb.p.rng.Intn(3) == 0 {
		return nil
	}
	return core.NewValue(fb.p.flipCoin())
}

func (fb *faultyBehavior) send(peer int, msg *core.Message) {
	if err := fb.p.resources.MsgSvc.Send(peer, msg); err != nil {
		logger.I().Debugw("faulty send failed", "node", fb.p.config.NodeID, "peer", peer, "error", err)
	}
}

func (fb *faultyBehavior) forgetBefore(round uint64) {
	window := uint64(fb.p.config.MaxBufferedRounds)
	if round < window {
		return
	}
	for r := range fb.acted {
		if r < round-window {
			delete(fb.acted, r)
		}
	}
}
