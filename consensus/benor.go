// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package consensus

import (
	"math/rand"
	"time"

	"github.com/aungmawjj/benor/core"
	"github.com/aungmawjj/benor/emitter"
	"github.com/aungmawjj/benor/logger"
	"github.com/aungmawjj/benor/metrics"
)

// protocol is the Ben-Or state machine of one node.
// It is not safe for concurrent use, Consensus serializes all calls.
type protocol struct {
	config    Config
	resources *Resources

	state  *state
	rng    *rand.Rand
	events *emitter.Emitter

	// messages of the local round, nil while not running
	current *roundMessages
	phase   core.Phase
	buffer  *roundBuffer

	// rounds answered after the decision
	helped map[uint64]struct{}

	faulty *faultyBehavior

	stallReported bool
	dropped       uint64
	label         string
}

func newProtocol(resources *Resources, config Config) *protocol {
	config = config.withDefaults()
	p := &protocol{
		config:    config,
		resources: resources,
		state:     newState(config),
		rng:       rand.New(rand.NewSource(core.NodeSeed(config.Seed, config.NodeID))),
		events:    emitter.New(),
		helped:    make(map[uint64]struct{}),
		label:     metrics.NodeLabel(config.NodeID),
	}
	p.buffer = newRoundBuffer(config.MaxBufferedRounds, p.onEvictRound)
	if config.Faulty {
		p.faulty = newFaultyBehavior(p)
	}
	return p
}

func (p *protocol) start() error {
	if p.state.killed {
		return ErrKilled
	}
	if p.state.isDecided() {
		return ErrDecided
	}
	if p.state.isRunning() {
		return ErrAlreadyRunning
	}
	if p.faulty != nil {
		return p.faulty.start()
	}
	p.state.setDecided(false)
	p.enterRound(0)
	p.advance()
	return nil
}

func (p *protocol) stop() {
	if p.state.killed {
		return
	}
	if p.faulty != nil {
		p.faulty.stop()
		return
	}
	if !p.state.isRunning() {
		return
	}
	round := p.state.getRound()
	p.state.decided = nil
	p.current = nil
	p.phase = 0
	p.buffer.purge()
	p.record(core.EventStopped, round, p.state.value)
	logger.I().Infow("consensus stopped", "node", p.config.NodeID, "round", round)
}

func (p *protocol) kill() {
	if p.state.killed {
		return
	}
	p.state.killed = true
	p.current = nil
	p.phase = 0
	p.buffer.purge()
	p.record(core.EventKilled, p.state.getRound(), p.state.value)
	logger.I().Infow("node killed", "node", p.config.NodeID)
}

func (p *protocol) onMessage(msg *core.Message) {
	if p.state.killed {
		p.drop(metrics.DropKilled)
		return
	}
	if err := msg.Validate(p.config.NodeCount); err != nil || msg.Sender == p.config.NodeID {
		p.drop(metrics.DropInvalid)
		return
	}
	if p.faulty != nil {
		p.faulty.onMessage(msg)
		return
	}
	if p.state.isDecided() {
		p.help(msg.Round)
		return
	}
	if !p.state.isRunning() {
		// keep what peers sent before we were started
		p.bufferMessage(msg)
		return
	}
	round := p.state.getRound()
	if msg.Round < round {
		p.drop(metrics.DropStale)
		return
	}
	if msg.Round > round {
		p.bufferMessage(msg)
		return
	}
	if !p.current.add(msg) {
		p.drop(metrics.DropDuplicate)
		return
	}
	metrics.MessagesReceived.WithLabelValues(p.label, msg.Phase.String()).Inc()
	p.advance()
}

func (p *protocol) bufferMessage(msg *core.Message) {
	if !p.buffer.get(msg.Round).add(msg) {
		p.drop(metrics.DropDuplicate)
		return
	}
	metrics.MessagesReceived.WithLabelValues(p.label, msg.Phase.String()).Inc()
	metrics.BufferedRounds.WithLabelValues(p.label).Set(float64(p.buffer.len()))
}

// advance runs the phases of the current round while collected messages reach the quorum.
// It returns once the round ends, the engine keeps calling it while ready.
func (p *protocol) advance() {
	if p.state.killed {
		return
	}
	round := p.state.getRound()
	for p.ready() && p.state.getRound() == round {
		if p.phase == core.PhasePropose {
			p.castVote()
			continue
		}
		p.concludeRound()
	}
}

// ready returns true when the current phase has collected a quorum
func (p *protocol) ready() bool {
	if p.state.killed || !p.state.isRunning() || p.current == nil {
		return false
	}
	quorum := p.config.quorumCount()
	if p.phase == core.PhasePropose {
		return p.current.proposalCount() >= quorum
	}
	return p.current.voteCount() >= quorum
}

func (p *protocol) enterRound(round uint64) {
	p.state.setRound(round)
	p.buffer.dropBefore(round)
	p.current = p.buffer.take(round)
	p.phase = core.PhasePropose

	proposal := core.NewProposal(p.config.NodeID, round, p.state.value)
	p.current.add(proposal)
	p.broadcast(proposal)

	metrics.Round.WithLabelValues(p.label).Set(float64(round))
	metrics.BufferedRounds.WithLabelValues(p.label).Set(float64(p.buffer.len()))
	p.record(core.EventRoundStarted, round, p.state.value)
	logger.I().Debugw("round started", "node", p.config.NodeID,
		"round", round, "value", core.FormatValue(p.state.value))
}

// castVote votes for a value proposed by more than half of all nodes, or abstains
func (p *protocol) castVote() {
	var vote *core.Value
	counts := valueCounts(p.current.proposals)
	if v, count, ok := leadValue(counts); ok && core.IsMajority(count, p.config.NodeCount) {
		vote = core.NewValue(v)
	}
	round := p.state.getRound()
	msg := core.NewVote(p.config.NodeID, round, vote)
	p.current.add(msg)
	p.phase = core.PhaseVote
	p.broadcast(msg)
	p.record(core.EventVoted, round, vote)
}

func (p *protocol) concludeRound() {
	round := p.state.getRound()
	counts := valueCounts(p.current.votes)
	v, count, ok := leadValue(counts)

	if ok && count >= p.config.decideCount() && p.config.canTerminate() {
		p.decide(v)
		return
	}
	if ok {
		p.state.setValue(v)
	} else {
		p.state.setValue(p.flipCoin())
		metrics.CoinFlipsTotal.WithLabelValues(p.label).Inc()
	}
	metrics.RoundsTotal.WithLabelValues(p.label).Inc()
	p.reportStall(round)
	p.enterRound(round + 1)
}

func (p *protocol) flipCoin() core.Value {
	return core.Value(p.rng.Intn(2))
}

func (p *protocol) decide(v core.Value) {
	round := p.state.getRound()
	p.state.setValue(v)
	p.state.setDecided(true)
	p.current = nil
	p.phase = 0

	metrics.DecisionsTotal.WithLabelValues(p.label).Inc()
	p.record(core.EventDecided, round, p.state.value)
	logger.I().Infow("decided", "node", p.config.NodeID, "round", round, "value", v)

	// peers that adopted v finish in the next round, they need our messages for it
	p.helpRound(round + 1)
	for _, r := range p.buffer.roundsAfter(round + 1) {
		p.helpRound(r)
	}
	p.buffer.purge()
	metrics.BufferedRounds.WithLabelValues(p.label).Set(0)
}

func (p *protocol) help(round uint64) {
	decided := p.state.getRound()
	if round <= decided || round > decided+uint64(p.config.MaxBufferedRounds) {
		return
	}
	p.helpRound(round)
}

// helpRound sends the decided value as proposal and vote, once per round
func (p *protocol) helpRound(round uint64) {
	if _, found := p.helped[round]; found {
		return
	}
	p.helped[round] = struct{}{}
	p.broadcast(core.NewProposal(p.config.NodeID, round, p.state.value))
	p.broadcast(core.NewVote(p.config.NodeID, round, p.state.value))
}

func (p *protocol) reportStall(round uint64) {
	if p.stallReported || p.config.canTerminate() {
		return
	}
	p.stallReported = true
	p.record(core.EventStalled, round, nil)
	logger.I().Warnw("insufficient quorum, node will never decide",
		"node", p.config.NodeID, "n", p.config.NodeCount, "f", p.config.FaultyCount)
}

func (p *protocol) onEvictRound(rm *roundMessages) {
	p.dropped += uint64(rm.proposalCount() + rm.voteCount())
	metrics.MessagesDropped.WithLabelValues(p.label, metrics.DropEvicted).
		Add(float64(rm.proposalCount() + rm.voteCount()))
}

func (p *protocol) drop(reason string) {
	p.dropped++
	metrics.MessagesDropped.WithLabelValues(p.label, reason).Inc()
}

func (p *protocol) broadcast(msg *core.Message) {
	if p.resources.MsgSvc == nil {
		return
	}
	if err := p.resources.MsgSvc.Broadcast(msg); err != nil {
		logger.I().Warnw("broadcast failed", "node", p.config.NodeID, "msg", msg, "error", err)
	}
}

func (p *protocol) record(typ core.EventType, round uint64, value *core.Value) {
	e := &core.Event{
		Type:  typ,
		Node:  p.config.NodeID,
		Round: round,
		Value: core.CopyValue(value),
		Time:  time.Now().UnixNano(),
	}
	p.events.Emit(e)
	if p.resources.Journal == nil {
		return
	}
	if err := p.resources.Journal.Append(e); err != nil {
		logger.I().Warnw("journal append failed", "node", p.config.NodeID, "error", err)
	}
}

func (p *protocol) snapshot() Snapshot {
	return p.state.snapshot()
}

func (p *protocol) health() string {
	if p.state.killed {
		return HealthKilled
	}
	if p.state.faulty {
		return HealthFaulty
	}
	return HealthLive
}

func (p *protocol) status() Status {
	ss := p.snapshot()
	status := Status{
		NodeID:          p.config.NodeID,
		Health:          p.health(),
		Running:         ss.IsRunning(),
		Decided:         ss.IsDecided(),
		Round:           ss.RoundOrZero(),
		Value:           ss.Value,
		Stalled:         !p.config.canTerminate(),
		NodeCount:       p.config.NodeCount,
		FaultyCount:     p.config.FaultyCount,
		QuorumCount:     p.config.quorumCount(),
		DecideCount:     p.config.decideCount(),
		BufferedRounds:  p.buffer.len(),
		EvictedRounds:   p.buffer.evicted,
		DroppedMessages: p.dropped,
	}
	if p.current != nil {
		status.Phase = p.phase.String()
		status.ProposalCount = p.current.proposalCount()
		status.VoteCount = p.current.voteCount()
	}
	return status
}
