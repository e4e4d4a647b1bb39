// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package consensus

import (
	"math/rand"
	"testing"

	"github.com/aungmawjj/benor/core"
	"github.com/aungmawjj/benor/emitter"
	"github.com/stretchr/testify/assert"
)

// simNet delivers messages between protocols of one process in random order
type simNet struct {
	rng     *rand.Rand
	nodes   []*protocol
	pending []simEnvelope
}

type simEnvelope struct {
	to  int
	msg *core.Message
}

type simMsgSvc struct {
	net  *simNet
	from int
}

var _ MsgService = (*simMsgSvc)(nil)

func (svc *simMsgSvc) Broadcast(msg *core.Message) error {
	for to := range svc.net.nodes {
		if to != svc.from {
			svc.net.pending = append(svc.net.pending, simEnvelope{to, msg.Copy()})
		}
	}
	return nil
}

func (svc *simMsgSvc) Send(to int, msg *core.Message) error {
	svc.net.pending = append(svc.net.pending, simEnvelope{to, msg.Copy()})
	return nil
}

func (svc *simMsgSvc) SubscribeMessage(buffer int) *emitter.Subscription {
	return nil
}

func newSimNet(n, f int, values []core.Value, faulty map[int]FaultMode, seed int64) *simNet {
	net := &simNet{rng: rand.New(rand.NewSource(seed))}
	for i := 0; i < n; i++ {
		config := DefaultConfig
		config.NodeID = i
		config.NodeCount = n
		config.FaultyCount = f
		config.InitialValue = values[i%len(values)]
		config.Seed = seed
		if mode, ok := faulty[i]; ok {
			config.Faulty = true
			config.FaultMode = mode
		}
		net.nodes = append(net.nodes, newProtocol(&Resources{
			MsgSvc: &simMsgSvc{net: net, from: i},
		}, config))
	}
	return net
}

func (net *simNet) start() {
	for _, p := range net.nodes {
		p.start()
	}
}

// step advances one ready node, or delivers one random pending message
func (net *simNet) step() bool {
	for _, i := range net.rng.Perm(len(net.nodes)) {
		if net.nodes[i].ready() {
			net.nodes[i].advance()
			return true
		}
	}
	if len(net.pending) == 0 {
		return false
	}
	i := net.rng.Intn(len(net.pending))
	env := net.pending[i]
	last := len(net.pending) - 1
	net.pending[i] = net.pending[last]
	net.pending = net.pending[:last]
	net.nodes[env.to].onMessage(env.msg)
	return true
}

func (net *simNet) run(maxSteps int, done func() bool) bool {
	for i := 0; i < maxSteps; i++ {
		if done() {
			return true
		}
		if !net.step() {
			break
		}
	}
	return done()
}

func (net *simNet) honest() []*protocol {
	ret := make([]*protocol, 0, len(net.nodes))
	for _, p := range net.nodes {
		if p.faulty == nil {
			ret = append(ret, p)
		}
	}
	return ret
}

func (net *simNet) allDecided() bool {
	for _, p := range net.honest() {
		if !p.state.isDecided() {
			return false
		}
	}
	return true
}

func (net *simNet) maxRound() uint64 {
	var max uint64
	for _, p := range net.honest() {
		if r := p.state.getRound(); r > max {
			max = r
		}
	}
	return max
}

func assertAgreement(t *testing.T, net *simNet) core.Value {
	honest := net.honest()
	first := honest[0].snapshot()
	for _, p := range honest[1:] {
		assert.True(t, core.ValueEqual(first.Value, p.snapshot().Value),
			"node %d disagrees", p.config.NodeID)
	}
	return *first.Value
}

func TestSimNet_UnanimousDecidesEarly(t *testing.T) {
	net := newSimNet(4, 1, []core.Value{1}, nil, 1)
	net.start()

	assert := assert.New(t)
	assert.True(net.run(100000, net.allDecided))
	assert.EqualValues(1, assertAgreement(t, net))
	for _, p := range net.honest() {
		assert.LessOrEqual(p.state.getRound(), uint64(3))
	}
}

func TestSimNet_AgreementMixedValues(t *testing.T) {
	tests := []struct {
		name   string
		n, f   int
		values []core.Value
		faulty map[int]FaultMode
	}{
		{"n4f1", 4, 1, []core.Value{0, 1}, nil},
		{"n4f1 crashed", 4, 1, []core.Value{0, 1, 1, 0}, map[int]FaultMode{3: FaultSilent}},
		{"n7f3", 7, 3, []core.Value{0, 1}, nil},
		{"n7f3 crashed", 7, 3, []core.Value{1, 0}, map[int]FaultMode{
			4: FaultSilent, 5: FaultSilent, 6: FaultSilent,
		}},
	}
	for _, tt := range tests {
		for seed := int64(1); seed <= 5; seed++ {
			net := newSimNet(tt.n, tt.f, tt.values, tt.faulty, seed)
			net.start()
			if !assert.True(t, net.run(5000000, net.allDecided), "%s seed %d terminates", tt.name, seed) {
				continue
			}
			v := assertAgreement(t, net)
			assert.Contains(t, tt.values, v, "%s seed %d decides an input value", tt.name, seed)
		}
	}
}

func TestSimNet_Validity(t *testing.T) {
	for _, v := range []core.Value{0, 1} {
		net := newSimNet(5, 2, []core.Value{v}, nil, 7)
		net.start()
		assert.True(t, net.run(100000, net.allDecided))
		assert.Equal(t, v, assertAgreement(t, net))
	}
}

func TestSimNet_ValidityWithEquivocation(t *testing.T) {
	for _, v := range []core.Value{0, 1} {
		for seed := int64(1); seed <= 3; seed++ {
			net := newSimNet(6, 1, []core.Value{v}, map[int]FaultMode{5: FaultEquivocate}, seed)
			net.start()
			assert.True(t, net.run(100000, net.allDecided))
			assert.Equal(t, v, assertAgreement(t, net))
		}
	}
}

func TestSimNet_NoDecisionWithoutQuorum(t *testing.T) {
	net := newSimNet(10, 6, []core.Value{0, 1}, nil, 3)
	net.start()

	reached := net.run(5000000, func() bool { return net.maxRound() >= 200 })

	assert := assert.New(t)
	assert.True(reached)
	for _, p := range net.honest() {
		assert.False(p.state.isDecided())
		assert.True(p.state.isRunning())
		assert.True(p.status().Stalled)
	}
}

func TestSimNet_CrashedMinority(t *testing.T) {
	net := newSimNet(4, 1, []core.Value{1, 0, 1}, nil, 11)
	net.nodes[3].start()
	net.nodes[3].kill()
	for _, p := range net.nodes[:3] {
		p.start()
	}

	done := func() bool {
		for _, p := range net.nodes[:3] {
			if !p.state.isDecided() {
				return false
			}
		}
		return true
	}
	assert := assert.New(t)
	assert.True(net.run(1000000, done))
	v := net.nodes[0].snapshot().Value
	for _, p := range net.nodes[1:3] {
		assert.True(core.ValueEqual(v, p.snapshot().Value))
	}
	assert.False(net.nodes[3].state.isDecided())
}
