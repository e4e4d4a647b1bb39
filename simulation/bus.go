// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package simulation

import (
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aungmawjj/benor/core"
	"github.com/aungmawjj/benor/emitter"
)

// errors
var (
	ErrUnknownNode   = errors.New("unknown node")
	ErrNetworkClosed = errors.New("network closed")
)

// NetworkConfig controls how the in-process network misbehaves
type NetworkConfig struct {
	// each delivery waits a random duration in [0, MaxDelay]
	MaxDelay time.Duration

	// probability of delivering a message twice
	DupProb float64

	// seed of delays and duplication
	Seed int64
}

// Network connects LocalBus instances of one process
type Network struct {
	config NetworkConfig

	mtx   sync.Mutex
	rng   *rand.Rand
	buses map[int]*LocalBus

	closed    int32
	delivered uint64
	duplicate uint64
}

func NewNetwork(config NetworkConfig) *Network {
	return &Network{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
		buses:  make(map[int]*LocalBus),
	}
}

// Bus returns the bus of node id, creating it on first use
func (nw *Network) Bus(id int) *LocalBus {
	nw.mtx.Lock()
	defer nw.mtx.Unlock()
	if bus, found := nw.buses[id]; found {
		return bus
	}
	bus := &LocalBus{
		id:      id,
		network: nw,
		emitter: emitter.New(),
	}
	nw.buses[id] = bus
	return bus
}

// Close stops every pending and future delivery
func (nw *Network) Close() {
	atomic.StoreInt32(&nw.closed, 1)
}

func (nw *Network) isClosed() bool {
	return atomic.LoadInt32(&nw.closed) == 1
}

// Delivered returns the number of messages handed to receivers, duplicates included
func (nw *Network) Delivered() uint64 {
	return atomic.LoadUint64(&nw.delivered)
}

// Duplicated returns the number of extra copies sent
func (nw *Network) Duplicated() uint64 {
	return atomic.LoadUint64(&nw.duplicate)
}

func (nw *Network) lookup(id int) *LocalBus {
	nw.mtx.Lock()
	defer nw.mtx.Unlock()
	return nw.buses[id]
}

func (nw *Network) others(self int) []*LocalBus {
	nw.mtx.Lock()
	defer nw.mtx.Unlock()
	ret := make([]*LocalBus, 0, len(nw.buses))
	for id, bus := range nw.buses {
		if id != self {
			ret = append(ret, bus)
		}
	}
	return ret
}

// plan draws the delays of one transmission, a second delay means a duplicate
func (nw *Network) plan() []time.Duration {
	nw.mtx.Lock()
	defer nw.mtx.Unlock()
	delays := []time.Duration{nw.randomDelay()}
	if nw.config.DupProb > 0 && nw.rng.Float64() < nw.config.DupProb {
		delays = append(delays, nw.randomDelay())
	}
	return delays
}

func (nw *Network) randomDelay() time.Duration {
	if nw.config.MaxDelay <= 0 {
		return 0
	}
	return time.Duration(nw.rng.Int63n(int64(nw.config.MaxDelay) + 1))
}

func (nw *Network) transmit(to *LocalBus, msg *core.Message) {
	for i, d := range nw.plan() {
		if i > 0 {
			atomic.AddUint64(&nw.duplicate, 1)
		}
		m := msg.Copy()
		if d == 0 {
			nw.deliver(to, m)
			continue
		}
		time.AfterFunc(d, func() { nw.deliver(to, m) })
	}
}

func (nw *Network) deliver(to *LocalBus, msg *core.Message) {
	if nw.isClosed() || to.IsDisconnected() {
		return
	}
	atomic.AddUint64(&nw.delivered, 1)
	to.emitter.Emit(msg)
}

// LocalBus is an in-process message service of one node
type LocalBus struct {
	id      int
	network *Network
	emitter *emitter.Emitter

	disconnected int32
}

func (bus *LocalBus) ID() int {
	return bus.id
}

func (bus *LocalBus) SubscribeMessage(buffer int) *emitter.Subscription {
	return bus.emitter.Subscribe(buffer)
}

func (bus *LocalBus) Broadcast(msg *core.Message) error {
	if bus.network.isClosed() {
		return ErrNetworkClosed
	}
	if bus.IsDisconnected() {
		return nil
	}
	for _, to := range bus.network.others(bus.id) {
		bus.network.transmit(to, msg)
	}
	return nil
}

func (bus *LocalBus) Send(to int, msg *core.Message) error {
	if bus.network.isClosed() {
		return ErrNetworkClosed
	}
	target := bus.network.lookup(to)
	if target == nil {
		return ErrUnknownNode
	}
	if bus.IsDisconnected() {
		return nil
	}
	bus.network.transmit(target, msg)
	return nil
}

// Disconnect cuts the node off, messages from and to it are lost
func (bus *LocalBus) Disconnect() {
	atomic.StoreInt32(&bus.disconnected, 1)
}

func (bus *LocalBus) Reconnect() {
	atomic.StoreInt32(&bus.disconnected, 0)
}

func (bus *LocalBus) IsDisconnected() bool {
	return atomic.LoadInt32(&bus.disconnected) == 1
}
