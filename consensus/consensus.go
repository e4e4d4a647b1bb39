// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package consensus

import (
	"sync"
	"sync/atomic"

	"github.com/aungmawjj/benor/core"
	"github.com/aungmawjj/benor/emitter"
	"github.com/aungmawjj/benor/logger"
	"github.com/aungmawjj/benor/metrics"
)

// Consensus runs the protocol of one node on a single main loop.
// Control calls and inbound messages are applied one at a time, in arrival order.
type Consensus struct {
	resources *Resources
	config    Config

	protocol *protocol

	// checked before any operation touches the protocol
	killed int32

	sub      *emitter.Subscription
	incoming chan *core.Message
	requests chan func()

	// always closed, selected while the protocol can advance
	stepCh chan struct{}

	queueDropped uint64

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// captured when the main loop exits
	finalState  Snapshot
	finalStatus Status
}

func New(resources *Resources, config Config) (*Consensus, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if resources == nil {
		resources = &Resources{}
	}
	config = config.withDefaults()
	cons := &Consensus{
		resources: resources,
		config:    config,
		protocol:  newProtocol(resources, config),
		incoming:  make(chan *core.Message, config.MessageQueueSize),
		requests:  make(chan func()),
		stepCh:    make(chan struct{}),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	close(cons.stepCh)
	cons.start()
	return cons, nil
}

func (cons *Consensus) start() {
	if cons.resources.MsgSvc != nil {
		cons.sub = cons.resources.MsgSvc.SubscribeMessage(cons.config.MessageQueueSize)
	}
	go cons.mainLoop()
	logger.I().Infow("started consensus engine",
		"node", cons.config.NodeID,
		"n", cons.config.NodeCount,
		"f", cons.config.FaultyCount,
		"faulty", cons.config.Faulty)
}

func (cons *Consensus) mainLoop() {
	defer close(cons.done)
	defer func() {
		cons.finalState = cons.protocol.snapshot()
		cons.finalStatus = cons.protocol.status()
	}()

	var inbound <-chan emitter.Event
	if cons.sub != nil {
		inbound = cons.sub.Events()
	}
	for {
		var step <-chan struct{}
		if cons.protocol.ready() {
			step = cons.stepCh
		}
		select {
		case <-cons.quit:
			return

		case <-step:
			cons.protocol.advance()

		case fn := <-cons.requests:
			fn()

		case msg := <-cons.incoming:
			cons.onMessage(msg)

		case e, ok := <-inbound:
			if !ok {
				inbound = nil
				continue
			}
			if msg, ok := e.(*core.Message); ok {
				cons.onMessage(msg)
			}
		}
	}
}

func (cons *Consensus) onMessage(msg *core.Message) {
	if cons.IsKilled() {
		cons.protocol.drop(metrics.DropKilled)
		return
	}
	cons.protocol.onMessage(msg)
}

// do runs fn on the main loop and waits for it
func (cons *Consensus) do(fn func()) error {
	finished := make(chan struct{})
	select {
	case cons.requests <- func() {
		fn()
		close(finished)
	}:
	case <-cons.done:
		return ErrEngineClosed
	}
	<-finished
	return nil
}

// Start begins round 0 with the node's initial value.
// It returns ErrAlreadyRunning or ErrDecided when the node cannot start.
func (cons *Consensus) Start() error {
	if cons.IsKilled() {
		return ErrKilled
	}
	var err error
	if e := cons.do(func() { err = cons.protocol.start() }); e != nil {
		return e
	}
	return err
}

// Stop halts the running round and discards pending round state.
// Stopping an idle node does nothing.
func (cons *Consensus) Stop() error {
	if cons.IsKilled() {
		return nil
	}
	return cons.do(cons.protocol.stop)
}

// Kill stops the node for good, every later operation is ignored
func (cons *Consensus) Kill() error {
	if !atomic.CompareAndSwapInt32(&cons.killed, 0, 1) {
		return nil
	}
	return cons.do(cons.protocol.kill)
}

func (cons *Consensus) IsKilled() bool {
	return atomic.LoadInt32(&cons.killed) == 1
}

// Deliver queues an inbound message without blocking the caller.
// It returns false when the message is dropped.
func (cons *Consensus) Deliver(msg *core.Message) bool {
	if msg == nil || cons.IsKilled() {
		return false
	}
	select {
	case cons.incoming <- msg:
		return true
	default:
		atomic.AddUint64(&cons.queueDropped, 1)
		metrics.MessagesDropped.WithLabelValues(
			metrics.NodeLabel(cons.config.NodeID), metrics.DropQueueFull).Inc()
		return false
	}
}

// GetState returns a copy of the node state
func (cons *Consensus) GetState() Snapshot {
	var ss Snapshot
	if err := cons.do(func() { ss = cons.protocol.snapshot() }); err != nil {
		return cons.finalState
	}
	return ss
}

func (cons *Consensus) GetStatus() Status {
	var status Status
	if err := cons.do(func() { status = cons.protocol.status() }); err != nil {
		status = cons.finalStatus
	}
	status.QueueDropped = atomic.LoadUint64(&cons.queueDropped)
	if cons.sub != nil {
		status.QueueDropped += cons.sub.Dropped()
	}
	return status
}

// SubscribeEvents returns a subscription of core.Event
func (cons *Consensus) SubscribeEvents(buffer int) *emitter.Subscription {
	return cons.protocol.events.Subscribe(buffer)
}

func (cons *Consensus) NodeID() int {
	return cons.config.NodeID
}

func (cons *Consensus) Config() Config {
	return cons.config
}

// Close stops the main loop, the state stays readable
func (cons *Consensus) Close() {
	cons.closeOnce.Do(func() {
		close(cons.quit)
		<-cons.done
		if cons.sub != nil {
			cons.sub.Unsubscribe()
		}
	})
}
