// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package emitter

import (
	"sync"
	"sync/atomic"
)

// Event type
type Event interface{}

// Subscription receives events from an Emitter
type Subscription struct {
	onRemove func(s *Subscription)
	ch       chan Event
	once     sync.Once
	dropped  uint64
}

// Events returns the channel of events, it is closed on Unsubscribe
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Listen invokes fn for each event until the subscription is removed
func (s *Subscription) Listen(fn func(e Event)) {
	for e := range s.ch {
		fn(e)
	}
}

// Dropped returns the number of events lost because the buffer was full
func (s *Subscription) Dropped() uint64 {
	return atomic.LoadUint64(&s.dropped)
}

// Unsubscribe stops getting new events, safe to call more than once
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.onRemove(s)
		close(s.ch)
	})
}

// emit never blocks the emitter, a slow subscriber loses events
func (s *Subscription) emit(event Event) {
	select {
	case s.ch <- event:
	default:
		atomic.AddUint64(&s.dropped, 1)
	}
}

// Emitter handles event subscriptions
type Emitter struct {
	mtx           sync.RWMutex
	subscriptions map[*Subscription]struct{}
}

// New creates a new Emitter
func New() *Emitter {
	return &Emitter{
		subscriptions: make(map[*Subscription]struct{}),
	}
}

// Subscribe creates a new subscription with at least 5 buffered events
func (e *Emitter) Subscribe(buffer int) *Subscription {
	s := &Subscription{
		onRemove: e.delete,
		ch:       make(chan Event, max(buffer, 5)),
	}
	e.add(s)
	return s
}

func max(x, y int) int {
	if x > y {
		return x
	}
	return y
}

func (e *Emitter) add(s *Subscription) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.subscriptions[s] = struct{}{}
}

func (e *Emitter) delete(s *Subscription) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	delete(e.subscriptions, s)
}

// Emit sends new event to all subscriptions
func (e *Emitter) Emit(event Event) {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	for s := range e.subscriptions {
		s.emit(event)
	}
}

// SubscriberCount returns the number of active subscriptions
func (e *Emitter) SubscriberCount() int {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	return len(e.subscriptions)
}
