// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package consensus

import (
	"sort"

	"github.com/aungmawjj/benor/core"
	"github.com/hashicorp/golang-lru/simplelru"
)

// roundMessages collects at most one message per sender for each phase of a round
type roundMessages struct {
	round     uint64
	proposals map[int]*core.Value
	votes     map[int]*core.Value
}

func newRoundMessages(round uint64) *roundMessages {
	return &roundMessages{
		round:     round,
		proposals: make(map[int]*core.Value),
		votes:     make(map[int]*core.Value),
	}
}

// add returns false for a second message of the same sender and phase
func (rm *roundMessages) add(msg *core.Message) bool {
	collected := rm.proposals
	if msg.Phase == core.PhaseVote {
		collected = rm.votes
	}
	if _, found := collected[msg.Sender]; found {
		return false
	}
	collected[msg.Sender] = core.CopyValue(msg.Value)
	return true
}

func (rm *roundMessages) proposalCount() int { return len(rm.proposals) }
func (rm *roundMessages) voteCount() int     { return len(rm.votes) }

// valueCounts tallies non-null values
func valueCounts(collected map[int]*core.Value) map[core.Value]int {
	counts := make(map[core.Value]int)
	for _, v := range collected {
		if v != nil {
			counts[*v]++
		}
	}
	return counts
}

// leadValue returns the most frequent non-null value, ties go to the lowest value
func leadValue(counts map[core.Value]int) (core.Value, int, bool) {
	if len(counts) == 0 {
		return 0, 0, false
	}
	values := make([]core.Value, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	lead := values[0]
	for _, v := range values[1:] {
		if counts[v] > counts[lead] {
			lead = v
		}
	}
	return lead, counts[lead], true
}

// roundBuffer keeps messages for rounds ahead of the local round.
// When full, the oldest buffered round is evicted first.
type roundBuffer struct {
	rounds  *simplelru.LRU
	evicted int
	onEvict func(rm *roundMessages)

	// simplelru calls the evict callback on Remove and Purge too
	removing bool
}

func newRoundBuffer(capacity int, onEvict func(rm *roundMessages)) *roundBuffer {
	rb := &roundBuffer{onEvict: onEvict}
	rounds, err := simplelru.NewLRU(capacity, rb.evict)
	if err != nil {
		// capacity is validated by config defaults
		panic(err)
	}
	rb.rounds = rounds
	return rb
}

func (rb *roundBuffer) evict(key interface{}, value interface{}) {
	if rb.removing {
		return
	}
	rb.evicted++
	if rb.onEvict != nil {
		rb.onEvict(value.(*roundMessages))
	}
}

// get returns the messages of a buffered round, creating it when missing.
// Peek keeps insertion order so eviction stays oldest first.
func (rb *roundBuffer) get(round uint64) *roundMessages {
	if v, ok := rb.rounds.Peek(round); ok {
		return v.(*roundMessages)
	}
	rm := newRoundMessages(round)
	rb.rounds.Add(round, rm)
	return rm
}

// take removes and returns a buffered round, or an empty one
func (rb *roundBuffer) take(round uint64) *roundMessages {
	if v, ok := rb.rounds.Peek(round); ok {
		rb.remove(round)
		return v.(*roundMessages)
	}
	return newRoundMessages(round)
}

// dropBefore discards rounds older than round
func (rb *roundBuffer) dropBefore(round uint64) {
	for _, key := range rb.rounds.Keys() {
		if key.(uint64) < round {
			rb.remove(key)
		}
	}
}

// roundsAfter lists buffered rounds greater than round in ascending order
func (rb *roundBuffer) roundsAfter(round uint64) []uint64 {
	ret := make([]uint64, 0)
	for _, key := range rb.rounds.Keys() {
		if r := key.(uint64); r > round {
			ret = append(ret, r)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

func (rb *roundBuffer) len() int {
	return rb.rounds.Len()
}

func (rb *roundBuffer) remove(key interface{}) {
	rb.removing = true
	defer func() { rb.removing = false }()
	rb.rounds.Remove(key)
}

func (rb *roundBuffer) purge() {
	rb.removing = true
	defer func() { rb.removing = false }()
	rb.rounds.Purge()
}
