// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package consensus

import (
	"github.com/aungmawjj/benor/core"
)

// Snapshot is an immutable copy of a node's consensus state
type Snapshot struct {
	Killed  bool        `json:"killed"`
	Value   *core.Value `json:"value"`
	Decided *bool       `json:"decided"`
	Round   *uint64     `json:"round"`
}

// IsDecided returns true once the node reached a terminal decision
func (s Snapshot) IsDecided() bool {
	return s.Decided != nil && *s.Decided
}

// IsRunning returns true while a round is in progress
func (s Snapshot) IsRunning() bool {
	return s.Decided != nil && !*s.Decided
}

// RoundOrZero returns the round, zero before start
func (s Snapshot) RoundOrZero() uint64 {
	if s.Round == nil {
		return 0
	}
	return *s.Round
}

// state is owned by a single protocol instance, it is never shared
type state struct {
	faulty bool

	value   *core.Value
	round   *uint64
	decided *bool
	killed  bool
}

func newState(cfg Config) *state {
	s := &state{faulty: cfg.Faulty}
	if !cfg.Faulty {
		s.value = core.NewValue(cfg.InitialValue)
	}
	return s
}

func (s *state) isRunning() bool {
	return s.decided != nil && !*s.decided
}

func (s *state) isDecided() bool {
	return s.decided != nil && *s.decided
}

func (s *state) getRound() uint64 {
	if s.round == nil {
		return 0
	}
	return *s.round
}

func (s *state) setRound(round uint64) {
	s.round = &round
}

func (s *state) setDecided(val bool) {
	s.decided = &val
}

func (s *state) setValue(v core.Value) {
	s.value = core.NewValue(v)
}

func (s *state) snapshot() Snapshot {
	ss := Snapshot{
		Killed: s.killed,
		Value:  core.CopyValue(s.value),
	}
	if s.decided != nil {
		d := *s.decided
		ss.Decided = &d
	}
	if s.round != nil {
		r := *s.round
		ss.Round = &r
	}
	return ss
}
