// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package consensus

import (
	"fmt"

	"github.com/aungmawjj/benor/core"
)

// FaultMode selects how a faulty node behaves
type FaultMode string

// fault modes
const (
	// FaultSilent node never sends anything, like a crashed process
	FaultSilent FaultMode = "silent"

	// FaultEquivocate node sends random, per-peer different values for every round it hears of
	FaultEquivocate FaultMode = "equivocate"
)

type Config struct {
	NodeID int

	// N, number of nodes in the network
	NodeCount int

	// F, number of faulty nodes tolerated
	FaultyCount int

	// faulty nodes start with a null value and never decide
	Faulty    bool
	FaultMode FaultMode

	InitialValue core.Value

	// base seed of the coin, each node derives its own from it
	Seed int64

	// maximum number of future rounds holding buffered messages
	MaxBufferedRounds int

	// inbound message queue size of the engine
	MessageQueueSize int
}

var DefaultConfig = Config{
	NodeCount:         4,
	FaultyCount:       1,
	FaultMode:         FaultSilent,
	MaxBufferedRounds: 64,
	MessageQueueSize:  1024,
}

// Validate checks the static network parameters
func (cfg Config) Validate() error {
	if cfg.NodeCount < 1 {
		return fmt.Errorf("invalid node count %d", cfg.NodeCount)
	}
	if cfg.FaultyCount < 0 || cfg.FaultyCount > cfg.NodeCount {
		return fmt.Errorf("invalid faulty count %d for %d nodes", cfg.FaultyCount, cfg.NodeCount)
	}
	if cfg.NodeID < 0 || cfg.NodeID >= cfg.NodeCount {
		return fmt.Errorf("invalid node id %d for %d nodes", cfg.NodeID, cfg.NodeCount)
	}
	switch cfg.FaultMode {
	case "", FaultSilent, FaultEquivocate:
	default:
		return fmt.Errorf("unknown fault mode %q", cfg.FaultMode)
	}
	return nil
}

func (cfg Config) withDefaults() Config {
	if cfg.FaultMode == "" {
		cfg.FaultMode = DefaultConfig.FaultMode
	}
	if cfg.MaxBufferedRounds <= 0 {
		cfg.MaxBufferedRounds = DefaultConfig.MaxBufferedRounds
	}
	if cfg.MessageQueueSize <= 0 {
		cfg.MessageQueueSize = DefaultConfig.MessageQueueSize
	}
	return cfg
}

func (cfg Config) quorumCount() int {
	return core.QuorumCount(cfg.NodeCount, cfg.FaultyCount)
}

func (cfg Config) decideCount() int {
	return core.DecideCount(cfg.FaultyCount)
}

func (cfg Config) canTerminate() bool {
	return core.CanTerminate(cfg.NodeCount, cfg.FaultyCount)
}
