// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/aungmawjj/benor/consensus"
	"github.com/aungmawjj/benor/core"
	"github.com/aungmawjj/benor/logger"
)

type Config struct {
	NodeCount   int
	FaultyCount int

	// number of nodes running as faulty, the last ids are picked
	Faulty    int
	FaultMode consensus.FaultMode

	// initial values by node id, random binary values when empty
	Values []core.Value

	Seed    int64
	Network NetworkConfig
}

var DefaultConfig = Config{
	NodeCount:   4,
	FaultyCount: 1,
	FaultMode:   consensus.FaultSilent,
}

func (cfg Config) validate() error {
	if cfg.Faulty < 0 || cfg.Faulty > cfg.NodeCount {
		return fmt.Errorf("invalid faulty node count %d", cfg.Faulty)
	}
	if len(cfg.Values) > 0 && len(cfg.Values) != cfg.NodeCount {
		return fmt.Errorf("need %d initial values, got %d", cfg.NodeCount, len(cfg.Values))
	}
	return nil
}

// Cluster runs N engines on an in-process network
type Cluster struct {
	config  Config
	network *Network
	nodes   []*consensus.Consensus
	values  []core.Value
}

func NewCluster(config Config) (*Cluster, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	cls := &Cluster{
		config:  config,
		network: NewNetwork(config.Network),
		values:  initialValues(config),
	}
	for i := 0; i < config.NodeCount; i++ {
		cons, err := consensus.New(&consensus.Resources{
			MsgSvc: cls.network.Bus(i),
		}, cls.nodeConfig(i))
		if err != nil {
			cls.Close()
			return nil, fmt.Errorf("cannot create node %d, %w", i, err)
		}
		cls.nodes = append(cls.nodes, cons)
	}
	return cls, nil
}

func initialValues(config Config) []core.Value {
	if len(config.Values) > 0 {
		return append([]core.Value(nil), config.Values...)
	}
	rng := rand.New(rand.NewSource(config.Seed))
	values := make([]core.Value, config.NodeCount)
	for i := range values {
		values[i] = core.Value(rng.Intn(2))
	}
	return values
}

func (cls *Cluster) nodeConfig(i int) consensus.Config {
	cfg := consensus.DefaultConfig
	cfg.NodeID = i
	cfg.NodeCount = cls.config.NodeCount
	cfg.FaultyCount = cls.config.FaultyCount
	cfg.Faulty = cls.IsFaulty(i)
	cfg.FaultMode = cls.config.FaultMode
	cfg.InitialValue = cls.values[i]
	cfg.Seed = cls.config.Seed
	return cfg
}

func (cls *Cluster) IsFaulty(i int) bool {
	return i >= cls.config.NodeCount-cls.config.Faulty
}

func (cls *Cluster) NodeCount() int {
	return len(cls.nodes)
}

func (cls *Cluster) Node(i int) *consensus.Consensus {
	if i < 0 || i >= len(cls.nodes) {
		return nil
	}
	return cls.nodes[i]
}

func (cls *Cluster) Network() *Network {
	return cls.network
}

// InitialValue returns the value node i started with
func (cls *Cluster) InitialValue(i int) core.Value {
	return cls.values[i]
}

// Start starts every node, killed ones are skipped
func (cls *Cluster) Start() error {
	for i := range cls.nodes {
		if err := cls.StartNode(i); err != nil {
			return err
		}
	}
	return nil
}

func (cls *Cluster) StartNode(i int) error {
	err := cls.nodes[i].Start()
	if err == consensus.ErrKilled {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot start node %d, %w", i, err)
	}
	return nil
}

func (cls *Cluster) StopNode(i int) error {
	return cls.nodes[i].Stop()
}

// KillNode crashes node i, it also stops talking on the network
func (cls *Cluster) KillNode(i int) error {
	cls.network.Bus(i).Disconnect()
	return cls.nodes[i].Kill()
}

func (cls *Cluster) States() []consensus.Snapshot {
	states := make([]consensus.Snapshot, len(cls.nodes))
	for i, node := range cls.nodes {
		states[i] = node.GetState()
	}
	return states
}

// WaitDecided blocks until every live correct node decided
func (cls *Cluster) WaitDecided(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if cls.allDecided() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("nodes undecided, %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (cls *Cluster) allDecided() bool {
	for i, state := range cls.States() {
		if cls.IsFaulty(i) || state.Killed {
			continue
		}
		if !state.IsDecided() {
			return false
		}
	}
	return true
}

// CheckAgreement fails when two correct nodes decided different values
func (cls *Cluster) CheckAgreement() error {
	var (
		decided *core.Value
		first   int
	)
	for i, state := range cls.States() {
		if cls.IsFaulty(i) || !state.IsDecided() {
			continue
		}
		if decided == nil {
			decided, first = state.Value, i
			continue
		}
		if !core.ValueEqual(decided, state.Value) {
			return fmt.Errorf("agreement violated, node %d decided %s, node %d decided %s",
				first, core.FormatValue(decided), i, core.FormatValue(state.Value))
		}
	}
	return nil
}

// CheckValidity fails when correct nodes started with the same value and decided another one
func (cls *Cluster) CheckValidity() error {
	var (
		common    core.Value
		found     bool
		unanimous = true
	)
	for i := range cls.nodes {
		if cls.IsFaulty(i) {
			continue
		}
		if !found {
			common, found = cls.values[i], true
			continue
		}
		if cls.values[i] != common {
			unanimous = false
		}
	}
	if !found || !unanimous {
		return nil
	}
	for i, state := range cls.States() {
		if cls.IsFaulty(i) || !state.IsDecided() {
			continue
		}
		if !core.ValueEqual(state.Value, &common) {
			return fmt.Errorf("validity violated, node %d decided %s, all started with %d",
				i, core.FormatValue(state.Value), common)
		}
	}
	return nil
}

// Run starts the cluster, waits for decisions and checks the outcome
func (cls *Cluster) Run(ctx context.Context) error {
	if err := cls.Start(); err != nil {
		return err
	}
	if err := cls.WaitDecided(ctx); err != nil {
		return err
	}
	if err := cls.CheckAgreement(); err != nil {
		return err
	}
	if err := cls.CheckValidity(); err != nil {
		return err
	}
	logger.I().Infow("cluster decided",
		"n", cls.config.NodeCount,
		"f", cls.config.FaultyCount,
		"delivered", cls.network.Delivered())
	return nil
}

func (cls *Cluster) Close() {
	cls.network.Close()
	for _, node := range cls.nodes {
		node.Close()
	}
}
