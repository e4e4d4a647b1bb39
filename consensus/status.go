// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package consensus

import "github.com/aungmawjj/benor/core"

// health of a node
const (
	HealthLive   = "live"
	HealthFaulty = "faulty"
	HealthKilled = "killed"
)

type Status struct {
	NodeID int

	// live, faulty or killed
	Health string

	Running bool
	Decided bool
	Round   uint64
	Value   *core.Value

	// set to true when n <= 2f, rounds keep advancing but the node never decides
	Stalled bool

	NodeCount   int
	FaultyCount int
	QuorumCount int
	DecideCount int

	// progress of the current round
	Phase         string
	ProposalCount int
	VoteCount     int

	BufferedRounds  int
	EvictedRounds   int
	DroppedMessages uint64

	// messages lost because the inbound queue was full
	QueueDropped uint64
}
