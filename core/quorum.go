// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package core

// QuorumCount returns n - f, the number of messages a node waits for in each phase
func QuorumCount(nodeCount, faultyCount int) int {
	q := nodeCount - faultyCount
	if q < 1 {
		return 1
	}
	return q
}

// DecideCount returns f + 1, the minimum votes for one value to decide on it
func DecideCount(faultyCount int) int {
	return faultyCount + 1
}

// IsMajority reports whether count is more than half of nodeCount
func IsMajority(count, nodeCount int) bool {
	return 2*count > nodeCount
}

// CanTerminate is false when n <= 2f, no quorum of n - f can hold a majority
func CanTerminate(nodeCount, faultyCount int) bool {
	return nodeCount > 2*faultyCount
}
