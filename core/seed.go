// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package core

import (
	"crypto/ed25519"
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// NodeSeed derives an independent seed for each node from one base seed,
// so nodes of a cluster never share a coin sequence.
func NodeSeed(baseSeed int64, nodeID int) int64 {
	sum := nodeDigest("benor/coin", baseSeed, nodeID)
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// NodeKey derives a deterministic ed25519 identity for a node
func NodeKey(baseSeed int64, nodeID int) ed25519.PrivateKey {
	sum := nodeDigest("benor/key", baseSeed, nodeID)
	return ed25519.NewKeyFromSeed(sum[:ed25519.SeedSize])
}

func nodeDigest(domain string, baseSeed int64, nodeID int) [32]byte {
	buf := make([]byte, len(domain)+16)
	n := copy(buf, domain)
	binary.BigEndian.PutUint64(buf[n:], uint64(baseSeed))
	binary.BigEndian.PutUint64(buf[n+8:], uint64(nodeID))
	return sha3.Sum256(buf)
}
