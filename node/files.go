// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package node

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/multiformats/go-multiaddr"
)

// PeerInfo locates a node of the network
type PeerInfo struct {
	ID int `json:"id"`

	// base url of the node api
	Endpoint string `json:"endpoint"`

	// libp2p multiaddr
	Addr string `json:"addr"`
}

const (
	PeersFile = "peers.json"
)

// readPeers loads peers.json from datadir, it returns false when the file does not exist
func readPeers(datadir string) ([]PeerInfo, bool, error) {
	if datadir == "" {
		return nil, false, nil
	}
	f, err := os.Open(path.Join(datadir, PeersFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cannot read %s, %w", PeersFile, err)
	}
	defer f.Close()

	var peers []PeerInfo
	if err := json.NewDecoder(f).Decode(&peers); err != nil {
		return nil, false, fmt.Errorf("cannot parse %s, %w", PeersFile, err)
	}
	for _, p := range peers {
		if p.Addr == "" {
			continue
		}
		if _, err := multiaddr.NewMultiaddr(p.Addr); err != nil {
			return nil, false, fmt.Errorf("invalid multiaddr of peer %d, %w", p.ID, err)
		}
	}
	return peers, true, nil
}

// DefaultPeers derives peers of a local network from the base ports
func DefaultPeers(cfg Config) []PeerInfo {
	n := cfg.ConsensusConfig.NodeCount
	peers := make([]PeerInfo, n)
	for i := 0; i < n; i++ {
		peers[i] = PeerInfo{
			ID:       i,
			Endpoint: fmt.Sprintf("http://%s:%d", cfg.Host, cfg.BaseAPIPort+i),
			Addr:     fmt.Sprintf("/ip4/%s/tcp/%d", cfg.Host, cfg.BasePort+i),
		}
	}
	return peers
}

// WritePeers writes peers.json into datadir
func WritePeers(datadir string, peers []PeerInfo) error {
	if err := os.MkdirAll(datadir, 0755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(peers, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path.Join(datadir, PeersFile), b, 0644)
}
