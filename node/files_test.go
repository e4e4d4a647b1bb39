// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package node

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPeersFile(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()

	peers, found, err := readPeers(dir)
	assert.NoError(err)
	assert.False(found)
	assert.Nil(peers)

	cfg := DefaultConfig
	cfg.ConsensusConfig.NodeCount = 3
	want := DefaultPeers(cfg)
	assert.NoError(WritePeers(dir, want))

	peers, found, err = readPeers(dir)
	assert.NoError(err)
	assert.True(found)
	assert.Equal(want, peers)
}

func TestPeersFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	os.WriteFile(path.Join(dir, PeersFile), []byte("not json"), 0644)
	_, _, err := readPeers(dir)
	assert.Error(t, err)

	os.WriteFile(path.Join(dir, PeersFile), []byte(`[{"id":0,"addr":"bad addr"}]`), 0644)
	_, _, err = readPeers(dir)
	assert.Error(t, err)
}

func TestDefaultPeers(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig
	cfg.ConsensusConfig.NodeCount = 2
	peers := DefaultPeers(cfg)

	assert.Equal([]PeerInfo{
		{ID: 0, Endpoint: "http://127.0.0.1:3000", Addr: "/ip4/127.0.0.1/tcp/15150"},
		{ID: 1, Endpoint: "http://127.0.0.1:3001", Addr: "/ip4/127.0.0.1/tcp/15151"},
	}, peers)
}

func TestConfigPorts(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig
	cfg.ConsensusConfig.NodeID = 2
	assert.Equal(3002, cfg.apiPort())
	assert.Equal(15152, cfg.p2pPort())

	cfg.APIPort = 8080
	cfg.Port = 9090
	assert.Equal(8080, cfg.apiPort())
	assert.Equal(9090, cfg.p2pPort())
}
