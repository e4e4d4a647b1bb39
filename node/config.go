// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package node

import (
	"time"

	"github.com/aungmawjj/benor/consensus"
)

// transports
const (
	TransportHTTP = "http"
	TransportP2P  = "p2p"
)

type Config struct {
	Debug   bool
	Datadir string

	// http or p2p
	Transport string

	// host used to derive peer endpoints when peers.json is absent
	Host string

	// node i serves its api on BaseAPIPort + i unless APIPort is set
	BaseAPIPort int
	APIPort     int

	// node i listens for p2p streams on BasePort + i unless Port is set
	BasePort int
	Port     int

	// timeout of outgoing http messages
	MessageTimeout time.Duration

	ConsensusConfig consensus.Config
}

var DefaultConfig = Config{
	Transport:       TransportHTTP,
	Host:            "127.0.0.1",
	BaseAPIPort:     3000,
	BasePort:        15150,
	MessageTimeout:  3 * time.Second,
	ConsensusConfig: consensus.DefaultConfig,
}

func (cfg Config) apiPort() int {
	if cfg.APIPort != 0 {
		return cfg.APIPort
	}
	return cfg.BaseAPIPort + cfg.ConsensusConfig.NodeID
}

func (cfg Config) p2pPort() int {
	if cfg.Port != 0 {
		return cfg.Port
	}
	return cfg.BasePort + cfg.ConsensusConfig.NodeID
}
