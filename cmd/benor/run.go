// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package main

import (
	"github.com/aungmawjj/benor/consensus"
	"github.com/aungmawjj/benor/core"
	"github.com/aungmawjj/benor/node"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagDataDir     = "datadir"
	flagNodeID      = "id"
	flagValue       = "value"
	flagFaulty      = "faulty"
	flagTransport   = "transport"
	flagHost        = "host"
	flagAPIPort     = "api-port"
	flagPort        = "port"
	flagBaseAPIPort = "base-api-port"
	flagBasePort    = "base-port"
	flagMsgTimeout  = "message-timeout"
	flagMaxBuffered = "max-buffered-rounds"
)

var runCmd = &cobra.Command{
	Use:    "run",
	Short:  "Run a node",
	PreRun: bindFlags,
	Run: func(cmd *cobra.Command, args []string) {
		node.Run(readNodeConfig())
	},
}

func init() {
	runCmd.Flags().StringP(flagDataDir, "d", "", "data directory, in-memory storage when empty")
	runCmd.Flags().Int(flagNodeID, 0, "node id")
	runCmd.Flags().Int64(flagValue, 0, "initial value")
	runCmd.Flags().Bool(flagFaulty, false, "run as faulty node")
	runCmd.Flags().String(flagTransport, node.DefaultConfig.Transport, "message transport, http or p2p")
	runCmd.Flags().String(flagHost, node.DefaultConfig.Host, "host of the default peer endpoints")
	runCmd.Flags().Int(flagAPIPort, 0, "api port, base-api-port + id when zero")
	runCmd.Flags().IntP(flagPort, "p", 0, "p2p port, base-port + id when zero")
	runCmd.Flags().Int(flagBaseAPIPort, node.DefaultConfig.BaseAPIPort, "api port of node 0")
	runCmd.Flags().Int(flagBasePort, node.DefaultConfig.BasePort, "p2p port of node 0")
	runCmd.Flags().Duration(flagMsgTimeout, node.DefaultConfig.MessageTimeout, "timeout of outgoing http messages")
	runCmd.Flags().Int(flagMaxBuffered, consensus.DefaultConfig.MaxBufferedRounds, "future rounds kept in buffer")
}

func readNodeConfig() node.Config {
	cfg := node.DefaultConfig
	cfg.Debug = viper.GetBool(flagDebug)
	cfg.Datadir = viper.GetString(flagDataDir)
	cfg.Transport = viper.GetString(flagTransport)
	cfg.Host = viper.GetString(flagHost)
	cfg.APIPort = viper.GetInt(flagAPIPort)
	cfg.Port = viper.GetInt(flagPort)
	cfg.BaseAPIPort = viper.GetInt(flagBaseAPIPort)
	cfg.BasePort = viper.GetInt(flagBasePort)
	cfg.MessageTimeout = viper.GetDuration(flagMsgTimeout)

	cfg.ConsensusConfig.NodeID = viper.GetInt(flagNodeID)
	cfg.ConsensusConfig.NodeCount = viper.GetInt(flagNodeCount)
	cfg.ConsensusConfig.FaultyCount = viper.GetInt(flagFaultyCount)
	cfg.ConsensusConfig.Faulty = viper.GetBool(flagFaulty)
	cfg.ConsensusConfig.FaultMode = consensus.FaultMode(viper.GetString(flagFaultMode))
	cfg.ConsensusConfig.InitialValue = core.Value(viper.GetInt64(flagValue))
	cfg.ConsensusConfig.Seed = viper.GetInt64(flagSeed)
	cfg.ConsensusConfig.MaxBufferedRounds = viper.GetInt(flagMaxBuffered)
	return cfg
}
