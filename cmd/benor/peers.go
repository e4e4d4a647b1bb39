// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package main

import (
	"fmt"

	"github.com/aungmawjj/benor/node"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var peersCmd = &cobra.Command{
	Use:    "peers",
	Short:  "Write peers.json of a local network into the data directory",
	PreRun: bindFlags,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := node.DefaultConfig
		cfg.Host = viper.GetString(flagHost)
		cfg.BaseAPIPort = viper.GetInt(flagBaseAPIPort)
		cfg.BasePort = viper.GetInt(flagBasePort)
		cfg.ConsensusConfig.NodeCount = viper.GetInt(flagNodeCount)

		datadir := viper.GetString(flagDataDir)
		check(node.WritePeers(datadir, node.DefaultPeers(cfg)))
		fmt.Printf("Wrote %d peers into %s\n", cfg.ConsensusConfig.NodeCount, datadir)
	},
}

func init() {
	peersCmd.Flags().StringP(flagDataDir, "d", "", "data directory")
	peersCmd.MarkFlagRequired(flagDataDir)
	peersCmd.Flags().String(flagHost, node.DefaultConfig.Host, "host of the peers")
	peersCmd.Flags().Int(flagBaseAPIPort, node.DefaultConfig.BaseAPIPort, "api port of node 0")
	peersCmd.Flags().Int(flagBasePort, node.DefaultConfig.BasePort, "p2p port of node 0")
}
