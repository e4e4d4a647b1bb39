// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aungmawjj/benor/consensus"
	"github.com/aungmawjj/benor/core"
	"github.com/aungmawjj/benor/logger"
	"github.com/aungmawjj/benor/simulation"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	flagSimFaulty  = "faulty-nodes"
	flagSimDelay   = "max-delay"
	flagSimDupProb = "dup-prob"
	flagSimTimeout = "timeout"
)

var simulateCmd = &cobra.Command{
	Use:    "simulate",
	Short:  "Run an in-process cluster until every correct node decides",
	PreRun: bindFlags,
	Run: func(cmd *cobra.Command, args []string) {
		if !runSimulation(readSimulationConfig(), viper.GetDuration(flagSimTimeout)) {
			os.Exit(1)
		}
	},
}

func init() {
	simulateCmd.Flags().Int(flagSimFaulty, -1, "number of nodes running as faulty, faulty-count when negative")
	simulateCmd.Flags().Duration(flagSimDelay, time.Millisecond, "maximum delivery delay")
	simulateCmd.Flags().Float64(flagSimDupProb, 0, "probability of duplicating a message")
	simulateCmd.Flags().Duration(flagSimTimeout, 30*time.Second, "give up after this duration")
}

func readSimulationConfig() simulation.Config {
	cfg := simulation.DefaultConfig
	cfg.NodeCount = viper.GetInt(flagNodeCount)
	cfg.FaultyCount = viper.GetInt(flagFaultyCount)
	cfg.Faulty = viper.GetInt(flagSimFaulty)
	if cfg.Faulty < 0 {
		cfg.Faulty = cfg.FaultyCount
	}
	cfg.FaultMode = consensus.FaultMode(viper.GetString(flagFaultMode))
	cfg.Seed = viper.GetInt64(flagSeed)
	cfg.Network = simulation.NetworkConfig{
		MaxDelay: viper.GetDuration(flagSimDelay),
		DupProb:  viper.GetFloat64(flagSimDupProb),
		Seed:     cfg.Seed,
	}
	return cfg
}

func runSimulation(cfg simulation.Config, timeout time.Duration) bool {
	bold := color.New(color.Bold)
	boldGreen := color.New(color.Bold, color.FgGreen)
	boldRed := color.New(color.Bold, color.FgRed)

	level := zapcore.WarnLevel
	if viper.GetBool(flagDebug) {
		level = zapcore.DebugLevel
	}
	inst, err := logger.New(logger.Config{Level: level})
	check(err)
	logger.Set(inst)

	cls, err := simulation.NewCluster(cfg)
	if err != nil {
		boldRed.Printf("Setup cluster failed: %+v\n", err)
		return false
	}
	defer cls.Close()

	bold.Printf("Simulating n=%d f=%d faulty=%d mode=%s seed=%d\n",
		cfg.NodeCount, cfg.FaultyCount, cfg.Faulty, cfg.FaultMode, cfg.Seed)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	start := time.Now()
	runErr := cls.Run(ctx)
	elapsed := time.Since(start)

	for i, state := range cls.States() {
		printNodeState(cls, i, state)
	}
	fmt.Printf("Elapsed %s, delivered %d messages\n", elapsed.Round(time.Millisecond), cls.Network().Delivered())

	if runErr != nil {
		boldRed.Printf("FAIL %+v\n", runErr)
		return false
	}
	boldGreen.Println("PASS")
	return true
}

func printNodeState(cls *simulation.Cluster, i int, state consensus.Snapshot) {
	c := color.New(color.FgYellow)
	tag := "undecided"
	switch {
	case cls.IsFaulty(i):
		c, tag = color.New(color.FgRed), "faulty"
	case state.Killed:
		c, tag = color.New(color.FgRed), "killed"
	case state.IsDecided():
		c, tag = color.New(color.FgGreen), "decided"
	}
	c.Printf("  node %-3d %-9s initial=%d value=%s round=%d\n", i, tag,
		cls.InitialValue(i), core.FormatValue(state.Value), state.RoundOrZero())
}
