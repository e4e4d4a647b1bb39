// Copyright (C) 2021 Aung Maw
// Licensed under the GNU General Public License v3.0

package main

import (
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagConfig = "config"
	flagDebug  = "debug"

	flagNodeCount   = "nodes"
	flagFaultyCount = "faulty-count"
	flagFaultMode   = "fault-mode"
	flagSeed        = "seed"
)

var rootCmd = &cobra.Command{
	Use:   "benor",
	Short: "Ben-Or consensus node",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initConfig()
	},
}

func main() {
	check(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().String(flagConfig, "", "yaml config file")
	rootCmd.PersistentFlags().Bool(flagDebug, false, "debug mode")
	rootCmd.PersistentFlags().IntP(flagNodeCount, "n", 4, "number of nodes")
	rootCmd.PersistentFlags().IntP(flagFaultyCount, "f", 1, "number of faulty nodes tolerated")
	rootCmd.PersistentFlags().String(flagFaultMode, "silent", "faulty behavior, silent or equivocate")
	rootCmd.PersistentFlags().Int64(flagSeed, 0, "base seed of the coins")
	check(viper.BindPFlags(rootCmd.PersistentFlags()))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(peersCmd)
}

// initConfig reads the optional config file and BENOR_ env vars
func initConfig() {
	viper.SetEnvPrefix("benor")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if file := viper.GetString(flagConfig); file != "" {
		viper.SetConfigFile(file)
		check(viper.ReadInConfig())
	}
}

func check(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

// bindFlags binds the flags of the command being run, subcommands share flag names
func bindFlags(cmd *cobra.Command, args []string) {
	check(viper.BindPFlags(cmd.Flags()))
}
