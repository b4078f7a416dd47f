package main

import (
	"github.com/spf13/cobra"

	"github.com/vibeoracle/bridge-node/config"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vibebridged",
		Short: "Sentiment Oracle Bridge Daemon",
	}

	rootCmd.PersistentFlags().String(flagHome, config.DefaultBridgeHome, "bridge home directory")

	InitRootCmd(rootCmd) // add subcommands like `start` and `diagnose`

	return rootCmd
}
