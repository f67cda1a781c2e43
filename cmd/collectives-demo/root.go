package main

import (
	"github.com/spf13/cobra"
)

// NewRootCommand assembles the collectives-demo CLI: one subcommand per
// collective pattern, each sharing the --config/--rank/--root/--uniqtag
// plumbing in run.go.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "collectives-demo",
		Short: "Drive a collective communication pattern over an mTLS cluster",
	}

	root.AddCommand(
		newBroadcastCommand(),
		newScatterCommand(),
		newGatherCommand(),
		newAllGatherCommand(),
		newAllToAllCommand(),
		newFanInCommand(),
		newFanOutCommand(),
		newGenCertsCommand(),
	)

	return root
}
