package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "diun2homer",
		Short: "Bridge Diun webhook notifications to Homer messages",
		Long: `diun2homer receives image update notifications from Diun, stores them and
serves them in the format Homer's message block expects.

Running diun2homer without a subcommand starts the server.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newHealthcheckCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
