package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// serverCmd keeps the process alive with every component running
// (session cleanup loop, resource monitor sampling) until it receives
// SIGTERM or SIGINT. The RPC transport that would drive capture/query
// calls against theApp from another process is an external collaborator
// per §6 and is not implemented here.
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the memory engine as a long-lived process",
	RunE: func(cmd *cobra.Command, args []string) error {
		theApp.Logger.Info("memoryd server starting, db=%s", theApp.Config.DBPath)

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

		sig := <-sigs
		theApp.Logger.Info("memoryd server received %s, shutting down", sig)
		fmt.Fprintln(os.Stderr, "shutting down")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
