package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var factsCmd = &cobra.Command{
	Use:   "facts",
	Short: "Probe the host and show its current state",
	Long: `Facts probes the host for everything the manifest cares about:
installed packages, running services, databases, mounts, and the web
application itself. It is read-only and never changes the host.`,
	RunE: runFacts,
}

func init() {
	rootCmd.AddCommand(factsCmd)
}

func runFacts(_ *cobra.Command, _ []string) error {
	hw := newClient(os.Stdout)

	m, err := hw.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	hw.PrintFacts(hw.Facts(context.Background(), m))
	return nil
}
