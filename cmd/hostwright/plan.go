package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what apply would change without touching the host",
	Long: `Plan checks every step against the host and prints the ones that
would run. Steps whose postconditions already hold are listed as
satisfied and will not be executed.

Plan is read-only: it probes but never changes the host.`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(_ *cobra.Command, _ []string) error {
	hw := newClient(os.Stdout)

	m, err := hw.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	plan, err := hw.Plan(context.Background(), m)
	if err != nil {
		return fmt.Errorf("plan failed: %w", err)
	}

	hw.PrintPlan(plan)
	return nil
}
