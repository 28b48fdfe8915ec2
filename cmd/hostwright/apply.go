package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hostwright/hostwright/internal/domain/execution"
	"github.com/hostwright/hostwright/internal/tui"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Provision the host to match the manifest",
	Long: `Apply executes the plan and makes changes to the host.

This command:
1. Creates an execution plan (same as 'plan')
2. Asks for confirmation unless --yes is set
3. Executes each step in dependency order
4. Records the run in the journal

Use --dry-run to walk the plan without making changes.`,
	RunE: runApply,
}

var (
	applyDryRun      bool
	applyStepTimeout time.Duration
)

// errStepsFailed signals that at least one step failed; the run itself
// completed and is journaled.
var errStepsFailed = errors.New("some steps failed")

// confirmPlan asks the operator to approve the plan, injectable for tests.
var confirmPlan = func(plan *execution.Plan) (bool, error) {
	return tui.Confirm(plan)
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "show what would be done without making changes")
	applyCmd.Flags().DurationVar(&applyStepTimeout, "step-timeout", 0, "per-step timeout (default 10m)")
}

func runApply(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hw := newClient(os.Stdout)

	m, err := hw.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	plan, err := hw.Plan(ctx, m)
	if err != nil {
		return fmt.Errorf("plan failed: %w", err)
	}

	hw.PrintPlan(plan)
	if !plan.HasChanges() {
		return nil
	}

	if !yesFlag && !applyDryRun {
		approved, err := confirmPlan(plan)
		if err != nil {
			return err
		}
		if !approved {
			fmt.Println("Aborted. The host was not changed.")
			return nil
		}
	}

	results, err := hw.Apply(ctx, plan, applyDryRun, applyStepTimeout)
	if err != nil {
		return fmt.Errorf("apply failed: %w", err)
	}

	if ok := hw.PrintResults(results); !ok {
		return errStepsFailed
	}
	if applyDryRun {
		fmt.Println("\n[Dry run - no changes made]")
	}
	return nil
}
