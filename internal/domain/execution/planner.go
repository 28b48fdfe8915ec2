package execution

import (
	"context"
	"fmt"

	"github.com/hostwright/hostwright/internal/domain/workflow"
)

// Planner generates an execution Plan from a StepGraph.
// It checks each step's precondition against the host and plans the
// necessary changes. Planning never mutates host state.
type Planner struct{}

// NewPlanner creates a new Planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan generates a Plan by checking each step's status.
// Steps are returned in dependency order with declaration-order
// tie-breaking, so planning the same graph twice yields the same plan.
func (p *Planner) Plan(ctx context.Context, graph *workflow.StepGraph) (*Plan, error) {
	plan := NewExecutionPlan()

	steps, err := graph.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("failed to sort steps: %w", err)
	}

	runCtx := workflow.NewRunContext(ctx)

	for _, step := range steps {
		entry, err := p.planStep(step, runCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to plan step %q: %w", step.ID().String(), err)
		}
		plan.Add(entry)
	}

	return plan, nil
}

// planStep checks a single step and generates a PlanEntry.
func (p *Planner) planStep(step workflow.Step, ctx workflow.RunContext) (PlanEntry, error) {
	status, err := step.Check(ctx)
	if err != nil {
		return PlanEntry{}, fmt.Errorf("check failed: %w", err)
	}

	var diff workflow.Diff

	// Unknown state is planned conservatively: the step is attempted.
	if status == workflow.StatusNeedsApply || status == workflow.StatusUnknown {
		diff, err = step.Plan(ctx)
		if err != nil {
			return PlanEntry{}, fmt.Errorf("plan failed: %w", err)
		}
	}

	return NewPlanEntry(step, status, diff), nil
}
