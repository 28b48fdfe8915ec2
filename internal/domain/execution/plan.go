package execution

import (
	"github.com/hostwright/hostwright/internal/domain/workflow"
)

// PlanEntry represents a single step's planned execution.
type PlanEntry struct {
	step   workflow.Step
	status workflow.StepStatus
	diff   workflow.Diff
}

// NewPlanEntry creates a new PlanEntry.
func NewPlanEntry(step workflow.Step, status workflow.StepStatus, diff workflow.Diff) PlanEntry {
	return PlanEntry{
		step:   step,
		status: status,
		diff:   diff,
	}
}

// Step returns the step to be executed.
func (e PlanEntry) Step() workflow.Step {
	return e.step
}

// Status returns the current status of the step.
func (e PlanEntry) Status() workflow.StepStatus {
	return e.status
}

// Diff returns the planned changes.
func (e PlanEntry) Diff() workflow.Diff {
	return e.diff
}

// PlanSummary provides aggregate statistics about the execution plan.
type PlanSummary struct {
	Total      int
	NeedsApply int
	Satisfied  int
	Unknown    int
	Failed     int
	Skipped    int
}

// Plan represents the full plan for executing all steps.
// Satisfied steps stay in the plan (reported as already satisfied, not
// omitted) so the journal holds a complete audit trail.
type Plan struct {
	entries []PlanEntry
}

// NewExecutionPlan creates an empty Plan.
func NewExecutionPlan() *Plan {
	return &Plan{
		entries: make([]PlanEntry, 0),
	}
}

// Add appends a plan entry.
func (p *Plan) Add(entry PlanEntry) {
	p.entries = append(p.entries, entry)
}

// Len returns the number of entries.
func (p *Plan) Len() int {
	return len(p.entries)
}

// IsEmpty returns true if there are no entries.
func (p *Plan) IsEmpty() bool {
	return len(p.entries) == 0
}

// Entries returns all plan entries.
func (p *Plan) Entries() []PlanEntry {
	return p.entries
}

// NeedsApply returns entries that require execution.
func (p *Plan) NeedsApply() []PlanEntry {
	result := make([]PlanEntry, 0)
	for _, e := range p.entries {
		if e.status == workflow.StatusNeedsApply || e.status == workflow.StatusUnknown {
			result = append(result, e)
		}
	}
	return result
}

// HasChanges returns true if any steps need to be applied.
// Unknown steps count: their state could not be determined, so they
// are attempted (the executor re-checks before acting).
func (p *Plan) HasChanges() bool {
	for _, e := range p.entries {
		if e.status == workflow.StatusNeedsApply || e.status == workflow.StatusUnknown {
			return true
		}
	}
	return false
}

// Summary returns aggregate statistics.
func (p *Plan) Summary() PlanSummary {
	summary := PlanSummary{Total: len(p.entries)}
	for _, e := range p.entries {
		switch e.status {
		case workflow.StatusNeedsApply:
			summary.NeedsApply++
		case workflow.StatusSatisfied:
			summary.Satisfied++
		case workflow.StatusUnknown:
			summary.Unknown++
		case workflow.StatusFailed:
			summary.Failed++
		case workflow.StatusSkipped:
			summary.Skipped++
		}
	}
	return summary
}
