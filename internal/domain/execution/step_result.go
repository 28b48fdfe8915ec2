// Package execution handles step ordering and runtime execution.
package execution

import (
	"time"

	"github.com/hostwright/hostwright/internal/domain/workflow"
)

// StepResult captures the outcome of executing a single step.
type StepResult struct {
	stepID   workflow.StepID
	status   workflow.StepStatus
	err      error
	duration time.Duration
	diff     workflow.Diff
	applied  bool
	attempts int
}

// NewStepResult creates a new StepResult.
func NewStepResult(stepID workflow.StepID, status workflow.StepStatus, err error) StepResult {
	return StepResult{
		stepID: stepID,
		status: status,
		err:    err,
	}
}

// StepID returns the ID of the step that was executed.
func (r StepResult) StepID() workflow.StepID {
	return r.stepID
}

// Status returns the final status of the step.
func (r StepResult) Status() workflow.StepStatus {
	return r.status
}

// Error returns any error that occurred during execution.
func (r StepResult) Error() error {
	return r.err
}

// Duration returns how long the step took to execute.
func (r StepResult) Duration() time.Duration {
	return r.duration
}

// Diff returns the diff that was applied (if any).
func (r StepResult) Diff() workflow.Diff {
	return r.diff
}

// Applied returns true if the step's action actually ran and succeeded,
// as opposed to the precondition already being satisfied.
func (r StepResult) Applied() bool {
	return r.applied
}

// Attempts returns how many times the action was attempted.
func (r StepResult) Attempts() int {
	return r.attempts
}

// Success returns true if the step completed successfully.
func (r StepResult) Success() bool {
	return r.status == workflow.StatusSatisfied
}

// Skipped returns true if the step was skipped.
func (r StepResult) Skipped() bool {
	return r.status == workflow.StatusSkipped
}

// WithDuration returns a new StepResult with duration set.
func (r StepResult) WithDuration(d time.Duration) StepResult {
	r.duration = d
	return r
}

// WithDiff returns a new StepResult with diff set.
func (r StepResult) WithDiff(d workflow.Diff) StepResult {
	r.diff = d
	return r
}

// WithApplied returns a new StepResult with the applied flag set.
func (r StepResult) WithApplied(applied bool) StepResult {
	r.applied = applied
	return r
}

// WithAttempts returns a new StepResult with the attempt count set.
func (r StepResult) WithAttempts(attempts int) StepResult {
	r.attempts = attempts
	return r
}
