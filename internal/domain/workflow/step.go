// Package workflow defines the idempotent step model for host provisioning.
// Providers compile the desired manifest into steps; the execution package
// orders and runs them.
package workflow

// Step represents an idempotent unit of provisioning work.
// Each step can check the host's current state, describe the change it
// would make, and apply it. Re-running a step whose precondition is
// already satisfied must be a no-op.
type Step interface {
	// ID returns the unique identifier for this step.
	ID() StepID

	// DependsOn returns the IDs of steps that must complete before this one.
	DependsOn() []StepID

	// Description returns a short operator-facing summary of the step.
	Description() string

	// Check probes the host and determines the step's current status.
	// It must never mutate host state. If the tool needed for the probe
	// is not available yet, Check returns StatusUnknown rather than an error.
	Check(ctx RunContext) (StepStatus, error)

	// Plan returns the diff describing what changes this step will make.
	Plan(ctx RunContext) (Diff, error)

	// Apply executes the step's changes. Apply is idempotent: running it
	// multiple times produces the same host state.
	Apply(ctx RunContext) error

	// Recovery returns the policy applied when this step fails.
	Recovery() Policy
}
