package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hostwright/hostwright/internal/adapters/logging"
	"github.com/hostwright/hostwright/internal/domain/workflow"
	"github.com/hostwright/hostwright/internal/ports"
)

// DefaultStepTimeout bounds a single apply attempt when the step's
// recovery policy does not set its own timeout. Package installs on a
// cold apt cache can legitimately take minutes.
const DefaultStepTimeout = 10 * time.Minute

// Executor runs plan entries sequentially in dependency order.
//
// Every entry produces exactly one StepResult, including entries that
// were already satisfied or skipped after an abort, so a run's journal
// record always covers the full plan.
type Executor struct {
	dryRun         bool
	defaultTimeout time.Duration
	logger         ports.Logger

	// sleep is swapped out in tests so retry backoff does not wait.
	sleep func(time.Duration)
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithDryRun enables dry-run mode: no Apply is invoked.
func WithDryRun(dryRun bool) ExecutorOption {
	return func(e *Executor) {
		e.dryRun = dryRun
	}
}

// WithLogger sets the logger used for per-step progress.
func WithLogger(logger ports.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithDefaultTimeout overrides the per-attempt timeout used when a
// step's policy does not set one.
func WithDefaultTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.defaultTimeout = timeout
	}
}

// NewExecutor creates a new Executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		defaultTimeout: DefaultStepTimeout,
		logger:         logging.NewNopLogger(),
		sleep:          time.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs all entries in the plan and returns one result per entry.
//
// A step whose dependency failed is skipped. A step that exhausts its
// recovery policy either aborts the run (remaining entries are recorded
// as skipped) or is skipped with a warning, depending on the policy.
func (e *Executor) Execute(ctx context.Context, plan *Plan) ([]StepResult, error) {
	entries := plan.Entries()
	results := make([]StepResult, 0, len(entries))
	failed := make(map[workflow.StepID]bool)

	for i, entry := range entries {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		result := e.executeEntry(ctx, entry, failed)
		results = append(results, result)

		switch result.Status() {
		case workflow.StatusFailed:
			failed[entry.Step().ID()] = true

			if entry.Step().Recovery().OnExhausted == workflow.FailureAbort {
				e.logger.Error(ctx, "step failed, aborting run",
					ports.F("step", entry.Step().ID().String()),
					ports.F("error", result.Error().Error()))
				results = append(results, e.skipRemaining(entries[i+1:], entry.Step().ID())...)
				return results, nil
			}
		case workflow.StatusSkipped:
			// A skipped step never ran, so its dependents cannot run
			// either. This covers skip-policy failures and makes
			// dependency skips transitive.
			failed[entry.Step().ID()] = true
		}
	}

	return results, nil
}

// executeEntry runs a single plan entry through its recovery policy.
func (e *Executor) executeEntry(ctx context.Context, entry PlanEntry, failed map[workflow.StepID]bool) StepResult {
	step := entry.Step()
	start := time.Now()

	for _, dep := range step.DependsOn() {
		if failed[dep] {
			e.logger.Warn(ctx, "skipping step, dependency failed",
				ports.F("step", step.ID().String()),
				ports.F("dependency", dep.String()))
			err := fmt.Errorf("dependency %q failed", dep.String())
			return NewStepResult(step.ID(), workflow.StatusSkipped, err).
				WithDuration(time.Since(start))
		}
	}

	if entry.Status() == workflow.StatusSatisfied {
		return NewStepResult(step.ID(), workflow.StatusSatisfied, nil).
			WithDuration(time.Since(start))
	}

	if e.dryRun {
		e.logger.Info(ctx, "dry-run: would apply",
			ports.F("step", step.ID().String()),
			ports.F("diff", entry.Diff().Summary()))
		return NewStepResult(step.ID(), entry.Status(), nil).
			WithDiff(entry.Diff()).
			WithDuration(time.Since(start))
	}

	runCtx := workflow.NewRunContext(ctx)

	// The plan may be stale by the time this entry runs; an earlier
	// step can have satisfied it (apt pulls in dependencies). Re-check
	// so satisfied steps cause zero side effects.
	status, err := step.Check(runCtx)
	if err == nil && status == workflow.StatusSatisfied {
		e.logger.Debug(ctx, "step already satisfied, skipping apply",
			ports.F("step", step.ID().String()))
		return NewStepResult(step.ID(), workflow.StatusSatisfied, nil).
			WithDuration(time.Since(start))
	}

	result := e.applyWithRecovery(ctx, step, entry.Diff())
	return result.WithDuration(time.Since(start))
}

// applyWithRecovery applies a step under its recovery policy: bounded
// attempts with doubling backoff, then the policy's exhaustion action.
func (e *Executor) applyWithRecovery(ctx context.Context, step workflow.Step, diff workflow.Diff) StepResult {
	policy := step.Recovery()
	timeout := policy.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}

	var lastErr error
	attempts := 0

	for attempt := 0; attempt < policy.Attempts(); attempt++ {
		if attempt > 0 {
			backoff := policy.Backoff << (attempt - 1)
			e.logger.Warn(ctx, "retrying step",
				ports.F("step", step.ID().String()),
				ports.F("attempt", attempt+1),
				ports.F("backoff", backoff.String()),
				ports.F("error", lastErr.Error()))
			e.sleep(backoff)
		}

		attempts++
		lastErr = e.applyOnce(ctx, step, timeout)
		if lastErr == nil {
			e.logger.Info(ctx, "step applied",
				ports.F("step", step.ID().String()),
				ports.F("diff", diff.Summary()))
			return NewStepResult(step.ID(), workflow.StatusSatisfied, nil).
				WithDiff(diff).
				WithApplied(true).
				WithAttempts(attempts)
		}

		// A missing required tool will not appear between attempts.
		if errors.Is(lastErr, workflow.ErrFatalDependency) {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	if policy.OnExhausted == workflow.FailureSkip {
		e.logger.Warn(ctx, "step failed, continuing without it",
			ports.F("step", step.ID().String()),
			ports.F("attempts", attempts),
			ports.F("error", lastErr.Error()))
		return NewStepResult(step.ID(), workflow.StatusSkipped, lastErr).
			WithDiff(diff).
			WithAttempts(attempts)
	}

	return NewStepResult(step.ID(), workflow.StatusFailed, lastErr).
		WithDiff(diff).
		WithAttempts(attempts)
}

// applyOnce performs one bounded apply attempt and verifies the
// step's condition afterwards.
func (e *Executor) applyOnce(ctx context.Context, step workflow.Step, timeout time.Duration) error {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runCtx := workflow.NewRunContext(attemptCtx)

	if err := step.Apply(runCtx); err != nil {
		return err
	}

	// The action reporting success is not proof the condition holds.
	status, err := step.Check(runCtx)
	if err != nil {
		return fmt.Errorf("%w: verification check errored: %v", workflow.ErrPostconditionUnmet, err)
	}
	if status != workflow.StatusSatisfied {
		return fmt.Errorf("%w: status after apply is %s", workflow.ErrPostconditionUnmet, status)
	}
	return nil
}

// skipRemaining produces skipped results for entries after an abort.
func (e *Executor) skipRemaining(entries []PlanEntry, cause workflow.StepID) []StepResult {
	results := make([]StepResult, 0, len(entries))
	for _, entry := range entries {
		err := fmt.Errorf("run aborted after %q failed", cause.String())
		results = append(results, NewStepResult(entry.Step().ID(), workflow.StatusSkipped, err))
	}
	return results
}
