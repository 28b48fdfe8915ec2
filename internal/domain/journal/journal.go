// Package journal records what each provisioning run did to the host.
//
// The journal is an append-only audit trail: one Run per invocation,
// one StepRecord per planned step, including steps that were skipped
// because their precondition already held. It is never consulted to
// decide whether a step runs; the host itself is the source of truth.
package journal

import (
	"time"

	"github.com/google/uuid"

	"github.com/hostwright/hostwright/internal/domain/execution"
	"github.com/hostwright/hostwright/internal/domain/workflow"
)

// Outcome is the journal's view of what happened to a step.
type Outcome string

const (
	// OutcomeApplied records that the step's action ran and succeeded.
	OutcomeApplied Outcome = "applied"
	// OutcomeSkipped records that the action did not run: the
	// precondition already held, a dependency failed, or the skip
	// recovery policy fired.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed records that the action failed after exhausting
	// its recovery policy.
	OutcomeFailed Outcome = "failed"
)

// StepRecord is the journal entry for a single step.
type StepRecord struct {
	ID         string  `yaml:"id"`
	Outcome    Outcome `yaml:"outcome"`
	Message    string  `yaml:"message,omitempty"`
	DurationMS int64   `yaml:"duration_ms"`
	Attempts   int     `yaml:"attempts,omitempty"`
}

// Run is the journal entry for one invocation.
type Run struct {
	ID         string    `yaml:"id"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`
	Success    bool      `yaml:"success"`
	DryRun     bool      `yaml:"dry_run,omitempty"`

	// CredentialsFingerprint is a bcrypt hash over the generated
	// credentials, letting an operator confirm which secrets file a
	// run produced without the journal holding any secret material.
	CredentialsFingerprint string `yaml:"credentials_fingerprint,omitempty"`

	Steps []StepRecord `yaml:"steps"`
}

// Log is the full journal: every recorded run, oldest first.
type Log struct {
	Runs []Run `yaml:"runs"`
}

// Repository persists the journal.
type Repository interface {
	// Load reads the journal. A missing journal is an empty Log.
	Load() (Log, error)
	// Append adds a run to the journal and persists it.
	Append(run Run) error
}

// NewRun creates a Run with a fresh identifier.
func NewRun(startedAt time.Time) Run {
	return Run{
		ID:        uuid.NewString(),
		StartedAt: startedAt,
	}
}

// RecordResults converts executor results into step records and marks
// the run's overall success. A run succeeds when no step failed.
func (r *Run) RecordResults(results []execution.StepResult) {
	r.Success = true
	for _, result := range results {
		record := recordFor(result)
		if record.Outcome == OutcomeFailed {
			r.Success = false
		}
		r.Steps = append(r.Steps, record)
	}
}

// Finish stamps the run's end time.
func (r *Run) Finish(at time.Time) {
	r.FinishedAt = at
}

func recordFor(result execution.StepResult) StepRecord {
	record := StepRecord{
		ID:         result.StepID().String(),
		DurationMS: result.Duration().Milliseconds(),
		Attempts:   result.Attempts(),
	}
	if result.Error() != nil {
		record.Message = result.Error().Error()
	}

	switch {
	case result.Status() == workflow.StatusFailed:
		record.Outcome = OutcomeFailed
	case result.Status() == workflow.StatusSkipped:
		record.Outcome = OutcomeSkipped
	case result.Success() && result.Applied():
		record.Outcome = OutcomeApplied
	case result.Success():
		record.Outcome = OutcomeSkipped
		if record.Message == "" {
			record.Message = "precondition already satisfied"
		}
	default:
		// Dry-run entries keep their planned status as the message.
		record.Outcome = OutcomeSkipped
		record.Message = "planned: " + result.Status().String()
	}
	return record
}
