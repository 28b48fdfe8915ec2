package workflow

// StepStatus represents the current state of a step.
type StepStatus string

const (
	// StatusSatisfied indicates the step's precondition is already met.
	StatusSatisfied StepStatus = "satisfied"
	// StatusNeedsApply indicates the step needs to be applied.
	StatusNeedsApply StepStatus = "needs-apply"
	// StatusUnknown indicates the host state could not be determined,
	// usually because the probing tool is not installed yet. Unknown
	// steps are still attempted (the apply path re-checks).
	StatusUnknown StepStatus = "unknown"
	// StatusFailed indicates the step failed during apply or verification.
	StatusFailed StepStatus = "failed"
	// StatusSkipped indicates the step was not attempted (a dependency
	// failed, a run was aborted, or the skip recovery policy fired).
	StatusSkipped StepStatus = "skipped"
)

// String returns the string representation of the status.
func (s StepStatus) String() string {
	return string(s)
}

// NeedsAction returns true if this status requires execution or attention.
func (s StepStatus) NeedsAction() bool {
	switch s {
	case StatusNeedsApply, StatusUnknown, StatusFailed:
		return true
	case StatusSatisfied, StatusSkipped:
		return false
	}
	return false
}

// IsTerminal returns true if this status represents a final state.
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StatusSatisfied, StatusFailed, StatusSkipped:
		return true
	case StatusNeedsApply, StatusUnknown:
		return false
	}
	return false
}
