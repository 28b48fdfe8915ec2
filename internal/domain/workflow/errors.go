package workflow

import (
	"errors"
	"fmt"
)

// Failure taxonomy for step execution.
var (
	// ErrActionFailed marks an external command that exited non-zero.
	ErrActionFailed = errors.New("action failed")
	// ErrPostconditionUnmet marks a step whose action reported success
	// but whose re-checked precondition is still not satisfied. Several
	// install tools report success while leaving required files absent.
	ErrPostconditionUnmet = errors.New("postcondition not met after apply")
	// ErrFatalDependency marks a required external tool that is absent
	// and cannot be installed by the plan. Never retried.
	ErrFatalDependency = errors.New("required external tool missing")
)

// FatalDependency wraps ErrFatalDependency with the missing tool's name.
func FatalDependency(tool string) error {
	return fmt.Errorf("%w: %s", ErrFatalDependency, tool)
}

// ActionFailed wraps ErrActionFailed with the command and its captured output.
func ActionFailed(command, output string) error {
	return fmt.Errorf("%w: %s: %s", ErrActionFailed, command, output)
}
