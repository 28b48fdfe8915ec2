package manifest

import "fmt"

// UserError is an operator-facing error with context and a suggestion.
// The CLI maps these to exit code 2 (invalid or missing argument).
type UserError struct {
	Message    string
	Context    string
	Suggestion string
	Underlying error
}

// Error implements the error interface.
func (e *UserError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s (at %s)", e.Message, e.Context)
	}
	return e.Message
}

// Unwrap returns the underlying technical error, if any.
func (e *UserError) Unwrap() error {
	return e.Underlying
}
