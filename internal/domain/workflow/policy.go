package workflow

import "time"

// FailureAction determines what happens once a step's retries are exhausted.
type FailureAction string

const (
	// FailureAbort halts the whole run. Used for required steps
	// (package installs, filesystem mounts, database setup).
	FailureAbort FailureAction = "abort"
	// FailureSkip logs a warning and continues with the remaining steps.
	// Used for optional enhancements such as TLS issuance.
	FailureSkip FailureAction = "skip"
)

// Policy declares how a step's failures are handled.
type Policy struct {
	// Retries is the number of additional attempts after the first failure.
	Retries int
	// Backoff is the wait before the first retry; it doubles per attempt.
	Backoff time.Duration
	// OnExhausted is applied once all attempts have failed.
	OnExhausted FailureAction
	// Timeout bounds each attempt. Zero means the executor default.
	Timeout time.Duration
}

// Abort returns a policy that halts the run on the first failure.
func Abort() Policy {
	return Policy{OnExhausted: FailureAbort}
}

// Skip returns a policy that warns and continues on the first failure.
func Skip() Policy {
	return Policy{OnExhausted: FailureSkip}
}

// RetryThenAbort returns a policy that retries n times with backoff and
// halts the run if all attempts fail.
func RetryThenAbort(n int, backoff time.Duration) Policy {
	return Policy{Retries: n, Backoff: backoff, OnExhausted: FailureAbort}
}

// RetryThenSkip returns a policy that retries n times with backoff and
// continues with a warning if all attempts fail.
func RetryThenSkip(n int, backoff time.Duration) Policy {
	return Policy{Retries: n, Backoff: backoff, OnExhausted: FailureSkip}
}

// WithTimeout returns a copy of the policy with a per-attempt timeout.
func (p Policy) WithTimeout(timeout time.Duration) Policy {
	p.Timeout = timeout
	return p
}

// Attempts returns the total number of attempts the policy allows.
func (p Policy) Attempts() int {
	if p.Retries < 0 {
		return 1
	}
	return p.Retries + 1
}
