// Package facts probes and records observed host state.
// A Facts value is a read-only snapshot taken at planning time; probes
// never mutate the host and report "unknown" instead of failing when
// the tool they need is absent.
package facts

import (
	"sort"
	"time"
)

// State classifies an observed fact.
type State string

const (
	// StatePresent means the probed resource exists.
	StatePresent State = "present"
	// StateAbsent means the probed resource does not exist.
	StateAbsent State = "absent"
	// StateUnknown means the probe could not determine the state,
	// usually because the probing tool is not installed yet.
	StateUnknown State = "unknown"
)

// Fact is one observed key-value record of host state.
type Fact struct {
	State  State
	Detail string
}

// Facts is a snapshot of observed host state keyed by fact name
// (e.g. "package.mariadb-server", "mount./srv/data").
type Facts struct {
	values   map[string]Fact
	probedAt time.Time
}

// New creates an empty Facts snapshot stamped with the given time.
func New(probedAt time.Time) *Facts {
	return &Facts{
		values:   make(map[string]Fact),
		probedAt: probedAt,
	}
}

// ProbedAt returns when the snapshot was taken.
func (f *Facts) ProbedAt() time.Time {
	return f.probedAt
}

// Set records a fact.
func (f *Facts) Set(key string, fact Fact) {
	f.values[key] = fact
}

// Get returns the fact for a key. Missing keys report StateUnknown.
func (f *Facts) Get(key string) Fact {
	if fact, ok := f.values[key]; ok {
		return fact
	}
	return Fact{State: StateUnknown}
}

// Len returns the number of recorded facts.
func (f *Facts) Len() int {
	return len(f.values)
}

// Keys returns all fact keys in sorted order.
func (f *Facts) Keys() []string {
	keys := make([]string, 0, len(f.values))
	for k := range f.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
