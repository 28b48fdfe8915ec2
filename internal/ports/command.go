// Package ports defines interfaces for external dependencies.
package ports

import (
	"context"
)

// CommandResult represents the result of executing an external command.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success returns true if the command exited with code 0.
func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// CommandCall records a command invocation.
type CommandCall struct {
	Command string
	Args    []string
}

// CommandRunner executes external commands.
// Provisioning steps never shell out directly; everything goes through
// this port so tests can observe and fake side effects.
type CommandRunner interface {
	Run(ctx context.Context, command string, args ...string) (CommandResult, error)

	// LookPath reports whether the named tool is available on PATH.
	// Probes use this to report "unknown" instead of failing when a
	// tool has not been installed yet.
	LookPath(name string) bool
}
