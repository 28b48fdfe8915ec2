// Package compose brings up the container-management stack.
package compose

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/hostwright/hostwright/internal/domain/manifest"
	"github.com/hostwright/hostwright/internal/domain/workflow"
	"github.com/hostwright/hostwright/internal/ports"
	"github.com/hostwright/hostwright/internal/provider/apt"
)

// StepID identifies the stack step.
var StepID = workflow.MustNewStepID("compose:up:management")

// MinComposeVersion is the lowest supported compose plugin version.
// The v1 python binary takes different flags and is long unsupported.
const MinComposeVersion = "v2.0.0"

// Provider compiles the stack section into a compose step. Nothing is
// emitted when the stack is disabled.
type Provider struct {
	runner ports.CommandRunner
	fs     ports.FileSystem
}

// NewProvider creates a new compose Provider.
func NewProvider(runner ports.CommandRunner, fs ports.FileSystem) *Provider {
	return &Provider{runner: runner, fs: fs}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "compose"
}

// Compile transforms the stack configuration into steps.
func (p *Provider) Compile(m *manifest.Manifest) ([]workflow.Step, error) {
	if !m.Stack.Enabled {
		return nil, nil
	}
	return []workflow.Step{NewUpStep(m.Stack.ComposeFile, p.runner, p.fs)}, nil
}

// Ensure Provider implements workflow.Provider.
var _ workflow.Provider = (*Provider)(nil)

// UpStep starts the management stack with docker compose.
type UpStep struct {
	composeFile string
	runner      ports.CommandRunner
	fs          ports.FileSystem
}

// NewUpStep creates a new UpStep.
func NewUpStep(composeFile string, runner ports.CommandRunner, fs ports.FileSystem) *UpStep {
	return &UpStep{
		composeFile: composeFile,
		runner:      runner,
		fs:          fs,
	}
}

// ID returns the step identifier.
func (s *UpStep) ID() workflow.StepID {
	return StepID
}

// DependsOn returns the step dependencies.
func (s *UpStep) DependsOn() []workflow.StepID {
	return []workflow.StepID{
		apt.StepIDFor("docker.io"),
		apt.StepIDFor("docker-compose-plugin"),
	}
}

// Description returns a human-readable summary.
func (s *UpStep) Description() string {
	return fmt.Sprintf("Start the management stack from %s", s.composeFile)
}

// Recovery returns the failure handling policy. The stack is an
// operator convenience; the file server works without it.
func (s *UpStep) Recovery() workflow.Policy {
	return workflow.Skip()
}

// composeVersion returns the plugin version as a semver string
// ("v2.27.0"), or "" when it cannot be determined.
func (s *UpStep) composeVersion(ctx workflow.RunContext) string {
	result, err := s.runner.Run(ctx.Context(), "docker", "compose", "version", "--short")
	if err != nil || !result.Success() {
		return ""
	}
	version := strings.TrimSpace(result.Stdout)
	if version == "" {
		return ""
	}
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	if !semver.IsValid(version) {
		return ""
	}
	return version
}

// Check reports whether the stack's containers are already running.
func (s *UpStep) Check(ctx workflow.RunContext) (workflow.StepStatus, error) {
	if !s.runner.LookPath("docker") {
		return workflow.StatusUnknown, nil
	}

	result, err := s.runner.Run(ctx.Context(), "docker", "compose",
		"-f", s.composeFile, "ps", "--status", "running", "--quiet")
	if err != nil {
		return workflow.StatusUnknown, err
	}
	if result.Success() && strings.TrimSpace(result.Stdout) != "" {
		return workflow.StatusSatisfied, nil
	}
	return workflow.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *UpStep) Plan(_ workflow.RunContext) (workflow.Diff, error) {
	return workflow.NewDiff(workflow.DiffTypeAdd, "stack", s.composeFile, "", "up"), nil
}

// Apply starts the stack.
func (s *UpStep) Apply(ctx workflow.RunContext) error {
	if !s.runner.LookPath("docker") {
		return workflow.FatalDependency("docker")
	}
	if !s.fs.Exists(s.composeFile) {
		return workflow.FatalDependency("compose file at " + s.composeFile)
	}

	version := s.composeVersion(ctx)
	if version == "" || semver.Compare(version, MinComposeVersion) < 0 {
		return workflow.FatalDependency("docker compose " + MinComposeVersion + " or newer")
	}

	result, err := s.runner.Run(ctx.Context(), "docker", "compose",
		"-f", s.composeFile, "up", "-d")
	if err != nil {
		return err
	}
	if !result.Success() {
		return workflow.ActionFailed("docker compose up", result.Stderr)
	}
	return nil
}
