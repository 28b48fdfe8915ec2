package apt

import (
	"fmt"
	"strings"

	"github.com/hostwright/hostwright/internal/domain/workflow"
	"github.com/hostwright/hostwright/internal/ports"
	"github.com/hostwright/hostwright/internal/validation"
)

// PackageStep installs a single apt package.
type PackageStep struct {
	pkg    string
	id     workflow.StepID
	runner ports.CommandRunner
}

// NewPackageStep creates a new PackageStep.
func NewPackageStep(pkg string, runner ports.CommandRunner) *PackageStep {
	return &PackageStep{
		pkg:    pkg,
		id:     StepIDFor(pkg),
		runner: runner,
	}
}

// ID returns the step identifier.
func (s *PackageStep) ID() workflow.StepID {
	return s.id
}

// DependsOn returns the step dependencies.
func (s *PackageStep) DependsOn() []workflow.StepID {
	return nil
}

// Description returns a human-readable summary.
func (s *PackageStep) Description() string {
	return fmt.Sprintf("Install the %s package via apt", s.pkg)
}

// Recovery returns the failure handling policy. Package installs are
// required; without them nothing downstream can work.
func (s *PackageStep) Recovery() workflow.Policy {
	return workflow.Abort()
}

// Check determines if the package is already installed.
func (s *PackageStep) Check(ctx workflow.RunContext) (workflow.StepStatus, error) {
	if !s.runner.LookPath("dpkg-query") {
		// Not a Debian-family host, or dpkg is genuinely broken.
		return workflow.StatusUnknown, nil
	}

	result, err := s.runner.Run(ctx.Context(), "dpkg-query", "-W", "-f=${db:Status-Status}", s.pkg)
	if err != nil {
		return workflow.StatusUnknown, err
	}

	// dpkg-query exits 1 when the package is not known.
	if !result.Success() {
		return workflow.StatusNeedsApply, nil
	}
	if strings.TrimSpace(result.Stdout) == "installed" {
		return workflow.StatusSatisfied, nil
	}
	return workflow.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *PackageStep) Plan(_ workflow.RunContext) (workflow.Diff, error) {
	return workflow.NewDiff(workflow.DiffTypeAdd, "package", s.pkg, "", "latest"), nil
}

// Apply installs the package.
func (s *PackageStep) Apply(ctx workflow.RunContext) error {
	// Validate package name before execution to prevent command injection
	if err := validation.ValidatePackageName(s.pkg); err != nil {
		return fmt.Errorf("invalid package name: %w", err)
	}

	result, err := s.runner.Run(ctx.Context(), "sudo",
		"DEBIAN_FRONTEND=noninteractive", "apt-get", "install", "-y", s.pkg)
	if err != nil {
		return err
	}
	if !result.Success() {
		return workflow.ActionFailed("apt-get install "+s.pkg, result.Stderr)
	}
	return nil
}
