// Package webapp installs the file-sharing web application.
package webapp

import (
	"fmt"
	"path/filepath"

	"github.com/hostwright/hostwright/internal/domain/manifest"
	"github.com/hostwright/hostwright/internal/domain/secrets"
	"github.com/hostwright/hostwright/internal/domain/workflow"
	"github.com/hostwright/hostwright/internal/ports"
	"github.com/hostwright/hostwright/internal/provider/apt"
	"github.com/hostwright/hostwright/internal/provider/database"
	"github.com/hostwright/hostwright/internal/provider/mount"
	"github.com/hostwright/hostwright/internal/validation"
)

// InstallStepID identifies the installation step.
var InstallStepID = workflow.MustNewStepID("webapp:install")

// Provider compiles the webapp section into the installation step.
type Provider struct {
	runner ports.CommandRunner
	fs     ports.FileSystem
	store  *secrets.Store
}

// NewProvider creates a new webapp Provider.
func NewProvider(runner ports.CommandRunner, fs ports.FileSystem, store *secrets.Store) *Provider {
	return &Provider{runner: runner, fs: fs, store: store}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "webapp"
}

// Compile transforms the webapp configuration into steps.
func (p *Provider) Compile(m *manifest.Manifest) ([]workflow.Step, error) {
	deps := []workflow.StepID{
		apt.StepIDFor("apache2"),
		apt.StepIDFor("php-mysql"),
		database.UserStepID(m.Database.User),
	}
	if m.Storage.Backend == manifest.StorageNFS {
		deps = append(deps, mount.StepIDFor(m.Storage.NFS.MountPoint))
	}

	return []workflow.Step{NewInstallStep(m, p.runner, p.fs, p.store, deps)}, nil
}

// Ensure Provider implements workflow.Provider.
var _ workflow.Provider = (*Provider)(nil)

// InstallStep runs the application's command-line installer. The step
// assumes the application code is already unpacked in the install
// directory (its occ entry point must exist); it wires the code to the
// database and data directory.
type InstallStep struct {
	m      *manifest.Manifest
	runner ports.CommandRunner
	fs     ports.FileSystem
	store  *secrets.Store
	deps   []workflow.StepID
}

// NewInstallStep creates a new InstallStep.
func NewInstallStep(m *manifest.Manifest, runner ports.CommandRunner, fs ports.FileSystem, store *secrets.Store, deps []workflow.StepID) *InstallStep {
	return &InstallStep{
		m:      m,
		runner: runner,
		fs:     fs,
		store:  store,
		deps:   deps,
	}
}

// ID returns the step identifier.
func (s *InstallStep) ID() workflow.StepID {
	return InstallStepID
}

// DependsOn returns the step dependencies.
func (s *InstallStep) DependsOn() []workflow.StepID {
	return s.deps
}

// Description returns a human-readable summary.
func (s *InstallStep) Description() string {
	return fmt.Sprintf("Install the web application into %s", s.m.Webapp.InstallDir)
}

// Recovery returns the failure handling policy.
func (s *InstallStep) Recovery() workflow.Policy {
	return workflow.Abort()
}

// configPath is the marker the installer writes on success.
func (s *InstallStep) configPath() string {
	return filepath.Join(s.m.Webapp.InstallDir, "config", "config.php")
}

// occPath is the application's command-line entry point.
func (s *InstallStep) occPath() string {
	return filepath.Join(s.m.Webapp.InstallDir, "occ")
}

// Check reports whether the application is already installed.
func (s *InstallStep) Check(_ workflow.RunContext) (workflow.StepStatus, error) {
	if s.fs.Exists(s.configPath()) {
		return workflow.StatusSatisfied, nil
	}
	return workflow.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *InstallStep) Plan(_ workflow.RunContext) (workflow.Diff, error) {
	return workflow.NewDiff(workflow.DiffTypeAdd, "webapp", s.m.Webapp.InstallDir, "", "installed"), nil
}

// Apply runs the installer.
func (s *InstallStep) Apply(ctx workflow.RunContext) error {
	if err := validation.ValidateUsername(s.m.Webapp.ServiceUser); err != nil {
		return fmt.Errorf("invalid service user: %w", err)
	}
	if err := validation.ValidateDatabaseName(s.m.Database.Name); err != nil {
		return fmt.Errorf("invalid database name: %w", err)
	}
	if err := validation.ValidateDatabaseUser(s.m.Database.User); err != nil {
		return fmt.Errorf("invalid database user: %w", err)
	}

	// The installer cannot be apt-installed; a missing occ means the
	// application archive was never unpacked. No retry will fix that.
	if !s.fs.Exists(s.occPath()) {
		return workflow.FatalDependency("occ at " + s.occPath())
	}
	if !s.runner.LookPath("php") {
		return workflow.FatalDependency("php")
	}

	record, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("credentials not generated yet: %w", err)
	}

	result, err := s.runner.Run(ctx.Context(), "sudo",
		"-u", s.m.Webapp.ServiceUser,
		"php", s.occPath(), "maintenance:install",
		"--database", "mysql",
		"--database-name", s.m.Database.Name,
		"--database-user", s.m.Database.User,
		"--database-pass", record.DatabasePassword.Value(),
		"--admin-user", s.m.Host.AdminUser,
		"--admin-pass", record.AdminPassword.Value(),
		"--data-dir", s.m.Webapp.DataDir,
	)
	if err != nil {
		return err
	}
	if !result.Success() {
		return workflow.ActionFailed("occ maintenance:install", result.Stderr+result.Stdout)
	}
	return nil
}
