package database

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/hostwright/hostwright/internal/domain/manifest"
	"github.com/hostwright/hostwright/internal/domain/secrets"
	"github.com/hostwright/hostwright/internal/domain/workflow"
	"github.com/hostwright/hostwright/internal/ports"
	"github.com/hostwright/hostwright/internal/validation"
)

// runSQL executes a statement through the local socket as root.
// MariaDB on Debian authenticates root via unix_socket, so sudo is the
// whole credential.
func runSQL(ctx workflow.RunContext, runner ports.CommandRunner, sql string) (ports.CommandResult, error) {
	return runner.Run(ctx.Context(), "sudo", "mysql", "-N", "-B", "-e", sql)
}

// CreateStep creates the application schema.
type CreateStep struct {
	name   string
	id     workflow.StepID
	runner ports.CommandRunner
}

// NewCreateStep creates a new CreateStep.
func NewCreateStep(name string, runner ports.CommandRunner) *CreateStep {
	return &CreateStep{
		name:   name,
		id:     CreateStepID(name),
		runner: runner,
	}
}

// ID returns the step identifier.
func (s *CreateStep) ID() workflow.StepID {
	return s.id
}

// DependsOn returns the step dependencies.
func (s *CreateStep) DependsOn() []workflow.StepID {
	return dependsOnServerAndCredentials
}

// Description returns a human-readable summary.
func (s *CreateStep) Description() string {
	return fmt.Sprintf("Create the %s database", s.name)
}

// Recovery returns the failure handling policy. Without the schema the
// web app cannot be installed.
func (s *CreateStep) Recovery() workflow.Policy {
	return workflow.Abort()
}

// Check determines if the schema already exists. When the mysql client
// is not installed yet (first run, before the apt step) the state is
// unknown rather than needs-apply.
func (s *CreateStep) Check(ctx workflow.RunContext) (workflow.StepStatus, error) {
	if !s.runner.LookPath("mysql") {
		return workflow.StatusUnknown, nil
	}

	result, err := runSQL(ctx, s.runner, fmt.Sprintf("SHOW DATABASES LIKE '%s'", s.name))
	if err != nil {
		return workflow.StatusUnknown, err
	}
	if !result.Success() {
		// Server installed but not reachable; apply will surface the
		// real error with retries and a clear message.
		return workflow.StatusUnknown, nil
	}
	if strings.TrimSpace(result.Stdout) == s.name {
		return workflow.StatusSatisfied, nil
	}
	return workflow.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *CreateStep) Plan(_ workflow.RunContext) (workflow.Diff, error) {
	return workflow.NewDiff(workflow.DiffTypeAdd, "database", s.name, "", "utf8mb4"), nil
}

// Apply creates the schema.
func (s *CreateStep) Apply(ctx workflow.RunContext) error {
	// The name is interpolated into SQL; validate before execution.
	if err := validation.ValidateDatabaseName(s.name); err != nil {
		return fmt.Errorf("invalid database name: %w", err)
	}
	if !s.runner.LookPath("mysql") {
		return workflow.FatalDependency("mysql")
	}

	sql := fmt.Sprintf(
		"CREATE DATABASE IF NOT EXISTS %s CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci",
		s.name)
	result, err := runSQL(ctx, s.runner, sql)
	if err != nil {
		return err
	}
	if !result.Success() {
		return workflow.ActionFailed("mysql create database", result.Stderr)
	}
	return nil
}

// UserStep creates the application's database user and grants it full
// access to the application schema.
type UserStep struct {
	cfg    manifest.DatabaseConfig
	id     workflow.StepID
	store  *secrets.Store
	runner ports.CommandRunner
	deps   []workflow.StepID
}

// NewUserStep creates a new UserStep.
func NewUserStep(cfg manifest.DatabaseConfig, store *secrets.Store, runner ports.CommandRunner, deps ...workflow.StepID) *UserStep {
	return &UserStep{
		cfg:    cfg,
		id:     UserStepID(cfg.User),
		store:  store,
		runner: runner,
		deps:   deps,
	}
}

// ID returns the step identifier.
func (s *UserStep) ID() workflow.StepID {
	return s.id
}

// DependsOn returns the step dependencies.
func (s *UserStep) DependsOn() []workflow.StepID {
	return s.deps
}

// Description returns a human-readable summary.
func (s *UserStep) Description() string {
	return fmt.Sprintf("Create database user %s with grants on %s", s.cfg.User, s.cfg.Name)
}

// Recovery returns the failure handling policy.
func (s *UserStep) Recovery() workflow.Policy {
	return workflow.Abort()
}

// Check determines if the user already exists.
func (s *UserStep) Check(ctx workflow.RunContext) (workflow.StepStatus, error) {
	if !s.runner.LookPath("mysql") {
		return workflow.StatusUnknown, nil
	}

	sql := fmt.Sprintf("SELECT COUNT(*) FROM mysql.user WHERE user = '%s'", s.cfg.User)
	result, err := runSQL(ctx, s.runner, sql)
	if err != nil {
		return workflow.StatusUnknown, err
	}
	if !result.Success() {
		return workflow.StatusUnknown, nil
	}
	if strings.TrimSpace(result.Stdout) != "0" && strings.TrimSpace(result.Stdout) != "" {
		return workflow.StatusSatisfied, nil
	}
	return workflow.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *UserStep) Plan(_ workflow.RunContext) (workflow.Diff, error) {
	return workflow.NewDiff(workflow.DiffTypeAdd, "database-user", s.cfg.User, "", s.cfg.Name+".*"), nil
}

// Apply creates the user and grants.
func (s *UserStep) Apply(ctx workflow.RunContext) error {
	if err := validation.ValidateDatabaseUser(s.cfg.User); err != nil {
		return fmt.Errorf("invalid database user: %w", err)
	}
	if err := validation.ValidateDatabaseName(s.cfg.Name); err != nil {
		return fmt.Errorf("invalid database name: %w", err)
	}
	if !s.runner.LookPath("mysql") {
		return workflow.FatalDependency("mysql")
	}

	record, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("credentials not generated yet: %w", err)
	}

	// The password alphabet is URL-safe base64, so single quoting is safe.
	sql := fmt.Sprintf(
		"CREATE USER IF NOT EXISTS '%s'@'localhost' IDENTIFIED BY '%s'; "+
			"GRANT ALL PRIVILEGES ON %s.* TO '%s'@'localhost'; "+
			"FLUSH PRIVILEGES",
		s.cfg.User, record.DatabasePassword.Value(), s.cfg.Name, s.cfg.User)
	result, err := runSQL(ctx, s.runner, sql)
	if err != nil {
		return err
	}
	if !result.Success() {
		return workflow.ActionFailed("mysql create user", result.Stderr)
	}
	return nil
}

// DefaultsFileStep writes a MySQL client defaults file so the operator
// can run `mysql --defaults-file=...` without retyping the password.
type DefaultsFileStep struct {
	user  string
	id    workflow.StepID
	store *secrets.Store
	fs    ports.FileSystem
	deps  []workflow.StepID
}

// NewDefaultsFileStep creates a new DefaultsFileStep.
func NewDefaultsFileStep(user string, store *secrets.Store, fs ports.FileSystem, deps ...workflow.StepID) *DefaultsFileStep {
	return &DefaultsFileStep{
		user:  user,
		id:    workflow.MustNewStepID("db:defaults:client"),
		store: store,
		fs:    fs,
		deps:  deps,
	}
}

// ID returns the step identifier.
func (s *DefaultsFileStep) ID() workflow.StepID {
	return s.id
}

// DependsOn returns the step dependencies.
func (s *DefaultsFileStep) DependsOn() []workflow.StepID {
	return s.deps
}

// Description returns a human-readable summary.
func (s *DefaultsFileStep) Description() string {
	return "Write the MySQL client defaults file"
}

// Recovery returns the failure handling policy. The defaults file is a
// convenience; its failure does not endanger the installation.
func (s *DefaultsFileStep) Recovery() workflow.Policy {
	return workflow.Skip()
}

// Path returns the defaults file location.
func (s *DefaultsFileStep) Path() string {
	return filepath.Join(filepath.Dir(s.store.Path()), "client.cnf")
}

// render produces the defaults file contents.
func (s *DefaultsFileStep) render() ([]byte, error) {
	record, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	cfg := ini.Empty()
	section, err := cfg.NewSection("client")
	if err != nil {
		return nil, err
	}
	if _, err := section.NewKey("user", s.user); err != nil {
		return nil, err
	}
	if _, err := section.NewKey("password", record.DatabasePassword.Value()); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Check compares the existing defaults file against the desired content.
func (s *DefaultsFileStep) Check(_ workflow.RunContext) (workflow.StepStatus, error) {
	if !s.store.Exists() {
		// Credentials are generated by an earlier step in the same run.
		return workflow.StatusUnknown, nil
	}

	existing, err := s.fs.ReadFile(s.Path())
	if err != nil {
		return workflow.StatusNeedsApply, nil
	}
	want, err := s.render()
	if err != nil {
		return workflow.StatusUnknown, err
	}
	if bytes.Equal(existing, want) {
		return workflow.StatusSatisfied, nil
	}
	return workflow.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *DefaultsFileStep) Plan(_ workflow.RunContext) (workflow.Diff, error) {
	return workflow.NewDiff(workflow.DiffTypeAdd, "file", s.Path(), "", "client defaults"), nil
}

// Apply writes the defaults file with owner-only permissions.
func (s *DefaultsFileStep) Apply(_ workflow.RunContext) error {
	data, err := s.render()
	if err != nil {
		return err
	}
	if err := s.fs.WriteFile(s.Path(), data, 0o600); err != nil {
		return fmt.Errorf("failed to write defaults file: %w", err)
	}
	return nil
}
