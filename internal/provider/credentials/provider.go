// Package credentials generates the run's secrets before anything
// needs them.
package credentials

import (
	"errors"
	"fmt"
	"time"

	"github.com/hostwright/hostwright/internal/domain/manifest"
	"github.com/hostwright/hostwright/internal/domain/secrets"
	"github.com/hostwright/hostwright/internal/domain/workflow"
)

// StepID identifies the credential generation step.
var StepID = workflow.MustNewStepID("credentials:generate")

// Provider compiles the credential generation step. It always emits
// exactly one step; the database and web app steps depend on it.
type Provider struct {
	store     *secrets.Store
	generator *secrets.Generator
}

// NewProvider creates a new credentials Provider.
func NewProvider(store *secrets.Store, generator *secrets.Generator) *Provider {
	return &Provider{store: store, generator: generator}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "credentials"
}

// Compile emits the generation step.
func (p *Provider) Compile(_ *manifest.Manifest) ([]workflow.Step, error) {
	return []workflow.Step{NewGenerateStep(p.store, p.generator)}, nil
}

// GenerateStep creates the database and admin passwords once and stores
// them with owner-only permissions. Re-runs find the file and do nothing.
type GenerateStep struct {
	store     *secrets.Store
	generator *secrets.Generator
	now       func() time.Time
}

// NewGenerateStep creates a new GenerateStep.
func NewGenerateStep(store *secrets.Store, generator *secrets.Generator) *GenerateStep {
	return &GenerateStep{
		store:     store,
		generator: generator,
		now:       time.Now,
	}
}

// ID returns the step identifier.
func (s *GenerateStep) ID() workflow.StepID {
	return StepID
}

// DependsOn returns the step dependencies.
func (s *GenerateStep) DependsOn() []workflow.StepID {
	return nil
}

// Description returns a human-readable summary.
func (s *GenerateStep) Description() string {
	return "Generate database and admin credentials"
}

// Recovery returns the failure handling policy.
func (s *GenerateStep) Recovery() workflow.Policy {
	return workflow.Abort()
}

// Check reports whether a secrets file already exists.
func (s *GenerateStep) Check(_ workflow.RunContext) (workflow.StepStatus, error) {
	if s.store.Exists() {
		return workflow.StatusSatisfied, nil
	}
	return workflow.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *GenerateStep) Plan(_ workflow.RunContext) (workflow.Diff, error) {
	return workflow.NewDiff(workflow.DiffTypeAdd, "secrets", s.store.Path(), "", "generated"), nil
}

// Apply generates and stores fresh credentials.
func (s *GenerateStep) Apply(_ workflow.RunContext) error {
	dbPass, err := s.generator.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate database password: %w", err)
	}
	adminPass, err := s.generator.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate admin password: %w", err)
	}

	record := secrets.Record{
		DatabasePassword: dbPass,
		AdminPassword:    adminPass,
		CreatedAt:        s.now(),
	}
	if err := s.store.SaveOnce(record); err != nil {
		// A file that appeared since Check means a concurrent run won;
		// its credentials are just as valid.
		if errors.Is(err, secrets.ErrAlreadyExists) {
			return nil
		}
		return err
	}
	return nil
}

// Ensure Provider implements workflow.Provider.
var _ workflow.Provider = (*Provider)(nil)
var _ workflow.Step = (*GenerateStep)(nil)
