// Package certbot obtains a TLS certificate for the configured domain.
package certbot

import (
	"fmt"
	"time"

	"github.com/hostwright/hostwright/internal/domain/manifest"
	"github.com/hostwright/hostwright/internal/domain/workflow"
	"github.com/hostwright/hostwright/internal/ports"
	"github.com/hostwright/hostwright/internal/provider/apt"
	"github.com/hostwright/hostwright/internal/provider/webapp"
	"github.com/hostwright/hostwright/internal/validation"
)

// Provider compiles the tls section into a certificate issuance step.
// Nothing is emitted unless tls is enabled and a domain is configured;
// an IP-only host has nothing to put on a certificate.
type Provider struct {
	runner ports.CommandRunner
	fs     ports.FileSystem
}

// NewProvider creates a new certbot Provider.
func NewProvider(runner ports.CommandRunner, fs ports.FileSystem) *Provider {
	return &Provider{runner: runner, fs: fs}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "certbot"
}

// Compile transforms the tls configuration into steps.
func (p *Provider) Compile(m *manifest.Manifest) ([]workflow.Step, error) {
	if !m.TLS.Enabled || m.Host.Domain == "" {
		return nil, nil
	}
	return []workflow.Step{NewIssueStep(m.Host.Domain, m.Host.Email, p.runner, p.fs)}, nil
}

// StepIDFor returns the issuance step's ID for the given domain.
func StepIDFor(domain string) workflow.StepID {
	return workflow.MustNewStepID("certbot:issue:" + domain)
}

// Ensure Provider implements workflow.Provider.
var _ workflow.Provider = (*Provider)(nil)

// IssueStep requests a certificate through certbot's apache plugin,
// which also rewrites the vhost for HTTPS.
type IssueStep struct {
	domain string
	email  string
	id     workflow.StepID
	runner ports.CommandRunner
	fs     ports.FileSystem
}

// NewIssueStep creates a new IssueStep.
func NewIssueStep(domain, email string, runner ports.CommandRunner, fs ports.FileSystem) *IssueStep {
	return &IssueStep{
		domain: domain,
		email:  email,
		id:     StepIDFor(domain),
		runner: runner,
		fs:     fs,
	}
}

// ID returns the step identifier.
func (s *IssueStep) ID() workflow.StepID {
	return s.id
}

// DependsOn returns the step dependencies. Issuance waits for the web
// app so the ACME challenge hits a working vhost.
func (s *IssueStep) DependsOn() []workflow.StepID {
	return []workflow.StepID{
		apt.StepIDFor("certbot"),
		apt.StepIDFor("python3-certbot-apache"),
		webapp.InstallStepID,
	}
}

// Description returns a human-readable summary.
func (s *IssueStep) Description() string {
	return fmt.Sprintf("Obtain a TLS certificate for %s", s.domain)
}

// Recovery returns the failure handling policy. DNS propagation and
// ACME rate limits resolve themselves; the host stays usable over
// plain HTTP, so exhaustion skips instead of aborting.
func (s *IssueStep) Recovery() workflow.Policy {
	return workflow.RetryThenSkip(2, 30*time.Second)
}

// livePath is where certbot stores the active certificate.
func (s *IssueStep) livePath() string {
	return "/etc/letsencrypt/live/" + s.domain + "/fullchain.pem"
}

// Check reports whether a certificate is already present.
func (s *IssueStep) Check(_ workflow.RunContext) (workflow.StepStatus, error) {
	if s.fs.Exists(s.livePath()) {
		return workflow.StatusSatisfied, nil
	}
	return workflow.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *IssueStep) Plan(_ workflow.RunContext) (workflow.Diff, error) {
	return workflow.NewDiff(workflow.DiffTypeAdd, "certificate", s.domain, "", "letsencrypt"), nil
}

// Apply requests the certificate.
func (s *IssueStep) Apply(ctx workflow.RunContext) error {
	if err := validation.ValidateDomain(s.domain); err != nil {
		return fmt.Errorf("invalid domain: %w", err)
	}
	if err := validation.ValidateEmail(s.email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}
	if !s.runner.LookPath("certbot") {
		return workflow.FatalDependency("certbot")
	}

	result, err := s.runner.Run(ctx.Context(), "sudo", "certbot",
		"--apache",
		"--non-interactive",
		"--agree-tos",
		"-d", s.domain,
		"-m", s.email,
	)
	if err != nil {
		return err
	}
	if !result.Success() {
		return workflow.ActionFailed("certbot --apache -d "+s.domain, result.Stderr)
	}
	return nil
}
