// Package apt provisions Debian packages.
package apt

import (
	"github.com/hostwright/hostwright/internal/domain/manifest"
	"github.com/hostwright/hostwright/internal/domain/workflow"
	"github.com/hostwright/hostwright/internal/ports"
	"github.com/hostwright/hostwright/internal/validation"
)

// Provider compiles the manifest's package requirements into steps.
//
// Most packages are implied rather than listed: selecting the nfs
// backend pulls in nfs-common, enabling tls pulls in certbot, and so
// on. The operator's extra packages are appended after the implied set.
type Provider struct {
	runner ports.CommandRunner
}

// NewProvider creates a new apt Provider.
func NewProvider(runner ports.CommandRunner) *Provider {
	return &Provider{runner: runner}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "apt"
}

// Compile transforms the manifest into package installation steps.
// Names are validated before any step ID is built, so a bad package
// name surfaces as an error rather than a panic.
func (p *Provider) Compile(m *manifest.Manifest) ([]workflow.Step, error) {
	packages := RequiredPackages(m)

	steps := make([]workflow.Step, 0, len(packages))
	for _, pkg := range packages {
		if err := validation.ValidatePackageName(pkg); err != nil {
			return nil, err
		}
		steps = append(steps, NewPackageStep(pkg, p.runner))
	}
	return steps, nil
}

// RequiredPackages returns the packages the manifest implies, in a
// fixed order, followed by the operator's extras. Duplicates are
// dropped, first occurrence wins.
func RequiredPackages(m *manifest.Manifest) []string {
	packages := []string{
		"apache2",
		"php",
		"libapache2-mod-php",
		"php-mysql",
		"mariadb-server",
	}

	if m.Storage.Backend == manifest.StorageNFS {
		packages = append(packages, "nfs-common")
	}
	if m.TLS.Enabled && m.Host.Domain != "" {
		packages = append(packages, "certbot", "python3-certbot-apache")
	}
	if m.Stack.Enabled {
		packages = append(packages, "docker.io", "docker-compose-plugin")
	}

	packages = append(packages, m.Packages...)

	seen := make(map[string]bool, len(packages))
	unique := packages[:0]
	for _, pkg := range packages {
		if seen[pkg] {
			continue
		}
		seen[pkg] = true
		unique = append(unique, pkg)
	}
	return unique
}

// StepIDFor returns the step ID installing the given package. Other
// providers use it to declare dependencies on packages.
func StepIDFor(pkg string) workflow.StepID {
	return workflow.MustNewStepID("apt:package:" + pkg)
}

// Ensure Provider implements workflow.Provider.
var _ workflow.Provider = (*Provider)(nil)
