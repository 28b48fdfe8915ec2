package workflow

import (
	"fmt"

	"github.com/hostwright/hostwright/internal/domain/manifest"
)

// Provider compiles one concern of the manifest into executable steps
// (packages, database, mounts, the web app, the container stack).
type Provider interface {
	// Name returns the provider's identifier (e.g., "apt", "database").
	Name() string

	// Compile transforms the manifest into a list of steps. Cross-provider
	// ordering is expressed through Step.DependsOn.
	Compile(m *manifest.Manifest) ([]Step, error)
}

// Assembler collects providers and builds a validated StepGraph from a
// manifest.
type Assembler struct {
	providers []Provider
}

// NewAssembler creates a new Assembler.
func NewAssembler() *Assembler {
	return &Assembler{
		providers: make([]Provider, 0),
	}
}

// RegisterProvider adds a provider. Providers are compiled in
// registration order, which is also the declaration order used for
// deterministic plan tie-breaking.
func (a *Assembler) RegisterProvider(provider Provider) {
	a.providers = append(a.providers, provider)
}

// Providers returns all registered providers.
func (a *Assembler) Providers() []Provider {
	return a.providers
}

// Assemble builds a validated StepGraph from the manifest.
// Returns an error if any provider fails, a duplicate step ID is found,
// a dependency is missing, or the graph contains a cycle.
func (a *Assembler) Assemble(m *manifest.Manifest) (*StepGraph, error) {
	graph := NewStepGraph()

	for _, provider := range a.providers {
		steps, err := provider.Compile(m)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", provider.Name(), err)
		}

		for _, step := range steps {
			if err := graph.Add(step); err != nil {
				return nil, fmt.Errorf("provider %q, step %q: %w",
					provider.Name(), step.ID().String(), err)
			}
		}
	}

	if err := graph.Validate(); err != nil {
		return nil, err
	}

	if _, err := graph.TopologicalSort(); err != nil {
		return nil, err
	}

	return graph, nil
}
