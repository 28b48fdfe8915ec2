// Package mount provisions the NFS data mount.
package mount

import (
	"github.com/hostwright/hostwright/internal/domain/manifest"
	"github.com/hostwright/hostwright/internal/domain/workflow"
	"github.com/hostwright/hostwright/internal/ports"
	"github.com/hostwright/hostwright/internal/provider/apt"
)

// Provider compiles the storage section into mount steps. It emits
// nothing when the backend is local.
type Provider struct {
	runner ports.CommandRunner
	fs     ports.FileSystem
}

// NewProvider creates a new mount Provider.
func NewProvider(runner ports.CommandRunner, fs ports.FileSystem) *Provider {
	return &Provider{runner: runner, fs: fs}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "mount"
}

// Compile transforms the storage configuration into steps.
func (p *Provider) Compile(m *manifest.Manifest) ([]workflow.Step, error) {
	if m.Storage.Backend != manifest.StorageNFS {
		return nil, nil
	}
	return []workflow.Step{NewNFSStep(m.Storage.NFS, p.runner, p.fs)}, nil
}

// StepIDFor returns the mount step's ID for the given mount point.
func StepIDFor(mountPoint string) workflow.StepID {
	return workflow.MustNewStepID("mount:nfs:" + workflow.SanitizeResource(mountPoint))
}

// Ensure Provider implements workflow.Provider.
var _ workflow.Provider = (*Provider)(nil)

var dependsOnNFSCommon = []workflow.StepID{apt.StepIDFor("nfs-common")}
