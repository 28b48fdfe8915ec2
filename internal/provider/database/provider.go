// Package database provisions the MariaDB schema and application user.
package database

import (
	"github.com/hostwright/hostwright/internal/domain/manifest"
	"github.com/hostwright/hostwright/internal/domain/secrets"
	"github.com/hostwright/hostwright/internal/domain/workflow"
	"github.com/hostwright/hostwright/internal/ports"
	"github.com/hostwright/hostwright/internal/provider/apt"
	"github.com/hostwright/hostwright/internal/provider/credentials"
)

// Provider compiles the manifest's database section into steps: create
// the schema, create the application user with grants, and write a
// client defaults file so the operator can connect without typing the
// password.
type Provider struct {
	runner ports.CommandRunner
	fs     ports.FileSystem
	store  *secrets.Store
}

// NewProvider creates a new database Provider.
func NewProvider(runner ports.CommandRunner, fs ports.FileSystem, store *secrets.Store) *Provider {
	return &Provider{runner: runner, fs: fs, store: store}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "database"
}

// Compile transforms the database configuration into steps.
func (p *Provider) Compile(m *manifest.Manifest) ([]workflow.Step, error) {
	create := NewCreateStep(m.Database.Name, p.runner)
	user := NewUserStep(m.Database, p.store, p.runner, create.ID())
	defaults := NewDefaultsFileStep(m.Database.User, p.store, p.fs, user.ID())

	return []workflow.Step{create, user, defaults}, nil
}

// CreateStepID returns the schema creation step's ID for the given
// database name.
func CreateStepID(name string) workflow.StepID {
	return workflow.MustNewStepID("db:create:" + name)
}

// UserStepID returns the user creation step's ID for the given user.
func UserStepID(user string) workflow.StepID {
	return workflow.MustNewStepID("db:user:" + user)
}

// Ensure Provider implements workflow.Provider.
var _ workflow.Provider = (*Provider)(nil)

var dependsOnServerAndCredentials = []workflow.StepID{
	apt.StepIDFor("mariadb-server"),
	credentials.StepID,
}
