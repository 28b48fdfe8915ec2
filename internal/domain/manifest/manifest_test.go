package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	m := Default()

	require.Equal(t, "admin", m.Host.AdminUser)
	require.Equal(t, StorageLocal, m.Storage.Backend)
	require.Equal(t, "nextcloud", m.Database.Name)
	require.Equal(t, "/var/www/nextcloud", m.Webapp.InstallDir)
	require.NotEmpty(t, m.PHP.Settings["memory_limit"])
}

func TestValidate_TLSWithoutDomain(t *testing.T) {
	m := Default()
	m.TLS.Enabled = true

	err := m.Validate()
	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	require.Equal(t, "host.domain", userErr.Context)
}

func TestValidate_TLSWithoutEmail(t *testing.T) {
	m := Default()
	m.TLS.Enabled = true
	m.Host.Domain = "cloud.example.com"

	err := m.Validate()
	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	require.Equal(t, "host.email", userErr.Context)
}

func TestValidate_TLSComplete(t *testing.T) {
	m := Default()
	m.TLS.Enabled = true
	m.Host.Domain = "cloud.example.com"
	m.Host.Email = "ops@example.com"

	require.NoError(t, m.Validate())
}

func TestValidate_NFSRequiresServerExportMountPoint(t *testing.T) {
	m := Default()
	m.Storage.Backend = StorageNFS
	m.Storage.NFS.Server = "10.0.0.5"

	err := m.Validate()
	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	require.Equal(t, "storage.nfs", userErr.Context)

	m.Storage.NFS.Export = "/export/data"
	m.Storage.NFS.MountPoint = "/srv/data"
	require.NoError(t, m.Validate())
}

func TestValidate_PackageNames(t *testing.T) {
	m := Default()
	m.Packages = []string{"htop", "g++", "libstdc++6"}
	require.NoError(t, m.Validate())

	m.Packages = []string{"htop", "evil;rm -rf /"}
	err := m.Validate()
	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	require.Equal(t, "packages", userErr.Context)
}

func TestValidate_DatabaseIdentifiers(t *testing.T) {
	m := Default()
	m.Database.Name = "file-cloud"

	err := m.Validate()
	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	require.Equal(t, "database.name", userErr.Context)

	m.Database.Name = "filecloud"
	m.Database.User = "bad'user"
	err = m.Validate()
	require.ErrorAs(t, err, &userErr)
	require.Equal(t, "database.user", userErr.Context)
}

func TestValidate_DomainFormat(t *testing.T) {
	m := Default()
	m.Host.Domain = "not a domain"

	err := m.Validate()
	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	require.Equal(t, "host.domain", userErr.Context)
}

func TestValidate_UnknownBackend(t *testing.T) {
	m := Default()
	m.Storage.Backend = "sshfs"

	err := m.Validate()
	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	require.Equal(t, "storage.backend", userErr.Context)
}

func TestParse_YAML(t *testing.T) {
	data := []byte(`
host:
  domain: cloud.example.com
  email: ops@example.com
storage:
  backend: nfs
  nfs:
    server: 10.0.0.5
    export: /export/data
    mount_point: /srv/data
database:
  name: filecloud
tls:
  enabled: true
packages:
  - htop
`)
	m, err := Parse(data, ".yaml")
	require.NoError(t, err)

	require.Equal(t, "cloud.example.com", m.Host.Domain)
	require.Equal(t, StorageNFS, m.Storage.Backend)
	require.Equal(t, "/srv/data", m.Storage.NFS.MountPoint)
	require.Equal(t, "filecloud", m.Database.Name)
	// Defaults fill the rest.
	require.Equal(t, "nextcloud", m.Database.User)
	require.Equal(t, "admin", m.Host.AdminUser)
	require.Equal(t, []string{"htop"}, m.Packages)
}

func TestParse_TOML(t *testing.T) {
	data := []byte(`
[host]
domain = "cloud.example.com"
admin_user = "operator"

[stack]
enabled = true
compose_file = "/opt/stack/compose.yml"
`)
	m, err := Parse(data, ".toml")
	require.NoError(t, err)

	require.Equal(t, "cloud.example.com", m.Host.Domain)
	require.Equal(t, "operator", m.Host.AdminUser)
	require.True(t, m.Stack.Enabled)
	require.Equal(t, "/opt/stack/compose.yml", m.Stack.ComposeFile)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("host: [unclosed"), ".yaml")
	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
}

func TestParse_UnsupportedExtension(t *testing.T) {
	_, err := Parse([]byte("{}"), ".json")
	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	require.True(t, errors.Is(userErr.Underlying, os.ErrNotExist))
}

func TestLoad_FromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hostwright.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host:\n  domain: cloud.example.com\n"), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "cloud.example.com", m.Host.Domain)
}
