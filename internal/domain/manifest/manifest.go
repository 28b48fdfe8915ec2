// Package manifest defines the desired host configuration.
// A manifest is the single immutable input to probing, planning, and
// execution; nothing mutates it after load.
package manifest

import "github.com/hostwright/hostwright/internal/validation"

// Manifest describes the desired state of a provisioned host.
type Manifest struct {
	Host     HostConfig     `yaml:"host" toml:"host"`
	Storage  StorageConfig  `yaml:"storage" toml:"storage"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Webapp   WebappConfig   `yaml:"webapp" toml:"webapp"`
	PHP      PHPConfig      `yaml:"php" toml:"php"`
	Stack    StackConfig    `yaml:"stack" toml:"stack"`
	TLS      TLSConfig      `yaml:"tls" toml:"tls"`

	// Packages lists extra apt packages beyond the implied set.
	Packages []string `yaml:"packages" toml:"packages"`
}

// HostConfig identifies the host and its operator.
type HostConfig struct {
	// Domain is the fully qualified name the web app is served under.
	// Empty means the host is reachable by IP only; no certificate is
	// requested in that case.
	Domain string `yaml:"domain" toml:"domain"`
	// AdminUser is the web app's administrator account name.
	AdminUser string `yaml:"admin_user" toml:"admin_user"`
	// Email is the operator contact, required when requesting a certificate.
	Email string `yaml:"email" toml:"email"`
}

// StorageBackend selects where the web app's data directory lives.
type StorageBackend string

const (
	// StorageLocal keeps data on the host's own filesystem.
	StorageLocal StorageBackend = "local"
	// StorageNFS mounts the data directory from a network filesystem.
	StorageNFS StorageBackend = "nfs"
)

// StorageConfig configures the data storage backend.
type StorageConfig struct {
	Backend StorageBackend `yaml:"backend" toml:"backend"`
	NFS     NFSConfig      `yaml:"nfs" toml:"nfs"`
}

// NFSConfig configures a network filesystem mount.
type NFSConfig struct {
	Server     string `yaml:"server" toml:"server"`
	Export     string `yaml:"export" toml:"export"`
	MountPoint string `yaml:"mount_point" toml:"mount_point"`
	Options    string `yaml:"options" toml:"options"`
}

// DatabaseConfig configures the application database.
type DatabaseConfig struct {
	Name string `yaml:"name" toml:"name"`
	User string `yaml:"user" toml:"user"`
}

// WebappConfig configures the file-sharing web application.
type WebappConfig struct {
	// InstallDir is the web root the app is unpacked into.
	InstallDir string `yaml:"install_dir" toml:"install_dir"`
	// DataDir is where user files are stored (the mount point when the
	// storage backend is nfs).
	DataDir string `yaml:"data_dir" toml:"data_dir"`
	// ServiceUser is the system account the app runs as.
	ServiceUser string `yaml:"service_user" toml:"service_user"`
}

// PHPConfig configures php.ini tuning.
type PHPConfig struct {
	IniPath  string            `yaml:"ini_path" toml:"ini_path"`
	Settings map[string]string `yaml:"settings" toml:"settings"`
}

// StackConfig configures the container-management stack.
type StackConfig struct {
	Enabled     bool   `yaml:"enabled" toml:"enabled"`
	ComposeFile string `yaml:"compose_file" toml:"compose_file"`
}

// TLSConfig configures certificate issuance.
type TLSConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
}

// Default returns a manifest with sensible defaults for a Debian/Ubuntu
// host serving the file-sharing app under Apache with MariaDB.
func Default() *Manifest {
	return &Manifest{
		Host: HostConfig{
			AdminUser: "admin",
		},
		Storage: StorageConfig{
			Backend: StorageLocal,
			NFS: NFSConfig{
				Options: "defaults,_netdev",
			},
		},
		Database: DatabaseConfig{
			Name: "nextcloud",
			User: "nextcloud",
		},
		Webapp: WebappConfig{
			InstallDir:  "/var/www/nextcloud",
			DataDir:     "/var/www/nextcloud/data",
			ServiceUser: "www-data",
		},
		PHP: PHPConfig{
			IniPath: "/etc/php/8.2/apache2/php.ini",
			Settings: map[string]string{
				"memory_limit":        "512M",
				"upload_max_filesize": "2G",
				"post_max_size":       "2G",
			},
		},
		Stack: StackConfig{
			ComposeFile: "/opt/hostwright/stack/docker-compose.yml",
		},
	}
}

// applyDefaults fills zero-valued fields from Default.
func (m *Manifest) applyDefaults() {
	def := Default()

	if m.Host.AdminUser == "" {
		m.Host.AdminUser = def.Host.AdminUser
	}
	if m.Storage.Backend == "" {
		m.Storage.Backend = def.Storage.Backend
	}
	if m.Storage.NFS.Options == "" {
		m.Storage.NFS.Options = def.Storage.NFS.Options
	}
	if m.Database.Name == "" {
		m.Database.Name = def.Database.Name
	}
	if m.Database.User == "" {
		m.Database.User = def.Database.User
	}
	if m.Webapp.InstallDir == "" {
		m.Webapp.InstallDir = def.Webapp.InstallDir
	}
	if m.Webapp.DataDir == "" {
		m.Webapp.DataDir = def.Webapp.DataDir
	}
	if m.Webapp.ServiceUser == "" {
		m.Webapp.ServiceUser = def.Webapp.ServiceUser
	}
	if m.PHP.IniPath == "" {
		m.PHP.IniPath = def.PHP.IniPath
	}
	if m.PHP.Settings == nil {
		m.PHP.Settings = def.PHP.Settings
	}
	if m.Stack.ComposeFile == "" {
		m.Stack.ComposeFile = def.Stack.ComposeFile
	}
}

// Validate checks the manifest for operator errors. Values that end up
// in step IDs, command lines, or SQL are rejected here so a bad
// manifest fails as a usage error before any step is compiled.
func (m *Manifest) Validate() error {
	if m.Host.Domain != "" {
		if err := validation.ValidateDomain(m.Host.Domain); err != nil {
			return &UserError{
				Message:    "invalid domain " + m.Host.Domain,
				Context:    "host.domain",
				Suggestion: "use a fully qualified name like cloud.example.com",
				Underlying: err,
			}
		}
	}
	if m.Host.Email != "" {
		if err := validation.ValidateEmail(m.Host.Email); err != nil {
			return &UserError{
				Message:    "invalid email " + m.Host.Email,
				Context:    "host.email",
				Suggestion: "use the operator's contact address, e.g. ops@example.com",
				Underlying: err,
			}
		}
	}
	if err := validation.ValidateDatabaseName(m.Database.Name); err != nil {
		return &UserError{
			Message:    "invalid database name " + m.Database.Name,
			Context:    "database.name",
			Suggestion: "use letters, digits, and underscores, starting with a letter",
			Underlying: err,
		}
	}
	if err := validation.ValidateDatabaseUser(m.Database.User); err != nil {
		return &UserError{
			Message:    "invalid database user " + m.Database.User,
			Context:    "database.user",
			Suggestion: "use letters, digits, and underscores, starting with a letter",
			Underlying: err,
		}
	}
	for _, pkg := range m.Packages {
		if err := validation.ValidatePackageName(pkg); err != nil {
			return &UserError{
				Message:    "invalid package name " + pkg,
				Context:    "packages",
				Suggestion: "package names use letters, digits, and the characters . _ + -",
				Underlying: err,
			}
		}
	}
	if m.TLS.Enabled && m.Host.Domain == "" {
		return &UserError{
			Message:    "tls is enabled but no domain is configured",
			Context:    "host.domain",
			Suggestion: "set host.domain to the fully qualified name the certificate should cover, or disable tls",
		}
	}
	if m.TLS.Enabled && m.Host.Email == "" {
		return &UserError{
			Message:    "a contact email is required when requesting a certificate",
			Context:    "host.email",
			Suggestion: "set host.email to the operator's contact address",
		}
	}
	if m.Storage.Backend != StorageLocal && m.Storage.Backend != StorageNFS {
		return &UserError{
			Message:    "unknown storage backend " + string(m.Storage.Backend),
			Context:    "storage.backend",
			Suggestion: `use "local" or "nfs"`,
		}
	}
	if m.Storage.Backend == StorageNFS {
		if m.Storage.NFS.Server == "" || m.Storage.NFS.Export == "" || m.Storage.NFS.MountPoint == "" {
			return &UserError{
				Message:    "nfs storage requires server, export, and mount_point",
				Context:    "storage.nfs",
				Suggestion: "fill in storage.nfs.server, storage.nfs.export, and storage.nfs.mount_point",
			}
		}
	}
	return nil
}
