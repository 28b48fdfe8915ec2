package facts

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hostwright/hostwright/internal/domain/manifest"
	"github.com/hostwright/hostwright/internal/ports"
	"github.com/hostwright/hostwright/internal/provider/apt"
	"golang.org/x/mod/semver"
)

// Prober observes host state through the command runner and filesystem
// ports. It is the single source of truth for preconditions: steps and
// the facts command share the same probe code paths.
type Prober struct {
	runner ports.CommandRunner
	fs     ports.FileSystem
}

// NewProber creates a new Prober.
func NewProber(runner ports.CommandRunner, fs ports.FileSystem) *Prober {
	return &Prober{runner: runner, fs: fs}
}

// Probe takes a full snapshot of the host state relevant to the manifest.
func (p *Prober) Probe(ctx context.Context, m *manifest.Manifest) *Facts {
	f := New(time.Now())

	id, version := p.OSRelease(ctx)
	f.Set("os.id", Fact{State: StatePresent, Detail: id})
	f.Set("os.version", Fact{State: StatePresent, Detail: version})

	// The implied set (web server, php, database server, ...) plus the
	// operator's extras: the same list the package steps are compiled
	// from, so the snapshot covers everything the workflow manages.
	for _, pkg := range apt.RequiredPackages(m) {
		f.Set("package."+pkg, p.PackageInstalled(ctx, pkg))
	}

	if m.Storage.Backend == manifest.StorageNFS {
		f.Set("mount."+m.Storage.NFS.MountPoint, p.MountPresent(ctx, m.Storage.NFS.MountPoint))
	}

	f.Set("database."+m.Database.Name, p.DatabaseExists(ctx, m.Database.Name))
	f.Set("database.user."+m.Database.User, p.DatabaseUserExists(ctx, m.Database.User))
	f.Set("webapp.installed", p.WebappInstalled(m.Webapp.InstallDir))
	f.Set("webapp.datadir", p.DataDirPresent(m.Webapp.DataDir))

	if m.Host.Domain != "" {
		f.Set("tls.cert."+m.Host.Domain, p.CertificatePresent(m.Host.Domain))
	}

	if m.Stack.Enabled {
		f.Set("compose.version", p.ComposeVersion(ctx))
	}

	return f
}

// OSRelease reads /etc/os-release and returns the distro ID and version.
func (p *Prober) OSRelease(_ context.Context) (id, version string) {
	data, err := p.fs.ReadFile("/etc/os-release")
	if err != nil {
		return "unknown", "unknown"
	}

	id, version = "unknown", "unknown"
	for _, line := range strings.Split(string(data), "\n") {
		switch {
		case strings.HasPrefix(line, "ID="):
			id = strings.Trim(strings.TrimPrefix(line, "ID="), `"`)
		case strings.HasPrefix(line, "VERSION_ID="):
			version = strings.Trim(strings.TrimPrefix(line, "VERSION_ID="), `"`)
		}
	}
	return id, version
}

// PackageInstalled reports whether a dpkg package is installed.
func (p *Prober) PackageInstalled(ctx context.Context, name string) Fact {
	if !p.runner.LookPath("dpkg-query") {
		return Fact{State: StateUnknown, Detail: "dpkg-query not available"}
	}

	result, err := p.runner.Run(ctx, "dpkg-query", "-W", "-f=${db:Status-Status}", name)
	if err != nil {
		return Fact{State: StateUnknown, Detail: err.Error()}
	}

	// dpkg-query exits 1 when the package is not in the database.
	if !result.Success() {
		return Fact{State: StateAbsent}
	}
	if strings.TrimSpace(result.Stdout) == "installed" {
		return Fact{State: StatePresent}
	}
	return Fact{State: StateAbsent, Detail: strings.TrimSpace(result.Stdout)}
}

// MountPresent reports whether the given mount point is currently mounted.
func (p *Prober) MountPresent(ctx context.Context, mountPoint string) Fact {
	if !p.runner.LookPath("findmnt") {
		return Fact{State: StateUnknown, Detail: "findmnt not available"}
	}

	result, err := p.runner.Run(ctx, "findmnt", "--noheadings", mountPoint)
	if err != nil {
		return Fact{State: StateUnknown, Detail: err.Error()}
	}
	if result.Success() && strings.TrimSpace(result.Stdout) != "" {
		return Fact{State: StatePresent, Detail: strings.TrimSpace(result.Stdout)}
	}
	return Fact{State: StateAbsent}
}

// DatabaseExists reports whether the named database exists.
// Returns unknown when the mysql client is absent or cannot connect,
// so a plan on a fresh host still attempts the creating step.
func (p *Prober) DatabaseExists(ctx context.Context, name string) Fact {
	if !p.runner.LookPath("mysql") {
		return Fact{State: StateUnknown, Detail: "mysql client not available"}
	}

	query := fmt.Sprintf("SHOW DATABASES LIKE '%s'", name)
	result, err := p.runner.Run(ctx, "sudo", "mysql", "-N", "-B", "-e", query)
	if err != nil {
		return Fact{State: StateUnknown, Detail: err.Error()}
	}
	if !result.Success() {
		return Fact{State: StateUnknown, Detail: strings.TrimSpace(result.Stderr)}
	}
	if strings.TrimSpace(result.Stdout) == name {
		return Fact{State: StatePresent}
	}
	return Fact{State: StateAbsent}
}

// DatabaseUserExists reports whether the named database user exists.
func (p *Prober) DatabaseUserExists(ctx context.Context, user string) Fact {
	if !p.runner.LookPath("mysql") {
		return Fact{State: StateUnknown, Detail: "mysql client not available"}
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM mysql.user WHERE user = '%s' AND host = 'localhost'", user)
	result, err := p.runner.Run(ctx, "sudo", "mysql", "-N", "-B", "-e", query)
	if err != nil {
		return Fact{State: StateUnknown, Detail: err.Error()}
	}
	if !result.Success() {
		return Fact{State: StateUnknown, Detail: strings.TrimSpace(result.Stderr)}
	}
	if strings.TrimSpace(result.Stdout) != "0" {
		return Fact{State: StatePresent}
	}
	return Fact{State: StateAbsent}
}

// WebappInstalled reports whether the web app's install marker exists.
// The app writes config/config.php only after a successful install.
func (p *Prober) WebappInstalled(installDir string) Fact {
	marker := filepath.Join(installDir, "config", "config.php")
	if p.fs.Exists(marker) {
		return Fact{State: StatePresent, Detail: marker}
	}
	return Fact{State: StateAbsent}
}

// DataDirPresent reports whether the web app's data directory exists.
func (p *Prober) DataDirPresent(dataDir string) Fact {
	if p.fs.IsDir(dataDir) {
		return Fact{State: StatePresent, Detail: dataDir}
	}
	return Fact{State: StateAbsent}
}

// CertificatePresent reports whether a certificate has been issued for
// the domain.
func (p *Prober) CertificatePresent(domain string) Fact {
	path := filepath.Join("/etc/letsencrypt/live", domain, "fullchain.pem")
	if p.fs.Exists(path) {
		return Fact{State: StatePresent, Detail: path}
	}
	return Fact{State: StateAbsent}
}

// ComposeVersion reports the docker compose plugin version as a semver
// string (e.g. "v2.27.0"), or unknown if docker compose is unavailable.
func (p *Prober) ComposeVersion(ctx context.Context) Fact {
	if !p.runner.LookPath("docker") {
		return Fact{State: StateUnknown, Detail: "docker not available"}
	}

	result, err := p.runner.Run(ctx, "docker", "compose", "version", "--short")
	if err != nil || !result.Success() {
		return Fact{State: StateUnknown, Detail: "docker compose not available"}
	}

	v := strings.TrimSpace(result.Stdout)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return Fact{State: StateUnknown, Detail: "unparseable version " + v}
	}
	return Fact{State: StatePresent, Detail: v}
}
