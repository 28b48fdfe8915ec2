package app

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/hostwright/hostwright/internal/domain/manifest"
	"github.com/hostwright/hostwright/internal/domain/workflow"
	"github.com/hostwright/hostwright/internal/ports"
	"github.com/hostwright/hostwright/internal/testutil"
)

func newTestApp(runner *testutil.FakeRunner, fs *testutil.FakeFileSystem) (*Hostwright, *bytes.Buffer) {
	out := &bytes.Buffer{}
	h := New(out,
		WithRunner(runner),
		WithFileSystem(fs),
		WithStateDir("/var/lib/hostwright"),
	)
	return h, out
}

func fullManifest() *manifest.Manifest {
	m := manifest.Default()
	m.Host.Domain = "cloud.example.com"
	m.Host.Email = "admin@example.com"
	m.TLS.Enabled = true
	m.Storage.Backend = manifest.StorageNFS
	m.Storage.NFS = manifest.NFSConfig{
		Server:     "10.0.0.5",
		Export:     "/export/files",
		MountPoint: "/srv/nextcloud-data",
	}
	m.Stack.Enabled = true
	return m
}

func planIDs(t *testing.T, h *Hostwright, m *manifest.Manifest) []string {
	t.Helper()
	plan, err := h.Plan(context.Background(), m)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	ids := make([]string, 0, plan.Len())
	for _, entry := range plan.Entries() {
		ids = append(ids, entry.Step().ID().String())
	}
	return ids
}

func indexOf(ids []string, id string) int {
	for i, candidate := range ids {
		if candidate == id {
			return i
		}
	}
	return -1
}

func TestPlan_CertbotOnlyWithTLS(t *testing.T) {
	h, _ := newTestApp(testutil.NewFakeRunner(), testutil.NewFakeFileSystem())

	ids := planIDs(t, h, manifest.Default())
	if indexOf(ids, "certbot:issue:cloud.example.com") != -1 {
		t.Errorf("certbot planned without tls: %v", ids)
	}

	ids = planIDs(t, h, fullManifest())
	if indexOf(ids, "certbot:issue:cloud.example.com") == -1 {
		t.Errorf("certbot missing with tls enabled: %v", ids)
	}
}

func TestPlan_CertbotOrderedAfterWebServerAndApp(t *testing.T) {
	h, _ := newTestApp(testutil.NewFakeRunner(), testutil.NewFakeFileSystem())
	ids := planIDs(t, h, fullManifest())

	cert := indexOf(ids, "certbot:issue:cloud.example.com")
	apache := indexOf(ids, "apt:package:apache2")
	webappIdx := indexOf(ids, "webapp:install")
	if cert == -1 || apache == -1 || webappIdx == -1 {
		t.Fatalf("steps missing: %v", ids)
	}
	if cert < apache || cert < webappIdx {
		t.Errorf("certbot must run after apache and the web app: %v", ids)
	}
}

func TestPlan_Deterministic(t *testing.T) {
	h, _ := newTestApp(testutil.NewFakeRunner(), testutil.NewFakeFileSystem())

	first := planIDs(t, h, fullManifest())
	for run := 0; run < 5; run++ {
		next := planIDs(t, h, fullManifest())
		if len(next) != len(first) {
			t.Fatalf("plan size changed: %v vs %v", first, next)
		}
		for i := range first {
			if next[i] != first[i] {
				t.Fatalf("run %d: order changed at %d: %v vs %v", run, i, first, next)
			}
		}
	}
}

func TestPlan_CoversAllConcerns(t *testing.T) {
	h, _ := newTestApp(testutil.NewFakeRunner(), testutil.NewFakeFileSystem())
	ids := planIDs(t, h, fullManifest())

	for _, want := range []string{
		"credentials:generate",
		"apt:package:apache2",
		"apt:package:mariadb-server",
		"apt:package:nfs-common",
		"mount:nfs:srv-nextcloud-data",
		"php:ini:etc-php-8.2-apache2-php.ini",
		"db:create:nextcloud",
		"db:user:nextcloud",
		"webapp:install",
		"certbot:issue:cloud.example.com",
		"compose:up:management",
	} {
		if indexOf(ids, want) == -1 {
			t.Errorf("plan missing %s: %v", want, ids)
		}
	}
}

func TestPlan_PackageNamesWithPlus(t *testing.T) {
	h, _ := newTestApp(testutil.NewFakeRunner(), testutil.NewFakeFileSystem())
	m := manifest.Default()
	m.Packages = []string{"g++"}

	ids := planIDs(t, h, m)
	if indexOf(ids, "apt:package:g++") == -1 {
		t.Errorf("plan missing the g++ package step: %v", ids)
	}
}

// markAllSatisfied scripts the runner so package and database checks
// report an already-provisioned host.
func markAllSatisfied(runner *testutil.FakeRunner, fs *testutil.FakeFileSystem) {
	runner.Respond("dpkg-query", ports.CommandResult{ExitCode: 0, Stdout: "installed"})
	runner.Respond("sudo mysql -N -B -e SHOW DATABASES LIKE 'nextcloud'",
		ports.CommandResult{ExitCode: 0, Stdout: "nextcloud\n"})
	runner.Respond("sudo mysql -N -B -e SELECT COUNT(*)",
		ports.CommandResult{ExitCode: 0, Stdout: "1\n"})
	fs.Seed("/var/www/nextcloud/config/config.php", []byte("<?php"))
	fs.Seed("/etc/php/8.2/apache2/php.ini", []byte(
		"[PHP]\nmemory_limit = 512M\nupload_max_filesize = 2G\npost_max_size = 2G\n"))
}

func TestApply_SatisfiedHostHasNoSideEffects(t *testing.T) {
	runner := testutil.NewFakeRunner()
	fs := testutil.NewFakeFileSystem()
	markAllSatisfied(runner, fs)

	h, _ := newTestApp(runner, fs)
	m := manifest.Default()

	plan, err := h.Plan(context.Background(), m)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	// Credentials and the defaults file still need a first run; apart
	// from those, nothing should be pending.
	for _, entry := range plan.Entries() {
		id := entry.Step().ID().String()
		if id == "credentials:generate" || id == "db:defaults:client" {
			continue
		}
		if entry.Status() == workflow.StatusNeedsApply {
			t.Errorf("%s = needs-apply on a satisfied host", id)
		}
	}

	before := runner.CallCount()
	results, err := h.Apply(context.Background(), plan, false, 0)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	for _, result := range results {
		if result.Status() == workflow.StatusFailed {
			t.Errorf("%s failed: %v", result.StepID(), result.Error())
		}
	}

	// Satisfied steps re-check but never mutate: every call after
	// planning must be a read-only probe.
	for _, line := range runner.CallLines()[before:] {
		if strings.Contains(line, "apt-get install") ||
			strings.Contains(line, "CREATE DATABASE") ||
			strings.Contains(line, "maintenance:install") {
			t.Errorf("mutating command on satisfied host: %s", line)
		}
	}
}

func TestApply_DatabaseFailureAbortsDependents(t *testing.T) {
	runner := testutil.NewFakeRunner()
	fs := testutil.NewFakeFileSystem()
	runner.Respond("dpkg-query", ports.CommandResult{ExitCode: 0, Stdout: "installed"})
	fs.Seed("/etc/php/8.2/apache2/php.ini", []byte(
		"[PHP]\nmemory_limit = 512M\nupload_max_filesize = 2G\npost_max_size = 2G\n"))
	// Schema is absent and creation is denied.
	runner.Respond("sudo mysql -N -B -e SHOW DATABASES LIKE 'nextcloud'",
		ports.CommandResult{ExitCode: 0, Stdout: ""})
	runner.Respond("sudo mysql -N -B -e CREATE DATABASE",
		ports.CommandResult{ExitCode: 1, Stderr: "access denied"})

	h, _ := newTestApp(runner, fs)
	m := manifest.Default()

	plan, err := h.Plan(context.Background(), m)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	results, err := h.Apply(context.Background(), plan, false, 0)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	byID := make(map[string]workflow.StepStatus, len(results))
	for _, result := range results {
		byID[result.StepID().String()] = result.Status()
	}

	if byID["db:create:nextcloud"] != workflow.StatusFailed {
		t.Errorf("db:create = %s, want failed", byID["db:create:nextcloud"])
	}
	for _, id := range []string{"db:user:nextcloud", "webapp:install"} {
		if byID[id] != workflow.StatusSkipped {
			t.Errorf("%s = %s, want skipped after abort", id, byID[id])
		}
	}

	// The web app installer must never have run.
	for _, line := range runner.CallLines() {
		if strings.Contains(line, "maintenance:install") {
			t.Errorf("installer ran despite database failure: %s", line)
		}
	}

	// The aborted run is still journaled.
	if !fs.Exists("/var/lib/hostwright/journal.yaml") {
		t.Error("journal missing after aborted run")
	}
	data, _ := fs.ReadFile("/var/lib/hostwright/journal.yaml")
	if !strings.Contains(string(data), "outcome: failed") {
		t.Errorf("journal missing failed outcome:\n%s", data)
	}
}

func TestApply_PrintsFreshCredentialsOnce(t *testing.T) {
	runner := testutil.NewFakeRunner()
	fs := testutil.NewFakeFileSystem()
	markAllSatisfied(runner, fs)

	h, out := newTestApp(runner, fs)
	m := manifest.Default()

	plan, err := h.Plan(context.Background(), m)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if _, err := h.Apply(context.Background(), plan, false, 0); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !strings.Contains(out.String(), "database password:") {
		t.Error("fresh credentials were not shown")
	}

	// Second run: secrets already exist, nothing is printed again.
	out.Reset()
	plan, err = h.Plan(context.Background(), m)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if _, err := h.Apply(context.Background(), plan, false, 0); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if strings.Contains(out.String(), "database password:") {
		t.Error("credentials shown again on a re-run")
	}
}

func TestApply_DryRunTouchesNothing(t *testing.T) {
	runner := testutil.NewFakeRunner()
	fs := testutil.NewFakeFileSystem()

	h, _ := newTestApp(runner, fs)
	m := manifest.Default()

	plan, err := h.Plan(context.Background(), m)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	before := runner.CallCount()
	if _, err := h.Apply(context.Background(), plan, true, 0); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if runner.CallCount() != before {
		t.Errorf("dry-run executed %d commands", runner.CallCount()-before)
	}
	if fs.Exists("/var/lib/hostwright/journal.yaml") {
		t.Error("dry-run wrote the journal")
	}
	if fs.Exists("/var/lib/hostwright/secrets.yaml") {
		t.Error("dry-run generated secrets")
	}
}
