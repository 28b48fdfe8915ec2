package mount

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hostwright/hostwright/internal/domain/manifest"
	"github.com/hostwright/hostwright/internal/domain/workflow"
	"github.com/hostwright/hostwright/internal/ports"
	"github.com/hostwright/hostwright/internal/testutil"
)

var testNFS = manifest.NFSConfig{
	Server:     "10.0.0.5",
	Export:     "/export/files",
	MountPoint: "/srv/nextcloud-data",
	Options:    "defaults,_netdev",
}

func TestProvider_CompileLocalBackendEmitsNothing(t *testing.T) {
	provider := NewProvider(testutil.NewFakeRunner(), testutil.NewFakeFileSystem())

	steps, err := provider.Compile(manifest.Default())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(steps) != 0 {
		t.Errorf("local backend produced %d steps", len(steps))
	}
}

func TestProvider_CompileNFS(t *testing.T) {
	provider := NewProvider(testutil.NewFakeRunner(), testutil.NewFakeFileSystem())
	m := manifest.Default()
	m.Storage.Backend = manifest.StorageNFS
	m.Storage.NFS = testNFS

	steps, err := provider.Compile(m)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(steps) != 1 {
		t.Fatalf("steps = %d, want 1", len(steps))
	}
	if steps[0].ID().String() != "mount:nfs:srv-nextcloud-data" {
		t.Errorf("id = %s", steps[0].ID())
	}
	if steps[0].DependsOn()[0].String() != "apt:package:nfs-common" {
		t.Errorf("deps = %v", steps[0].DependsOn())
	}
}

func TestNFSStep_Check(t *testing.T) {
	runner := testutil.NewFakeRunner()
	runner.Respond("findmnt --noheadings /srv/nextcloud-data",
		ports.CommandResult{ExitCode: 0, Stdout: "/srv/nextcloud-data 10.0.0.5:/export/files nfs4 rw\n"})

	step := NewNFSStep(testNFS, runner, testutil.NewFakeFileSystem())
	status, err := step.Check(workflow.NewRunContext(context.Background()))
	if err != nil || status != workflow.StatusSatisfied {
		t.Errorf("status = %s (%v), want satisfied", status, err)
	}
}

func TestNFSStep_CheckNotMounted(t *testing.T) {
	runner := testutil.NewFakeRunner()
	runner.Respond("findmnt", ports.CommandResult{ExitCode: 1})

	step := NewNFSStep(testNFS, runner, testutil.NewFakeFileSystem())
	status, err := step.Check(workflow.NewRunContext(context.Background()))
	if err != nil || status != workflow.StatusNeedsApply {
		t.Errorf("status = %s (%v), want needs-apply", status, err)
	}
}

func TestNFSStep_Apply(t *testing.T) {
	runner := testutil.NewFakeRunner()
	fs := testutil.NewFakeFileSystem()
	fs.Seed("/etc/fstab", []byte("UUID=abc / ext4 defaults 0 1\n"))

	step := NewNFSStep(testNFS, runner, fs)
	if err := step.Apply(workflow.NewRunContext(context.Background())); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	staged := filepath.Join(os.TempDir(), "hostwright-fstab")
	lines := runner.CallLines()
	want := []string{
		"sudo install -m 0644 " + staged + " /etc/fstab",
		"sudo mkdir -p /srv/nextcloud-data",
		"sudo mount /srv/nextcloud-data",
	}
	if len(lines) != len(want) {
		t.Fatalf("calls = %v", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, lines[i], want[i])
		}
	}

	// The staged copy is cleaned up after the privileged install.
	if fs.Exists(staged) {
		t.Error("staged fstab left behind")
	}
}

func TestNFSStep_ApplySkipsInstallWhenFstabCurrent(t *testing.T) {
	runner := testutil.NewFakeRunner()
	fs := testutil.NewFakeFileSystem()

	step := NewNFSStep(testNFS, runner, fs)
	current := writeManagedBlock("UUID=abc / ext4 defaults 0 1\n", step.fstabLine()+"\n")
	fs.Seed("/etc/fstab", []byte(current))

	if err := step.Apply(workflow.NewRunContext(context.Background())); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for _, line := range runner.CallLines() {
		if strings.Contains(line, "install") {
			t.Errorf("fstab rewritten although current: %s", line)
		}
	}
}

func TestWriteManagedBlock_PreservesExistingEntries(t *testing.T) {
	existing := "UUID=abc / ext4 defaults 0 1\n"
	block := "10.0.0.5:/export/files /srv/nextcloud-data nfs defaults,_netdev 0 0\n"

	got := writeManagedBlock(existing, block)
	if !strings.Contains(got, "UUID=abc / ext4 defaults 0 1") {
		t.Error("existing fstab entries were lost")
	}
	if !strings.Contains(got, "10.0.0.5:/export/files /srv/nextcloud-data nfs defaults,_netdev 0 0") {
		t.Errorf("managed entry missing:\n%s", got)
	}
}

func TestWriteManagedBlock_Idempotent(t *testing.T) {
	block := "10.0.0.5:/export/files /srv/nextcloud-data nfs defaults,_netdev 0 0\n"

	once := writeManagedBlock("UUID=abc / ext4 defaults 0 1\n", block)
	twice := writeManagedBlock(once, block)
	if once != twice {
		t.Errorf("second write changed content:\n%s\nvs\n%s", once, twice)
	}
	if got := strings.Count(twice, "10.0.0.5:/export/files"); got != 1 {
		t.Errorf("entry appears %d times, want 1:\n%s", got, twice)
	}
}

func TestWriteManagedBlock_ReplacesStaleEntry(t *testing.T) {
	stale := writeManagedBlock("", "10.0.0.5:/old/export /srv/data nfs defaults 0 0\n")
	fresh := writeManagedBlock(stale, "10.0.0.5:/export/files /srv/data nfs defaults 0 0\n")

	if strings.Contains(fresh, "/old/export") {
		t.Errorf("stale entry survived:\n%s", fresh)
	}
	if got := strings.Count(fresh, blockStart); got != 1 {
		t.Errorf("managed block appears %d times, want 1:\n%s", got, fresh)
	}
}

func TestNFSStep_ApplyMountFailure(t *testing.T) {
	runner := testutil.NewFakeRunner()
	runner.Respond("sudo mount /srv/nextcloud-data",
		ports.CommandResult{ExitCode: 32, Stderr: "mount.nfs: Connection timed out"})

	step := NewNFSStep(testNFS, runner, testutil.NewFakeFileSystem())
	err := step.Apply(workflow.NewRunContext(context.Background()))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Connection timed out") {
		t.Errorf("err = %v", err)
	}
}

func TestNFSStep_ApplyRejectsUnsafeMountPoint(t *testing.T) {
	runner := testutil.NewFakeRunner()
	cfg := testNFS
	cfg.MountPoint = "/srv/../etc"

	step := &NFSStep{cfg: cfg, id: workflow.MustNewStepID("mount:nfs:bad"), runner: runner, fs: testutil.NewFakeFileSystem()}
	if err := step.Apply(workflow.NewRunContext(context.Background())); err == nil {
		t.Fatal("traversal accepted")
	}
	if runner.CallCount() != 0 {
		t.Error("unsafe mount point must not reach the shell")
	}
}

func TestNFSStep_RecoveryRetries(t *testing.T) {
	step := NewNFSStep(testNFS, testutil.NewFakeRunner(), testutil.NewFakeFileSystem())
	policy := step.Recovery()
	if policy.Retries != 3 {
		t.Errorf("retries = %d, want 3", policy.Retries)
	}
	if policy.OnExhausted != workflow.FailureAbort {
		t.Errorf("on exhausted = %s, want abort", policy.OnExhausted)
	}
}
