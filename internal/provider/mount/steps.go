package mount

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hostwright/hostwright/internal/domain/manifest"
	"github.com/hostwright/hostwright/internal/domain/workflow"
	"github.com/hostwright/hostwright/internal/ports"
	"github.com/hostwright/hostwright/internal/validation"
)

const fstabPath = "/etc/fstab"

const (
	blockStart = "# >>> hostwright nfs >>>"
	blockEnd   = "# <<< hostwright nfs <<<"
)

// NFSStep mounts the data export and makes the mount persistent via a
// managed fstab block.
type NFSStep struct {
	cfg    manifest.NFSConfig
	id     workflow.StepID
	runner ports.CommandRunner
	fs     ports.FileSystem
}

// NewNFSStep creates a new NFSStep.
func NewNFSStep(cfg manifest.NFSConfig, runner ports.CommandRunner, fs ports.FileSystem) *NFSStep {
	return &NFSStep{
		cfg:    cfg,
		id:     StepIDFor(cfg.MountPoint),
		runner: runner,
		fs:     fs,
	}
}

// ID returns the step identifier.
func (s *NFSStep) ID() workflow.StepID {
	return s.id
}

// DependsOn returns the step dependencies.
func (s *NFSStep) DependsOn() []workflow.StepID {
	return dependsOnNFSCommon
}

// Description returns a human-readable summary.
func (s *NFSStep) Description() string {
	return fmt.Sprintf("Mount %s from %s:%s", s.cfg.MountPoint, s.cfg.Server, s.cfg.Export)
}

// Recovery returns the failure handling policy. NFS servers come up
// slower than the host; a brief retry covers the common race, but the
// mount is required so exhaustion aborts.
func (s *NFSStep) Recovery() workflow.Policy {
	return workflow.RetryThenAbort(3, 5*time.Second)
}

// source returns the "server:/export" mount source.
func (s *NFSStep) source() string {
	return s.cfg.Server + ":" + s.cfg.Export
}

// fstabLine returns the persistent mount entry.
func (s *NFSStep) fstabLine() string {
	return fmt.Sprintf("%s %s nfs %s 0 0", s.source(), s.cfg.MountPoint, s.cfg.Options)
}

// Check determines if the export is already mounted.
func (s *NFSStep) Check(ctx workflow.RunContext) (workflow.StepStatus, error) {
	if !s.runner.LookPath("findmnt") {
		return workflow.StatusUnknown, nil
	}

	result, err := s.runner.Run(ctx.Context(), "findmnt", "--noheadings", s.cfg.MountPoint)
	if err != nil {
		return workflow.StatusUnknown, err
	}
	if result.Success() && strings.TrimSpace(result.Stdout) != "" {
		return workflow.StatusSatisfied, nil
	}
	return workflow.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *NFSStep) Plan(_ workflow.RunContext) (workflow.Diff, error) {
	return workflow.NewDiff(workflow.DiffTypeAdd, "mount", s.cfg.MountPoint, "", s.source()), nil
}

// Apply records the mount in fstab, creates the mount point, and mounts.
func (s *NFSStep) Apply(ctx workflow.RunContext) error {
	if err := validation.ValidateMountPoint(s.cfg.MountPoint); err != nil {
		return fmt.Errorf("invalid mount point: %w", err)
	}
	if err := validation.ValidateNFSSource(s.source()); err != nil {
		return fmt.Errorf("invalid nfs source: %w", err)
	}

	if err := s.ensureFstabEntry(ctx); err != nil {
		return err
	}

	result, err := s.runner.Run(ctx.Context(), "sudo", "mkdir", "-p", s.cfg.MountPoint)
	if err != nil {
		return err
	}
	if !result.Success() {
		return workflow.ActionFailed("mkdir "+s.cfg.MountPoint, result.Stderr)
	}

	result, err = s.runner.Run(ctx.Context(), "sudo", "mount", s.cfg.MountPoint)
	if err != nil {
		return err
	}
	if !result.Success() {
		return workflow.ActionFailed("mount "+s.cfg.MountPoint, result.Stderr)
	}
	return nil
}

// ensureFstabEntry rewrites the managed fstab block to contain exactly
// this mount's entry. Lines outside the block are never touched.
//
// fstab is root-owned: the new content is staged in the temp directory
// and installed with the same privileges the mount commands use.
func (s *NFSStep) ensureFstabEntry(ctx workflow.RunContext) error {
	var content string
	if data, err := s.fs.ReadFile(fstabPath); err == nil {
		content = string(data)
	}

	block := s.fstabLine() + "\n"
	updated := writeManagedBlock(content, block)
	if updated == content {
		return nil
	}

	staged := filepath.Join(os.TempDir(), "hostwright-fstab")
	if err := s.fs.WriteFile(staged, []byte(updated), 0o600); err != nil {
		return fmt.Errorf("failed to stage fstab update: %w", err)
	}
	defer func() { _ = s.fs.Remove(staged) }()

	result, err := s.runner.Run(ctx.Context(), "sudo", "install", "-m", "0644", staged, fstabPath)
	if err != nil {
		return err
	}
	if !result.Success() {
		return workflow.ActionFailed("install "+fstabPath, result.Stderr)
	}
	return nil
}

// writeManagedBlock replaces (or appends) the managed block in content.
func writeManagedBlock(content, block string) string {
	managed := blockStart + "\n" + block + blockEnd + "\n"

	startIdx := strings.Index(content, blockStart)
	if startIdx == -1 {
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		return content + managed
	}

	endIdx := strings.Index(content, blockEnd)
	if endIdx == -1 {
		// Malformed block: start exists but no end. Replace to EOF.
		return content[:startIdx] + managed
	}

	afterEnd := endIdx + len(blockEnd)
	if afterEnd < len(content) && content[afterEnd] == '\n' {
		afterEnd++
	}
	return content[:startIdx] + managed + content[afterEnd:]
}
