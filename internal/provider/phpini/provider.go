// Package phpini tunes php.ini for large file uploads.
package phpini

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/hostwright/hostwright/internal/domain/manifest"
	"github.com/hostwright/hostwright/internal/domain/workflow"
	"github.com/hostwright/hostwright/internal/ports"
	"github.com/hostwright/hostwright/internal/provider/apt"
)

// Provider compiles the php section into an ini tuning step. No step
// is emitted when there is nothing to set.
type Provider struct {
	runner ports.CommandRunner
	fs     ports.FileSystem
}

// NewProvider creates a new phpini Provider.
func NewProvider(runner ports.CommandRunner, fs ports.FileSystem) *Provider {
	return &Provider{runner: runner, fs: fs}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "phpini"
}

// Compile transforms the php configuration into steps.
func (p *Provider) Compile(m *manifest.Manifest) ([]workflow.Step, error) {
	if len(m.PHP.Settings) == 0 {
		return nil, nil
	}
	return []workflow.Step{NewTuneStep(m.PHP, p.runner, p.fs)}, nil
}

// Ensure Provider implements workflow.Provider.
var _ workflow.Provider = (*Provider)(nil)

// TuneStep sets directives in php.ini. Only the configured keys are
// touched; the rest of the file is preserved as php shipped it.
type TuneStep struct {
	cfg    manifest.PHPConfig
	id     workflow.StepID
	runner ports.CommandRunner
	fs     ports.FileSystem
}

// NewTuneStep creates a new TuneStep.
func NewTuneStep(cfg manifest.PHPConfig, runner ports.CommandRunner, fs ports.FileSystem) *TuneStep {
	return &TuneStep{
		cfg:    cfg,
		id:     workflow.MustNewStepID("php:ini:" + workflow.SanitizeResource(cfg.IniPath)),
		runner: runner,
		fs:     fs,
	}
}

// ID returns the step identifier.
func (s *TuneStep) ID() workflow.StepID {
	return s.id
}

// DependsOn returns the step dependencies.
func (s *TuneStep) DependsOn() []workflow.StepID {
	return []workflow.StepID{apt.StepIDFor("php")}
}

// Description returns a human-readable summary.
func (s *TuneStep) Description() string {
	keys := make([]string, 0, len(s.cfg.Settings))
	for k := range s.cfg.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("Tune php.ini (%s)", strings.Join(keys, ", "))
}

// Recovery returns the failure handling policy.
func (s *TuneStep) Recovery() workflow.Policy {
	return workflow.Abort()
}

// load parses the current php.ini. php.ini uses values containing "="
// (error_reporting = E_ALL & ~E_DEPRECATED) and inline ";" comments;
// configure the parser accordingly.
func (s *TuneStep) load() (*ini.File, error) {
	data, err := s.fs.ReadFile(s.cfg.IniPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.cfg.IniPath, err)
	}
	cfg, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:         true,
		SpaceBeforeInlineComment: true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.cfg.IniPath, err)
	}
	return cfg, nil
}

// drift returns the keys whose current value differs from the desired
// one, sorted for stable output.
func (s *TuneStep) drift(cfg *ini.File) []string {
	section := cfg.Section("PHP")
	if len(section.Keys()) == 0 {
		// Some distributions ship php.ini without the [PHP] header.
		section = cfg.Section("")
	}

	var drifted []string
	for key, want := range s.cfg.Settings {
		if section.Key(key).String() != want {
			drifted = append(drifted, key)
		}
	}
	sort.Strings(drifted)
	return drifted
}

// Check compares the configured directives against the file.
func (s *TuneStep) Check(_ workflow.RunContext) (workflow.StepStatus, error) {
	if !s.fs.Exists(s.cfg.IniPath) {
		// php is not installed yet; the apt step handles that first.
		return workflow.StatusUnknown, nil
	}
	cfg, err := s.load()
	if err != nil {
		return workflow.StatusUnknown, err
	}
	if len(s.drift(cfg)) == 0 {
		return workflow.StatusSatisfied, nil
	}
	return workflow.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *TuneStep) Plan(_ workflow.RunContext) (workflow.Diff, error) {
	if !s.fs.Exists(s.cfg.IniPath) {
		return workflow.NewDiff(workflow.DiffTypeModify, "php.ini", s.cfg.IniPath, "", "tuned"), nil
	}
	cfg, err := s.load()
	if err != nil {
		return workflow.Diff{}, err
	}
	drifted := s.drift(cfg)
	return workflow.NewDiff(workflow.DiffTypeModify, "php.ini", s.cfg.IniPath,
		"", strings.Join(drifted, ", ")), nil
}

// render sets the configured directives and returns the full new file
// content, everything else preserved as php shipped it.
func (s *TuneStep) render(cfg *ini.File) (string, error) {
	section := cfg.Section("PHP")
	if len(section.Keys()) == 0 {
		section = cfg.Section("")
	}

	keys := make([]string, 0, len(s.cfg.Settings))
	for key := range s.cfg.Settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		section.Key(key).SetValue(s.cfg.Settings[key])
	}

	var buf strings.Builder
	if _, err := cfg.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", s.cfg.IniPath, err)
	}
	return buf.String(), nil
}

// Apply sets the directives and installs the file back. php.ini is
// root-owned: the new content is staged in the temp directory and
// installed with the same privileges the package steps use.
func (s *TuneStep) Apply(ctx workflow.RunContext) error {
	if !s.fs.Exists(s.cfg.IniPath) {
		return workflow.FatalDependency("php.ini at " + s.cfg.IniPath)
	}
	cfg, err := s.load()
	if err != nil {
		return err
	}
	rendered, err := s.render(cfg)
	if err != nil {
		return err
	}

	staged := filepath.Join(os.TempDir(), "hostwright-php.ini")
	if err := s.fs.WriteFile(staged, []byte(rendered), 0o600); err != nil {
		return fmt.Errorf("failed to stage %s: %w", s.cfg.IniPath, err)
	}
	defer func() { _ = s.fs.Remove(staged) }()

	result, err := s.runner.Run(ctx.Context(), "sudo", "install", "-m", "0644", staged, s.cfg.IniPath)
	if err != nil {
		return err
	}
	if !result.Success() {
		return workflow.ActionFailed("install "+s.cfg.IniPath, result.Stderr)
	}
	return nil
}
