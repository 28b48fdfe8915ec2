// Package app wires the adapters, providers, and domain services into
// the hostwright application.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hostwright/hostwright/internal/adapters/command"
	"github.com/hostwright/hostwright/internal/adapters/filesystem"
	journaladapter "github.com/hostwright/hostwright/internal/adapters/journal"
	"github.com/hostwright/hostwright/internal/adapters/logging"
	"github.com/hostwright/hostwright/internal/domain/execution"
	"github.com/hostwright/hostwright/internal/domain/facts"
	"github.com/hostwright/hostwright/internal/domain/journal"
	"github.com/hostwright/hostwright/internal/domain/manifest"
	"github.com/hostwright/hostwright/internal/domain/secrets"
	"github.com/hostwright/hostwright/internal/domain/workflow"
	"github.com/hostwright/hostwright/internal/ports"
	"github.com/hostwright/hostwright/internal/provider/apt"
	"github.com/hostwright/hostwright/internal/provider/certbot"
	"github.com/hostwright/hostwright/internal/provider/compose"
	"github.com/hostwright/hostwright/internal/provider/credentials"
	"github.com/hostwright/hostwright/internal/provider/database"
	"github.com/hostwright/hostwright/internal/provider/mount"
	"github.com/hostwright/hostwright/internal/provider/phpini"
	"github.com/hostwright/hostwright/internal/provider/webapp"
	"github.com/hostwright/hostwright/internal/tui"
)

// DefaultStateDir holds the journal, secrets, and client defaults file.
const DefaultStateDir = "/var/lib/hostwright"

// Hostwright is the application orchestrator.
type Hostwright struct {
	runner       ports.CommandRunner
	fs           ports.FileSystem
	logger       ports.Logger
	assembler    *workflow.Assembler
	planner      *execution.Planner
	prober       *facts.Prober
	journalRepo  journal.Repository
	secretsStore *secrets.Store
	styles       tui.Styles
	stateDir     string
	out          io.Writer
	now          func() time.Time
}

// Option configures a Hostwright instance.
type Option func(*Hostwright)

// WithStateDir overrides the state directory.
func WithStateDir(dir string) Option {
	return func(h *Hostwright) {
		h.stateDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger ports.Logger) Option {
	return func(h *Hostwright) {
		h.logger = logger
	}
}

// WithRunner overrides the command runner (used in tests).
func WithRunner(runner ports.CommandRunner) Option {
	return func(h *Hostwright) {
		h.runner = runner
	}
}

// WithFileSystem overrides the filesystem (used in tests).
func WithFileSystem(fs ports.FileSystem) Option {
	return func(h *Hostwright) {
		h.fs = fs
	}
}

// New creates a Hostwright application writing human output to out.
func New(out io.Writer, opts ...Option) *Hostwright {
	h := &Hostwright{
		runner:   command.NewRealRunner(),
		fs:       filesystem.NewRealFileSystem(),
		logger:   logging.NewNopLogger(),
		planner:  execution.NewPlanner(),
		styles:   tui.DefaultStyles(),
		stateDir: DefaultStateDir,
		out:      out,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}

	h.prober = facts.NewProber(h.runner, h.fs)
	h.journalRepo = journaladapter.NewYAMLRepository(h.fs, h.stateDir)
	h.secretsStore = secrets.NewStore(h.fs, h.stateDir)

	generator := secrets.NewGenerator(secrets.MinLength)

	// Registration order is declaration order: it decides plan order
	// among steps with no dependency relation.
	h.assembler = workflow.NewAssembler()
	h.assembler.RegisterProvider(credentials.NewProvider(h.secretsStore, generator))
	h.assembler.RegisterProvider(apt.NewProvider(h.runner))
	h.assembler.RegisterProvider(mount.NewProvider(h.runner, h.fs))
	h.assembler.RegisterProvider(phpini.NewProvider(h.runner, h.fs))
	h.assembler.RegisterProvider(database.NewProvider(h.runner, h.fs, h.secretsStore))
	h.assembler.RegisterProvider(webapp.NewProvider(h.runner, h.fs, h.secretsStore))
	h.assembler.RegisterProvider(certbot.NewProvider(h.runner, h.fs))
	h.assembler.RegisterProvider(compose.NewProvider(h.runner, h.fs))

	return h
}

// LoadManifest reads and validates the manifest file.
func (h *Hostwright) LoadManifest(path string) (*manifest.Manifest, error) {
	return manifest.Load(path)
}

// Facts probes the host and returns the current state snapshot.
func (h *Hostwright) Facts(ctx context.Context, m *manifest.Manifest) *facts.Facts {
	return h.prober.Probe(ctx, m)
}

// Plan assembles the step graph and checks every step against the host.
func (h *Hostwright) Plan(ctx context.Context, m *manifest.Manifest) (*execution.Plan, error) {
	graph, err := h.assembler.Assemble(m)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble steps: %w", err)
	}

	plan, err := h.planner.Plan(ctx, graph)
	if err != nil {
		return nil, fmt.Errorf("failed to plan: %w", err)
	}
	return plan, nil
}

// Apply executes the plan and records the run in the journal.
func (h *Hostwright) Apply(ctx context.Context, plan *execution.Plan, dryRun bool, timeout time.Duration) ([]execution.StepResult, error) {
	opts := []execution.ExecutorOption{
		execution.WithDryRun(dryRun),
		execution.WithLogger(h.logger),
	}
	if timeout > 0 {
		opts = append(opts, execution.WithDefaultTimeout(timeout))
	}
	executor := execution.NewExecutor(opts...)

	hadSecrets := h.secretsStore.Exists()

	results, err := executor.Execute(ctx, plan)
	if err != nil {
		return results, err
	}

	if !dryRun {
		if jerr := h.recordRun(results); jerr != nil {
			// The host is provisioned; a journal failure must not fail
			// the run, but the operator should know.
			h.logger.Warn(ctx, "failed to record run in journal",
				ports.F("error", jerr.Error()))
		}
		if !hadSecrets && h.secretsStore.Exists() {
			h.printCredentials()
		}
	}

	return results, nil
}

// recordRun appends the run to the journal.
func (h *Hostwright) recordRun(results []execution.StepResult) error {
	run := journal.NewRun(h.now())
	run.RecordResults(results)
	run.Finish(h.now())

	if h.secretsStore.Exists() {
		if record, err := h.secretsStore.Load(); err == nil {
			if fp, err := record.Fingerprint(); err == nil {
				run.CredentialsFingerprint = fp
			}
		}
	}

	return h.journalRepo.Append(run)
}

// printCredentials shows freshly generated credentials exactly once.
// They are retrievable later only from the secrets file itself.
func (h *Hostwright) printCredentials() {
	record, err := h.secretsStore.Load()
	if err != nil {
		return
	}

	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, h.styles.Warning.Render("Generated credentials (shown once, stored in "+h.secretsStore.Path()+"):"))
	fmt.Fprintf(h.out, "  database password: %s\n", record.DatabasePassword.Value())
	fmt.Fprintf(h.out, "  admin password:    %s\n", record.AdminPassword.Value())
}

// PrintFacts renders the probed host state.
func (h *Hostwright) PrintFacts(snapshot *facts.Facts) {
	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, h.styles.Title.Render("Host facts"))
	fmt.Fprintln(h.out)

	for _, key := range snapshot.Keys() {
		fact := snapshot.Get(key)
		line := fmt.Sprintf("  %-36s %s", key, fact.State)
		if fact.Detail != "" {
			line += "  (" + fact.Detail + ")"
		}
		switch fact.State {
		case facts.StatePresent:
			fmt.Fprintln(h.out, h.styles.Success.Render(line))
		case facts.StateUnknown:
			fmt.Fprintln(h.out, h.styles.Warning.Render(line))
		default:
			fmt.Fprintln(h.out, h.styles.Muted.Render(line))
		}
	}
}

// PrintPlan renders a human-readable plan.
func (h *Hostwright) PrintPlan(plan *execution.Plan) {
	summary := plan.Summary()

	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, h.styles.Title.Render("Provisioning plan"))
	fmt.Fprintln(h.out)

	if !plan.HasChanges() {
		fmt.Fprintln(h.out, "No changes needed. The host matches the manifest.")
		return
	}

	fmt.Fprintf(h.out, "Steps: %d total, %d to apply, %d satisfied, %d unknown\n\n",
		summary.Total, summary.NeedsApply, summary.Satisfied, summary.Unknown)

	for _, entry := range plan.Entries() {
		switch entry.Status() {
		case workflow.StatusSatisfied:
			fmt.Fprintln(h.out, h.styles.Muted.Render("  ✓ "+entry.Step().ID().String()))
		case workflow.StatusUnknown:
			fmt.Fprintln(h.out, h.styles.Warning.Render("  ? "+entry.Step().ID().String()))
		default:
			fmt.Fprintln(h.out, h.styles.DiffAdd.Render("  + "+entry.Step().ID().String()))
			if diff := entry.Diff(); !diff.IsEmpty() {
				fmt.Fprintln(h.out, h.styles.Muted.Render("      "+diff.Summary()))
			}
		}
	}

	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, h.styles.Help.Render("Run 'hostwright apply' to execute this plan."))
}

// PrintResults renders execution results and reports overall success.
func (h *Hostwright) PrintResults(results []execution.StepResult) bool {
	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, h.styles.Title.Render("Results"))
	fmt.Fprintln(h.out)

	var applied, satisfied, skipped, failed int
	for _, result := range results {
		id := result.StepID().String()
		switch {
		case result.Status() == workflow.StatusFailed:
			failed++
			fmt.Fprintln(h.out, h.styles.Error.Render("  ✗ "+id+": "+result.Error().Error()))
		case result.Status() == workflow.StatusSkipped:
			skipped++
			line := "  - " + id + " (skipped"
			if result.Error() != nil {
				line += ": " + result.Error().Error()
			}
			line += ")"
			fmt.Fprintln(h.out, h.styles.Warning.Render(line))
		case result.Applied():
			applied++
			fmt.Fprintln(h.out, h.styles.Success.Render(
				fmt.Sprintf("  ✓ %s (%s)", id, result.Duration().Round(time.Millisecond))))
		default:
			satisfied++
			fmt.Fprintln(h.out, h.styles.Muted.Render("  ✓ "+id+" (already satisfied)"))
		}
	}

	fmt.Fprintf(h.out, "\n%d applied, %d already satisfied, %d skipped, %d failed\n",
		applied, satisfied, skipped, failed)
	return failed == 0
}
