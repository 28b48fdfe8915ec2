package workflow

import (
	"errors"
	"testing"

	"github.com/hostwright/hostwright/internal/domain/manifest"
)

type fakeProvider struct {
	name  string
	steps []Step
	err   error
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Compile(_ *manifest.Manifest) ([]Step, error) {
	return p.steps, p.err
}

func TestAssembler_Assemble(t *testing.T) {
	asm := NewAssembler()
	asm.RegisterProvider(&fakeProvider{
		name:  "apt",
		steps: []Step{newFakeStep("apt:package:apache2")},
	})
	asm.RegisterProvider(&fakeProvider{
		name:  "database",
		steps: []Step{newFakeStep("db:create:app", "apt:package:apache2")},
	})

	graph, err := asm.Assemble(manifest.Default())
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if graph.Len() != 2 {
		t.Errorf("graph.Len() = %d, want 2", graph.Len())
	}
}

func TestAssembler_ProviderError(t *testing.T) {
	wantErr := errors.New("bad section")

	asm := NewAssembler()
	asm.RegisterProvider(&fakeProvider{name: "apt", err: wantErr})

	if _, err := asm.Assemble(manifest.Default()); !errors.Is(err, wantErr) {
		t.Errorf("Assemble() error = %v, want %v", err, wantErr)
	}
}

func TestAssembler_DuplicateAcrossProviders(t *testing.T) {
	asm := NewAssembler()
	asm.RegisterProvider(&fakeProvider{name: "a", steps: []Step{newFakeStep("x:y")}})
	asm.RegisterProvider(&fakeProvider{name: "b", steps: []Step{newFakeStep("x:y")}})

	if _, err := asm.Assemble(manifest.Default()); !errors.Is(err, ErrDuplicateStep) {
		t.Errorf("Assemble() error = %v, want ErrDuplicateStep", err)
	}
}

func TestAssembler_MissingDependency(t *testing.T) {
	asm := NewAssembler()
	asm.RegisterProvider(&fakeProvider{
		name:  "a",
		steps: []Step{newFakeStep("x:y", "missing:dep")},
	})

	if _, err := asm.Assemble(manifest.Default()); !errors.Is(err, ErrMissingDep) {
		t.Errorf("Assemble() error = %v, want ErrMissingDep", err)
	}
}

func TestPolicy_Attempts(t *testing.T) {
	if got := Abort().Attempts(); got != 1 {
		t.Errorf("Abort().Attempts() = %d, want 1", got)
	}
	if got := RetryThenAbort(3, 0).Attempts(); got != 4 {
		t.Errorf("RetryThenAbort(3).Attempts() = %d, want 4", got)
	}
	if got := (Policy{Retries: -5}).Attempts(); got != 1 {
		t.Errorf("negative retries Attempts() = %d, want 1", got)
	}
}

func TestFailureTaxonomy(t *testing.T) {
	if !errors.Is(FatalDependency("occ"), ErrFatalDependency) {
		t.Error("FatalDependency should wrap ErrFatalDependency")
	}
	if !errors.Is(ActionFailed("apt-get install", "E: broken"), ErrActionFailed) {
		t.Error("ActionFailed should wrap ErrActionFailed")
	}
}
