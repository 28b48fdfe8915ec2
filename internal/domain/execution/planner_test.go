package execution

import (
	"context"
	"errors"
	"testing"

	"github.com/hostwright/hostwright/internal/domain/workflow"
)

func TestPlanner_OrdersByDependency(t *testing.T) {
	apt := newTestStep("apt:package:mariadb-server")
	apt.checkFn = func() (workflow.StepStatus, error) {
		return workflow.StatusSatisfied, nil
	}
	db := newTestStep("db:create:nextcloud")
	db.deps = []workflow.StepID{apt.id}

	graph := workflow.NewStepGraph()
	if err := graph.Add(db); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := graph.Add(apt); err != nil {
		t.Fatalf("Add: %v", err)
	}

	plan, err := NewPlanner().Plan(context.Background(), graph)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	entries := plan.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Step().ID() != apt.id {
		t.Errorf("first entry = %s, want %s", entries[0].Step().ID(), apt.id)
	}
	if entries[0].Status() != workflow.StatusSatisfied {
		t.Errorf("apt status = %s, want satisfied", entries[0].Status())
	}
	if entries[1].Status() != workflow.StatusNeedsApply {
		t.Errorf("db status = %s, want needs-apply", entries[1].Status())
	}
}

func TestPlanner_Deterministic(t *testing.T) {
	build := func() *workflow.StepGraph {
		graph := workflow.NewStepGraph()
		for _, id := range []string{
			"apt:package:apache2",
			"apt:package:php",
			"apt:package:mariadb-server",
			"credentials:generate",
			"db:create:nextcloud",
		} {
			if err := graph.Add(newTestStep(id)); err != nil {
				t.Fatalf("Add(%s): %v", id, err)
			}
		}
		return graph
	}

	first, err := NewPlanner().Plan(context.Background(), build())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	for run := 0; run < 10; run++ {
		plan, err := NewPlanner().Plan(context.Background(), build())
		if err != nil {
			t.Fatalf("Plan: %v", err)
		}
		for i, entry := range plan.Entries() {
			if entry.Step().ID() != first.Entries()[i].Step().ID() {
				t.Fatalf("run %d: entry %d = %s, want %s",
					run, i, entry.Step().ID(), first.Entries()[i].Step().ID())
			}
		}
	}
}

func TestPlanner_PlansUnknownConservatively(t *testing.T) {
	step := newTestStep("db:create:nextcloud")
	step.checkFn = func() (workflow.StepStatus, error) {
		return workflow.StatusUnknown, nil
	}

	plan := planOf(t, step)
	if !plan.HasChanges() {
		t.Error("plan with an unknown step must report changes")
	}
	if got := plan.Summary().Unknown; got != 1 {
		t.Errorf("summary unknown = %d, want 1", got)
	}
	if len(plan.NeedsApply()) != 1 {
		t.Error("unknown step must be scheduled for apply")
	}
}

func TestPlanner_CheckErrorFailsPlanning(t *testing.T) {
	step := newTestStep("apt:package:apache2")
	checkErr := errors.New("probe exploded")
	step.checkFn = func() (workflow.StepStatus, error) {
		return workflow.StatusUnknown, checkErr
	}

	graph := workflow.NewStepGraph()
	if err := graph.Add(step); err != nil {
		t.Fatalf("Add: %v", err)
	}

	_, err := NewPlanner().Plan(context.Background(), graph)
	if !errors.Is(err, checkErr) {
		t.Fatalf("err = %v, want wrapped %v", err, checkErr)
	}
}

func TestPlan_Summary(t *testing.T) {
	plan := NewExecutionPlan()
	plan.Add(NewPlanEntry(newTestStep("a"), workflow.StatusSatisfied, workflow.Diff{}))
	plan.Add(NewPlanEntry(newTestStep("b"), workflow.StatusNeedsApply, workflow.Diff{}))
	plan.Add(NewPlanEntry(newTestStep("c"), workflow.StatusUnknown, workflow.Diff{}))

	summary := plan.Summary()
	if summary.Total != 3 || summary.Satisfied != 1 || summary.NeedsApply != 1 || summary.Unknown != 1 {
		t.Errorf("summary = %+v", summary)
	}
}
