package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hostwright/hostwright/internal/domain/execution"
	"github.com/hostwright/hostwright/internal/domain/workflow"
)

type stubStep struct {
	id workflow.StepID
}

func (s stubStep) ID() workflow.StepID          { return s.id }
func (s stubStep) DependsOn() []workflow.StepID { return nil }
func (s stubStep) Description() string          { return "stub" }
func (s stubStep) Recovery() workflow.Policy    { return workflow.Abort() }
func (s stubStep) Check(workflow.RunContext) (workflow.StepStatus, error) {
	return workflow.StatusNeedsApply, nil
}
func (s stubStep) Plan(workflow.RunContext) (workflow.Diff, error) {
	return workflow.Diff{}, nil
}
func (s stubStep) Apply(workflow.RunContext) error { return nil }

func testPlan() *execution.Plan {
	plan := execution.NewExecutionPlan()
	plan.Add(execution.NewPlanEntry(
		stubStep{id: workflow.MustNewStepID("apt:package:apache2")},
		workflow.StatusSatisfied, workflow.Diff{}))
	plan.Add(execution.NewPlanEntry(
		stubStep{id: workflow.MustNewStepID("db:create:nextcloud")},
		workflow.StatusNeedsApply,
		workflow.NewDiff(workflow.DiffTypeAdd, "database", "nextcloud", "", "utf8mb4")))
	return plan
}

func TestConfirmModel_ViewShowsPlan(t *testing.T) {
	view := NewConfirmModel(testPlan()).View()

	for _, want := range []string{
		"apt:package:apache2",
		"db:create:nextcloud",
		"satisfied",
		"needs-apply",
		"1 to apply",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestConfirmModel_Approve(t *testing.T) {
	model := NewConfirmModel(testPlan())

	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	m := updated.(ConfirmModel)
	if !m.Approved() || m.Cancelled() {
		t.Errorf("approved = %v, cancelled = %v", m.Approved(), m.Cancelled())
	}
	if cmd == nil {
		t.Error("confirm must quit the program")
	}
}

func TestConfirmModel_Cancel(t *testing.T) {
	model := NewConfirmModel(testPlan())

	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m := updated.(ConfirmModel)
	if m.Approved() || !m.Cancelled() {
		t.Errorf("approved = %v, cancelled = %v", m.Approved(), m.Cancelled())
	}
	if cmd == nil {
		t.Error("cancel must quit the program")
	}
}

func TestConfirmModel_IgnoresOtherKeys(t *testing.T) {
	model := NewConfirmModel(testPlan())

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	m := updated.(ConfirmModel)
	if m.Approved() || m.Cancelled() {
		t.Error("unrelated key changed the decision")
	}
}
