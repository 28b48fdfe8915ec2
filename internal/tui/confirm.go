package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hostwright/hostwright/internal/domain/execution"
	"github.com/hostwright/hostwright/internal/domain/workflow"
)

// confirmKeyMap holds the dialog's key bindings.
type confirmKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

func defaultConfirmKeyMap() confirmKeyMap {
	return confirmKeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("enter", "y"),
			key.WithHelp("enter/y", "apply"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "n", "q", "ctrl+c"),
			key.WithHelp("esc/n", "cancel"),
		),
	}
}

// ConfirmModel is the Bubble Tea model asking the operator to approve
// an execution plan before anything touches the host.
type ConfirmModel struct {
	plan      *execution.Plan
	styles    Styles
	keys      confirmKeyMap
	approved  bool
	cancelled bool
}

// NewConfirmModel creates a confirmation dialog for the plan.
func NewConfirmModel(plan *execution.Plan) ConfirmModel {
	return ConfirmModel{
		plan:   plan,
		styles: DefaultStyles(),
		keys:   defaultConfirmKeyMap(),
	}
}

// Approved reports whether the operator accepted the plan.
func (m ConfirmModel) Approved() bool {
	return m.approved
}

// Cancelled reports whether the operator rejected the plan.
func (m ConfirmModel) Cancelled() bool {
	return m.cancelled
}

// Init initializes the model.
func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Confirm):
		m.approved = true
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Cancel):
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

// View renders the plan summary and the prompt.
func (m ConfirmModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Provisioning plan"))
	b.WriteString("\n\n")

	for _, entry := range m.plan.Entries() {
		line := fmt.Sprintf("%-14s %s", "["+entry.Status().String()+"]", entry.Step().ID().String())
		switch entry.Status() {
		case workflow.StatusSatisfied:
			b.WriteString(m.styles.Muted.Render(line))
		case workflow.StatusUnknown:
			b.WriteString(m.styles.Warning.Render(line))
		default:
			b.WriteString(m.styles.DiffAdd.Render(line))
		}
		b.WriteString("\n")
	}

	summary := m.plan.Summary()
	b.WriteString("\n")
	b.WriteString(m.styles.Subtitle.Render(fmt.Sprintf(
		"%d steps: %d to apply, %d satisfied, %d unknown",
		summary.Total, summary.NeedsApply, summary.Satisfied, summary.Unknown)))
	b.WriteString("\n\n")
	b.WriteString(m.styles.Help.Render("enter/y apply · esc/n cancel"))
	b.WriteString("\n")

	return b.String()
}

// Confirm runs the dialog and reports the operator's decision.
func Confirm(plan *execution.Plan) (bool, error) {
	program := tea.NewProgram(NewConfirmModel(plan))
	final, err := program.Run()
	if err != nil {
		return false, fmt.Errorf("confirmation dialog failed: %w", err)
	}
	model, ok := final.(ConfirmModel)
	if !ok {
		return false, fmt.Errorf("unexpected model type %T", final)
	}
	return model.Approved(), nil
}
