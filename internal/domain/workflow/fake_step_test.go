package workflow

// fakeStep is a configurable Step for graph and assembler tests.
type fakeStep struct {
	id      StepID
	deps    []StepID
	status  StepStatus
	policy  Policy
	applyFn func(RunContext) error
}

func newFakeStep(id string, deps ...string) *fakeStep {
	depIDs := make([]StepID, len(deps))
	for i, d := range deps {
		depIDs[i] = MustNewStepID(d)
	}
	return &fakeStep{
		id:     MustNewStepID(id),
		deps:   depIDs,
		status: StatusNeedsApply,
		policy: Abort(),
	}
}

func (s *fakeStep) ID() StepID          { return s.id }
func (s *fakeStep) DependsOn() []StepID { return s.deps }
func (s *fakeStep) Description() string { return "fake step " + s.id.String() }

func (s *fakeStep) Check(_ RunContext) (StepStatus, error) {
	return s.status, nil
}

func (s *fakeStep) Plan(_ RunContext) (Diff, error) {
	return NewDiff(DiffTypeAdd, "fake", s.id.String(), "", "present"), nil
}

func (s *fakeStep) Apply(ctx RunContext) error {
	if s.applyFn != nil {
		return s.applyFn(ctx)
	}
	return nil
}

func (s *fakeStep) Recovery() Policy { return s.policy }

var _ Step = (*fakeStep)(nil)
