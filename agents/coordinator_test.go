package agents

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/gitagent/framework"
	"github.com/lexcodex/gitagent/tools"
)

type recordingPublisher struct {
	requests []tools.PublishRequest
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, req tools.PublishRequest) (*tools.PublishResult, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	committed := keys(req.Files)
	sort.Strings(committed)
	return &tools.PublishResult{Branch: req.Branch, Committed: committed, PullRequestURL: "https://github.com/o/r/pull/1"}, nil
}

func newTestCoordinator(f *fixture) *Coordinator {
	c := NewCoordinator(f.rt, DefaultCoordinatorConfig())
	c.clock = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	c.newID = func() string { return "run-1" }
	return c
}

const emailObjective = "Add function validate_email to utils/validators.py"

func scriptEmailRun(m *scriptedModel) {
	m.on(QueryUnderstandingAgent, `{"objectives": ["`+emailObjective+`"]}`)
	m.on(PlanAgent, `{"plan": [{"objective": "`+emailObjective+`", "steps": ["write the function"]}]}`)
	m.on(ContextRetrievalAgent, `{"context": ["an email address contains @"]}`)
	m.on(IntermediateProcessingAgent, `{"additional_context": []}`)
	m.on(AnswerGenerationAgent, `{"code_changes": [{"action": "add", "file": "utils/validators.py", "code": "def validate_email(addr):\n    return '@' in addr\n"}]}`)
	m.on(SelfReflectionAgent, `{"reflection": "Looks correct."}`)
	m.on(CodeValidationAgent, `{"status": "Complete"}`, `{"status": "Complete"}`)
}

func TestCoordinatorAddsFunctionEndToEnd(t *testing.T) {
	f := newFixture(t, map[string]string{"app.py": "def main():\n    return 0\n"}, "yes", "")
	scriptEmailRun(f.model)
	c := newTestCoordinator(f)

	report, err := c.Run(context.Background(), "Add a function validate_email to utils/validators.py")
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, []string{emailObjective}, report.Objectives)
	require.Len(t, report.Applied, 1)
	assert.Zero(t, report.Retries)
	assert.Empty(t, report.Incomplete)
	assert.False(t, report.Published)

	assert.Equal(t, "def validate_email(addr):\n    return '@' in addr\n", f.read(t, "utils/validators.py"))
	readme := f.read(t, "README.md")
	assert.Contains(t, readme, "- Requirement: Add a function validate_email to utils/validators.py\n")
	assert.Contains(t, readme, "- Applied changes: add utils/validators.py\n")

	entries := f.rt.Changes.Changes()
	require.Len(t, entries, 2)
	assert.Equal(t, "utils/validators.py", entries[0].File)
	assert.Equal(t, "README.md", entries[1].File)

	plans := f.rt.Plans.Plans()
	require.Len(t, plans, 1)
	assert.Equal(t, MainPlanName, plans[0].PlanName)
	assert.Equal(t, framework.SubPlanCompleted, plans[0].SubPlans[0].Status)
	assert.False(t, f.rt.Plans.HasPendingSubPlans())

	assert.Equal(t, 2, f.model.calls(CodeValidationAgent))
	assert.Equal(t, "Looks correct.", f.rt.Memory.Get(SelfReflectionAgent, "reflection", ""))
}

func TestCoordinatorRetriesAreBounded(t *testing.T) {
	f := newFixture(t, map[string]string{"stub.py": "def todo():\n    pass\n"})
	f.model.on(QueryUnderstandingAgent, `{"objectives": ["Improve stub"]}`)
	f.model.on(PlanAgent, `{"plan": [{"objective": "Improve stub", "tasks": []}]}`)
	f.model.on(AnswerGenerationAgent, `{"code_changes": []}`)
	c := newTestCoordinator(f)

	report, err := c.Run(context.Background(), "Improve stub")
	require.NoError(t, err)

	assert.Equal(t, 3, report.Retries)
	require.Len(t, report.Incomplete, 1)
	assert.Equal(t, "todo", report.Incomplete[0].Function)
	assert.Equal(t, 4, f.model.calls(AnswerGenerationAgent))
	assert.Zero(t, f.model.calls(CodeValidationAgent))
	assert.True(t, f.exists("README.md"))

	var retryPlans int
	for _, p := range f.rt.Plans.Plans() {
		if p.PlanName == "Complete Function: todo" {
			retryPlans++
			assert.Equal(t, []framework.SubPlan{{Name: "Complete the function 'todo' in 'stub.py'", Status: framework.SubPlanPending}}, p.SubPlans)
		}
	}
	assert.Equal(t, 3, retryPlans)
}

func TestCoordinatorRetryCompletesFunction(t *testing.T) {
	f := newFixture(t, map[string]string{"stub.py": "def todo():\n    pass\n"}, "yes", "")
	f.model.on(QueryUnderstandingAgent, `{"objectives": ["Improve stub"]}`)
	f.model.on(PlanAgent, `["ignored"]`)
	c := newTestCoordinator(f)
	c.Checker().UseModel = false

	// The plan has one entry without an objective, so the sub-goal loop
	// produces nothing and the first answer belongs to the retry.
	f.model.on(AnswerGenerationAgent, `{"action": "update", "file": "stub.py", "code": "def todo():\n    return 42\n"}`)

	report, err := c.Run(context.Background(), "Improve stub")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Retries)
	assert.Empty(t, report.Incomplete)
	assert.Equal(t, "def todo():\n    return 42\n", f.read(t, "stub.py"))
	plans := f.rt.Plans.Plans()
	require.Len(t, plans, 2)
	assert.Equal(t, "Complete Function: todo", plans[1].PlanName)
	assert.Equal(t, framework.SubPlanCompleted, plans[1].SubPlans[0].Status)
	assert.False(t, f.rt.Plans.HasPendingSubPlans())
}

func TestCoordinatorFailFast(t *testing.T) {
	t.Run("empty requirement", func(t *testing.T) {
		f := newFixture(t, map[string]string{"a.py": "def a():\n    return 1\n"})
		_, err := newTestCoordinator(f).Run(context.Background(), "   ")
		assert.ErrorIs(t, err, framework.ErrEmptyRequirement)
	})
	t.Run("empty repository map", func(t *testing.T) {
		f := newFixture(t, map[string]string{"notes.txt": "x"})
		_, err := newTestCoordinator(f).Run(context.Background(), "do something")
		assert.ErrorIs(t, err, framework.ErrEmptyRepositoryMap)
		assert.Zero(t, f.model.calls(QueryUnderstandingAgent))
	})
	t.Run("no objectives", func(t *testing.T) {
		f := newFixture(t, map[string]string{"a.py": "def a():\n    return 1\n"})
		f.model.on(QueryUnderstandingAgent, `{"objectives": []}`)
		_, err := newTestCoordinator(f).Run(context.Background(), "do something")
		assert.ErrorIs(t, err, framework.ErrNoObjectives)
		assert.Zero(t, f.model.calls(PlanAgent))
	})
	t.Run("empty plan", func(t *testing.T) {
		f := newFixture(t, map[string]string{"a.py": "def a():\n    return 1\n"})
		f.model.on(QueryUnderstandingAgent, `{"objectives": ["x"]}`)
		f.model.on(PlanAgent, `{"plan": []}`)
		_, err := newTestCoordinator(f).Run(context.Background(), "do something")
		assert.ErrorIs(t, err, framework.ErrEmptyPlan)
		assert.False(t, f.exists("README.md"))
	})
}

func TestCoordinatorUndoCommand(t *testing.T) {
	f := newFixture(t, map[string]string{"app.py": "def main():\n    return 0\n"}, "yes", "")
	scriptEmailRun(f.model)
	c := newTestCoordinator(f)
	_, err := c.Run(context.Background(), "Add a function validate_email to utils/validators.py")
	require.NoError(t, err)

	report, err := c.Run(context.Background(), "Undo Changes")
	require.NoError(t, err)

	require.NotNil(t, report.Undo)
	assert.Len(t, report.Undo.Restored, 2)
	assert.False(t, f.exists("utils/validators.py"))
	assert.False(t, f.exists("README.md"))
	assert.Equal(t, "def main():\n    return 0\n", f.read(t, "app.py"))
}

func TestCoordinatorPublishesRunFiles(t *testing.T) {
	f := newFixture(t, map[string]string{"app.py": "def main():\n    return 0\n"}, "yes", "")
	scriptEmailRun(f.model)
	pub := &recordingPublisher{}
	c := newTestCoordinator(f)
	c.Publisher = pub

	report, err := c.Run(context.Background(), "Add a function validate_email to utils/validators.py")
	require.NoError(t, err)

	assert.True(t, report.Published)
	assert.Equal(t, "https://github.com/o/r/pull/1", report.PullRequestURL)
	require.Len(t, pub.requests, 1)
	req := pub.requests[0]
	assert.Equal(t, "auto-update-branch", req.Branch)
	assert.Equal(t, "main", req.Base)
	assert.Equal(t, "Automated Update", req.Title)
	assert.Equal(t, "Update based on requirement: Add a function validate_email to utils/validators.py", req.Message)
	assert.ElementsMatch(t, []string{"utils/validators.py", "README.md"}, keys(req.Files))
}

func TestCoordinatorPublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, map[string]string{"app.py": "def main():\n    return 0\n"}, "yes", "")
	scriptEmailRun(f.model)
	c := newTestCoordinator(f)
	c.Publisher = &recordingPublisher{err: errors.New("boom")}

	report, err := c.Run(context.Background(), "Add a function validate_email to utils/validators.py")
	require.NoError(t, err)

	assert.False(t, report.Published)
	assert.True(t, f.exists("utils/validators.py"))
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
