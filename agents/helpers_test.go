package agents

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lexcodex/gitagent/framework"
	"github.com/lexcodex/gitagent/framework/ast"
	"github.com/lexcodex/gitagent/tools"
)

// scriptedModel replies from a per-stage queue. An exhausted queue yields
// an empty response.
type scriptedModel struct {
	mu      sync.Mutex
	replies map[string][]string
	prompts map[string][]string
}

func newScriptedModel() *scriptedModel {
	return &scriptedModel{replies: map[string][]string{}, prompts: map[string][]string{}}
}

func (m *scriptedModel) on(stage string, replies ...string) *scriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[stage] = append(m.replies[stage], replies...)
	return m
}

func (m *scriptedModel) calls(stage string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts[stage])
}

func (m *scriptedModel) Generate(ctx context.Context, prompt string, _ *framework.LLMOptions) (*framework.LLMResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stage := framework.StageFrom(ctx)
	m.prompts[stage] = append(m.prompts[stage], prompt)
	queue := m.replies[stage]
	if len(queue) == 0 {
		return &framework.LLMResponse{}, nil
	}
	m.replies[stage] = queue[1:]
	return &framework.LLMResponse{Text: queue[0]}, nil
}

// scriptedPrompter answers questions in order and records them. Once the
// script runs out every answer is empty.
type scriptedPrompter struct {
	answers []string
	asked   []string
}

func (p *scriptedPrompter) Ask(_ context.Context, question string) (string, error) {
	p.asked = append(p.asked, question)
	if len(p.answers) == 0 {
		return "", nil
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

type fixture struct {
	repo     string
	state    string
	rt       *Runtime
	model    *scriptedModel
	prompter *scriptedPrompter
}

func newFixture(t *testing.T, files map[string]string, answers ...string) *fixture {
	t.Helper()
	repo := t.TempDir()
	for rel, content := range files {
		writeFile(t, repo, rel, content)
	}
	state := t.TempDir()
	ws, err := tools.NewWorkspace(repo)
	require.NoError(t, err)
	memory, err := framework.NewMemoryStore(state)
	require.NoError(t, err)
	changes, err := framework.NewChangeTracker(state)
	require.NoError(t, err)
	plans, err := framework.NewPlanTracker(state, nil)
	require.NoError(t, err)
	model := newScriptedModel()
	prompter := &scriptedPrompter{answers: answers}
	return &fixture{
		repo:     ws.Root,
		state:    state,
		model:    model,
		prompter: prompter,
		rt: &Runtime{
			Model:     model,
			Memory:    memory,
			Changes:   changes,
			Plans:     plans,
			Parsers:   ast.DefaultRegistry(),
			Workspace: ws,
			Prompter:  prompter,
		},
	}
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.repo, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(f.repo, filepath.FromSlash(rel)))
	return err == nil
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func countPrefix(items []string, prefix string) int {
	n := 0
	for _, item := range items {
		if strings.HasPrefix(item, prefix) {
			n++
		}
	}
	return n
}
