package testsuite

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lexcodex/gitagent/agents"
	"github.com/lexcodex/gitagent/app/console"
	"github.com/lexcodex/gitagent/framework"
	"github.com/lexcodex/gitagent/framework/ast"
	"github.com/lexcodex/gitagent/internal/metrics"
	"github.com/lexcodex/gitagent/llm"
	"github.com/lexcodex/gitagent/tools"
)

const emailObjective = "Add function validate_email to utils/validators.py"

// fakeOllama answers /api/generate by recognising which stage wrote the
// prompt.
type fakeOllama struct {
	mu      sync.Mutex
	prompts []string
}

func (f *fakeOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	f.mu.Unlock()
	_ = json.NewEncoder(w).Encode(map[string]any{
		"response":    f.reply(req.Prompt),
		"done_reason": "stop",
	})
}

func (f *fakeOllama) reply(prompt string) string {
	switch {
	case strings.HasPrefix(prompt, "You are a helpful assistant. The user"):
		return `{"objectives": ["` + emailObjective + `"]}`
	case strings.HasPrefix(prompt, "You are a planning assistant"):
		return "```json\n{\"plan\": [{\"objective\": \"" + emailObjective + "\", \"steps\": [\"write it\"]}]}\n```"
	case strings.HasPrefix(prompt, "You are a context retrieval assistant"):
		return `{"context": ["An email address has a local part and a domain separated by @."]}`
	case strings.HasPrefix(prompt, "You are an intermediate processing assistant"):
		return `{"additional_context": ["Keep the check simple."]}`
	case strings.HasPrefix(prompt, "You are a code generation assistant"):
		if strings.Contains(prompt, "Complete the function 'slugify'") {
			return `{"code_changes": [{"action": "update", "file": "helpers.py", "code": "def slugify(s):\n    return s.lower().replace(' ', '-')\n"}]}`
		}
		return `{"code_changes": [{"action": "add", "file": "utils/validators.py", "code": "def validate_email(addr):\n    return '@' in addr\n"}]}`
	case strings.HasPrefix(prompt, "You have made the following changes"):
		return `{"reflection": "The change is minimal and correct."}`
	case strings.HasPrefix(prompt, "You are a code analysis assistant"):
		return `{"status": "Complete", "suggestions": ""}`
	default:
		return "{}"
	}
}

func (f *fakeOllama) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.prompts {
		if strings.HasPrefix(p, prefix) {
			n++
		}
	}
	return n
}

type harness struct {
	repo    string
	state   string
	coord   *agents.Coordinator
	rt      *agents.Runtime
	metrics *metrics.Metrics
	logs    *observer.ObservedLogs
	out     *strings.Builder
	backend *fakeOllama
}

func newHarness(t *testing.T, files map[string]string, answers string) *harness {
	t.Helper()
	repo := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(repo, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	state := t.TempDir()
	require.NoError(t, agents.CheckTarget(repo, state))

	backend := &fakeOllama{}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	m := metrics.New()

	ws, err := tools.NewWorkspace(repo)
	require.NoError(t, err)
	memory, err := framework.NewMemoryStore(state)
	require.NoError(t, err)
	changes, err := framework.NewChangeTracker(state)
	require.NoError(t, err)
	plans, err := framework.NewPlanTracker(state, logger)
	require.NoError(t, err)
	cache, err := ast.NewSQLiteStore(filepath.Join(state, "parse_cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	ollama := llm.NewOllamaClient(srv.URL, "llama3.1:70b", 0)
	out := &strings.Builder{}
	rt := &agents.Runtime{
		Model:      llm.NewInstrumentedModel(ollama, logger, m, 0),
		Memory:     memory,
		Changes:    changes,
		Plans:      plans,
		Parsers:    ast.DefaultRegistry(),
		ParseCache: cache,
		Workspace:  ws,
		Prompter:   console.NewLinePrompter(strings.NewReader(answers), out),
		Reporter:   console.NewReporter(out, true),
		Logger:     logger,
		Metrics:    m,
	}
	return &harness{
		repo:    ws.Root,
		state:   state,
		coord:   agents.NewCoordinator(rt, agents.DefaultCoordinatorConfig()),
		rt:      rt,
		metrics: m,
		logs:    logs,
		out:     out,
		backend: backend,
	}
}

func (h *harness) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(h.repo, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	files := map[string]string{}
	require.NoError(t, tools.WalkFiles(root, nil, func(rel string) error {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		files[rel] = string(data)
		return err
	}))
	return files
}

func TestRequirementRunAndUndo(t *testing.T) {
	original := map[string]string{
		"app.py":     "def main():\n    return 0\n",
		"helpers.py": "def slugify(s):\n    \"\"\"Turn s into a slug.\"\"\"\n    pass\n",
	}
	// yes + no hints for the new function, then the same for the retry.
	h := newHarness(t, original, "yes\n\nyes\n\n")
	ctx := context.Background()
	before := snapshot(t, h.repo)

	report, err := h.coord.Run(ctx, "Add a function validate_email to utils/validators.py")
	require.NoError(t, err)

	assert.Equal(t, []string{emailObjective}, report.Objectives)
	require.Len(t, report.Applied, 2)
	assert.Equal(t, 1, report.Retries)
	assert.Empty(t, report.Incomplete)

	assert.Equal(t, "def validate_email(addr):\n    return '@' in addr\n", h.read(t, "utils/validators.py"))
	assert.Equal(t, "def slugify(s):\n    return s.lower().replace(' ', '-')\n", h.read(t, "helpers.py"))
	assert.Contains(t, h.read(t, "README.md"), "- Applied changes: add utils/validators.py, update helpers.py\n")

	assert.Equal(t, 1, h.backend.count("You have made the following changes"))
	assert.Equal(t, 2, h.backend.count("You are a code generation assistant"))
	assert.NotZero(t, h.logs.FilterMessage("llm response").Len())
	assert.Contains(t, h.out.String(), "Found 1 incomplete functions.")
	assert.Contains(t, h.out.String(), "Found 0 incomplete functions.")

	for _, name := range []string{framework.ChangeLogFileName, "centralized_memory.json", "plan_tracker.json", "parse_cache.db"} {
		assert.FileExists(t, filepath.Join(h.state, name))
	}
	assert.False(t, h.rt.Plans.HasPendingSubPlans())

	textfile := filepath.Join(h.state, "metrics.prom")
	require.NoError(t, h.metrics.WriteTextfile(textfile))
	prom, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `gitagent_code_changes_total{action="add",outcome="applied"} 1`)
	assert.Contains(t, string(prom), `gitagent_code_changes_total{action="update",outcome="applied"} 1`)
	assert.Contains(t, string(prom), "gitagent_completion_retries_total 1")

	undo, err := h.coord.Run(ctx, agents.UndoCommand)
	require.NoError(t, err)
	require.NotNil(t, undo.Undo)
	assert.Len(t, undo.Undo.Restored, 3)
	assert.Empty(t, undo.Undo.Skipped)
	assert.Equal(t, before, snapshot(t, h.repo))
	assert.Empty(t, h.rt.Changes.Changes())
}

func TestDeclinedChangeLeavesRepositoryUntouched(t *testing.T) {
	original := map[string]string{"app.py": "def main():\n    return 0\n"}
	h := newHarness(t, original, "no\n\n")
	before := snapshot(t, h.repo)

	report, err := h.coord.Run(context.Background(), "Add a function validate_email to utils/validators.py")
	require.NoError(t, err)

	assert.Empty(t, report.Applied)
	assert.Equal(t, 1, report.Skipped)
	after := snapshot(t, h.repo)
	delete(after, "README.md")
	assert.Equal(t, before, after)

	entries := h.rt.Changes.Changes()
	require.Len(t, entries, 1)
	assert.Equal(t, "README.md", entries[0].File)
}

func TestBackendOutageFailsFast(t *testing.T) {
	h := newHarness(t, map[string]string{"app.py": "def main():\n    return 0\n"}, "")
	h.rt.Model = llm.NewOllamaClient("http://127.0.0.1:1", "m", 0)

	_, err := h.coord.Run(context.Background(), "anything")

	assert.ErrorIs(t, err, framework.ErrNoObjectives)
	assert.Contains(t, h.out.String(), "No objectives parsed from the requirement.")
}
