package pattern

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/gitagent/framework"
)

type stubLLM struct {
	responses     []string
	idx           int
	generateCalls int
	prompts       []string
}

// Generate returns the next queued response for deterministic tests.
func (s *stubLLM) Generate(ctx context.Context, prompt string, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	s.generateCalls++
	s.prompts = append(s.prompts, prompt)
	if s.idx >= len(s.responses) {
		return nil, errors.New("no response")
	}
	resp := s.responses[s.idx]
	s.idx++
	return &framework.LLMResponse{Text: resp}, nil
}

func TestParseSkipsRepairForValidJSON(t *testing.T) {
	llm := &stubLLM{}
	r := &Repairer{Model: llm}
	v, ok := r.ParseObject(context.Background(), `{"reflection": "fine"}`)
	require.True(t, ok)
	assert.Equal(t, "fine", v["reflection"])
	assert.Equal(t, 0, llm.generateCalls)
}

func TestRepairSucceedsWithOneCall(t *testing.T) {
	llm := &stubLLM{responses: []string{`{"objectives": ["fixed"]}`}}
	var observed []bool
	r := &Repairer{Model: llm, Observe: func(ok bool) { observed = append(observed, ok) }}
	v, ok := r.ParseObject(context.Background(), `{"objectives": ["fixed"`)
	require.True(t, ok)
	assert.Equal(t, []any{"fixed"}, v["objectives"])
	assert.Equal(t, 1, llm.generateCalls)
	assert.Equal(t, []bool{true}, observed)
	assert.True(t, strings.Contains(llm.prompts[0], `{"objectives": ["fixed"`))
}

func TestRepairIsBoundedToOneCall(t *testing.T) {
	llm := &stubLLM{responses: []string{"still broken {", `{"never": "used"}`}}
	r := &Repairer{Model: llm}
	_, ok := r.Parse(context.Background(), "garbage")
	require.False(t, ok)
	assert.Equal(t, 1, llm.generateCalls)
}

func TestRepairEmptyResponse(t *testing.T) {
	llm := &stubLLM{responses: []string{"   "}}
	r := &Repairer{Model: llm}
	_, ok := r.Repair(context.Background(), "garbage")
	require.False(t, ok)
	assert.Equal(t, 1, llm.generateCalls)
}

func TestRepairModelError(t *testing.T) {
	llm := &stubLLM{}
	r := &Repairer{Model: llm}
	_, ok := r.Repair(context.Background(), "garbage")
	require.False(t, ok)
	assert.Equal(t, 1, llm.generateCalls)
}
