package pattern

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDirect(t *testing.T) {
	inputs := []string{
		`{"objectives": ["a", "b"]}`,
		`[1, 2, {"x": null}]`,
		`  {"nested": {"deep": [true, false]}}  `,
		`"just a string"`,
		`42`,
	}
	for _, in := range inputs {
		var want any
		require.NoError(t, json.Unmarshal([]byte(in), &want))
		got, ok := Extract(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
}

func TestExtractFenced(t *testing.T) {
	raw := "Sure! Here is the plan:\n```json\n{\"plan\": [{\"objective\": \"x\", \"tasks\": []}]}\n```\nLet me know."
	got, ok := ExtractObject(raw)
	require.True(t, ok)
	require.Contains(t, got, "plan")
}

func TestExtractFencedSkipsBrokenBlock(t *testing.T) {
	raw := "```json\n{broken\n```\nand then\n```json\n{\"ok\": true}\n```"
	got, ok := ExtractObject(raw)
	require.True(t, ok)
	require.Equal(t, true, got["ok"])
}

func TestExtractEmbeddedSpan(t *testing.T) {
	raw := `The answer is {"code_changes": [{"action": "add", "file": "a.py", "code": "def f():\n    return '}'"}]} hope it helps {"other": 1}`
	got, ok := ExtractObject(raw)
	require.True(t, ok)
	changes, ok := got["code_changes"].([]any)
	require.True(t, ok)
	require.Len(t, changes, 1)
}

func TestExtractFirstDecodableSpan(t *testing.T) {
	raw := `noise {not json} then ["a", "b"] then {"c": 1}`
	got, ok := Extract(raw)
	require.True(t, ok)
	require.Equal(t, []any{"a", "b"}, got)
}

func TestExtractFailureIsStable(t *testing.T) {
	inputs := []string{"", "   ", "no structure here", "{unterminated", "```json\n{bad}\n```", "} ] stray closers [ {"}
	for _, in := range inputs {
		for i := 0; i < 2; i++ {
			v, ok := Extract(in)
			assert.False(t, ok, in)
			assert.Nil(t, v, in)
		}
	}
}

func TestExtractObjectRejectsArrays(t *testing.T) {
	_, ok := ExtractObject(`[1, 2]`)
	require.False(t, ok)
}

func TestConvert(t *testing.T) {
	v, ok := Extract(`{"action": "add", "file": "a.py", "code": "x = 1"}`)
	require.True(t, ok)
	var out struct {
		Action string `json:"action"`
		File   string `json:"file"`
	}
	require.NoError(t, Convert(v, &out))
	require.Equal(t, "add", out.Action)
	require.Equal(t, "a.py", out.File)
}
