package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/gitagent/framework"
)

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

func TestOllamaGenerate(t *testing.T) {
	client := NewOllamaClient("http://fake/", "test", 0)
	client.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) *http.Response {
			assert.Equal(t, "/api/generate", req.URL.Path)
			var payload map[string]interface{}
			assert.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
			assert.Equal(t, "hello", payload["prompt"])
			assert.Equal(t, false, payload["stream"])
			opts, _ := payload["options"].(map[string]interface{})
			assert.Equal(t, float64(500), opts["num_predict"])
			assert.Equal(t, 0.3, opts["temperature"])
			return &http.Response{
				StatusCode: 200,
				Body:       io.NopCloser(strings.NewReader(`{"response":"answer","done_reason":"stop","eval_count":3,"prompt_eval_count":2}`)),
				Header:     make(http.Header),
			}
		}),
	}

	resp, err := client.Generate(context.Background(), "hello", &framework.LLMOptions{MaxTokens: 500, Temperature: 0.3})
	require.NoError(t, err)
	assert.Equal(t, "answer", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 5, resp.Usage["total_tokens"])
}

func TestOllamaGenerateErrorStatus(t *testing.T) {
	client := NewOllamaClient("http://fake", "test", 0)
	client.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) *http.Response {
			return &http.Response{
				StatusCode: 500,
				Status:     "500 Internal Server Error",
				Body:       io.NopCloser(strings.NewReader("model not loaded")),
				Header:     make(http.Header),
			}
		}),
	}
	_, err := client.Generate(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}
