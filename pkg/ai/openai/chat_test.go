package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/OFFIS-RIT/castnet/pkg/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionServer(t *testing.T, content string, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if captured != nil {
			_ = json.Unmarshal(body, captured)
		}
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestNewCastOpenAIClientWithoutKey(t *testing.T) {
	assert.Nil(t, NewCastOpenAIClient(NewCastOpenAIClientParams{Model: "m"}))
}

func TestGenerateCompletionWithFormat(t *testing.T) {
	var req map[string]any
	srv := completionServer(t, `{"characters":[{"name":"Alice","aliases":["Al"],"confidence":0.9}]}`, &req)
	defer srv.Close()

	client := NewCastOpenAIClient(NewCastOpenAIClientParams{Model: "test-model", ChatURL: srv.URL, ChatKey: "k"})
	require.NotNil(t, client)

	var out struct {
		Characters []struct {
			Name       string   `json:"name"`
			Aliases    []string `json:"aliases"`
			Confidence float64  `json:"confidence"`
		} `json:"characters"`
	}
	err := client.GenerateCompletionWithFormat(context.Background(), "characters", "named characters", "prompt", &out)
	require.NoError(t, err)
	require.Len(t, out.Characters, 1)
	assert.Equal(t, "Alice", out.Characters[0].Name)
	assert.Equal(t, []string{"Al"}, out.Characters[0].Aliases)

	assert.Equal(t, "test-model", req["model"])
	format, ok := req["response_format"].(map[string]any)
	require.True(t, ok, "response_format missing from request")
	assert.Equal(t, "json_schema", format["type"])

	m := client.GetMetrics()
	assert.Equal(t, 20, m.TotalTokens)
	client.ResetMetrics()
	assert.Zero(t, client.GetMetrics().TotalTokens)
}

func TestGenerateCompletionEmptyContent(t *testing.T) {
	srv := completionServer(t, "", nil)
	defer srv.Close()

	client := NewCastOpenAIClient(NewCastOpenAIClientParams{Model: "m", ChatURL: srv.URL, ChatKey: "k"})
	_, err := client.GenerateCompletion(context.Background(), "hi")
	assert.Error(t, err)
}

func TestCompletionUsageGoesToCallerRecorder(t *testing.T) {
	srv := completionServer(t, "ok", nil)
	defer srv.Close()

	client := NewCastOpenAIClient(NewCastOpenAIClientParams{Model: "m", ChatURL: srv.URL, ChatKey: "k"})
	first, second := &ai.UsageRecorder{}, &ai.UsageRecorder{}

	_, err := client.GenerateCompletion(ai.WithUsageRecorder(context.Background(), first), "one")
	require.NoError(t, err)
	_, err = client.GenerateCompletion(ai.WithUsageRecorder(context.Background(), second), "two")
	require.NoError(t, err)
	_, err = client.GenerateCompletion(ai.WithUsageRecorder(context.Background(), second), "three")
	require.NoError(t, err)

	assert.Equal(t, 20, first.Total().TotalTokens)
	assert.Equal(t, 40, second.Total().TotalTokens)
	assert.Equal(t, 60, client.GetMetrics().TotalTokens)
}
