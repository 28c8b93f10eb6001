package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/OFFIS-RIT/castnet/pkg/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeOllama(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/":
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/api/chat":
			var req map[string]any
			_ = json.NewDecoder(r.Body).Decode(&req)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"model":             req["model"],
				"created_at":        "2024-01-01T00:00:00Z",
				"message":           map[string]any{"role": "assistant", "content": content},
				"done":              true,
				"prompt_eval_count": 30,
				"eval_count":        10,
				"total_duration":    2000000000,
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestHeartbeatAndCompletion(t *testing.T) {
	srv := fakeOllama(t, `Here you go: [{"name":"Bob"}]`)
	defer srv.Close()

	client, err := NewCastOllamaClient(NewCastOllamaClientParams{Model: "llama3", BaseURL: srv.URL})
	require.NoError(t, err)
	require.NoError(t, client.Heartbeat(context.Background()))

	out, err := client.GenerateCompletion(context.Background(), "who?", ai.WithTemperature(0))
	require.NoError(t, err)
	assert.Contains(t, out, `"Bob"`)

	m := client.GetMetrics()
	assert.Equal(t, 40, m.TotalTokens)
	assert.Equal(t, int64(2000), m.DurationMs)
	assert.InDelta(t, 20, m.TokenPerSecond, 0.01)
}

func TestHeartbeatUnreachable(t *testing.T) {
	srv := fakeOllama(t, "")
	url := srv.URL
	srv.Close()

	client, err := NewCastOllamaClient(NewCastOllamaClientParams{Model: "llama3", BaseURL: url})
	require.NoError(t, err)
	assert.Error(t, client.Heartbeat(context.Background()))
}

func TestGenerateCompletionWithFormat(t *testing.T) {
	srv := fakeOllama(t, `{"characters":[{"name":"Carol","aliases":[]}]}`)
	defer srv.Close()

	client, err := NewCastOllamaClient(NewCastOllamaClientParams{Model: "llama3", BaseURL: srv.URL})
	require.NoError(t, err)

	var out struct {
		Characters []struct {
			Name string `json:"name"`
		} `json:"characters"`
	}
	require.NoError(t, client.GenerateCompletionWithFormat(context.Background(), "characters", "", "p", &out))
	require.Len(t, out.Characters, 1)
	assert.Equal(t, "Carol", out.Characters[0].Name)

	var notPointer struct{}
	assert.Error(t, client.GenerateCompletionWithFormat(context.Background(), "x", "", "p", notPointer))
}
