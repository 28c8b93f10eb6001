package openai

import (
	"net/http"
	"sync"
	"time"

	"github.com/OFFIS-RIT/castnet/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// CastOpenAIClient talks to an OpenAI-compatible chat completion endpoint
// (OpenAI itself or any managed inference service exposing the same API).
//
// A CastOpenAIClient should be created using NewCastOpenAIClient.
type CastOpenAIClient struct {
	model   string
	chatURL string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient *openai.Client
}

// NewCastOpenAIClientParams defines the configuration for a CastOpenAIClient.
//
// ChatURL may be empty to use the official OpenAI endpoint. MaxRetries is
// the number of transport level retries done by the SDK itself.
type NewCastOpenAIClientParams struct {
	Model   string
	ChatURL string
	ChatKey string

	MaxRetries int
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewCastOpenAIClient creates a client for the given endpoint. It returns
// nil when no API key is configured, which callers treat as "remote
// extraction disabled".
//
// Example:
//
//	client := openai.NewCastOpenAIClient(openai.NewCastOpenAIClientParams{
//		Model:   "gpt-4o-mini",
//		ChatKey: os.Getenv("AI_CHAT_KEY"),
//	})
func NewCastOpenAIClient(params NewCastOpenAIClientParams) *CastOpenAIClient {
	chatClient := newOpenaiClient(params)
	if chatClient == nil {
		return nil
	}

	return &CastOpenAIClient{
		model:   params.Model,
		chatURL: params.ChatURL,

		metricsLock: sync.Mutex{},
		metrics:     ai.ModelMetrics{},

		ChatClient: chatClient,
	}
}

func newOpenaiClient(params NewCastOpenAIClientParams) *openai.Client {
	if params.ChatKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(params.ChatKey),
		option.WithMaxRetries(max(params.MaxRetries, 0)),
	}

	if params.ChatURL != "" {
		options = append(options, option.WithBaseURL(params.ChatURL))
	}
	if params.HTTPClient != nil {
		options = append(options, option.WithHTTPClient(params.HTTPClient))
	}
	if params.Timeout > 0 {
		options = append(options, option.WithRequestTimeout(params.Timeout))
	}

	client := openai.NewClient(options...)

	return &client
}
