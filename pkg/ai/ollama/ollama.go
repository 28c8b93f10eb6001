package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/OFFIS-RIT/castnet/pkg/ai"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
	"github.com/pkoukk/tiktoken-go"
	"golang.org/x/sync/semaphore"
)

// CastOllamaClient implements ai.LocalClient on a self-hosted Ollama runtime.
type CastOllamaClient struct {
	model string

	reqLock *semaphore.Weighted
	encoder *tiktoken.Tiktoken

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	baseURL *url.URL

	Client *api.Client
}

// NewCastOllamaClientParams contains configuration options for creating a new CastOllamaClient.
//
// Encoder is optional and only used to size the context window.
type NewCastOllamaClientParams struct {
	Model   string
	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
	Encoder               *tiktoken.Tiktoken
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewCastOllamaClient creates a client for the Ollama server at BaseURL
// (OLLAMA_HOST or localhost:11434 when empty).
func NewCastOllamaClient(
	params NewCastOllamaClientParams,
) (*CastOllamaClient, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	} else {
		u = envconfig.Host()
	}

	headers := map[string]string{}
	if params.ApiKey != "" {
		headers["Authorization"] = "Bearer " + params.ApiKey
	}
	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: headers,
			rt:      http.DefaultTransport,
		},
	}

	concurrency := params.MaxConcurrentRequests
	if concurrency <= 0 {
		concurrency = 1
	}

	return &CastOllamaClient{
		model: params.Model,

		reqLock: semaphore.NewWeighted(concurrency),
		encoder: params.Encoder,

		metricsLock: sync.Mutex{},
		metrics:     ai.ModelMetrics{},

		baseURL: u,

		Client: api.NewClient(u, httpClient),
	}, nil
}
