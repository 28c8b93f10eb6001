// Package config assembles the runtime configuration from environment
// variables (optionally loaded from a .env file).
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/castnet/internal/util"
	"github.com/OFFIS-RIT/castnet/pkg/extract"
	"github.com/OFFIS-RIT/castnet/pkg/graph"
)

type AppConfig struct {
	Debug           bool
	LogFormat       string
	Port            string
	BodyLimit       string
	ShutdownTimeout time.Duration
}

// AIConfig describes the two LLM backends. An empty RemoteKey disables
// the hosted model; LocalEnabled toggles the Ollama runtime.
type AIConfig struct {
	RemoteURL      string
	RemoteKey      string
	RemoteModel    string
	RemoteTimeout  time.Duration
	RemoteRetries  int
	RemoteThinking string

	LocalEnabled      bool
	LocalURL          string
	LocalKey          string
	LocalModel        string
	LocalTimeout      time.Duration
	LocalProbeTimeout time.Duration
	LocalMaxRequests  int64
	LocalThinking     string

	TokenEncoder string
}

type AnalysisConfig struct {
	Extraction      extract.Options
	Cooccurrence    graph.Options
	MinTextLength   int
	ParallelBatches int
	BatchSize       int
	MaxActiveRuns   int
	ResultTTL       time.Duration
}

type QueueConfig struct {
	User        string
	Password    string
	Host        string
	Port        string
	Queue       string
	ResultQueue string
	MaxRetries  int
	RetryDelay  time.Duration
}

// URL returns the AMQP connection URL.
func (q QueueConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", q.User, q.Password, q.Host, q.Port)
}

type S3Config struct {
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	ResultsPrefix string
}

// Enabled reports whether a bucket is configured.
func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

// AuthConfig enables bearer authentication when URL is set. Tokens are
// verified against the JWKS published at URL + "/jwks"; MasterAPIKey is
// accepted as a static bearer token.
type AuthConfig struct {
	URL          string
	MasterAPIKey string
}

func (a AuthConfig) Enabled() bool {
	return a.URL != "" || a.MasterAPIKey != ""
}

type Config struct {
	App      AppConfig
	AI       AIConfig
	Analysis AnalysisConfig
	Queue    QueueConfig
	S3       S3Config
	Auth     AuthConfig
}

// Load reads the configuration from the environment. Unset variables take
// the defaults below.
func Load() *Config {
	extractDefaults := extract.DefaultOptions()
	graphDefaults := graph.DefaultOptions()

	return &Config{
		App: AppConfig{
			Debug:           util.GetEnvBool("DEBUG", false),
			LogFormat:       util.GetEnvString("LOG_FORMAT", "text"),
			Port:            util.GetEnvString("PORT", "8080"),
			BodyLimit:       util.GetEnvString("BODY_LIMIT", "64M"),
			ShutdownTimeout: util.GetEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		AI: AIConfig{
			RemoteURL:      util.GetEnv("AI_CHAT_URL"),
			RemoteKey:      util.GetEnv("AI_CHAT_KEY"),
			RemoteModel:    util.GetEnvString("AI_CHAT_MODEL", "gpt-4o-mini"),
			RemoteTimeout:  util.GetEnvDuration("AI_CHAT_TIMEOUT", 30*time.Second),
			RemoteRetries:  util.GetEnvInt("AI_MAX_RETRIES", 1),
			RemoteThinking: util.GetEnv("AI_CHAT_REASONING"),

			LocalEnabled:      util.GetEnvBool("AI_LOCAL_ENABLED", false),
			LocalURL:          util.GetEnv("AI_LOCAL_URL"),
			LocalKey:          util.GetEnv("AI_LOCAL_KEY"),
			LocalModel:        util.GetEnvString("AI_LOCAL_MODEL", "llama3.1"),
			LocalTimeout:      util.GetEnvDuration("AI_LOCAL_TIMEOUT", 90*time.Second),
			LocalProbeTimeout: util.GetEnvDuration("AI_LOCAL_PROBE_TIMEOUT", 2*time.Second),
			LocalMaxRequests:  int64(util.GetEnvInt("AI_LOCAL_MAX_REQUESTS", 1)),
			LocalThinking:     util.GetEnv("AI_LOCAL_THINK"),

			TokenEncoder: util.GetEnv("AI_TOKEN_ENCODER"),
		},
		Analysis: AnalysisConfig{
			Extraction: extract.Options{
				MaxCharacters:  util.GetEnvInt("EXTRACT_MAX_CHARACTERS", extractDefaults.MaxCharacters),
				MinMentions:    util.GetEnvInt("EXTRACT_MIN_MENTIONS", extractDefaults.MinMentions),
				MergeThreshold: util.GetEnvFloat("EXTRACT_MERGE_THRESHOLD", extractDefaults.MergeThreshold),
			},
			Cooccurrence: graph.Options{
				WindowSize:    util.GetEnvInt("GRAPH_WINDOW_SIZE", graphDefaults.WindowSize),
				MinEdgeWeight: util.GetEnvInt("GRAPH_MIN_EDGE_WEIGHT", graphDefaults.MinEdgeWeight),
				MinMentions:   util.GetEnvInt("GRAPH_MIN_MENTIONS", graphDefaults.MinMentions),
			},
			MinTextLength:   util.GetEnvInt("ANALYSIS_MIN_TEXT_LENGTH", 50),
			ParallelBatches: util.GetEnvInt("GRAPH_PARALLEL_BATCHES", 0),
			BatchSize:       util.GetEnvInt("GRAPH_BATCH_SIZE", 500),
			MaxActiveRuns:   util.GetEnvInt("ANALYSIS_MAX_ACTIVE_RUNS", 4),
			ResultTTL:       util.GetEnvDuration("ANALYSIS_RESULT_TTL", time.Hour),
		},
		Queue: QueueConfig{
			User:        util.GetEnvString("RABBITMQ_USER", "guest"),
			Password:    util.GetEnvString("RABBITMQ_PASSWORD", "guest"),
			Host:        util.GetEnvString("RABBITMQ_HOST", "localhost"),
			Port:        util.GetEnvString("RABBITMQ_PORT", "5672"),
			Queue:       util.GetEnvString("ANALYSIS_QUEUE", "analysis_queue"),
			ResultQueue: util.GetEnvString("ANALYSIS_RESULT_QUEUE", "analysis_results"),
			MaxRetries:  util.GetEnvInt("QUEUE_MAX_RETRIES", 10),
			RetryDelay:  util.GetEnvDuration("QUEUE_RETRY_DELAY", 10*time.Second),
		},
		S3: S3Config{
			Region:        util.GetEnvString("AWS_REGION", "us-east-1"),
			Endpoint:      util.GetEnv("AWS_ENDPOINT"),
			AccessKey:     util.GetEnv("AWS_ACCESS_KEY"),
			SecretKey:     util.GetEnv("AWS_SECRET_KEY"),
			Bucket:        util.GetEnv("AWS_BUCKET"),
			ResultsPrefix: util.GetEnvString("AWS_RESULTS_PREFIX", "analyses"),
		},
		Auth: AuthConfig{
			URL:          util.GetEnv("AUTH_URL"),
			MasterAPIKey: util.GetEnv("MASTER_API_KEY"),
		},
	}
}

// Validate reports settings that would make every analysis fail.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Analysis.Extraction.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("extraction defaults: %w", err))
	}
	if err := c.Analysis.Cooccurrence.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("cooccurrence defaults: %w", err))
	}
	if c.Analysis.MinTextLength < 1 {
		errs = append(errs, fmt.Errorf("ANALYSIS_MIN_TEXT_LENGTH must be positive, got %d", c.Analysis.MinTextLength))
	}
	if c.Analysis.MaxActiveRuns < 1 {
		errs = append(errs, fmt.Errorf("ANALYSIS_MAX_ACTIVE_RUNS must be positive, got %d", c.Analysis.MaxActiveRuns))
	}
	if c.Queue.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("QUEUE_MAX_RETRIES must not be negative, got %d", c.Queue.MaxRetries))
	}
	return errors.Join(errs...)
}
