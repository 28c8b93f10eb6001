package ai

import (
	"context"
)

// GenerateOptions holds configuration for AI generation requests.
type GenerateOptions struct {
	Model         string   // Model identifier to use for generation
	SystemPrompts []string // System prompts prepended to the request
	Temperature   float64  // Sampling temperature (0.0-2.0)
	Thinking      string   // Extended thinking mode configuration
}

// ModelMetrics contains performance metrics from AI model operations.
type ModelMetrics struct {
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	TotalTokens    int     `json:"total_tokens"`
	DurationMs     int64   `json:"duration_ms"`
	TokenPerSecond float32 `json:"tokens_per_second"`
}

// Add returns the sum of two metric snapshots. TokenPerSecond is recomputed
// from the summed totals.
func (m ModelMetrics) Add(o ModelMetrics) ModelMetrics {
	sum := ModelMetrics{
		InputTokens:  m.InputTokens + o.InputTokens,
		OutputTokens: m.OutputTokens + o.OutputTokens,
		TotalTokens:  m.TotalTokens + o.TotalTokens,
		DurationMs:   m.DurationMs + o.DurationMs,
	}
	if sum.DurationMs > 0 {
		sum.TokenPerSecond = float32(float64(sum.TotalTokens) * 1000.0 / float64(sum.DurationMs))
	}
	return sum
}

// GenerateOption is a functional option for configuring AI generation requests.
type GenerateOption func(*GenerateOptions)

// WithModel returns a GenerateOption that sets the model to use for generation.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithSystemPrompts returns a GenerateOption that sets the system prompts
// to prepend to the generation request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature returns a GenerateOption that sets the sampling temperature.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// WithThinking returns a GenerateOption that enables extended thinking mode.
func WithThinking(thinking string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Thinking = thinking
	}
}

// CompletionClient is the text generation capability used for character
// extraction. Implementations accumulate token usage until ResetMetrics.
type CompletionClient interface {
	GenerateCompletion(
		ctx context.Context,
		prompt string,
		opts ...GenerateOption,
	) (string, error)
	GenerateCompletionWithFormat(
		ctx context.Context,
		name string,
		description string,
		prompt string,
		out any,
		opts ...GenerateOption,
	) error

	ResetMetrics()
	GetMetrics() ModelMetrics
}

// LocalClient is a CompletionClient running on a self-hosted runtime that
// can report whether it is reachable before any generation is attempted.
type LocalClient interface {
	CompletionClient
	Heartbeat(ctx context.Context) error
}
