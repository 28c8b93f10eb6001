package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/OFFIS-RIT/castnet/pkg/ai"

	"github.com/ollama/ollama/api"
)

const defaultContextWindow = 4096

// Heartbeat checks that the Ollama server answers at all. Callers bound it
// with a short timeout so an absent runtime is detected quickly.
func (c *CastOllamaClient) Heartbeat(ctx context.Context) error {
	if err := c.Client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama at %s unreachable: %w", c.baseURL, err)
	}
	return nil
}

func (c *CastOllamaClient) chat(ctx context.Context, prompt string, format json.RawMessage, options ai.GenerateOptions) (string, error) {
	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	msgs := make([]api.Message, 0, len(options.SystemPrompts)+1)
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: sp})
	}
	msgs = append(msgs, api.Message{Role: "user", Content: prompt})

	stream := false
	req := &api.ChatRequest{
		Model:    options.Model,
		Messages: msgs,
		Stream:   &stream,
		Format:   format,
		Options:  map[string]any{"temperature": options.Temperature},
	}

	if options.Thinking != "" {
		req.Think = &api.ThinkValue{
			Value: options.Thinking,
		}
	}

	// prompt plus headroom for the answer
	tokens := ai.CountTokens(c.encoder, prompt) + 1024
	if tokens > defaultContextWindow {
		req.Options["num_ctx"] = tokens
	}

	var final api.ChatResponse
	if err := c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
			final.Metrics = cr.Metrics
		}
		return nil
	}); err != nil {
		return "", err
	}

	usage := ai.ModelMetrics{
		InputTokens:  final.Metrics.PromptEvalCount,
		OutputTokens: final.Metrics.EvalCount,
		TotalTokens:  final.Metrics.PromptEvalCount + final.Metrics.EvalCount,
		DurationMs:   final.Metrics.TotalDuration.Milliseconds(),
	}
	c.modifyMetrics(usage)
	ai.RecordUsage(ctx, usage)

	if final.Message.Content == "" {
		return "", errors.New("empty response from model")
	}
	return final.Message.Content, nil
}

// GenerateCompletion sends a single-turn prompt and returns assistant text.
func (c *CastOllamaClient) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.GenerateOptions{
		Model:       c.model,
		Temperature: 0.3,
	}
	for _, o := range opts {
		o(&options)
	}
	return c.chat(ctx, prompt, nil, options)
}

// GenerateCompletionWithFormat enforces a JSON schema and unmarshals into out.
func (c *CastOllamaClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	if out == nil {
		return errors.New("out must be a non-nil pointer")
	}
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("out must be a non-nil pointer")
	}

	formatBytes, err := json.Marshal(ai.GenerateSchema(out))
	if err != nil {
		return err
	}

	options := ai.GenerateOptions{
		Model:       c.model,
		Temperature: 0.1,
	}
	for _, o := range opts {
		o(&options)
	}

	content, err := c.chat(ctx, prompt, formatBytes, options)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return ai.UnmarshalFlexible(content, out)
}
