package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/castnet/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
)

func (c *CastOpenAIClient) buildParams(prompt string, options ai.GenerateOptions) openai.ChatCompletionNewParams {
	msgs := []openai.ChatCompletionMessageParamUnion{}
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, openai.SystemMessage(sp))
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	body := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(options.Model),
		Messages:    msgs,
		Temperature: openai.Float(options.Temperature),
	}

	if options.Thinking != "" {
		// reasoning models on the official endpoint only accept temperature 1
		if c.chatURL == "" {
			body.Temperature = openai.Float(1.0)
		}
		body.ReasoningEffort = shared.ReasoningEffort(options.Thinking)
	}
	return body
}

func (c *CastOpenAIClient) complete(ctx context.Context, body openai.ChatCompletionNewParams) (string, error) {
	start := time.Now()
	response, err := c.ChatClient.Chat.Completions.New(ctx, body)
	if err != nil {
		return "", err
	}
	usage := ai.ModelMetrics{
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
		TotalTokens:  int(response.Usage.TotalTokens),
		DurationMs:   time.Since(start).Milliseconds(),
	}
	c.modifyMetrics(usage)
	ai.RecordUsage(ctx, usage)

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in response from model")
	}
	message := response.Choices[0].Message.Content
	if message == "" {
		return "", fmt.Errorf("empty response from model (finish_reason: %s)", response.Choices[0].FinishReason)
	}
	return message, nil
}

// GenerateCompletion sends a single-turn prompt to the chat model and
// returns the generated completion as plain text.
func (c *CastOpenAIClient) GenerateCompletion(
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

	return c.complete(ctx, c.buildParams(prompt, options))
}

// GenerateCompletionWithFormat sends a prompt to the chat model and
// unmarshals the response into out, using a strict JSON schema derived from
// out's type to constrain the model.
//
// Example:
//
//	var out struct {
//		Characters []Character `json:"characters"`
//	}
//	err := client.GenerateCompletionWithFormat(ctx, "characters", "Named characters", prompt, &out)
func (c *CastOpenAIClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        name,
		Description: openai.String(description),
		Schema:      ai.GenerateSchema(out),
		Strict:      openai.Bool(true),
	}

	options := ai.GenerateOptions{
		Model:       c.model,
		Temperature: 0.1,
	}
	for _, o := range opts {
		o(&options)
	}

	body := c.buildParams(prompt, options)
	body.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: schemaParam,
		},
	}

	message, err := c.complete(ctx, body)
	if err != nil {
		return err
	}
	return ai.UnmarshalFlexible(message, out)
}
