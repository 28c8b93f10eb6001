package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/castnet/internal/util"
	"github.com/OFFIS-RIT/castnet/pkg/ai"
	"github.com/OFFIS-RIT/castnet/pkg/logger"

	"github.com/pkoukk/tiktoken-go"
)

const defaultLLMConfidence = 0.9

var errNoJSONArray = errors.New("no JSON array in model reply")

type llmCharacter struct {
	Name       string   `json:"name" jsonschema:"description=Most complete form of the character's name"`
	Aliases    []string `json:"aliases" jsonschema:"description=Other names used for the same character"`
	Confidence float64  `json:"confidence"`
}

type llmCharacterList struct {
	Characters []llmCharacter `json:"characters"`
}

// UnmarshalJSON accepts both {"name": ...} objects and bare name strings,
// which smaller models return despite instructions.
func (c *llmCharacter) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*c = llmCharacter{Name: name}
		return nil
	}
	type plain llmCharacter
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = llmCharacter(p)
	return nil
}

func toCandidates(chars []llmCharacter) []Candidate {
	out := make([]Candidate, 0, len(chars))
	for _, c := range chars {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		conf := c.Confidence
		if conf <= 0 || conf > 1 {
			conf = defaultLLMConfidence
		}
		out = append(out, Candidate{Name: name, Aliases: c.Aliases, Confidence: conf})
	}
	return out
}

// LLMParams configures an LLM strategy. Zero durations take the defaults
// of the respective constructor.
type LLMParams struct {
	Model        string
	Timeout      time.Duration
	ProbeTimeout time.Duration
	Retries      int
	SampleTokens int
	Thinking     string
	Encoder      *tiktoken.Tiktoken
}

// RemoteLLMStrategy asks a hosted model for a schema constrained character
// list.
type RemoteLLMStrategy struct {
	client ai.CompletionClient
	params LLMParams
}

func NewRemoteLLMStrategy(client ai.CompletionClient, params LLMParams) *RemoteLLMStrategy {
	if params.Timeout <= 0 {
		params.Timeout = 30 * time.Second
	}
	if params.SampleTokens <= 0 {
		params.SampleTokens = 12000
	}
	return &RemoteLLMStrategy{client: client, params: params}
}

func (s *RemoteLLMStrategy) Name() string { return "remote-llm" }

func (s *RemoteLLMStrategy) Attempt(ctx context.Context, text string, opts Options) ([]Candidate, error) {
	if s.client == nil {
		return nil, fmt.Errorf("%w: no remote client configured", ErrUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, s.params.Timeout)
	defer cancel()

	prompt := fmt.Sprintf(ai.CharacterExtractPrompt, SampleText(text, s.params.SampleTokens, s.params.Encoder), opts.MaxCharacters)
	genOpts := []ai.GenerateOption{
		ai.WithTemperature(0.1),
		ai.WithSystemPrompts(ai.CharacterSystemPrompt),
	}
	if s.params.Model != "" {
		genOpts = append(genOpts, ai.WithModel(s.params.Model))
	}
	if s.params.Thinking != "" {
		genOpts = append(genOpts, ai.WithThinking(s.params.Thinking))
	}

	var out llmCharacterList
	err := util.RetryErrWithContext(ctx, s.params.Retries, time.Second, func(ctx context.Context) error {
		out = llmCharacterList{}
		return s.client.GenerateCompletionWithFormat(
			ctx,
			"characters",
			"Named characters of a literary text",
			prompt,
			&out,
			genOpts...,
		)
	})
	if err != nil {
		return nil, fmt.Errorf("remote completion: %w", err)
	}
	return toCandidates(out.Characters), nil
}

// LocalLLMStrategy asks a self-hosted model. It probes the runtime first and
// gives up immediately when it does not answer.
type LocalLLMStrategy struct {
	client ai.LocalClient
	params LLMParams
}

func NewLocalLLMStrategy(client ai.LocalClient, params LLMParams) *LocalLLMStrategy {
	if params.Timeout <= 0 {
		params.Timeout = 90 * time.Second
	}
	if params.ProbeTimeout <= 0 {
		params.ProbeTimeout = 2 * time.Second
	}
	if params.SampleTokens <= 0 {
		params.SampleTokens = 6000
	}
	return &LocalLLMStrategy{client: client, params: params}
}

func (s *LocalLLMStrategy) Name() string { return "local-llm" }

func (s *LocalLLMStrategy) Attempt(ctx context.Context, text string, opts Options) ([]Candidate, error) {
	if s.client == nil {
		return nil, fmt.Errorf("%w: no local client configured", ErrUnavailable)
	}

	probeCtx, cancelProbe := context.WithTimeout(ctx, s.params.ProbeTimeout)
	err := s.client.Heartbeat(probeCtx)
	cancelProbe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.params.Timeout)
	defer cancel()

	prompt := fmt.Sprintf(ai.CharacterExtractPromptPlain, SampleText(text, s.params.SampleTokens, s.params.Encoder), opts.MaxCharacters)
	genOpts := []ai.GenerateOption{
		ai.WithTemperature(0.1),
		ai.WithSystemPrompts(ai.CharacterSystemPrompt),
	}
	if s.params.Model != "" {
		genOpts = append(genOpts, ai.WithModel(s.params.Model))
	}
	if s.params.Thinking != "" {
		genOpts = append(genOpts, ai.WithThinking(s.params.Thinking))
	}

	reply, err := s.client.GenerateCompletion(ctx, prompt, genOpts...)
	if err != nil {
		return nil, fmt.Errorf("local completion: %w", err)
	}

	extracted := ai.ExtractFirstJSONArray(reply)
	if !extracted.OK {
		return nil, errNoJSONArray
	}
	if extracted.Repaired {
		logger.Debug("[Extract] Repaired local model output", "bytes", len(extracted.JSON))
	}

	var chars []llmCharacter
	if err := ai.UnmarshalFlexible(extracted.JSON, &chars); err != nil {
		return nil, fmt.Errorf("parse local reply: %w", err)
	}
	return toCandidates(chars), nil
}
