// Package extract identifies the named characters of a text through an
// ordered chain of strategies: hosted LLM, local LLM, NLP tagging and a
// regex heuristic.
package extract

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/OFFIS-RIT/castnet/pkg/common"
	"github.com/OFFIS-RIT/castnet/pkg/logger"
)

var (
	// ErrExtractionExhausted is returned when both heuristic strategies
	// failed and no LLM strategy produced candidates.
	ErrExtractionExhausted = errors.New("all extraction strategies failed")
	// ErrUnavailable marks a strategy whose backend cannot be reached.
	ErrUnavailable = errors.New("strategy backend unavailable")
)

// Options bounds the character list.
type Options struct {
	MaxCharacters  int     `json:"max_characters" validate:"omitempty,min=1,max=500"`
	MinMentions    int     `json:"min_mentions" validate:"omitempty,min=1"`
	MergeThreshold float64 `json:"merge_threshold" validate:"omitempty,gt=0,lte=1"`
}

func DefaultOptions() Options {
	return Options{
		MaxCharacters:  50,
		MinMentions:    3,
		MergeThreshold: 0.8,
	}
}

// WithDefaults fills zero fields from DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.MaxCharacters == 0 {
		o.MaxCharacters = d.MaxCharacters
	}
	if o.MinMentions == 0 {
		o.MinMentions = d.MinMentions
	}
	if o.MergeThreshold == 0 {
		o.MergeThreshold = d.MergeThreshold
	}
	return o
}

// Validate reports options that cannot produce a meaningful result.
func (o Options) Validate() error {
	if o.MaxCharacters < 1 {
		return fmt.Errorf("max_characters must be positive, got %d", o.MaxCharacters)
	}
	if o.MinMentions < 1 {
		return fmt.Errorf("min_mentions must be positive, got %d", o.MinMentions)
	}
	if o.MergeThreshold <= 0 || o.MergeThreshold > 1 {
		return fmt.Errorf("merge_threshold must be in (0, 1], got %v", o.MergeThreshold)
	}
	return nil
}

// Candidate is a character proposed by a strategy before merging and
// mention counting.
type Candidate struct {
	Name       string   `json:"name"`
	Aliases    []string `json:"aliases"`
	Confidence float64  `json:"confidence"`
}

// Strategy is one way of finding characters. Attempt returns an error for
// any failure; an empty list without error means "nothing found".
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, text string, opts Options) ([]Candidate, error)
}

// Result is the final character list and the method that produced it.
type Result struct {
	Characters []common.Character
	Method     common.ExtractionMethod
}

// Chain lists the strategies of an Extractor. LLM strategies are tried in
// order until one returns candidates. Heuristic runs when they yield none
// or too few, Fallback only when Heuristic errors. Nil entries are skipped.
type Chain struct {
	LLM       []Strategy
	Heuristic Strategy
	Fallback  Strategy
}

// Extractor runs a strategy chain and turns the candidates into final
// characters. It keeps no state between calls.
type Extractor struct {
	chain Chain
}

func NewExtractor(chain Chain) *Extractor {
	return &Extractor{chain: chain}
}

// Extract returns the characters of text. Strategy failures are logged and
// skipped; a cancelled ctx stops the chain with ctx.Err().
func (e *Extractor) Extract(ctx context.Context, text string, opts Options) (Result, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}

	var primary []Candidate
	for _, s := range e.chain.LLM {
		if s == nil {
			continue
		}
		candidates, err := e.attempt(ctx, s, text, opts)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			continue
		}
		if len(candidates) > 0 {
			primary = candidates
			break
		}
	}

	method := common.MethodLLM
	candidates := primary
	if len(primary) == 0 || len(primary) < opts.MaxCharacters/2 {
		heuristic, err := e.heuristics(ctx, text, opts)
		switch {
		case ctx.Err() != nil:
			return Result{}, ctx.Err()
		case err != nil && len(primary) == 0:
			return Result{}, err
		case err != nil:
			logger.Warn("[Extract] Heuristics failed, keeping LLM result", "err", err)
		case len(primary) == 0:
			method = common.MethodHeuristic
			candidates = heuristic
		default:
			method = common.MethodHybrid
			candidates = append(append([]Candidate{}, primary...), heuristic...)
		}
	}

	merged := MergeAliases(candidates, opts.MergeThreshold)
	characters := finalize(text, merged, opts, method)
	logger.Debug("[Extract] Extraction complete",
		"method", method,
		"candidates", len(candidates),
		"merged", len(merged),
		"characters", len(characters),
	)
	return Result{Characters: characters, Method: method}, nil
}

func (e *Extractor) attempt(ctx context.Context, s Strategy, text string, opts Options) ([]Candidate, error) {
	candidates, err := s.Attempt(ctx, text, opts)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("[Extract] Strategy failed", "strategy", s.Name(), "err", err)
		}
		return nil, err
	}
	logger.Debug("[Extract] Strategy finished", "strategy", s.Name(), "candidates", len(candidates))
	return candidates, nil
}

// heuristics runs Heuristic and, if it errors, Fallback.
func (e *Extractor) heuristics(ctx context.Context, text string, opts Options) ([]Candidate, error) {
	var errs []error
	for _, s := range []Strategy{e.chain.Heuristic, e.chain.Fallback} {
		if s == nil {
			continue
		}
		candidates, err := e.attempt(ctx, s, text, opts)
		if err == nil {
			return candidates, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}
	return nil, fmt.Errorf("%w: %w", ErrExtractionExhausted, errors.Join(errs...))
}

// finalize counts mentions, scores importance, filters, sorts and truncates.
func finalize(text string, candidates []Candidate, opts Options, method common.ExtractionMethod) []common.Character {
	counted := make([]common.Character, 0, len(candidates))
	maxMentions := 0
	for _, c := range candidates {
		ch := common.Character{
			Name:       c.Name,
			Aliases:    c.Aliases,
			Confidence: c.Confidence,
			Method:     method,
		}
		if ch.Aliases == nil {
			ch.Aliases = []string{}
		}
		ch.Mentions = CountMentions(text, ch.Names())
		maxMentions = max(maxMentions, ch.Mentions)
		counted = append(counted, ch)
	}

	characters := make([]common.Character, 0, len(counted))
	for _, ch := range counted {
		if ch.Mentions < opts.MinMentions {
			continue
		}
		ch.Importance = Importance(ch.Mentions, maxMentions, ch.Confidence)
		characters = append(characters, ch)
	}

	sort.SliceStable(characters, func(i, j int) bool {
		if characters[i].Mentions == characters[j].Mentions {
			return characters[i].Name < characters[j].Name
		}
		return characters[i].Mentions > characters[j].Mentions
	})
	if len(characters) > opts.MaxCharacters {
		characters = characters[:opts.MaxCharacters]
	}
	return characters
}
