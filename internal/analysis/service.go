// Package analysis wires configuration, LLM clients and book loaders into
// pipeline runs. It is shared by the HTTP server, the queue worker and the
// command line tool.
package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/castnet/internal/config"
	"github.com/OFFIS-RIT/castnet/pkg/ai"
	"github.com/OFFIS-RIT/castnet/pkg/ai/ollama"
	"github.com/OFFIS-RIT/castnet/pkg/ai/openai"
	"github.com/OFFIS-RIT/castnet/pkg/common"
	"github.com/OFFIS-RIT/castnet/pkg/extract"
	"github.com/OFFIS-RIT/castnet/pkg/graph"
	"github.com/OFFIS-RIT/castnet/pkg/loader"
	"github.com/OFFIS-RIT/castnet/pkg/loader/epub"
	"github.com/OFFIS-RIT/castnet/pkg/loader/io"
	s3loader "github.com/OFFIS-RIT/castnet/pkg/loader/s3"
	"github.com/OFFIS-RIT/castnet/pkg/loader/web"
	"github.com/OFFIS-RIT/castnet/pkg/logger"
	"github.com/OFFIS-RIT/castnet/pkg/pipeline"
	"github.com/OFFIS-RIT/castnet/pkg/segment"

	"github.com/pkoukk/tiktoken-go"
)

// ErrSource is returned when the book named by a request cannot be loaded.
var ErrSource = errors.New("failed to load source")

// Source names a book to load instead of inline text.
type Source = loader.BookFile

// Request is the caller-facing form of a run. Either Text or Source is set;
// zero option fields fall back to the configured defaults.
type Request struct {
	Text         string           `json:"text,omitempty"`
	Source       *Source          `json:"source,omitempty"`
	Extraction   *extract.Options `json:"extraction,omitempty"`
	Cooccurrence *graph.Options   `json:"cooccurrence,omitempty"`
}

// Service creates independent Analyzers that share clients and loaders.
type Service struct {
	defaults      config.AnalysisConfig
	chain         extract.Chain
	segmenter     *segment.Segmenter
	builder       *graph.Builder
	books         loader.BookLoader
	minTextLength int
}

// NewServiceParams holds the collaborators of a Service. Books may be nil
// when only inline text is accepted.
type NewServiceParams struct {
	Defaults config.AnalysisConfig
	Chain    extract.Chain
	Books    loader.BookLoader
}

func NewService(params NewServiceParams) *Service {
	return &Service{
		defaults:  params.Defaults,
		chain:     params.Chain,
		segmenter: segment.New(segment.DefaultOptions()),
		builder: graph.NewBuilder(graph.NewBuilderParams{
			ParallelBatches: params.Defaults.ParallelBatches,
			BatchSize:       params.Defaults.BatchSize,
		}),
		books:         params.Books,
		minTextLength: params.Defaults.MinTextLength,
	}
}

// NewServiceFromConfig builds the LLM clients described by cfg and the
// default extraction chain around them.
func NewServiceFromConfig(cfg *config.Config, books loader.BookLoader) (*Service, error) {
	var encoder *tiktoken.Tiktoken
	if cfg.AI.TokenEncoder != "" {
		enc, err := ai.NewEncoder(cfg.AI.TokenEncoder)
		if err != nil {
			logger.Warn("[Analysis] Token encoder unavailable, estimating tokens", "encoder", cfg.AI.TokenEncoder, "err", err)
		} else {
			encoder = enc
		}
	}

	var (
		remote ai.CompletionClient
		local  ai.LocalClient
	)

	if c := openai.NewCastOpenAIClient(openai.NewCastOpenAIClientParams{
		Model:   cfg.AI.RemoteModel,
		ChatURL: cfg.AI.RemoteURL,
		ChatKey: cfg.AI.RemoteKey,
		Timeout: cfg.AI.RemoteTimeout,
	}); c != nil {
		remote = c
		logger.Info("[Analysis] Remote extraction enabled", "model", cfg.AI.RemoteModel)
	}

	if cfg.AI.LocalEnabled {
		c, err := ollama.NewCastOllamaClient(ollama.NewCastOllamaClientParams{
			Model:                 cfg.AI.LocalModel,
			BaseURL:               cfg.AI.LocalURL,
			ApiKey:                cfg.AI.LocalKey,
			MaxConcurrentRequests: cfg.AI.LocalMaxRequests,
			Encoder:               encoder,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create local llm client: %w", err)
		}
		local = c
		logger.Info("[Analysis] Local extraction enabled", "model", cfg.AI.LocalModel)
	}

	chain := extract.NewDefaultChain(
		remote,
		extract.LLMParams{
			Model:    cfg.AI.RemoteModel,
			Timeout:  cfg.AI.RemoteTimeout,
			Retries:  cfg.AI.RemoteRetries,
			Thinking: cfg.AI.RemoteThinking,
			Encoder:  encoder,
		},
		local,
		extract.LLMParams{
			Model:        cfg.AI.LocalModel,
			Timeout:      cfg.AI.LocalTimeout,
			ProbeTimeout: cfg.AI.LocalProbeTimeout,
			Thinking:     cfg.AI.LocalThinking,
			Encoder:      encoder,
		},
	)

	return NewService(NewServiceParams{
		Defaults: cfg.Analysis,
		Chain:    chain,
		Books:    books,
	}), nil
}

// NewAnalyzer returns a fresh Analyzer for one run.
func (s *Service) NewAnalyzer() *pipeline.Analyzer {
	return pipeline.NewAnalyzer(pipeline.NewAnalyzerParams{
		Chain:         s.chain,
		Segmenter:     s.segmenter,
		Builder:       s.builder,
		MinTextLength: s.minTextLength,
	})
}

// Resolve loads the text of req and merges its options over the defaults.
func (s *Service) Resolve(ctx context.Context, req Request) (pipeline.Request, error) {
	text := req.Text
	if text == "" && req.Source != nil {
		if s.books == nil {
			return pipeline.Request{}, fmt.Errorf("%w: %w: %q", ErrSource, loader.ErrUnsupportedType, req.Source.Type)
		}
		loaded, err := s.books.GetText(ctx, *req.Source)
		if err != nil {
			return pipeline.Request{}, fmt.Errorf("%w: %s %q: %w", ErrSource, req.Source.Type, req.Source.Path, err)
		}
		text = loaded
	}

	out := pipeline.Request{
		Text:         text,
		Extraction:   s.defaults.Extraction,
		Cooccurrence: s.defaults.Cooccurrence,
	}
	if req.Extraction != nil {
		out.Extraction = overlayExtraction(out.Extraction, *req.Extraction)
	}
	if req.Cooccurrence != nil {
		out.Cooccurrence = overlayCooccurrence(out.Cooccurrence, *req.Cooccurrence)
	}
	return out, nil
}

// Analyze resolves req and runs it on a new Analyzer. Cancelling ctx
// cancels the run.
func (s *Service) Analyze(ctx context.Context, req Request, onProgress pipeline.ProgressFunc) (*common.AnalysisResult, error) {
	resolved, err := s.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.NewAnalyzer().Run(ctx, resolved, onProgress)
}

func overlayExtraction(base, o extract.Options) extract.Options {
	if o.MaxCharacters != 0 {
		base.MaxCharacters = o.MaxCharacters
	}
	if o.MinMentions != 0 {
		base.MinMentions = o.MinMentions
	}
	if o.MergeThreshold != 0 {
		base.MergeThreshold = o.MergeThreshold
	}
	return base
}

func overlayCooccurrence(base, o graph.Options) graph.Options {
	if o.WindowSize != 0 {
		base.WindowSize = o.WindowSize
	}
	if o.MinEdgeWeight != 0 {
		base.MinEdgeWeight = o.MinEdgeWeight
	}
	if o.MinMentions != 0 {
		base.MinMentions = o.MinMentions
	}
	return base
}

// NewBooks returns the loaders available to a process. Objects may be nil
// when no bucket is configured. Local files and EPUBs are readable only
// when allowLocal is set.
func NewBooks(objects s3loader.ObjectGetter, bucket string, allowLocal bool) *loader.Router {
	loaders := map[loader.BookFileType]loader.BookLoader{
		loader.BookFileTypeURL: web.NewWebBookLoader(nil),
	}
	if objects != nil {
		loaders[loader.BookFileTypeS3] = s3loader.NewS3BookLoaderWithClient(bucket, objects)
	}
	if allowLocal {
		loaders[loader.BookFileTypeText] = io.NewIOBookLoader()
		loaders[loader.BookFileTypeEPUB] = epub.NewEPUBBookLoader()
	}
	return loader.NewRouter(loaders)
}
