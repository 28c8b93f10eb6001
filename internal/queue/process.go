package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/castnet/internal/analysis"
	"github.com/OFFIS-RIT/castnet/pkg/common"
	"github.com/OFFIS-RIT/castnet/pkg/logger"
	"github.com/OFFIS-RIT/castnet/pkg/pipeline"
)

// AnalysisMsg is the body of a message on the analysis queue. Owner is
// stored with the archived result.
type AnalysisMsg struct {
	ID    string `json:"id"`
	Owner string `json:"owner,omitempty"`
	analysis.Request
}

// AnalysisResultMsg is published on the result queue once a message is
// finished with, successfully or not.
type AnalysisResultMsg struct {
	ID        string                 `json:"id"`
	Status    string                 `json:"status"`
	Result    *common.AnalysisResult `json:"result,omitempty"`
	ResultKey string                 `json:"result_key,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// ProgressMsg is published on TopicExchange for every progress report.
type ProgressMsg struct {
	ID string `json:"id"`
	pipeline.Progress
}

// ErrMalformed marks messages that can never be processed.
var ErrMalformed = errors.New("malformed analysis message")

// ResultArchive stores finished results. *storage.ResultStore implements it.
type ResultArchive interface {
	Put(ctx context.Context, id string, v any) (string, error)
}

// Processor runs the analyses requested on the queue.
type Processor struct {
	service     *analysis.Service
	ch          Channel
	resultQueue string
	archive     ResultArchive
}

// NewProcessorParams defines the collaborators of a Processor. Archive may
// be nil.
type NewProcessorParams struct {
	Service     *analysis.Service
	Channel     Channel
	ResultQueue string
	Archive     ResultArchive
}

func NewProcessor(params NewProcessorParams) *Processor {
	return &Processor{
		service:     params.Service,
		ch:          params.Channel,
		resultQueue: params.ResultQueue,
		archive:     params.Archive,
	}
}

// ProcessAnalysisMessage runs the analysis described by body. Requests
// that can never succeed are answered with a failed result and return
// nil; any other error asks the caller to retry the message.
func (p *Processor) ProcessAnalysisMessage(ctx context.Context, body []byte) error {
	msg := new(AnalysisMsg)
	if err := json.Unmarshal(body, msg); err != nil {
		logger.Error("[Queue] Dropping undecodable message", "err", err)
		return nil
	}
	if msg.ID == "" {
		logger.Error("[Queue] Dropping message without id")
		return nil
	}
	if msg.Text == "" && msg.Source == nil {
		return p.reject(msg.ID, fmt.Errorf("%w: either text or source is required", ErrMalformed))
	}

	logger.Info("[Queue] Processing analysis", "id", msg.ID)
	result, err := p.service.Analyze(ctx, msg.Request, func(progress pipeline.Progress) {
		p.publishProgress(msg.ID, progress)
	})
	if errors.Is(err, pipeline.ErrInvalidInput) {
		return p.reject(msg.ID, err)
	}
	if err != nil {
		return fmt.Errorf("analysis %s: %w", msg.ID, err)
	}
	result.ID = msg.ID

	out := AnalysisResultMsg{ID: msg.ID, Status: "completed", Result: result}
	if p.archive != nil {
		key, err := p.archive.Put(ctx, msg.ID, common.ArchivedAnalysis{
			ID:         msg.ID,
			Owner:      msg.Owner,
			FinishedAt: time.Now(),
			Result:     result,
		})
		if err != nil {
			return fmt.Errorf("analysis %s: %w", msg.ID, err)
		}
		out.ResultKey = key
	}
	if err := p.publishResult(out); err != nil {
		return err
	}

	logger.Info("[Queue] Analysis processed",
		"id", msg.ID,
		"nodes", result.Stats.NodeCount,
		"edges", result.Stats.EdgeCount,
		"input_tokens", result.Processing.LLM.InputTokens,
		"output_tokens", result.Processing.LLM.OutputTokens,
		"ms", result.Processing.ElapsedMs,
	)
	return nil
}

// reject answers a request that will fail on every attempt.
func (p *Processor) reject(id string, cause error) error {
	logger.Warn("[Queue] Rejected analysis", "id", id, "err", cause)
	return p.publishResult(AnalysisResultMsg{ID: id, Status: "failed", Error: cause.Error()})
}

func (p *Processor) publishResult(msg AnalysisResultMsg) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode result message: %w", err)
	}
	if err := PublishFIFO(p.ch, p.resultQueue, data); err != nil {
		return fmt.Errorf("failed to publish result message: %w", err)
	}
	return nil
}

func (p *Processor) publishProgress(id string, progress pipeline.Progress) {
	data, err := json.Marshal(ProgressMsg{ID: id, Progress: progress})
	if err != nil {
		return
	}
	if err := PublishTopic(p.ch, "analysis."+id, data); err != nil {
		logger.Debug("[Queue] Failed to publish progress", "id", id, "err", err)
	}
}
