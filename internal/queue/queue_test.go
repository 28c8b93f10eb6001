package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/OFFIS-RIT/castnet/internal/analysis"
	"github.com/OFFIS-RIT/castnet/internal/config"
	"github.com/OFFIS-RIT/castnet/pkg/common"
	"github.com/OFFIS-RIT/castnet/pkg/extract"
	"github.com/OFFIS-RIT/castnet/pkg/graph"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var story = strings.Repeat(
	"Alice met Bob in the garden. Bob smiled at Carol near the gate. Alice and Carol argued about the letter. ", 4)

type published struct {
	exchange string
	key      string
	msg      amqp091.Publishing
}

type fakeChannel struct {
	mu         sync.Mutex
	exchanges  []string
	queues     map[string]amqp091.Table
	published  []published
	publishErr error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{queues: make(map[string]amqp091.Table)}
}

func (f *fakeChannel) ExchangeDeclare(name, _ string, _, _, _, _ bool, _ amqp091.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges = append(f.exchanges, name)
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, args amqp091.Table) (amqp091.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues[name] = args
	return amqp091.Queue{Name: name}, nil
}

func (f *fakeChannel) Publish(exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) to(key string) []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []published
	for _, p := range f.published {
		if p.key == key {
			out = append(out, p)
		}
	}
	return out
}

type fakeAcknowledger struct {
	acked   int
	nacked  int
	requeue bool
}

func (f *fakeAcknowledger) Ack(uint64, bool) error {
	f.acked++
	return nil
}

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked++
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(uint64, bool) error { return nil }

type fixedStrategy struct{ err error }

func (fixedStrategy) Name() string { return "nlp" }

func (s fixedStrategy) Attempt(context.Context, string, extract.Options) ([]extract.Candidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []extract.Candidate{
		{Name: "Alice", Confidence: 0.9},
		{Name: "Bob", Confidence: 0.9},
		{Name: "Carol", Confidence: 0.9},
	}, nil
}

type memoryArchive struct {
	docs map[string][]byte
	err  error
}

func (m *memoryArchive) Put(_ context.Context, id string, v any) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	m.docs[id] = data
	return "analyses/" + id + ".json", nil
}

func newTestProcessor(ch Channel, strategy extract.Strategy, archive ResultArchive) *Processor {
	svc := analysis.NewService(analysis.NewServiceParams{
		Defaults: config.AnalysisConfig{
			Extraction:   extract.DefaultOptions(),
			Cooccurrence: graph.DefaultOptions(),
		},
		Chain: extract.Chain{Heuristic: strategy},
	})
	return NewProcessor(NewProcessorParams{
		Service:     svc,
		Channel:     ch,
		ResultQueue: "analysis_results",
		Archive:     archive,
	})
}

func body(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func resultMessages(t *testing.T, ch *fakeChannel) []AnalysisResultMsg {
	t.Helper()
	var out []AnalysisResultMsg
	for _, p := range ch.to("analysis_results") {
		var msg AnalysisResultMsg
		require.NoError(t, json.Unmarshal(p.msg.Body, &msg))
		out = append(out, msg)
	}
	return out
}

func TestSetupQueues(t *testing.T) {
	ch := newFakeChannel()
	require.NoError(t, SetupQueues(ch, []string{"analysis_queue"}, 10*time.Second))

	assert.Equal(t, []string{TopicExchange}, ch.exchanges)
	require.Contains(t, ch.queues, "analysis_queue")
	require.Contains(t, ch.queues, "analysis_queue_dlq")
	require.Contains(t, ch.queues, "analysis_queue_retry")

	retry := ch.queues["analysis_queue_retry"]
	assert.Equal(t, int32(10000), retry["x-message-ttl"])
	assert.Equal(t, "analysis_queue", retry["x-dead-letter-routing-key"])
}

func TestProcessAnalysisMessage(t *testing.T) {
	ch := newFakeChannel()
	archive := &memoryArchive{docs: make(map[string][]byte)}
	p := newTestProcessor(ch, fixedStrategy{}, archive)

	err := p.ProcessAnalysisMessage(context.Background(), body(t, AnalysisMsg{
		ID:      "run-1",
		Owner:   "7",
		Request: analysis.Request{Text: story, Cooccurrence: &graph.Options{WindowSize: 2}},
	}))
	require.NoError(t, err)

	results := resultMessages(t, ch)
	require.Len(t, results, 1)
	assert.Equal(t, "completed", results[0].Status)
	assert.Equal(t, "analyses/run-1.json", results[0].ResultKey)
	require.NotNil(t, results[0].Result)
	assert.Equal(t, "run-1", results[0].Result.ID)
	assert.Len(t, results[0].Result.Graph.Nodes, 3)
	require.Contains(t, archive.docs, "run-1")
	var doc common.ArchivedAnalysis
	require.NoError(t, json.Unmarshal(archive.docs["run-1"], &doc))
	assert.Equal(t, "7", doc.Owner)
	require.NotNil(t, doc.Result)
	assert.Equal(t, "run-1", doc.Result.ID)

	progress := ch.to("analysis.run-1")
	require.NotEmpty(t, progress)
	var last ProgressMsg
	require.NoError(t, json.Unmarshal(progress[len(progress)-1].msg.Body, &last))
	assert.Equal(t, "run-1", last.ID)
	assert.Equal(t, 100.0, last.Percent)
	assert.Equal(t, TopicExchange, progress[0].exchange)
}

func TestProcessRejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		msg  AnalysisMsg
	}{
		{name: "no text", msg: AnalysisMsg{ID: "a"}},
		{name: "short text", msg: AnalysisMsg{ID: "b", Request: analysis.Request{Text: "Too short."}}},
		{
			name: "bad options",
			msg: AnalysisMsg{ID: "c", Request: analysis.Request{
				Text:         story,
				Cooccurrence: &graph.Options{WindowSize: -3},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := newFakeChannel()
			p := newTestProcessor(ch, fixedStrategy{}, nil)

			require.NoError(t, p.ProcessAnalysisMessage(context.Background(), body(t, tt.msg)))
			results := resultMessages(t, ch)
			require.Len(t, results, 1)
			assert.Equal(t, tt.msg.ID, results[0].ID)
			assert.Equal(t, "failed", results[0].Status)
			assert.NotEmpty(t, results[0].Error)
		})
	}
}

func TestProcessDropsUndecodableMessages(t *testing.T) {
	ch := newFakeChannel()
	p := newTestProcessor(ch, fixedStrategy{}, nil)

	assert.NoError(t, p.ProcessAnalysisMessage(context.Background(), []byte(`{"id":`)))
	assert.NoError(t, p.ProcessAnalysisMessage(context.Background(), []byte(`{"text":"no id"}`)))
	assert.Empty(t, ch.published)
}

func TestProcessRetriesFailures(t *testing.T) {
	t.Run("extraction", func(t *testing.T) {
		ch := newFakeChannel()
		p := newTestProcessor(ch, fixedStrategy{err: errors.New("tagger crashed")}, nil)

		err := p.ProcessAnalysisMessage(context.Background(), body(t, AnalysisMsg{
			ID:      "x",
			Request: analysis.Request{Text: story},
		}))
		require.Error(t, err)
		assert.Empty(t, resultMessages(t, ch))
	})

	t.Run("archive", func(t *testing.T) {
		ch := newFakeChannel()
		p := newTestProcessor(ch, fixedStrategy{}, &memoryArchive{err: errors.New("bucket down")})

		err := p.ProcessAnalysisMessage(context.Background(), body(t, AnalysisMsg{
			ID:      "y",
			Request: analysis.Request{Text: story},
		}))
		require.Error(t, err)
		assert.Empty(t, resultMessages(t, ch))
	})
}

func TestHandleProcessingError(t *testing.T) {
	tests := []struct {
		name        string
		headers     amqp091.Table
		wantQueue   string
		wantRetries any
	}{
		{name: "first failure", headers: nil, wantQueue: "analysis_queue_retry", wantRetries: int32(1)},
		{name: "retried before", headers: amqp091.Table{RetryHeader: int32(3)}, wantQueue: "analysis_queue_retry", wantRetries: int32(4)},
		{name: "decoded as int64", headers: amqp091.Table{RetryHeader: int64(5)}, wantQueue: "analysis_queue_retry", wantRetries: int32(6)},
		{name: "exhausted", headers: amqp091.Table{RetryHeader: int32(10)}, wantQueue: "analysis_queue_dlq", wantRetries: int32(10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := newFakeChannel()
			ack := &fakeAcknowledger{}
			msg := amqp091.Delivery{Acknowledger: ack, Headers: tt.headers, Body: []byte(`{"id":"a"}`)}

			HandleProcessingError(ch, msg, "analysis_queue", 10)

			assert.Equal(t, 1, ack.acked)
			assert.Zero(t, ack.nacked)
			sent := ch.to(tt.wantQueue)
			require.Len(t, sent, 1)
			assert.Equal(t, msg.Body, sent[0].msg.Body)
			assert.Equal(t, tt.wantRetries, sent[0].msg.Headers[RetryHeader])
		})
	}
}

func TestHandleProcessingErrorRequeuesOnPublishFailure(t *testing.T) {
	ch := newFakeChannel()
	ch.publishErr = errors.New("channel closed")
	ack := &fakeAcknowledger{}

	HandleProcessingError(ch, amqp091.Delivery{Acknowledger: ack}, "analysis_queue", 10)

	assert.Zero(t, ack.acked)
	assert.Equal(t, 1, ack.nacked)
	assert.True(t, ack.requeue)
}
