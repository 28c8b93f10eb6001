package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/OFFIS-RIT/castnet/internal/analysis"
	"github.com/OFFIS-RIT/castnet/internal/config"
	mid "github.com/OFFIS-RIT/castnet/internal/server/middleware"
	"github.com/OFFIS-RIT/castnet/internal/server/routes"
	"github.com/OFFIS-RIT/castnet/internal/server/util"
	"github.com/OFFIS-RIT/castnet/pkg/common"
	"github.com/OFFIS-RIT/castnet/pkg/extract"
	"github.com/OFFIS-RIT/castnet/pkg/graph"
	"github.com/OFFIS-RIT/castnet/pkg/loader"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var story = strings.Repeat(
	"Alice met Bob in the garden. Bob smiled at Carol near the gate. Alice and Carol argued about the letter. ", 4)

type fixedStrategy struct{}

func (fixedStrategy) Name() string { return "nlp" }

func (fixedStrategy) Attempt(context.Context, string, extract.Options) ([]extract.Candidate, error) {
	return []extract.Candidate{
		{Name: "Alice", Confidence: 0.9},
		{Name: "Bob", Confidence: 0.9},
		{Name: "Carol", Confidence: 0.9},
	}, nil
}

type blockingStrategy struct{}

func (blockingStrategy) Name() string { return "nlp" }

func (blockingStrategy) Attempt(ctx context.Context, _ string, _ extract.Options) ([]extract.Candidate, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type fakeBooks map[string]string

func (f fakeBooks) GetText(_ context.Context, file loader.BookFile) (string, error) {
	text, ok := f[file.Path]
	if !ok {
		return "", errors.New("not found")
	}
	return text, nil
}

type memoryArchive struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func (m *memoryArchive) Put(_ context.Context, id string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = data
	return id + ".json", nil
}

func (m *memoryArchive) Get(_ context.Context, id string, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[id]
	if !ok {
		return errors.New("no such key")
	}
	return json.Unmarshal(data, out)
}

func (m *memoryArchive) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[id]
	return ok
}

func newTestApp(strategy extract.Strategy, maxActive int) *mid.App {
	books := loader.NewRouter(map[loader.BookFileType]loader.BookLoader{
		loader.BookFileTypeURL: fakeBooks{"https://example.org/story": story},
	})
	svc := analysis.NewService(analysis.NewServiceParams{
		Defaults: config.AnalysisConfig{
			Extraction:   extract.DefaultOptions(),
			Cooccurrence: graph.DefaultOptions(),
		},
		Chain: extract.Chain{Heuristic: strategy},
		Books: books,
	})
	return &mid.App{
		Service: svc,
		Books:   books,
		Runs:    util.NewRunRegistry(maxActive, time.Hour),
		Results: &memoryArchive{docs: make(map[string][]byte)},
	}
}

func do(t *testing.T, app *mid.App, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := New(app, "1M")
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func textBody(text string) string {
	data, _ := json.Marshal(map[string]string{"text": text})
	return string(data)
}

func waitForStatus(t *testing.T, app *mid.App, id string, want util.RunStatus) util.RunView {
	t.Helper()
	var view util.RunView
	require.Eventually(t, func() bool {
		rec := do(t, app, http.MethodGet, "/api/analyses/"+id, "")
		if rec.Code != http.StatusOK {
			return false
		}
		view = decode[util.RunView](t, rec)
		return view.Status == want
	}, 5*time.Second, 10*time.Millisecond)
	return view
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestApp(fixedStrategy{}, 4), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestCreateAnalysis(t *testing.T) {
	app := newTestApp(fixedStrategy{}, 4)

	rec := do(t, app, http.MethodPost, "/api/analyses", textBody(story))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	created := decode[map[string]string](t, rec)
	id := created["id"]
	require.NotEmpty(t, id)

	view := waitForStatus(t, app, id, util.RunStatusCompleted)
	require.NotNil(t, view.Result)
	assert.Equal(t, id, view.Result.ID)
	assert.Len(t, view.Result.Graph.Nodes, 3)
	assert.Equal(t, 100.0, view.Progress.Percent)
	assert.True(t, app.Results.(*memoryArchive).has(id))
}

func TestRunAnalysisSync(t *testing.T) {
	app := newTestApp(fixedStrategy{}, 4)

	rec := do(t, app, http.MethodPost, "/api/analyses/sync", textBody(story))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[common.AnalysisResult](t, rec)
	assert.Len(t, result.Graph.Nodes, 3)
	assert.Len(t, result.Graph.Edges, 3)
	assert.Equal(t, common.MethodHeuristic, result.Processing.ExtractionMethod)

	view, ok := app.Runs.Get(result.ID)
	require.True(t, ok)
	assert.Equal(t, util.RunStatusCompleted, view.Status)
}

func TestRunAnalysisFromSource(t *testing.T) {
	app := newTestApp(fixedStrategy{}, 4)

	rec := do(t, app, http.MethodPost, "/api/analyses/sync",
		`{"source":{"id":"1","path":"https://example.org/story","type":"url"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, app, http.MethodPost, "/api/analyses/sync",
		`{"source":{"id":"2","path":"https://example.org/missing","type":"url"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "source", decode[map[string]string](t, rec)["field"])
}

func TestRejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{name: "empty body", path: "/api/analyses", body: `{}`, want: http.StatusBadRequest},
		{name: "malformed json", path: "/api/analyses", body: `{"text":`, want: http.StatusBadRequest},
		{name: "source without path", path: "/api/analyses", body: `{"source":{"type":"url"}}`, want: http.StatusBadRequest},
		{name: "unsupported source", path: "/api/analyses", body: `{"source":{"path":"/etc/passwd","type":"file"}}`, want: http.StatusBadRequest},
		{
			name: "negative window",
			path: "/api/analyses",
			body: `{"text":"` + strings.TrimSpace(story) + `","cooccurrence":{"window_size":-1}}`,
			want: http.StatusBadRequest,
		},
		{name: "short text", path: "/api/analyses/sync", body: textBody("Alice met Bob."), want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(fixedStrategy{}, 4)
			rec := do(t, app, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestShortTextReportsField(t *testing.T) {
	rec := do(t, newTestApp(fixedStrategy{}, 4), http.MethodPost, "/api/analyses/sync", textBody("Alice met Bob."))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "text", decode[map[string]string](t, rec)["field"])
}

func TestCancelAnalysis(t *testing.T) {
	app := newTestApp(blockingStrategy{}, 4)

	rec := do(t, app, http.MethodPost, "/api/analyses", textBody(story))
	require.Equal(t, http.StatusAccepted, rec.Code)
	id := decode[map[string]string](t, rec)["id"]

	rec = do(t, app, http.MethodDelete, "/api/analyses/"+id, "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	view := waitForStatus(t, app, id, util.RunStatusCancelled)
	assert.Nil(t, view.Result)

	rec = do(t, app, http.MethodDelete, "/api/analyses/"+id, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTooManyActiveRuns(t *testing.T) {
	app := newTestApp(blockingStrategy{}, 1)

	rec := do(t, app, http.MethodPost, "/api/analyses", textBody(story))
	require.Equal(t, http.StatusAccepted, rec.Code)
	id := decode[map[string]string](t, rec)["id"]

	rec = do(t, app, http.MethodPost, "/api/analyses", textBody(story))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	require.NoError(t, app.Runs.Cancel(id))
	waitForStatus(t, app, id, util.RunStatusCancelled)
}

func TestUnknownAnalysis(t *testing.T) {
	app := newTestApp(fixedStrategy{}, 4)

	assert.Equal(t, http.StatusNotFound, do(t, app, http.MethodGet, "/api/analyses/missing", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, app, http.MethodDelete, "/api/analyses/missing", "").Code)
}

func getAs(t *testing.T, app *mid.App, id string, user *mid.AppUser) *httptest.ResponseRecorder {
	t.Helper()
	e := New(app, "1M")
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/analyses/"+id, nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, routes.GetAnalysisHandler(&mid.AppContext{Context: c, App: app, User: user}))
	return rec
}

func TestArchivedAnalysis(t *testing.T) {
	app := newTestApp(fixedStrategy{}, 4)
	_, err := app.Results.Put(context.Background(), "archived", common.ArchivedAnalysis{
		ID:     "archived",
		Owner:  "7",
		Result: &common.AnalysisResult{ID: "archived"},
	})
	require.NoError(t, err)

	rec := do(t, app, http.MethodGet, "/api/analyses/archived", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[util.RunView](t, rec)
	assert.Equal(t, util.RunStatusCompleted, view.Status)
	assert.Equal(t, "7", view.Owner)
	require.NotNil(t, view.Result)
	assert.Equal(t, "archived", view.Result.ID)

	owner := &mid.AppUser{UserID: "7", Role: "user"}
	other := &mid.AppUser{UserID: "8", Role: "user"}
	assert.Equal(t, http.StatusOK, getAs(t, app, "archived", owner).Code)
	assert.Equal(t, http.StatusNotFound, getAs(t, app, "archived", other).Code)
}

func TestAnalysisHiddenFromOtherUsers(t *testing.T) {
	app := newTestApp(fixedStrategy{}, 4)
	owner := &mid.AppUser{UserID: "7", Role: "user"}
	other := &mid.AppUser{UserID: "8", Role: "user"}

	_, err := app.Runs.Start(context.Background(), "run1", "7")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, getAs(t, app, "run1", owner).Code)
	assert.Equal(t, http.StatusNotFound, getAs(t, app, "run1", other).Code)

	result := &common.AnalysisResult{ID: "run1"}
	app.Runs.Finish("run1", result, nil)
	_, err = app.Results.Put(context.Background(), "run1", common.ArchivedAnalysis{ID: "run1", Owner: "7", Result: result})
	require.NoError(t, err)
	app.Runs = util.NewRunRegistry(4, time.Hour)

	assert.Equal(t, http.StatusOK, getAs(t, app, "run1", owner).Code)
	assert.Equal(t, http.StatusNotFound, getAs(t, app, "run1", other).Code)
}

func TestMasterAPIKey(t *testing.T) {
	app := newTestApp(fixedStrategy{}, 4)
	app.MasterAPIKey = "secret"

	assert.Equal(t, http.StatusUnauthorized,
		do(t, app, http.MethodPost, "/api/analyses/sync", textBody(story)).Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(t, app, http.MethodPost, "/api/analyses/sync", textBody(story), "Authorization", "Bearer wrong").Code)
	assert.Equal(t, http.StatusOK,
		do(t, app, http.MethodPost, "/api/analyses/sync", textBody(story), "Authorization", "Bearer secret").Code)

	// Health stays public.
	assert.Equal(t, http.StatusOK, do(t, app, http.MethodGet, "/health", "").Code)
}

func TestRunOwnership(t *testing.T) {
	owner := &mid.AppUser{UserID: "7", Role: "user"}
	other := &mid.AppUser{UserID: "8", Role: "user"}
	admin := &mid.AppUser{UserID: "1", Role: "admin"}

	assert.True(t, mid.CanAccessRun(owner, "7"))
	assert.False(t, mid.CanAccessRun(other, "7"))
	assert.True(t, mid.CanAccessRun(admin, "7"))
	assert.False(t, mid.CanAccessRun(nil, "7"))
}
