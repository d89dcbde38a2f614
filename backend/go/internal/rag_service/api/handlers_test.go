package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Aethena/backend/go/internal/models"
	"Aethena/backend/go/internal/rag_service/events"
	"Aethena/backend/go/internal/rag_service/rag/loaders"
	"Aethena/backend/go/internal/rag_service/rag/pipeline"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"Aethena/backend/go/internal/rag_service/rag/splitters"
	"Aethena/backend/go/internal/rag_service/rag/storages/jobstore"
	"Aethena/backend/go/internal/rag_service/rag/storages/vectorstore"
	"Aethena/backend/go/internal/rag_service/rag/testutil"
	"Aethena/backend/go/internal/rag_service/service"
	"Aethena/backend/go/pkg/logger"
	"Aethena/backend/go/pkg/ratelimiter"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testAPI struct {
	router   *gin.Engine
	history  *testutil.MemoryHistory
	embedder *testutil.HashEmbedder
	llm      *testutil.StubLLM
}

func newTestAPI(t *testing.T, limiter ratelimiter.KeyedRateLimiter, extra ...func(*service.Deps)) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewDiscard()

	files := testutil.NewMemoryFiles()
	blobs := testutil.NewMemoryBlobs()
	history := testutil.NewMemoryHistory()
	embedder := testutil.NewHashEmbedder()
	llm := &testutil.StubLLM{}
	index := vectorstore.NewMemoryIndex("aethena_")

	indexing := pipeline.NewIndexingPipeline(files, blobs, loaders.NewRegistry(),
		splitters.NewRuneSplitter(1000, 100), embedder, index, log,
		pipeline.WithJobTracker(jobstore.NewMemoryTracker()), pipeline.WithTempDir(t.TempDir()))
	query := pipeline.NewQueryPipeline(
		pipeline.NewRetrievalPipeline(embedder, index, pipeline.DefaultTopK, log),
		pipeline.NewQAPipeline(llm, log),
		history, log)

	deps := service.Deps{
		Files:    files,
		Blobs:    blobs,
		History:  history,
		Indexing: indexing,
		Query:    query,
		Checks: map[string]service.HealthCheck{
			"memory": func(context.Context) error { return nil },
		},
	}
	for _, apply := range extra {
		apply(&deps)
	}
	srv := service.NewServer(deps, log)

	router := SetupRouter(NewHandler(srv, log), RouterConfig{
		JwtSecret: testSecret,
		Limiter:   limiter,
		Logger:    log,
	})
	return &testAPI{router: router, history: history, embedder: embedder, llm: llm}
}

func token(t *testing.T, tenant string) string {
	t.Helper()
	tok, err := IssueToken(tenant, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *testAPI) do(t *testing.T, tenant, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if tenant != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, tenant))
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) upload(t *testing.T, tenant, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token(t, tenant))
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

func (a *testAPI) seedHistory(t *testing.T, tenant, question string) string {
	t.Helper()
	rec := &models.QueryHistory{UserID: tenant, Question: question, Answer: "a"}
	require.NoError(t, a.history.Record(context.Background(), rec))
	return rec.ID
}

func TestAuthRejectsMissingAndBadTokens(t *testing.T) {
	a := newTestAPI(t, nil)

	w := a.do(t, "", http.MethodGet, "/api/v1/history", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	req.Header.Set("Authorization", "Token abc")
	w = httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	forged, err := IssueToken("tenant-a", "other-secret", time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	w = httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestParseTenantRequiresStringSubject(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": 42}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = ParseTenant(tok, testSecret)
	assert.Error(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "tenant-a",
		"exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = ParseTenant(expired, testSecret)
	assert.Error(t, err)

	tenant, err := ParseTenant(token(t, "tenant-a"), testSecret)
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", tenant)
}

func TestHistoryIsIsolatedBetweenTenants(t *testing.T) {
	a := newTestAPI(t, nil)
	id := a.seedHistory(t, "tenant-a", "secret question")

	w := a.do(t, "tenant-b", http.MethodGet, "/api/v1/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var foreign []map[string]interface{}
	decode(t, w, &foreign)
	assert.Empty(t, foreign)

	w = a.do(t, "tenant-b", http.MethodDelete, "/api/v1/history/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1, a.history.Len())

	w = a.do(t, "tenant-a", http.MethodGet, "/api/v1/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var own []map[string]interface{}
	decode(t, w, &own)
	require.Len(t, own, 1)
	assert.Equal(t, "secret question", own[0]["question"])
	assert.NotContains(t, own[0], "userId")

	w = a.do(t, "tenant-a", http.MethodDelete, "/api/v1/history/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, a.history.Len())
}

func TestHistoryLimitMustBeNumeric(t *testing.T) {
	a := newTestAPI(t, nil)
	w := a.do(t, "tenant-a", http.MethodGet, "/api/v1/history?limit=ten", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadIngestQueryFlow(t *testing.T) {
	a := newTestAPI(t, nil)
	a.llm.Reply = func(_, _ string) (string, error) { return "Grace was an admiral.", nil }

	w := a.upload(t, "tenant-a", "team.csv", []byte("name,role\nada,engineer\ngrace,admiral\n"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var up struct {
		FileID   string `json:"fileId"`
		FileName string `json:"fileName"`
		Path     string `json:"path"`
	}
	decode(t, w, &up)
	assert.Equal(t, "team.csv", up.FileName)
	assert.True(t, strings.HasPrefix(up.Path, "tenant-a/"))

	w = a.do(t, "tenant-b", http.MethodPost, "/api/v1/ingest", IngestRequest{FileID: up.FileID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, "tenant-a", http.MethodPost, "/api/v1/ingest", IngestRequest{FileID: up.FileID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res schema.FileResult
	decode(t, w, &res)
	assert.Equal(t, 2, res.UnitsIndexed)

	w = a.do(t, "tenant-a", http.MethodPost, "/api/v1/query", QueryRequest{Question: "who is grace?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ans schema.Answer
	decode(t, w, &ans)
	assert.Equal(t, "Grace was an admiral.", ans.Answer)
	assert.NotEmpty(t, ans.Sources)

	w = a.do(t, "tenant-a", http.MethodGet, "/api/v1/documents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var docs []map[string]interface{}
	decode(t, w, &docs)
	assert.Len(t, docs, 1)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	a := newTestAPI(t, nil)
	w := a.upload(t, "tenant-a", "photo.png", []byte("\x89PNG\r\n\x1a\n"))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "unsupported_format", body["code"])
}

func TestQueryValidationAndUpstreamFailure(t *testing.T) {
	a := newTestAPI(t, nil)

	w := a.do(t, "tenant-a", http.MethodPost, "/api/v1/query", QueryRequest{Question: "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+token(t, "tenant-a"))
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	a.embedder.Err = fmt.Errorf("dial tcp 10.0.0.7:443: connection refused")
	w = a.do(t, "tenant-a", http.MethodPost, "/api/v1/query", QueryRequest{Question: "anything"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.7")
}

func TestIngestAsyncNotConfigured(t *testing.T) {
	a := newTestAPI(t, nil)
	w := a.do(t, "tenant-a", http.MethodPost, "/api/v1/ingest/async", BatchRequest{FileIDs: []string{"file-1"}})
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

// flakyPublisher accepts every file except failOn.
type flakyPublisher struct {
	failOn string
}

func (p *flakyPublisher) Publish(_ context.Context, req events.IngestRequest) error {
	if req.FileID == p.failOn {
		return fmt.Errorf("kafka: broker 10.0.0.9:9092 unreachable")
	}
	return nil
}

func TestIngestAsyncPartialFailureReturnsEnqueuedJobs(t *testing.T) {
	pub := &flakyPublisher{}
	a := newTestAPI(t, nil, func(d *service.Deps) {
		d.Publisher = pub
		d.Jobs = jobstore.NewMemoryTracker()
	})
	var ids []string
	for _, name := range []string{"a.csv", "b.csv"} {
		w := a.upload(t, "tenant-a", name, []byte("k,v\nx,1\n"))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var up struct {
			FileID string `json:"fileId"`
		}
		decode(t, w, &up)
		ids = append(ids, up.FileID)
	}
	pub.failOn = ids[1]

	w := a.do(t, "tenant-a", http.MethodPost, "/api/v1/ingest/async", BatchRequest{FileIDs: ids})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.9")

	var body struct {
		Code string    `json:"code"`
		Jobs []jobView `json:"jobs"`
	}
	decode(t, w, &body)
	require.Len(t, body.Jobs, 2)
	assert.Equal(t, ids[0], body.Jobs[0].FileID)
	assert.Equal(t, schema.JobPending, body.Jobs[0].Status)
	assert.Equal(t, schema.JobFailed, body.Jobs[1].Status)

	w = a.do(t, "tenant-a", http.MethodGet, "/api/v1/jobs/"+body.Jobs[0].JobID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExportHistoryAttachment(t *testing.T) {
	a := newTestAPI(t, nil)
	a.seedHistory(t, "tenant-a", "exported question")

	w := a.do(t, "tenant-a", http.MethodGet, "/api/v1/history/export?format=json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "chat-history-")
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".json")
	assert.Contains(t, w.Body.String(), "exported question")

	w = a.do(t, "tenant-a", http.MethodGet, "/api/v1/history/export?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthzIsPublic(t *testing.T) {
	a := newTestAPI(t, nil)
	w := a.do(t, "", http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHead))
}

func TestRateLimitIsPerTenant(t *testing.T) {
	limiter, err := ratelimiter.NewKeyedTokenBucket(0.001, 1, 16)
	require.NoError(t, err)
	a := newTestAPI(t, limiter)

	assert.Equal(t, http.StatusOK, a.do(t, "tenant-a", http.MethodGet, "/api/v1/history", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, a.do(t, "tenant-a", http.MethodGet, "/api/v1/history", nil).Code)
	assert.Equal(t, http.StatusOK, a.do(t, "tenant-b", http.MethodGet, "/api/v1/history", nil).Code)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: empty", schema.ErrInvalidInput), http.StatusBadRequest},
		{schema.ErrUnsupportedFormat, http.StatusUnsupportedMediaType},
		{fmt.Errorf("%w: f1", schema.ErrMetadataNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: %w", schema.ErrDownload, schema.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: timeout", schema.ErrEmbeddingService), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: %w", schema.ErrBatchFailed, schema.ErrIndexUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: bad pdf", schema.ErrLoad), http.StatusUnprocessableEntity},
		{service.ErrAsyncDisabled, http.StatusNotImplemented},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}
