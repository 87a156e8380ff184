package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-pdf-translator/internal/config"
	"github.com/nerdneilsfield/go-pdf-translator/internal/queue"
	"github.com/nerdneilsfield/go-pdf-translator/internal/render"
	"github.com/nerdneilsfield/go-pdf-translator/internal/store"
)

type fixture struct {
	srv   *Server
	store *store.MemoryStore
	queue *queue.MemoryQueue
}

func newFixture(t *testing.T, mutate func(*config.ServerConfig)) *fixture {
	t.Helper()
	cfg := config.NewDefaultConfig().Server
	cfg.RateLimit = ""
	if mutate != nil {
		mutate(&cfg)
	}

	f := &fixture{store: store.NewMemoryStore(), queue: queue.NewMemoryQueue(8)}
	srv, err := New(cfg, "app", f.store, f.queue, render.NewPDFRenderer(config.RenderConfig{}, nil))
	require.NoError(t, err)
	f.srv = srv
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

const validTranslate = `{"taskId":"t1","userId":"u1","fileName":"doc.pdf","pdfContent":"JVBERg==","targetLanguage":"tr"}`

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{
		"status":       "Backend is running!",
		"store_status": "initialized",
	}, decodeBody(t, rec))
}

type downStore struct{ *store.MemoryStore }

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth_StoreUnavailable(t *testing.T) {
	cfg := config.NewDefaultConfig().Server
	cfg.RateLimit = ""
	srv, err := New(cfg, "app", downStore{store.NewMemoryStore()}, queue.NewMemoryQueue(1), render.NewPDFRenderer(config.RenderConfig{}, nil))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "unavailable", decodeBody(t, rec)["store_status"])
}

func TestTranslate_Accepted(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodPost, "/translate", validTranslate)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, map[string]interface{}{
		"message": "Translation process initiated",
		"taskId":  "t1",
	}, decodeBody(t, rec))

	assert.Equal(t, 1, f.queue.Len())
	job, err := f.queue.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "app", job.AppID)
	assert.Equal(t, "t1", job.TaskID)
	assert.Equal(t, "u1", job.UserID)
	assert.Equal(t, "tr", job.TargetLanguage)

	task, err := f.store.Get(context.Background(), job.TaskRef())
	require.NoError(t, err)
	assert.Equal(t, store.StatusProcessing, task.Status)
	assert.Equal(t, "doc.pdf", task.FileName)
}

func TestTranslate_ExistingTaskKept(t *testing.T) {
	f := newFixture(t, nil)
	ref := store.TaskRef{AppID: "app", UserID: "u1", TaskID: "t1"}
	require.NoError(t, f.store.Create(context.Background(), ref, &store.Task{
		FileName: "frontend-name.pdf",
		Status:   store.StatusProcessing,
	}))

	rec := f.do(http.MethodPost, "/translate", validTranslate)
	require.Equal(t, http.StatusAccepted, rec.Code)

	task, err := f.store.Get(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "frontend-name.pdf", task.FileName)
}

func TestTranslate_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing pdf", `{"taskId":"t1","userId":"u1","fileName":"doc.pdf","targetLanguage":"tr"}`, "Missing required parameters"},
		{"missing target", `{"taskId":"t1","userId":"u1","fileName":"doc.pdf","pdfContent":"JVBERg=="}`, "Missing required parameters"},
		{"empty object", `{}`, "Missing required parameters"},
		{"bad language", `{"taskId":"t1","userId":"u1","fileName":"doc.pdf","pdfContent":"JVBERg==","targetLanguage":"not a tag!"}`, `Invalid targetLanguage "not a tag!"`},
		{"slash in id", `{"taskId":"a/b","userId":"u1","fileName":"doc.pdf","pdfContent":"JVBERg==","targetLanguage":"tr"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			rec := f.do(http.MethodPost, "/translate", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			if tt.want != "" {
				assert.Equal(t, tt.want, decodeBody(t, rec)["error"])
			}
			assert.Zero(t, f.queue.Len())
		})
	}
}

func TestTranslate_InvalidJSON(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodPost, "/translate", `{"taskId":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "Invalid JSON body")
}

func TestTranslate_BodyTooLarge(t *testing.T) {
	f := newFixture(t, func(c *config.ServerConfig) { c.MaxBodyBytes = 32 })
	rec := f.do(http.MethodPost, "/translate", validTranslate)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestTranslate_QueueClosed(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.queue.Close())
	rec := f.do(http.MethodPost, "/translate", validTranslate)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTranslate_RateLimited(t *testing.T) {
	f := newFixture(t, func(c *config.ServerConfig) { c.RateLimit = "2-M" })

	assert.Equal(t, http.StatusAccepted, f.do(http.MethodPost, "/translate", validTranslate).Code)
	assert.Equal(t, http.StatusAccepted, f.do(http.MethodPost, "/translate", validTranslate).Code)
	rec := f.do(http.MethodPost, "/translate", validTranslate)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// 其他路由不受限
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/", "").Code)
}

func TestNew_InvalidRateLimit(t *testing.T) {
	cfg := config.NewDefaultConfig().Server
	cfg.RateLimit = "lots"
	_, err := New(cfg, "app", store.NewMemoryStore(), queue.NewMemoryQueue(1), render.NewPDFRenderer(config.RenderConfig{}, nil))
	assert.Error(t, err)
}

func TestGetTask(t *testing.T) {
	f := newFixture(t, nil)
	ref := store.TaskRef{AppID: "app", UserID: "u1", TaskID: "t1"}
	require.NoError(t, f.store.Create(context.Background(), ref, &store.Task{FileName: "doc.pdf", Status: store.StatusProcessing}))
	require.NoError(t, f.store.Update(context.Background(), ref, store.Fields{
		store.FieldStatus:   store.StatusTranslating,
		store.FieldProgress: 75,
	}))

	rec := f.do(http.MethodGet, "/tasks/u1/t1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "t1", body["id"])
	assert.Equal(t, "translating", body["status"])
	assert.EqualValues(t, 75, body["progress"])

	rec = f.do(http.MethodGet, "/tasks/u1/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Task not found", decodeBody(t, rec)["error"])
}

func TestGeneratePDF(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodPost, "/generate-pdf",
		`{"translatedContent":"BAŞLIK\n\nMetin paragrafı.","originalFileName":"report.pdf","targetLanguage":"tr"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report_translated_tr.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestGeneratePDF_ArrayContentAndDefaults(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodPost, "/generate-pdf", `{"translatedContent":["First chunk.","Second chunk."]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="translated_document_translated_en.pdf"`, rec.Header().Get("Content-Disposition"))
}

func TestGeneratePDF_NoContent(t *testing.T) {
	for _, body := range []string{`{}`, `{"translatedContent":""}`, `{"translatedContent":[]}`, `{"translatedContent":null}`} {
		f := newFixture(t, nil)
		rec := f.do(http.MethodPost, "/generate-pdf", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "No translated content provided for PDF generation.", decodeBody(t, rec)["error"])
	}
}

func TestGeneratePDF_WrongContentType(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodPost, "/generate-pdf", `{"translatedContent":42}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParagraphs(t *testing.T) {
	var p Paragraphs
	require.NoError(t, json.Unmarshal([]byte(`["a","b"]`), &p))
	assert.Equal(t, Paragraphs("a\n\nb"), p)
	require.NoError(t, json.Unmarshal([]byte(`"plain"`), &p))
	assert.Equal(t, Paragraphs("plain"), p)
}

func TestRecoverer(t *testing.T) {
	f := newFixture(t, nil)
	f.srv.router.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})

	rec := f.do(http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]interface{}{
		"error":   "Internal Server Error",
		"message": "kaboom",
	}, decodeBody(t, rec))
}

func TestCORS(t *testing.T) {
	f := newFixture(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/translate", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestListenAndServe_Shutdown(t *testing.T) {
	f := newFixture(t, func(c *config.ServerConfig) {
		c.Addr = "127.0.0.1:0"
		c.ShutdownTimeout = time.Second
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestTranslate_RedisRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiterStore, err := NewRedisLimiterStore(client)
	require.NoError(t, err)

	cfg := config.NewDefaultConfig().Server
	cfg.RateLimit = "1-M"
	srv, err := New(cfg, "app", store.NewMemoryStore(), queue.NewMemoryQueue(4),
		render.NewPDFRenderer(config.RenderConfig{}, nil), WithLimiterStore(limiterStore))
	require.NoError(t, err)

	send := func() int {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/translate", strings.NewReader(validTranslate)))
		return rec.Code
	}
	assert.Equal(t, http.StatusAccepted, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}
