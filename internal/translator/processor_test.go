package translator

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-pdf-translator/internal/queue"
	"github.com/nerdneilsfield/go-pdf-translator/internal/store"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/document"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/translation"
)

type step struct {
	Status   store.Status
	Progress int
}

// recordingStore 记录每次更新的状态和进度
type recordingStore struct {
	*store.MemoryStore
	mu    sync.Mutex
	steps []step
}

func (s *recordingStore) Update(ctx context.Context, ref store.TaskRef, fields store.Fields) error {
	if err := s.MemoryStore.Update(ctx, ref, fields); err != nil {
		return err
	}
	task, _ := s.MemoryStore.Get(ctx, ref)
	s.mu.Lock()
	s.steps = append(s.steps, step{task.Status, task.Progress})
	s.mu.Unlock()
	return nil
}

type upperProvider struct {
	failAt int
}

func (p *upperProvider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	if idx, _ := req.Metadata["chunk_index"].(int); idx == p.failAt {
		return nil, providers.HTTPError("upper", 503, "service unavailable")
	}
	return &providers.ProviderResponse{Text: strings.ToUpper(req.Text)}, nil
}

func (p *upperProvider) GetName() string     { return "upper" }
func (p *upperProvider) SupportsSteps() bool { return false }

type fakeExtractor struct {
	pages []document.Page
	err   error
}

func (e *fakeExtractor) ExtractPages(*document.Document) ([]document.Page, error) {
	return e.pages, e.err
}

func newService(t *testing.T, failAt int) translation.Service {
	t.Helper()
	cfg := translation.DefaultConfig()
	cfg.MaxChunkSize = 30
	cfg.ChunkDelay = 0
	svc, err := translation.New(cfg, translation.WithProvider(&upperProvider{failAt: failAt}))
	require.NoError(t, err)
	return svc
}

func newJob(t *testing.T, st store.TaskStore) *queue.Job {
	t.Helper()
	job := queue.NewJob("app", "task-1", "user-1", "report.pdf", base64.StdEncoding.EncodeToString([]byte("%PDF")), "tr")
	require.NoError(t, st.Create(context.Background(), job.TaskRef(), &store.Task{
		FileName:       job.FileName,
		TargetLanguage: job.TargetLanguage,
		Status:         store.StatusProcessing,
	}))
	return job
}

var threePages = []document.Page{
	{Number: 1, Text: "first page text here"},
	{Number: 2, Text: "second page text"},
	{Number: 3, Text: "third page text"},
}

func TestProcessor_ProgressProtocol(t *testing.T) {
	st := &recordingStore{MemoryStore: store.NewMemoryStore()}
	job := newJob(t, st)

	p := NewProcessor(st, newService(t, -1), WithExtractor(&fakeExtractor{pages: threePages}))
	res, err := p.Process(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 3, res.ChunkCount)

	assert.Equal(t, []step{
		{store.StatusProcessing, 10},
		{store.StatusProcessing, 30},
		{store.StatusProcessing, 50},
		{store.StatusTranslating, 66},
		{store.StatusTranslating, 83},
		{store.StatusTranslating, 100},
		{store.StatusCompleted, 100},
	}, st.steps)

	task, err := st.Get(context.Background(), job.TaskRef())
	require.NoError(t, err)
	assert.Equal(t, []string{"FIRST PAGE TEXT HERE", "SECOND PAGE TEXT", "THIRD PAGE TEXT"}, task.TranslatedContent)
	assert.Equal(t, 3, task.ChunkCount)
	assert.NotNil(t, task.InitialTimestamp)
	assert.NotNil(t, task.CompletedAt)
	assert.Empty(t, task.ErrorMessage)
}

func TestProcessor_ChunkFailure(t *testing.T) {
	st := &recordingStore{MemoryStore: store.NewMemoryStore()}
	job := newJob(t, st)

	p := NewProcessor(st, newService(t, 1), WithExtractor(&fakeExtractor{pages: threePages}))
	_, err := p.Process(context.Background(), job)
	require.Error(t, err)

	idx, ok := translation.ChunkIndexOf(err)
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	task, err := st.Get(context.Background(), job.TaskRef())
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, task.Status)
	assert.Equal(t, "Translation of chunk 2 failed: upper: service unavailable", task.ErrorMessage)
	require.NotNil(t, task.FailedChunk)
	assert.Equal(t, 1, *task.FailedChunk)
	assert.Equal(t, []string{"FIRST PAGE TEXT HERE"}, task.TranslatedContent)
	assert.NotNil(t, task.FailedAt)
	assert.Nil(t, task.CompletedAt)

	// 失败块之后不再推进进度
	last := st.steps[len(st.steps)-2]
	assert.Equal(t, step{store.StatusTranslating, 83}, last)
}

func TestProcessor_ExtractionFailure(t *testing.T) {
	st := store.NewMemoryStore()
	job := newJob(t, st)

	extractErr := errors.New("page 2: broken xref")
	p := NewProcessor(st, newService(t, -1), WithExtractor(&fakeExtractor{err: extractErr}))
	_, err := p.Process(context.Background(), job)
	require.ErrorIs(t, err, extractErr)

	task, err := st.Get(context.Background(), job.TaskRef())
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, task.Status)
	assert.Equal(t, "Critical backend error: page 2: broken xref", task.ErrorMessage)
	assert.Nil(t, task.FailedChunk)
	assert.Empty(t, task.TranslatedContent)
}

func TestProcessor_InvalidBase64(t *testing.T) {
	st := store.NewMemoryStore()
	job := newJob(t, st)
	job.PDFContent = "***"

	_, err := NewProcessor(st, newService(t, -1)).Process(context.Background(), job)
	require.Error(t, err)

	task, _ := st.Get(context.Background(), job.TaskRef())
	assert.Equal(t, store.StatusFailed, task.Status)
	assert.True(t, strings.HasPrefix(task.ErrorMessage, "Critical backend error: invalid base64"))
}

func TestProcessor_RealPDF(t *testing.T) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for _, text := range []string{"Hello World", "Second Page"} {
		doc.AddPage()
		doc.Cell(40, 10, text)
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))

	st := store.NewMemoryStore()
	job := newJob(t, st)
	job.PDFContent = base64.StdEncoding.EncodeToString(buf.Bytes())

	p := NewProcessor(st, newService(t, -1))
	chunks, err := p.Chunks(&document.Document{Data: buf.Bytes()})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	require.NoError(t, p.Handle(context.Background(), job))
	task, _ := st.Get(context.Background(), job.TaskRef())
	assert.Equal(t, store.StatusCompleted, task.Status)
	assert.Contains(t, strings.Join(task.TranslatedContent, " "), "HELLO WORLD")
}

func TestChunkProgress(t *testing.T) {
	assert.Equal(t, 100, ChunkProgress(0, 1))
	assert.Equal(t, 75, ChunkProgress(0, 2))
	assert.Equal(t, 100, ChunkProgress(1, 2))
	assert.Equal(t, 50, ChunkProgress(0, 0))
	assert.Equal(t, 51, ChunkProgress(0, 100))
}
