package translator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-pdf-translator/internal/queue"
	"github.com/nerdneilsfield/go-pdf-translator/internal/store"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/document"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/translation"
)

// 任务进度节点（百分比）
const (
	ProgressStarted    = 10
	ProgressExtracting = 30
	ProgressChunking   = 50
	ProgressCompleted  = 100
)

// Result 一次作业的处理结果
type Result struct {
	TaskID     string        `json:"task_id"`
	ChunkCount int           `json:"chunk_count"`
	Translated []string      `json:"translated"`
	Duration   time.Duration `json:"duration"`
}

// Processor 执行完整的 PDF 翻译作业，并在每一步把进度写入任务记录
type Processor struct {
	store      store.TaskStore
	service    translation.Service
	extractor  document.PageExtractor
	normalizer *document.Normalizer
	logger     *zap.Logger
}

// ProcessorOption 处理器选项
type ProcessorOption func(*Processor)

// WithExtractor 替换页面提取器
func WithExtractor(e document.PageExtractor) ProcessorOption {
	return func(p *Processor) {
		p.extractor = e
	}
}

// WithNormalizer 替换文本规范化器
func WithNormalizer(n *document.Normalizer) ProcessorOption {
	return func(p *Processor) {
		p.normalizer = n
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor 创建作业处理器
func NewProcessor(st store.TaskStore, svc translation.Service, opts ...ProcessorOption) *Processor {
	p := &Processor{
		store:      st,
		service:    svc,
		extractor:  document.NewPDFExtractor(),
		normalizer: document.NewNormalizer(document.NormalizerOptions{}),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Chunks 提取、规范化并分块
func (p *Processor) Chunks(doc *document.Document) ([]string, error) {
	text, err := document.ExtractText(p.extractor, p.normalizer, doc)
	if err != nil {
		return nil, err
	}
	return p.service.Chunk(text), nil
}

// Handle 适配 queue.Handler
func (p *Processor) Handle(ctx context.Context, job *queue.Job) error {
	_, err := p.Process(ctx, job)
	return err
}

// Process 处理一个作业。任何失败都会写回任务记录后再返回
func (p *Processor) Process(ctx context.Context, job *queue.Job) (*Result, error) {
	start := time.Now()
	ref := job.TaskRef()
	log := p.logger.With(zap.String("task_id", job.TaskID), zap.String("user_id", job.UserID))

	translated, err := p.run(ctx, job, ref, log)
	if err != nil {
		p.fail(ref, translated, err, log)
		return nil, err
	}

	log.Info("translation completed",
		zap.Int("chunks", len(translated)),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{
		TaskID:     job.TaskID,
		ChunkCount: len(translated),
		Translated: translated,
		Duration:   time.Since(start),
	}, nil
}

func (p *Processor) run(ctx context.Context, job *queue.Job, ref store.TaskRef, log *zap.Logger) ([]string, error) {
	if err := p.store.Update(ctx, ref, store.Fields{
		store.FieldStatus:           store.StatusProcessing,
		store.FieldProgress:         ProgressStarted,
		store.FieldInitialTimestamp: store.ServerTimestamp,
	}); err != nil {
		return nil, err
	}

	data, err := job.DecodePDF()
	if err != nil {
		return nil, err
	}

	if err := p.setProgress(ctx, ref, store.StatusProcessing, ProgressExtracting); err != nil {
		return nil, err
	}
	text, err := document.ExtractText(p.extractor, p.normalizer, &document.Document{Name: job.FileName, Data: data})
	if err != nil {
		return nil, err
	}
	log.Debug("text extracted", zap.Int("length", len([]rune(text))))

	if err := p.setProgress(ctx, ref, store.StatusProcessing, ProgressChunking); err != nil {
		return nil, err
	}
	chunks := p.service.Chunk(text)
	log.Info("text chunked", zap.Int("chunks", len(chunks)))

	translated := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if err := p.setProgress(ctx, ref, store.StatusTranslating, ChunkProgress(i, len(chunks))); err != nil {
			return translated, err
		}

		out, err := p.service.TranslateChunk(ctx, i, chunk, job.TargetLanguage)
		if err != nil {
			return translated, err
		}
		translated = append(translated, out)
	}

	if err := p.store.Update(ctx, ref, store.Fields{
		store.FieldStatus:            store.StatusCompleted,
		store.FieldProgress:          ProgressCompleted,
		store.FieldTranslatedContent: translated,
		store.FieldChunkCount:        len(translated),
		store.FieldCompletedAt:       store.ServerTimestamp,
	}); err != nil {
		return translated, err
	}
	return translated, nil
}

func (p *Processor) setProgress(ctx context.Context, ref store.TaskRef, status store.Status, progress int) error {
	return p.store.Update(ctx, ref, store.Fields{
		store.FieldStatus:   status,
		store.FieldProgress: progress,
	})
}

// fail 把失败写回任务记录。作业的 ctx 可能已取消，这里使用独立的超时
func (p *Processor) fail(ref store.TaskRef, partial []string, cause error, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fields := store.Fields{
		store.FieldStatus:   store.StatusFailed,
		store.FieldFailedAt: store.ServerTimestamp,
	}
	if index, ok := translation.ChunkIndexOf(cause); ok {
		fields[store.FieldErrorMessage] = fmt.Sprintf("Translation of chunk %d failed: %s", index+1, rootMessage(cause))
		fields[store.FieldFailedChunk] = index
		fields[store.FieldTranslatedContent] = append([]string{}, partial...)
	} else {
		fields[store.FieldErrorMessage] = fmt.Sprintf("Critical backend error: %s", cause)
	}

	log.Error("translation failed", zap.Error(cause))
	if err := p.store.Update(ctx, ref, fields); err != nil {
		log.Error("failed to record task failure", zap.Error(err))
	}
}

// rootMessage 去掉块错误的包装，只保留提供商给出的原因
func rootMessage(err error) string {
	var te *translation.TranslationError
	if errors.As(err, &te) && te.Cause != nil {
		return te.Cause.Error()
	}
	return err.Error()
}

// ChunkProgress 第 index 块（从0开始）开始翻译时的进度，范围 50-100
func ChunkProgress(index, total int) int {
	if total <= 0 {
		return ProgressChunking
	}
	return int(ProgressChunking + float64(index+1)/float64(total)*(ProgressCompleted-ProgressChunking))
}
