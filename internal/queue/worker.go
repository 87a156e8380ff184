package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Handler 处理单个作业
type Handler func(ctx context.Context, job *Job) error

// Worker 从队列取作业并交给 ants 协程池执行
type Worker struct {
	queue   Queue
	handler Handler
	pool    *ants.Pool
	logger  *zap.Logger

	// 出队失败后的等待时间
	errorBackoff time.Duration
}

// NewWorker 创建作业消费者，size 为并发处理的作业数
func NewWorker(q Queue, handler Handler, size int, logger *zap.Logger) (*Worker, error) {
	if size <= 0 {
		return nil, errors.New("worker pool size must be greater than 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := ants.NewPool(size, ants.WithPanicHandler(func(p interface{}) {
		logger.Error("job handler panicked", zap.Any("panic", p))
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Worker{
		queue:        q,
		handler:      handler,
		pool:         pool,
		logger:       logger,
		errorBackoff: time.Second,
	}, nil
}

// Run 持续消费直到 ctx 结束或队列关闭，返回前等待已开始的作业完成
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		w.pool.Release()
	}()

	w.logger.Info("worker started", zap.Int("concurrency", w.pool.Cap()))

	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrQueueClosed) {
				w.logger.Info("worker stopping", zap.Error(err))
				return nil
			}
			w.logger.Warn("dequeue failed", zap.Error(err))
			select {
			case <-time.After(w.errorBackoff):
				continue
			case <-ctx.Done():
				return nil
			}
		}

		wg.Add(1)
		submitErr := w.pool.Submit(func() {
			defer wg.Done()
			w.handle(ctx, job)
		})
		if submitErr != nil {
			wg.Done()
			w.logger.Error("failed to submit job", zap.String("job_id", job.ID), zap.Error(submitErr))
		}
	}
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	start := time.Now()
	log := w.logger.With(zap.String("job_id", job.ID), zap.String("task_id", job.TaskID))
	log.Info("job started", zap.String("file", job.FileName), zap.String("target", job.TargetLanguage))

	if err := w.handler(ctx, job); err != nil {
		log.Error("job failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return
	}
	log.Info("job finished", zap.Duration("elapsed", time.Since(start)))
}
