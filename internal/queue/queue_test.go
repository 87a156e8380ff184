package queue

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-pdf-translator/internal/config"
)

func newRedisQueue(t *testing.T) *RedisQueue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisQueue(client, "test:jobs")
}

func queues(t *testing.T) map[string]Queue {
	return map[string]Queue{
		"memory": NewMemoryQueue(8),
		"redis":  newRedisQueue(t),
	}
}

func TestQueue_FIFO(t *testing.T) {
	for name, q := range queues(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first := NewJob("app", "t1", "u1", "a.pdf", "AAAA", "tr")
			second := NewJob("app", "t2", "u1", "b.pdf", "BBBB", "de")
			require.NoError(t, q.Enqueue(ctx, first))
			require.NoError(t, q.Enqueue(ctx, second))

			got, err := q.Dequeue(ctx)
			require.NoError(t, err)
			assert.Equal(t, first.ID, got.ID)
			assert.Equal(t, "a.pdf", got.FileName)
			assert.Equal(t, "tr", got.TargetLanguage)

			got, err = q.Dequeue(ctx)
			require.NoError(t, err)
			assert.Equal(t, second.ID, got.ID)
		})
	}
}

func TestQueue_DequeueHonoursContext(t *testing.T) {
	for name, q := range queues(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			_, err := q.Dequeue(ctx)
			assert.ErrorIs(t, err, context.DeadlineExceeded)
		})
	}
}

func TestQueue_Closed(t *testing.T) {
	for name, q := range queues(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, q.Close())
			assert.ErrorIs(t, q.Enqueue(context.Background(), &Job{}), ErrQueueClosed)
			_, err := q.Dequeue(context.Background())
			assert.ErrorIs(t, err, ErrQueueClosed)
		})
	}
}

func TestMemoryQueue_EnqueueBlocksWhenFull(t *testing.T) {
	q := NewMemoryQueue(1)
	require.NoError(t, q.Enqueue(context.Background(), &Job{ID: "1"}))
	assert.Equal(t, 1, q.Len())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(ctx, &Job{ID: "2"}), context.DeadlineExceeded)
}

func TestRedisQueue_Len(t *testing.T) {
	q := newRedisQueue(t)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, &Job{ID: "1"}))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestJob(t *testing.T) {
	pdf := []byte("%PDF-1.4")
	job := NewJob("app", "task", "user", "doc.pdf", base64.StdEncoding.EncodeToString(pdf), "tr")
	assert.NotEmpty(t, job.ID)
	assert.False(t, job.EnqueuedAt.IsZero())
	assert.Equal(t, "artifacts/app/users/user/translations/task", job.TaskRef().Path())

	data, err := job.DecodePDF()
	require.NoError(t, err)
	assert.Equal(t, pdf, data)

	job.PDFContent = "not base64!"
	_, err = job.DecodePDF()
	assert.Error(t, err)
}

func TestWorker_ProcessesJobs(t *testing.T) {
	q := NewMemoryQueue(16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu   sync.Mutex
		seen []string
		done = make(chan struct{})
	)
	handler := func(ctx context.Context, job *Job) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, job.TaskID)
		if len(seen) == 3 {
			close(done)
		}
		if job.TaskID == "t2" {
			return errors.New("handler failure is logged, not fatal")
		}
		return nil
	}

	w, err := NewWorker(q, handler, 2, nil)
	require.NoError(t, err)

	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	for _, id := range []string{"t1", "t2", "t3"} {
		require.NoError(t, q.Enqueue(ctx, &Job{ID: id, TaskID: id}))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs were not processed")
	}

	cancel()
	require.NoError(t, <-runErr)
	assert.ElementsMatch(t, []string{"t1", "t2", "t3"}, seen)
}

func TestWorker_RecoversFromPanic(t *testing.T) {
	q := NewMemoryQueue(4)
	var calls int32
	handler := func(ctx context.Context, job *Job) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			panic("boom")
		}
		return nil
	}

	w, err := NewWorker(q, handler, 1, nil)
	require.NoError(t, err)

	require.NoError(t, q.Enqueue(context.Background(), &Job{ID: "1"}))
	require.NoError(t, q.Enqueue(context.Background(), &Job{ID: "2"}))

	go func() {
		assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, 2*time.Second, 5*time.Millisecond)
		_ = q.Close()
	}()
	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestNewWorker_InvalidSize(t *testing.T) {
	_, err := NewWorker(NewMemoryQueue(1), nil, 0, nil)
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	q, err := New(config.QueueConfig{Backend: config.BackendMemory, BufferSize: 2})
	require.NoError(t, err)
	assert.IsType(t, &MemoryQueue{}, q)

	mr := miniredis.RunT(t)
	q, err = New(config.QueueConfig{Backend: config.BackendRedis, RedisURL: "redis://" + mr.Addr(), Name: "jobs"})
	require.NoError(t, err)
	require.NoError(t, q.Close())

	_, err = New(config.QueueConfig{Backend: "kafka"})
	assert.Error(t, err)
}
