package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore 进程内任务存储，用于本地运行和测试
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	now   func() time.Time
}

var _ TaskStore = (*MemoryStore)(nil)

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]*Task),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Create(ctx context.Context, ref TaskRef, task *Task) error {
	if err := ref.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := ref.Path()
	if _, exists := s.tasks[key]; exists {
		return ErrTaskExists
	}

	stored := task.Clone()
	stored.ID = ref.TaskID
	stored.UserID = ref.UserID
	if stored.Timestamp.IsZero() {
		stored.Timestamp = s.now()
	}
	s.tasks[key] = stored
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, ref TaskRef, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.tasks[ref.Path()]
	if !exists {
		return ErrTaskNotFound
	}

	next := current.Clone()
	if err := applyFields(next, fields, s.now()); err != nil {
		return err
	}
	s.tasks[ref.Path()] = next
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, ref TaskRef) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[ref.Path()]
	if !exists {
		return nil, ErrTaskNotFound
	}
	return task.Clone(), nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Close() error {
	return nil
}
