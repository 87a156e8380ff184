package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore 把任务记录保存在 Firestore 的
// artifacts/{appId}/users/{userId}/translations/{taskId} 文档中
type FirestoreStore struct {
	client *firestore.Client
}

var _ TaskStore = (*FirestoreStore)(nil)

// FirestoreCredentials Firestore 认证方式，都为空时使用默认凭据
type FirestoreCredentials struct {
	File   string
	Base64 string
}

// ClientOptions 转换为 API 客户端选项
func (c FirestoreCredentials) ClientOptions() ([]option.ClientOption, error) {
	switch {
	case c.Base64 != "":
		raw, err := base64.StdEncoding.DecodeString(c.Base64)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 service account key: %w", err)
		}
		return []option.ClientOption{option.WithCredentialsJSON(raw)}, nil
	case c.File != "":
		return []option.ClientOption{option.WithCredentialsFile(c.File)}, nil
	default:
		return nil, nil
	}
}

// NewFirestoreStore 创建 Firestore 存储
func NewFirestoreStore(ctx context.Context, projectID string, creds FirestoreCredentials) (*FirestoreStore, error) {
	opts, err := creds.ClientOptions()
	if err != nil {
		return nil, err
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) doc(ref TaskRef) *firestore.DocumentRef {
	return s.client.Collection(ref.Collection()).Doc(ref.TaskID)
}

func (s *FirestoreStore) Create(ctx context.Context, ref TaskRef, task *Task) error {
	if err := ref.Validate(); err != nil {
		return err
	}

	stored := task.Clone()
	stored.UserID = ref.UserID
	if _, err := s.doc(ref).Create(ctx, stored); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return ErrTaskExists
		}
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Update(ctx context.Context, ref TaskRef, fields Fields) error {
	updates, err := toFirestoreUpdates(fields)
	if err != nil {
		return err
	}

	if _, err := s.doc(ref).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Get(ctx context.Context, ref TaskRef) (*Task, error) {
	snap, err := s.doc(ref).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to read task: %w", err)
	}

	var task Task
	if err := snap.DataTo(&task); err != nil {
		return nil, fmt.Errorf("failed to decode task: %w", err)
	}
	task.ID = ref.TaskID
	return &task, nil
}

// Ping 读取一个文档确认连接可用
func (s *FirestoreStore) Ping(ctx context.Context) error {
	it := s.client.Collection("artifacts").Limit(1).Documents(ctx)
	defer it.Stop()

	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return err
	}
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// toFirestoreUpdates 转换更新字段，时间戳交由服务端生成
func toFirestoreUpdates(fields Fields) ([]firestore.Update, error) {
	updates := make([]firestore.Update, 0, len(fields)+1)
	for name, value := range fields {
		if !knownField(name) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
		if _, ok := value.(serverTimestamp); ok {
			value = firestore.ServerTimestamp
		}
		if s, ok := value.(Status); ok {
			value = string(s)
		}
		updates = append(updates, firestore.Update{Path: name, Value: value})
	}
	updates = append(updates, firestore.Update{Path: "timestamp", Value: firestore.ServerTimestamp})
	return updates, nil
}

func knownField(name string) bool {
	switch name {
	case FieldStatus, FieldProgress, FieldErrorMessage, FieldTranslatedContent, FieldChunkCount,
		FieldFailedChunk, FieldInitialTimestamp, FieldCompletedAt, FieldFailedAt:
		return true
	default:
		return false
	}
}
