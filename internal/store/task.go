package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrTaskNotFound 任务记录不存在
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskExists 任务记录已存在
	ErrTaskExists = errors.New("task already exists")
	// ErrUnknownField 不支持的更新字段
	ErrUnknownField = errors.New("unknown task field")
)

// Status 任务状态
type Status string

const (
	StatusProcessing  Status = "processing"
	StatusTranslating Status = "translating"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// Terminal 是否为终止状态
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// 可更新的字段名，与文档存储中的字段名一致
const (
	FieldStatus            = "status"
	FieldProgress          = "progress"
	FieldErrorMessage      = "errorMessage"
	FieldTranslatedContent = "translatedContent"
	FieldChunkCount        = "chunkCount"
	FieldFailedChunk       = "failedChunk"
	FieldInitialTimestamp  = "initialTimestamp"
	FieldCompletedAt       = "completedAt"
	FieldFailedAt          = "failedAt"
)

// Task 翻译任务记录
type Task struct {
	ID                string     `json:"id" firestore:"-"`
	UserID            string     `json:"userId" firestore:"userId"`
	FileName          string     `json:"fileName" firestore:"fileName"`
	TargetLanguage    string     `json:"targetLanguage" firestore:"targetLanguage"`
	Status            Status     `json:"status" firestore:"status"`
	Progress          int        `json:"progress" firestore:"progress"`
	ErrorMessage      string     `json:"errorMessage,omitempty" firestore:"errorMessage,omitempty"`
	TranslatedContent []string   `json:"translatedContent,omitempty" firestore:"translatedContent,omitempty"`
	ChunkCount        int        `json:"chunkCount,omitempty" firestore:"chunkCount,omitempty"`
	FailedChunk       *int       `json:"failedChunk,omitempty" firestore:"failedChunk,omitempty"`
	Timestamp         time.Time  `json:"timestamp" firestore:"timestamp,serverTimestamp"`
	InitialTimestamp  *time.Time `json:"initialTimestamp,omitempty" firestore:"initialTimestamp,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty" firestore:"completedAt,omitempty"`
	FailedAt          *time.Time `json:"failedAt,omitempty" firestore:"failedAt,omitempty"`
}

// Clone 深拷贝
func (t *Task) Clone() *Task {
	c := *t
	if t.TranslatedContent != nil {
		c.TranslatedContent = append([]string(nil), t.TranslatedContent...)
	}
	if t.FailedChunk != nil {
		v := *t.FailedChunk
		c.FailedChunk = &v
	}
	c.InitialTimestamp = cloneTime(t.InitialTimestamp)
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.FailedAt = cloneTime(t.FailedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// TaskRef 任务记录的定位信息
type TaskRef struct {
	AppID  string
	UserID string
	TaskID string
}

// Collection 任务所在集合路径
func (r TaskRef) Collection() string {
	return fmt.Sprintf("artifacts/%s/users/%s/translations", r.AppID, r.UserID)
}

// Path 任务文档路径
func (r TaskRef) Path() string {
	return r.Collection() + "/" + r.TaskID
}

// Validate 检查定位信息是否完整
func (r TaskRef) Validate() error {
	if r.AppID == "" || r.UserID == "" || r.TaskID == "" {
		return fmt.Errorf("incomplete task reference %q", r.Path())
	}
	for _, id := range []string{r.AppID, r.UserID, r.TaskID} {
		if strings.Contains(id, "/") {
			return fmt.Errorf("invalid task reference %q: ids must not contain '/'", r.Path())
		}
	}
	return nil
}

type serverTimestamp struct{}

// ServerTimestamp 由存储端写入当前时间
var ServerTimestamp = serverTimestamp{}

// Fields 部分更新的字段集合
type Fields map[string]interface{}

// TaskStore 任务记录存储
type TaskStore interface {
	// Create 新建任务记录，已存在时返回 ErrTaskExists
	Create(ctx context.Context, ref TaskRef, task *Task) error

	// Update 合并更新部分字段，不存在时返回 ErrTaskNotFound
	Update(ctx context.Context, ref TaskRef, fields Fields) error

	// Get 读取任务记录
	Get(ctx context.Context, ref TaskRef) (*Task, error)

	// Ping 检查存储是否可用
	Ping(ctx context.Context) error

	Close() error
}

// applyFields 把更新写入任务结构体
func applyFields(task *Task, fields Fields, now time.Time) error {
	for name, value := range fields {
		var ok bool
		switch name {
		case FieldStatus:
			var s Status
			switch v := value.(type) {
			case Status:
				s, ok = v, true
			case string:
				s, ok = Status(v), true
			}
			task.Status = s
		case FieldProgress:
			task.Progress, ok = value.(int)
		case FieldErrorMessage:
			task.ErrorMessage, ok = value.(string)
		case FieldTranslatedContent:
			var content []string
			content, ok = value.([]string)
			task.TranslatedContent = append([]string(nil), content...)
		case FieldChunkCount:
			task.ChunkCount, ok = value.(int)
		case FieldFailedChunk:
			var idx int
			if idx, ok = value.(int); ok {
				task.FailedChunk = &idx
			}
		case FieldInitialTimestamp:
			task.InitialTimestamp, ok = timeValue(value, now)
		case FieldCompletedAt:
			task.CompletedAt, ok = timeValue(value, now)
		case FieldFailedAt:
			task.FailedAt, ok = timeValue(value, now)
		default:
			return fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
		if !ok {
			return fmt.Errorf("invalid value %T for field %s", value, name)
		}
	}
	task.Timestamp = now
	return nil
}

func timeValue(value interface{}, now time.Time) (*time.Time, bool) {
	switch v := value.(type) {
	case serverTimestamp:
		return &now, true
	case time.Time:
		return &v, true
	default:
		return nil, false
	}
}
