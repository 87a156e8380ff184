package queue

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerdneilsfield/go-pdf-translator/internal/store"
)

// ErrQueueClosed 队列已关闭
var ErrQueueClosed = errors.New("queue closed")

// Job 一次 PDF 翻译作业
type Job struct {
	ID             string    `json:"id"`
	AppID          string    `json:"appId"`
	TaskID         string    `json:"taskId"`
	UserID         string    `json:"userId"`
	FileName       string    `json:"fileName"`
	PDFContent     string    `json:"pdfContent"` // base64
	TargetLanguage string    `json:"targetLanguage"`
	EnqueuedAt     time.Time `json:"enqueuedAt"`
}

// NewJob 创建作业并分配 ID
func NewJob(appID, taskID, userID, fileName, pdfContent, targetLanguage string) *Job {
	return &Job{
		ID:             uuid.NewString(),
		AppID:          appID,
		TaskID:         taskID,
		UserID:         userID,
		FileName:       fileName,
		PDFContent:     pdfContent,
		TargetLanguage: targetLanguage,
		EnqueuedAt:     time.Now().UTC(),
	}
}

// TaskRef 作业对应的任务记录
func (j *Job) TaskRef() store.TaskRef {
	return store.TaskRef{AppID: j.AppID, UserID: j.UserID, TaskID: j.TaskID}
}

// DecodePDF 解码 base64 PDF 内容
func (j *Job) DecodePDF() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(j.PDFContent)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 pdf content: %w", err)
	}
	return data, nil
}

// Queue 作业队列
type Queue interface {
	// Enqueue 加入作业
	Enqueue(ctx context.Context, job *Job) error

	// Dequeue 阻塞直到取得作业、ctx 结束或队列关闭
	Dequeue(ctx context.Context) (*Job, error)

	Close() error
}
