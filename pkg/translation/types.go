package translation

import (
	"context"
	"time"
)

// Progress 逐块翻译进度
type Progress struct {
	// Index 刚完成的块索引（从0开始）
	Index int `json:"index"`

	// Total 总块数
	Total int `json:"total"`

	// Translated 该块译文
	Translated string `json:"translated"`

	// Cached 是否命中缓存
	Cached bool `json:"cached"`

	// Elapsed 本块耗时
	Elapsed time.Duration `json:"elapsed"`
}

// Percent 已完成比例（0-1）
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Index+1) / float64(p.Total)
}

// ProgressFunc 每块完成后回调，返回错误会中止翻译
type ProgressFunc func(ctx context.Context, p Progress) error
