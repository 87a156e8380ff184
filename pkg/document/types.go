package document

import (
	"errors"
)

// PageBreakMarker 页面分隔标记，Normalizer 与 Chunker 之间的约定
const PageBreakMarker = "\n\n---PAGE_BREAK---\n\n"

// 预定义错误
var (
	// ErrExtraction 文本提取失败，属于致命错误
	ErrExtraction = errors.New("text extraction failed")

	// ErrEmptyDocument 文档内容为空
	ErrEmptyDocument = errors.New("empty document")
)

// Document 上传的原始文档，处理期间只读
type Document struct {
	// Name 原始文件名
	Name string

	// Data 原始字节
	Data []byte
}

// Page 单页提取结果，按页码顺序排列，不会被重排
type Page struct {
	// Number 页码（从1开始）
	Number int

	// Text 提取出的原始文本，可能为空
	Text string
}

// PageExtractor 按页提取文本的接口
type PageExtractor interface {
	// ExtractPages 提取所有页面文本
	ExtractPages(doc *Document) ([]Page, error)
}
