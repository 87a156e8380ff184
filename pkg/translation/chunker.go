package translation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nerdneilsfield/go-pdf-translator/pkg/document"
)

// DefaultMaxChunkSize 默认块大小上限（字符数）
const DefaultMaxChunkSize = 4800

// PageChunker 按页面分隔标记分块，超长页依次在句号、换行、硬截断处切分。
// 长度按 rune 计算。
type PageChunker struct {
	maxSize int
}

// NewPageChunker 创建分块器，maxSize 必须大于页面分隔标记长度
func NewPageChunker(maxSize int) (*PageChunker, error) {
	if maxSize <= 0 || maxSize <= utf8.RuneCountInString(document.PageBreakMarker) {
		return nil, fmt.Errorf("%w: max chunk size %d", ErrInvalidChunkSize, maxSize)
	}
	return &PageChunker{maxSize: maxSize}, nil
}

// MaxSize 块大小上限
func (c *PageChunker) MaxSize() int {
	return c.maxSize
}

// Chunk 将规范化文本分块
func (c *PageChunker) Chunk(text string) []string {
	if text == "" {
		return []string{}
	}

	var (
		chunks  []string
		current string
	)

	emit := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			chunks = append(chunks, s)
		}
	}

	for _, page := range strings.Split(text, document.PageBreakMarker) {
		// 合并到当前块
		if runeLen(current)+runeLen(page)+2 <= c.maxSize {
			current += page + "\n\n"
			continue
		}

		if current != "" {
			emit(current)
		}
		current = page + "\n\n"

		// 单页超长
		for runeLen(current) > c.maxSize {
			runes := []rune(current)
			split := splitPoint(runes[:c.maxSize])
			emit(string(runes[:split]))
			current = strings.TrimSpace(string(runes[split:]))
		}
	}

	if current != "" {
		emit(current)
	}

	if chunks == nil {
		return []string{}
	}
	return chunks
}

// splitPoint 在窗口内寻找切分点：最后一个句号之后，其次最后一个换行之后，否则硬截断
func splitPoint(window []rune) int {
	if i := lastIndexRune(window, '.'); i >= 0 {
		return i + 1
	}
	if i := lastIndexRune(window, '\n'); i >= 0 {
		return i + 1
	}
	return len(window)
}

func lastIndexRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
