package document

import (
	"regexp"
	"strings"

	"github.com/dlclark/regexp2"
)

var (
	// 连字符断词：trans-\nlation -> translation
	hyphenBreakPattern = regexp2.MustCompile(`(\w+)-\s*\n\s*(\w+)`, regexp2.None)

	// 软换行：同一段落内被折行的文字
	softBreakPattern = regexp2.MustCompile(`(?<=[a-zA-Z0-9.,;])\n(?=[a-zA-Z0-9])`, regexp2.None)

	// 连续空白（包括换行）
	whitespacePattern = regexp2.MustCompile(`\s+`, regexp2.None)

	paragraphBreakPattern = regexp.MustCompile(`\n{2,}`)

	ligatureReplacer = strings.NewReplacer("ﬁ", "fi", "ﬀ", "ff")
	lineEndReplacer  = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// NormalizerOptions 规范化选项
type NormalizerOptions struct {
	// PreserveParagraphs 保留规范化后的段落分隔（\n\n），
	// 默认关闭，此时所有空白都会被折叠成单个空格
	PreserveParagraphs bool
}

// Normalizer 页面文本规范化器，无状态，可并发使用
type Normalizer struct {
	opts NormalizerOptions
}

// NewNormalizer 创建规范化器
func NewNormalizer(opts NormalizerOptions) *Normalizer {
	return &Normalizer{opts: opts}
}

// CleanPage 清理单页文本，不追加页面分隔标记
func (n *Normalizer) CleanPage(raw string) string {
	text := lineEndReplacer.Replace(raw)
	text = ligatureReplacer.Replace(text)
	text = replaceAll(hyphenBreakPattern, text, "$1$2")
	text = replaceAll(softBreakPattern, text, " ")
	text = paragraphBreakPattern.ReplaceAllString(text, "\n\n")

	if n.opts.PreserveParagraphs {
		paragraphs := strings.Split(text, "\n\n")
		kept := paragraphs[:0]
		for _, p := range paragraphs {
			p = strings.TrimSpace(replaceAll(whitespacePattern, p, " "))
			if p != "" {
				kept = append(kept, p)
			}
		}
		text = strings.Join(kept, "\n\n")
	} else {
		text = replaceAll(whitespacePattern, text, " ")
	}

	text = strings.TrimSpace(text)

	// 页面内容中不允许出现分隔标记
	if strings.Contains(text, PageBreakMarker) {
		text = strings.ReplaceAll(text, PageBreakMarker, " "+strings.TrimSpace(PageBreakMarker)+" ")
	}
	return text
}

// NormalizePage 清理单页文本并追加页面分隔标记
func (n *Normalizer) NormalizePage(raw string) string {
	return n.CleanPage(raw) + PageBreakMarker
}

// Normalize 按顺序拼接所有页面
func (n *Normalizer) Normalize(pages []Page) string {
	var sb strings.Builder
	for _, page := range pages {
		sb.WriteString(n.NormalizePage(page.Text))
	}
	return sb.String()
}

// NormalizePage 使用默认选项规范化单页文本
func NormalizePage(raw string) string {
	return defaultNormalizer.NormalizePage(raw)
}

var defaultNormalizer = NewNormalizer(NormalizerOptions{})

// replaceAll regexp2 替换，模式均为预编译常量，替换不会失败
func replaceAll(re *regexp2.Regexp, input, replacement string) string {
	out, err := re.Replace(input, replacement, -1, -1)
	if err != nil {
		return input
	}
	return out
}
