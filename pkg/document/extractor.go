package document

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor 基于 ledongthuc/pdf 的逐页文本提取器
type PDFExtractor struct{}

// NewPDFExtractor 创建 PDF 提取器
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// ExtractPages 逐页提取文本。任意一页失败都会中止整个提取，不会跳过页面
func (e *PDFExtractor) ExtractPages(doc *Document) (pages []Page, err error) {
	if doc == nil || len(doc.Data) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, ErrEmptyDocument)
	}

	// 解析器遇到损坏文件可能 panic
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: malformed pdf: %v", ErrExtraction, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	total := reader.NumPage()
	pages = make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			// 空页保留位置
			pages = append(pages, Page{Number: i})
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", ErrExtraction, i, err)
		}
		pages = append(pages, Page{Number: i, Text: text})
	}

	return pages, nil
}

// ExtractText 提取并规范化整个文档
func ExtractText(extractor PageExtractor, normalizer *Normalizer, doc *Document) (string, error) {
	pages, err := extractor.ExtractPages(doc)
	if err != nil {
		return "", err
	}
	return normalizer.Normalize(pages), nil
}
