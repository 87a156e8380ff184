package document

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPDF 生成测试用 PDF，每个元素一页
func newTestPDF(t *testing.T, pageTexts ...string) []byte {
	t.Helper()

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for _, text := range pageTexts {
		doc.AddPage()
		doc.Cell(40, 10, text)
	}

	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func TestPDFExtractor_ExtractPages(t *testing.T) {
	data := newTestPDF(t, "Hello World", "Second Page")

	pages, err := NewPDFExtractor().ExtractPages(&Document{Name: "sample.pdf", Data: data})
	require.NoError(t, err)
	require.Len(t, pages, 2)

	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, 2, pages[1].Number)
	assert.Contains(t, pages[0].Text, "Hello World")
	assert.Contains(t, pages[1].Text, "Second Page")
}

func TestPDFExtractor_Errors(t *testing.T) {
	e := NewPDFExtractor()

	_, err := e.ExtractPages(nil)
	assert.ErrorIs(t, err, ErrExtraction)
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = e.ExtractPages(&Document{Name: "bad.pdf", Data: []byte("not a pdf at all")})
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestExtractText(t *testing.T) {
	data := newTestPDF(t, "Alpha", "Beta")

	text, err := ExtractText(NewPDFExtractor(), NewNormalizer(NormalizerOptions{}), &Document{Data: data})
	require.NoError(t, err)

	parts := strings.Split(strings.TrimSuffix(text, PageBreakMarker), PageBreakMarker)
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0], "Alpha")
	assert.Contains(t, parts[1], "Beta")
}
