package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-pdf-translator/internal/config"
	docpkg "github.com/nerdneilsfield/go-pdf-translator/pkg/document"
)

func TestRender_CoverContentAndFooter(t *testing.T) {
	r := NewPDFRenderer(config.RenderConfig{FontsDir: t.TempDir(), PageLabel: "Sayfa"}, nil)
	assert.False(t, r.HasEmbeddedFonts())

	var buf bytes.Buffer
	err := r.Render(&buf, Input{
		Content:          "INTRODUCTION\n\nSubtitle: scope of work\n\nThe body paragraph.\n\n   \n\nAnother paragraph.",
		OriginalFileName: "annual_report.pdf",
		TargetLanguage:   "tr",
	})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	pages, err := docpkg.NewPDFExtractor().ExtractPages(&docpkg.Document{Data: buf.Bytes()})
	require.NoError(t, err)
	require.Len(t, pages, 2)

	cover := pages[0].Text
	assert.Contains(t, cover, "annual report")
	assert.Contains(t, cover, "Translated to TR")
	assert.NotContains(t, cover, "Sayfa")

	body := pages[1].Text
	assert.Contains(t, body, "INTRODUCTION")
	assert.Contains(t, body, "The body paragraph.")
	assert.Contains(t, body, "Another paragraph.")
	assert.Contains(t, body, "Sayfa 2")
}

func TestRender_LongContentPaginates(t *testing.T) {
	r := NewPDFRenderer(config.RenderConfig{}, nil)

	paragraph := strings.Repeat("Lorem ipsum dolor sit amet, consectetur adipiscing elit. ", 10)
	content := strings.Repeat(paragraph+"\n\n", 30)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, Input{Content: content, OriginalFileName: "long.pdf", TargetLanguage: "de"}))

	pages, err := docpkg.NewPDFExtractor().ExtractPages(&docpkg.Document{Data: buf.Bytes()})
	require.NoError(t, err)
	assert.Greater(t, len(pages), 3)
	assert.Contains(t, pages[2].Text, "Page 3")
}

func TestRender_EmptyContent(t *testing.T) {
	r := NewPDFRenderer(config.RenderConfig{}, nil)
	var buf bytes.Buffer
	assert.ErrorIs(t, r.Render(&buf, Input{Content: " \n\n "}), ErrEmptyContent)
	assert.Zero(t, buf.Len())
}

func TestStyleFor(t *testing.T) {
	assert.Equal(t, headerStyle, styleFor("CHAPTER 1"))
	assert.Equal(t, headerStyle, styleFor("ÖZET"))
	assert.Equal(t, subHeaderStyle, styleFor("SUBTITLE is lower here"))
	assert.Equal(t, subHeaderStyle, styleFor("subtitle: methods"))
	assert.Equal(t, bodyStyle, styleFor("Regular text."))
	assert.Equal(t, bodyStyle, styleFor("1234"))
}

func TestNames(t *testing.T) {
	assert.Equal(t, "my report", CoverTitle("my_report.pdf"))
	assert.Equal(t, "Translated to PT-BR", CoverSubtitle("pt-br"))
	assert.Equal(t, "my_report_translated_tr.pdf", OutputFileName("my_report.pdf", "tr"))
	assert.Equal(t, "notes_translated_en.pdf", OutputFileName("notes", "en"))
}
