package render

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nerdneilsfield/go-pdf-translator/internal/config"
)

// ErrEmptyContent 没有可渲染的译文
var ErrEmptyContent = errors.New("no translated content provided")

// 版式常量，单位为 pt
const (
	inch         = 72.0
	pageMargin   = 0.8 * inch
	coverInset   = 1.5 * inch
	footerInset  = 0.75 * inch
	spacerHeight = 0.1 * inch
)

const (
	familyBody     = "SourceSerif4"
	familyTitle    = "SourceSerif4Title"
	familySubtitle = "SourceSerif4Subtitle"
	familyFallback = "Times"
)

// paragraphStyle 段落样式
type paragraphStyle struct {
	style      string // fpdf 字体样式: "", "B", "I"
	size       float64
	leading    float64
	align      string
	spaceAfter float64
}

var (
	headerStyle    = paragraphStyle{style: "B", size: 18, leading: 22, align: "C", spaceAfter: 12}
	subHeaderStyle = paragraphStyle{style: "I", size: 16, leading: 20, align: "L", spaceAfter: 8}
	bodyStyle      = paragraphStyle{style: "", size: 14, leading: 20, align: "L", spaceAfter: 6}
)

// fontFile 需要从字体目录加载的文件
type fontFile struct {
	family string
	style  string
	file   string
}

var fontFiles = []fontFile{
	{familyBody, "", "SourceSerif4-Regular.ttf"},
	{familyBody, "I", "SourceSerif4-Italic.ttf"},
	{familyBody, "B", "SourceSerif4-Bold.ttf"},
	{familyBody, "BI", "SourceSerif4-BoldItalic.ttf"},
	{familyTitle, "", "SourceSerif4_36pt-Regular.ttf"},
	{familySubtitle, "", "SourceSerif4_18pt-Regular.ttf"},
}

// Input 渲染输入
type Input struct {
	// Content 译文，段落之间以空行分隔
	Content          string
	OriginalFileName string
	TargetLanguage   string
}

// PDFRenderer 把译文排版为带封面的 PDF
type PDFRenderer struct {
	pageLabel string
	fonts     map[fontFile][]byte
	logger    *zap.Logger
}

// NewPDFRenderer 创建渲染器并预加载字体。字体缺失时记录警告并回退到 Times
func NewPDFRenderer(cfg config.RenderConfig, logger *zap.Logger) *PDFRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	label := cfg.PageLabel
	if label == "" {
		label = "Page"
	}

	r := &PDFRenderer{
		pageLabel: label,
		fonts:     make(map[fontFile][]byte),
		logger:    logger,
	}
	r.loadFonts(cfg.FontsDir)
	return r
}

func (r *PDFRenderer) loadFonts(dir string) {
	if dir == "" {
		r.logger.Warn("no fonts directory configured, using core Times font")
		return
	}

	for _, f := range fontFiles {
		data, err := os.ReadFile(filepath.Join(dir, f.file))
		if err != nil {
			r.logger.Warn("font not available, falling back", zap.String("font", f.file), zap.Error(err))
			continue
		}
		r.fonts[f] = data
	}

	// 正文字体族不完整时整体回退
	for _, f := range fontFiles[:4] {
		if _, ok := r.fonts[f]; !ok {
			r.fonts = make(map[fontFile][]byte)
			return
		}
	}
	r.logger.Debug("Source Serif 4 fonts registered", zap.String("dir", dir))
}

// HasEmbeddedFonts 是否使用内嵌的 Source Serif 4 字体
func (r *PDFRenderer) HasEmbeddedFonts() bool {
	return len(r.fonts) > 0
}

// document 单次渲染的状态
type document struct {
	pdf      *fpdf.Fpdf
	embedded map[string]bool
	tr       func(string) string
}

func (d *document) setFont(family, style string, size float64) {
	if !d.embedded[family] {
		family = familyBody
		if !d.embedded[family] {
			family = familyFallback
		}
	}
	if family == familyTitle || family == familySubtitle {
		style = ""
	}
	d.pdf.SetFont(family, style, size)
}

// Render 渲染 PDF 并写入 w
func (r *PDFRenderer) Render(w io.Writer, in Input) error {
	if strings.TrimSpace(in.Content) == "" {
		return ErrEmptyContent
	}

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)

	d := &document{pdf: pdf, embedded: make(map[string]bool), tr: func(s string) string { return s }}
	for f, data := range r.fonts {
		pdf.AddUTF8FontFromBytes(f.family, f.style, data)
		d.embedded[f.family] = true
	}
	if !r.HasEmbeddedFonts() {
		d.tr = pdf.UnicodeTranslatorFromDescriptor("")
	}

	pdf.SetFooterFunc(func() {
		if pdf.PageNo() < 2 {
			return
		}
		pageWidth, pageHeight := pdf.GetPageSize()
		_, _, right, _ := pdf.GetMargins()
		d.setFont(familyBody, "", 9)
		pdf.Text(pageWidth-right-footerInset, pageHeight-footerInset, d.tr(fmt.Sprintf("%s %d", r.pageLabel, pdf.PageNo())))
	})

	r.drawCover(d, in)

	pdf.AddPage()
	for _, paragraph := range strings.Split(in.Content, "\n\n") {
		text := strings.TrimSpace(paragraph)
		if text == "" {
			continue
		}
		r.drawParagraph(d, text, styleFor(text))
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to lay out pdf: %w", err)
	}
	return pdf.Output(w)
}

// drawCover 封面：居中标题，底部 "Translated to XX"
func (r *PDFRenderer) drawCover(d *document, in Input) {
	pdf := d.pdf
	pdf.AddPage()
	pageWidth, pageHeight := pdf.GetPageSize()
	contentWidth := pageWidth - 2*coverInset

	title := d.tr(CoverTitle(in.OriginalFileName))
	d.setFont(familyTitle, "", 36)
	const titleLeading = 40.0
	lines := pdf.SplitText(title, contentWidth)
	titleHeight := float64(len(lines)) * titleLeading
	pdf.SetXY(coverInset, pageHeight/2-titleHeight/2-0.5*inch)
	pdf.MultiCell(contentWidth, titleLeading, title, "", "C", false)

	const subtitleLeading = 16.0
	d.setFont(familySubtitle, "", 14)
	pdf.SetXY(coverInset, pageHeight-coverInset-subtitleLeading)
	pdf.MultiCell(contentWidth, subtitleLeading, d.tr(CoverSubtitle(in.TargetLanguage)), "", "C", false)
}

func (r *PDFRenderer) drawParagraph(d *document, text string, st paragraphStyle) {
	d.setFont(familyBody, st.style, st.size)
	d.pdf.MultiCell(0, st.leading, d.tr(text), "", st.align, false)
	d.pdf.Ln(st.spaceAfter + spacerHeight)
}

// styleFor 全大写段落为标题，以 "subtitle" 开头的为副标题，其余为正文
func styleFor(text string) paragraphStyle {
	switch {
	case isUpper(text):
		return headerStyle
	case strings.HasPrefix(strings.ToLower(text), "subtitle"):
		return subHeaderStyle
	default:
		return bodyStyle
	}
}

// isUpper 至少含一个有大小写之分的字符，且这些字符全部为大写
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

// CoverTitle 由文件名生成封面标题
func CoverTitle(fileName string) string {
	return strings.ReplaceAll(strings.ReplaceAll(fileName, "_", " "), ".pdf", "")
}

// CoverSubtitle 封面副标题
func CoverSubtitle(targetLanguage string) string {
	return "Translated to " + cases.Upper(language.Und).String(targetLanguage)
}

// OutputFileName 生成下载文件名，如 report_translated_tr.pdf
func OutputFileName(originalFileName, targetLanguage string) string {
	stem := strings.TrimSuffix(originalFileName, filepath.Ext(originalFileName))
	return fmt.Sprintf("%s_translated_%s.pdf", stem, targetLanguage)
}
