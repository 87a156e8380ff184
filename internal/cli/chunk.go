package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-pdf-translator/pkg/document"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/translation"
)

const previewWidth = 60

// NewChunkCommand 创建 chunk 命令：预览 PDF 的提取和分块结果，不调用提供商
func NewChunkCommand() *cobra.Command {
	var (
		maxSize    int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "chunk INPUT.pdf",
		Short: "预览 PDF 文本提取和分块结果",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()
			if maxSize <= 0 {
				maxSize = rt.cfg.Translation.MaxChunkSize
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			text, err := document.ExtractText(document.NewPDFExtractor(), rt.newNormalizer(), &document.Document{Name: args[0], Data: data})
			if err != nil {
				return err
			}
			chunker, err := translation.NewPageChunker(maxSize)
			if err != nil {
				return err
			}
			chunks := chunker.Chunk(text)

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(chunks)
			}

			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"#", "Chars", "Paragraphs", "Preview"})
			total := 0
			for i, chunk := range chunks {
				n := utf8.RuneCountInString(chunk)
				total += n
				paragraphs := strings.Count(chunk, "\n\n") + 1
				t.AppendRow(table.Row{i + 1, n, paragraphs, preview(chunk)})
			}
			t.AppendFooter(table.Row{"", total, "", fmt.Sprintf("%d chunks, max %d", len(chunks), maxSize)})
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&maxSize, "max-size", 0, "块大小上限（字符），默认取 translation.max_chunk_size")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "以 JSON 数组输出完整块内容")
	return cmd
}

// preview 单行预览，按显示宽度截断
func preview(chunk string) string {
	line := strings.Join(strings.Fields(chunk), " ")
	return runewidth.Truncate(line, previewWidth, "…")
}
