package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-pdf-translator/internal/queue"
	"github.com/nerdneilsfield/go-pdf-translator/internal/render"
	"github.com/nerdneilsfield/go-pdf-translator/internal/store"
)

const localUser = "local"

// NewTranslateCommand 创建 translate 命令：在本地完整处理一个 PDF
func NewTranslateCommand() *cobra.Command {
	var (
		targetLang   string
		providerName string
		textOut      string
		noProgress   bool
		showStats    bool
	)

	cmd := &cobra.Command{
		Use:   "translate INPUT.pdf [OUTPUT.pdf]",
		Short: "在本地翻译 PDF 并生成译文 PDF",
		Long: `在本地执行与服务端作业相同的流程：提取、规范化、分块、逐块翻译，
然后生成带封面的译文 PDF。未指定输出文件时写到 {名称}_translated_{语言}.pdf。`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()
			if providerName != "" {
				rt.cfg.Translation.Provider = providerName
			}

			inputPath := args[0]
			outputPath := render.OutputFileName(inputPath, targetLang)
			if len(args) == 2 {
				outputPath = args[1]
			}

			data, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			statsMgr := rt.loadStats()
			defer func() {
				if err := statsMgr.SaveToDB(); err != nil {
					rt.log.Warn("failed to save provider statistics", zap.Error(err))
				}
			}()

			var bar *pterm.ProgressbarPrinter
			if !noProgress {
				bar, err = pterm.DefaultProgressbar.
					WithTotal(100).
					WithTitle(filepath.Base(inputPath)).
					WithWriter(cmd.ErrOrStderr()).
					Start()
				if err != nil {
					return err
				}
			}

			st := newProgressStore(store.NewMemoryStore(), bar)
			processor, err := rt.newProcessor(st, statsMgr)
			if err != nil {
				return err
			}

			job := queue.NewJob(rt.cfg.AppID, uuid.NewString(), localUser, filepath.Base(inputPath),
				base64.StdEncoding.EncodeToString(data), targetLang)
			if err := st.Create(cmd.Context(), job.TaskRef(), &store.Task{
				FileName:       job.FileName,
				TargetLanguage: targetLang,
				Status:         store.StatusProcessing,
			}); err != nil {
				return err
			}

			result, err := processor.Process(cmd.Context(), job)
			if bar != nil {
				_, _ = bar.Stop()
			}
			if err != nil {
				task, _ := st.Get(context.Background(), job.TaskRef())
				if task != nil && task.ErrorMessage != "" {
					return fmt.Errorf("%s", task.ErrorMessage)
				}
				return err
			}

			content := strings.Join(result.Translated, "\n\n")
			if textOut != "" {
				if err := os.WriteFile(textOut, []byte(content), 0o644); err != nil {
					return fmt.Errorf("failed to write text output: %w", err)
				}
			}

			if err := writePDF(rt.newRenderer(), outputPath, render.Input{
				Content:          content,
				OriginalFileName: filepath.Base(inputPath),
				TargetLanguage:   targetLang,
			}); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			color.New(color.FgGreen, color.Bold).Fprintf(out, "✓ %s -> %s\n", inputPath, outputPath)
			fmt.Fprintf(out, "  chunks: %d, elapsed: %s\n", result.ChunkCount, result.Duration.Round(time.Millisecond))
			if showStats {
				statsMgr.RenderTable(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetLang, "target", "t", "en", "目标语言代码")
	cmd.Flags().StringVarP(&providerName, "provider", "p", "", "翻译提供商，覆盖 translation.provider")
	cmd.Flags().StringVar(&textOut, "text-out", "", "同时把译文纯文本写入该文件")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "不显示进度条")
	cmd.Flags().BoolVar(&showStats, "stats", false, "完成后显示提供商统计")
	return cmd
}

func writePDF(r *render.PDFRenderer, path string, in render.Input) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := r.Render(f, in); err != nil {
		f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("could not create PDF: %w", err)
	}
	return f.Close()
}

// progressStore 把任务进度同步到终端进度条
type progressStore struct {
	store.TaskStore
	bar  *pterm.ProgressbarPrinter
	last int
}

func newProgressStore(st store.TaskStore, bar *pterm.ProgressbarPrinter) *progressStore {
	return &progressStore{TaskStore: st, bar: bar}
}

func (s *progressStore) Update(ctx context.Context, ref store.TaskRef, fields store.Fields) error {
	if err := s.TaskStore.Update(ctx, ref, fields); err != nil {
		return err
	}
	if s.bar == nil {
		return nil
	}

	if status, ok := fields[store.FieldStatus].(store.Status); ok {
		s.bar.UpdateTitle(string(status))
	}
	if progress, ok := fields[store.FieldProgress].(int); ok && progress > s.last {
		s.bar.Add(progress - s.last)
		s.last = progress
	}
	return nil
}
