package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers/factory"
)

var (
	// 全局标志
	cfgFile     string
	envFile     string
	debugMode   bool
	verboseMode bool
)

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pdf-translator",
		Short: "PDF 翻译后端：提取、分块、翻译并生成译文 PDF",
		Long: `pdf-translator 接收 base64 编码的 PDF，按页提取文本并规范化，
切分为不超过上限的块后逐块调用翻译提供商，并把进度写入任务记录。

支持的翻译提供商:
  - google: Google Translate v2
  - deepl: DeepL 专业翻译
  - deeplx: DeepLX (免费 DeepL 替代)
  - libretranslate: LibreTranslate (开源)
  - openai: OpenAI 兼容的大语言模型
  - raw: 原样返回，用于演练`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径 (默认 ./.pdf-translator.toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "启动前加载的 .env 文件")
	rootCmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "启用调试日志")
	rootCmd.PersistentFlags().BoolVarP(&verboseMode, "verbose", "v", false, "输出便于阅读的控制台日志")

	rootCmd.AddCommand(
		NewServeCommand(),
		NewWorkerCommand(),
		NewTranslateCommand(),
		NewChunkCommand(),
		NewConfigCommand(),
		NewStatsCommand(),
		newProvidersCommand(),
		newVersionCommand(version, commit, buildDate),
	)

	return rootCmd
}

func newVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pdf-translator %s (commit %s, built %s)\n", version, commit, buildDate)
		},
	}
}

func newProvidersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "列出支持的翻译提供商",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "支持的翻译提供商:")
			llm := color.New(color.FgMagenta)
			for _, name := range factory.New().GetSupportedProviders() {
				if factory.IsLLMProvider(name) {
					fmt.Fprintf(out, "  - %s %s\n", name, llm.Sprint("(LLM)"))
					continue
				}
				fmt.Fprintf(out, "  - %s\n", name)
			}
		},
	}
}
