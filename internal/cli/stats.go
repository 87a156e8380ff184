package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewStatsCommand 创建 stats 命令
func NewStatsCommand() *cobra.Command {
	var resetStats bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "查看翻译提供商调用统计",
		Long: `显示本地 translate 命令累计的提供商调用统计，包括请求数、成功率、
延迟、令牌和字符用量以及错误类型分布。

Examples:
  # 显示统计表
  pdf-translator stats

  # 清空统计
  pdf-translator stats --reset`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			path := rt.statsPath()
			if resetStats {
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("failed to reset statistics: %w", err)
				}
				color.New(color.FgYellow).Fprintln(cmd.OutOrStdout(), "statistics reset")
				return nil
			}

			color.New(color.FgCyan, color.Bold).Fprintln(cmd.OutOrStdout(), "Provider statistics")
			printKV(cmd, "file", path)
			rt.loadStats().RenderTable(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().BoolVar(&resetStats, "reset", false, "清空已保存的统计")
	return cmd
}
