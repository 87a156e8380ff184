package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewConfigCommand 创建 config 命令
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "查看和检查配置",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "以 TOML 格式显示生效的配置（隐藏密钥）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()
			return rt.cfg.WriteTOML(cmd.OutOrStdout())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "检查配置并尝试创建所选提供商",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			if _, err := rt.newProvider(rt.cfg.Translation.Provider, nil); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ configuration is valid (provider=%s, store=%s, queue=%s)\n",
				rt.cfg.Translation.Provider, rt.cfg.Store.Backend, rt.cfg.Queue.Backend)
			return nil
		},
	})

	return cmd
}

func printKV(cmd *cobra.Command, key string, value interface{}) {
	fmt.Fprintf(cmd.OutOrStdout(), "  %-12s %v\n", key+":", value)
}
