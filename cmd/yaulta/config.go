package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "打印合并命令行、环境变量和配置文件之后的抓包配置",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadCaptureConfig(v)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("序列化配置失败：%w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	addCaptureFlags(cmd.Flags())
	return cmd
}
