package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"yaulta/internal/agent/app"
	"yaulta/internal/agent/capture"
	ylog "yaulta/internal/log"
)

const envPrefix = "YAULTA"

// env 是命令依赖的外部动作，测试里替换掉真实抓包和网卡枚举。
type env struct {
	run         func(ctx context.Context, cfg app.Config) error
	listDevices func() ([]capture.Device, error)
}

func defaultEnv() env {
	return env{run: app.Run, listDevices: capture.ListDevices}
}

func newRootCmd(e env) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "yaulta",
		Short: "yaulta - 轻量抓包工具：终端展示、pcap 落盘、NATS JetStream 上报",
		Long: `yaulta 在指定网卡上抓取原始帧，解码 IP / TCP / UDP 摘要，
并按顺序交给终端展示、pcap 文件和 NATS JetStream 总线。

示例:
  yaulta list
  yaulta capture -i eth0
  yaulta capture -i eth0 -s -o /var/lib/yaulta -n nats://127.0.0.1:4222 --node-id edge_001`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("绑定命令行参数失败：%w", err)
			}
			if path := v.GetString("config"); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("读取配置文件 %s 失败：%w", path, err)
				}
			}
			var logCfg ylog.Config
			if err := v.Unmarshal(&logCfg); err != nil {
				return fmt.Errorf("解析日志配置失败：%w", err)
			}
			return ylog.Init(logCfg)
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "配置文件路径（yaml / json / toml）")
	pf.String("log-level", "info", "日志级别：debug / info / warn / error")
	pf.String("log-format", "text", "日志格式：text / json")
	pf.String("log-file", "", "日志额外写入的文件（按大小轮转）")
	pf.Int("log-max-size", 100, "单个日志文件大小上限（MB）")
	pf.Int("log-max-backups", 3, "保留的历史日志文件数")

	root.AddCommand(newListCmd(e), newCaptureCmd(e, v), newConfigCmd(v))
	return root
}

// addCaptureFlags 供 capture 和 config 共用，保证两者解析出同一份配置。
func addCaptureFlags(fs *pflag.FlagSet) {
	def := app.DefaultConfig()
	fs.StringP("interface", "i", "", "要监听的网卡名（如 eth0，any 表示全部网卡），必填")
	fs.Int("snaplen", def.Snaplen, "每帧最多抓取的字节数")
	fs.StringP("filter", "f", "", "BPF 过滤表达式（tcpdump 语法）")
	fs.BoolP("quiet", "q", false, "不在终端输出每帧摘要")
	fs.BoolP("save", "s", false, "把原始帧保存为 pcap 文件")
	fs.StringP("output-dir", "o", def.OutputDir, "pcap 文件保存目录")
	fs.StringP("nats-server", "n", "", "NATS 地址，设置后启用 JetStream 上报")
	fs.String("node-id", "", "节点标识，8 个字符 [_a-zA-Z0-9]")
	fs.String("subject", def.Subject, "JetStream 发布主题")
	fs.Duration("ack-timeout", def.AckTimeout, "等待 JetStream 确认的超时时间")
	fs.String("status-addr", "", "状态服务监听地址（如 :9090），为空不启动")
}

func loadCaptureConfig(v *viper.Viper) (app.Config, error) {
	cfg := app.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("解析抓包配置失败：%w", err)
	}
	return cfg, nil
}
