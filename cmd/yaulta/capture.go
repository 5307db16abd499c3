package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	ylog "yaulta/internal/log"
)

func newCaptureCmd(e env, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "在网卡上抓包，直到 Ctrl+C",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadCaptureConfig(v)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := e.run(ctx, cfg); err != nil {
				return err
			}
			ylog.GetLogger().Info("yaulta 正常退出")
			return nil
		},
	}
	addCaptureFlags(cmd.Flags())
	return cmd
}
