package main

import (
	"github.com/spf13/cobra"

	"yaulta/internal/agent/capture"
)

func newListCmd(e env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "列出可抓包的网卡",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			devs, err := e.listDevices()
			if err != nil {
				return err
			}
			capture.RenderDevices(cmd.OutOrStdout(), devs)
			return nil
		},
	}
}
