package main

import (
	"os"

	ylog "yaulta/internal/log"
)

func main() {
	if err := newRootCmd(defaultEnv()).Execute(); err != nil {
		ylog.GetLogger().WithError(err).Error("yaulta 退出")
		os.Exit(1)
	}
}
