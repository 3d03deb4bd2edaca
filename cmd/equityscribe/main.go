package main

import (
	"os"

	"github.com/equityscribe/equityscribe/internal/cli"
	"github.com/equityscribe/equityscribe/internal/logger"
)

func main() {
	defer logger.Sync()

	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
