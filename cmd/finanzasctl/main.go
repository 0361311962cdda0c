package main

import (
	"context"
	"fmt"
	"os"

	"finanzas/internal/cli"
	"finanzas/internal/ctl"
	"finanzas/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentCLI, os.Stderr)

	if err := ctl.NewRootCmd(nil, logger, nil).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
