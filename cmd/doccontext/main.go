package main

import (
	"os"

	"github.com/dshills/doccontext-mcp/internal/cli"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, buildTime)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
