package main

import (
	"os"

	"github.com/carsch18/opsflow/pkg/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
