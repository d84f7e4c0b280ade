package main

import (
	"os"

	"github.com/swarmforge/swarmkit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
