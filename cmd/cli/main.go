package main

import (
	"os"

	"github.com/fleettrack-dev/fleettrack/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
