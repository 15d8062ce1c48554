// Command woven is the CLI entry point for the durable workflow engine.
package main

import (
	"os"

	"github.com/danrygg/wovenflow/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
