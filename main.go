package main

import (
	"os"

	"github.com/theapemachine/mcp-wrappers/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
