package main

import (
	"os"

	"github.com/agentmesh/agentmesh/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
