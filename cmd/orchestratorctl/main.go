package main

import (
	"fmt"
	"os"

	"github.com/forgepilot/swe-orchestrator/internal/orchestratorcli"
)

var Version = "dev"

func main() {
	orchestratorcli.SetVersion(Version)
	if err := orchestratorcli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
