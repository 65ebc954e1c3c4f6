// Package main is the entry point of the quote scraper.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jsamuelsen/quote-scraper/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-scraper/internal/cli"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"serve"}
	}

	info := handlers.NewBuildInfo(Version, Commit, BuildTime)
	if err := cli.Execute(context.Background(), info, args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
