// Command tsmm keeps a cached Thunderstore catalog per game and reports
// which installed mods can be updated.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
)

var (
	// Version is the version string, set via -ldflags at build time.
	Version = "dev"
	// Commit is the git commit, set via -ldflags at build time.
	Commit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
