package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/orchestraio/cli/cmd/orchestra/cli"
)

func main() {
	// Hooks run inside a host session; cancel on interrupt so a stuck
	// git subprocess cannot hold the session open.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		// SilentError means the command already reported the failure.
		var silent *cli.SilentError
		if !errors.As(err, &silent) {
			fmt.Fprintln(os.Stderr, "orchestra:", err)
		}
		stop()
		os.Exit(1)
	}
}
