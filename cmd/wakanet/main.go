package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/marikmarie/mtnvas/internal/cmd"
	"github.com/marikmarie/mtnvas/internal/exitcode"
	"github.com/marikmarie/mtnvas/internal/ux"
)

func main() {
	// Create a context that listens for interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled by user")
			exitcode.Exit(exitcode.Interrupted)
		}

		noColor := os.Getenv("NO_COLOR") != "" || slices.Contains(os.Args[1:], "--no-color")
		ux.PrintError(os.Stderr, err, noColor)
		exitcode.ExitWithError(err)
	}
	exitcode.Exit(exitcode.Success)
}
