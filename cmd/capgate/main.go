package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"capgate/internal/services"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		if reason := services.FailureReason(err); reason != services.ReasonUnclassified {
			fmt.Fprintf(os.Stderr, "reason: %s\n", reason)
		}
		os.Exit(1)
	}
}
