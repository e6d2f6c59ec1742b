package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/webpilot-ai/webpilot/cmd"
)

func main() {
	// Ctrl+C cancels the context; the engine aborts cleanly between steps
	// and the browser session is torn down on the way out.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Execute(ctx)
}
