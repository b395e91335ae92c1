package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"webpix/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			console := logger.NewConsole(logger.DefaultOptions())
			console.Error("Error: %v", err)
		}
		cancel()
		os.Exit(1)
	}
}
