package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Czechuuuu/szbi/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger.Log().WithError(err).Error("command failed")
		os.Exit(1)
	}
}
