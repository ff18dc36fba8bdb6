package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/qepting91/misinfo-collector/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cli.ExecuteContext(ctx)
}
