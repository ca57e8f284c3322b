package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Abraxas-365/docqueue/pkg/config"
	"github.com/Abraxas-365/docqueue/pkg/container"
	"github.com/Abraxas-365/docqueue/pkg/logx"
)

func main() {
	logx.SetDefaultLogger(logx.NewLogger(logx.LoadFromEnv()))
	logx.Info("Starting docqueue worker...")

	cfg, err := config.Load()
	if err != nil {
		logx.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := container.New(ctx, cfg, container.Options{Workers: true})
	if err != nil {
		logx.Fatalf("Failed to initialize container: %v", err)
	}
	defer c.Cleanup()

	if !c.Backend.Durable() {
		logx.Warn("Worker is running on the in-memory queue; it will only see jobs it enqueues itself")
	}

	if err := c.NewPool().Start(ctx); err != nil {
		logx.Errorf("Worker pool stopped with error: %v", err)
		return
	}
	logx.Info("Worker exited successfully")
}
