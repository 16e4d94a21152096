package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/di"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := di.InitializeApp()
	if err != nil {
		log.Fatal(err)
	}
	defer cleanup()

	if err := a.Run(ctx); err != nil {
		a.Logger.Error("server failed", "error", err)
		cleanup()
		log.Fatal(err)
	}
}
