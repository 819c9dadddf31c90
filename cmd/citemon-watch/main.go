package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"citemon/internal/app"
	"citemon/internal/config"
	"citemon/internal/watch"
)

func main() {
	cfg, err := config.Load()
	must(err)

	logger := app.NewLogger(cfg, os.Stderr)
	a, err := app.Open(cfg, logger)
	must(err)
	defer a.Close()

	reports, err := a.Reports()
	must(err)

	svc := watch.NewService(a.DB, cfg, a.Service, reports, logger)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
