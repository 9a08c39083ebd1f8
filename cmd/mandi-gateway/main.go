package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mandi-gateway/internal/app"
	"mandi-gateway/internal/config"
)

func main() {
	os.Exit(run())
}

// run keeps main free of os.Exit so deferred cleanup always executes.
func run() int {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	log := cfg.NewLogger()

	application, err := app.NewApplication(cfg, log)
	if err != nil {
		log.Error("failed to create application", "error", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	appErrCh := make(chan error, 1)
	go func() {
		if err := application.Start(ctx); err != nil {
			appErrCh <- err
		}
	}()

	select {
	case err := <-appErrCh:
		log.Error("application error", "error", err)
		return 1
	case sig := <-signalCh:
		log.Info("received signal, shutting down gracefully", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := application.Stop(shutdownCtx); err != nil {
			log.Error("shutdown error", "error", err)
			return 1
		}
		return 0
	}
}
