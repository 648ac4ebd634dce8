package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/llmbench/llmbench/cmd/llmbench/cmd"
)

func main() {
	// A missing .env file is fine; flags and the environment still apply
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		if !errors.Is(err, cmd.ErrInterrupted) {
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
