package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/ardnew/zero/cli"
	"github.com/ardnew/zero/log"
)

func main() {
	// An interrupt cancels fetches and evaluation; cli.Run still flushes the
	// module cache before returning.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := cli.Run(ctx, func(code int) { stop(); os.Exit(code) }, os.Args[1:]...)

	stop()

	if err != nil {
		log.Error("zero failed", slog.Any("error", err))
		os.Exit(1)
	}
}
