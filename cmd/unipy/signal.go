package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// contextWithSignal cancels the returned context on SIGINT or SIGTERM.
func contextWithSignal(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
