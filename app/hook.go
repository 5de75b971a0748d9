package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// WaitForShutdown returns a context cancelled on SIGINT or SIGTERM.
func WaitForShutdown(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
