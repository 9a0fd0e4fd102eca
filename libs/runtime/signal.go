package runtime

import (
	"context"
	"os/signal"
	"syscall"
)

// SignalContext is the root context of every service process: it is
// cancelled on SIGINT/SIGTERM, which drains the consumer, the outbox
// relay and the HTTP server in the main's shutdown sequence.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
