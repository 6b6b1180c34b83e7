package graceful

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

// Context derives a context that is cancelled on SIGINT or SIGTERM, so the
// binaries can stop cleanly mid-batch. After the first signal the handler is
// removed, letting a second signal terminate the process immediately instead
// of waiting on a stuck shutdown.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-signals:
			log.Printf("Received %s, starting graceful shutdown...", sig)
			signal.Stop(signals)
			cancel()
		case <-ctx.Done():
			signal.Stop(signals)
		}
	}()

	return ctx, cancel
}
