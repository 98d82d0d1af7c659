package buildcore

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// InterruptibleContext returns a context which is canceled when the program
// is interrupted (i.e. receiving SIGINT or SIGTERM). Callers typically watch
// the returned context and call Queue.MarkError once it is canceled, so
// workers blocked in GetItem wake up and stop instead of the process being
// killed mid-build.
func InterruptibleContext() (context.Context, context.CancelFunc) {
	ctx, canc := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		// A second signal terminates immediately, useful if cleanup hangs.
		signal.Stop(sig)
		canc()
	}()
	return ctx, canc
}
