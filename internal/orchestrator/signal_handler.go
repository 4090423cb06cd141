package orchestrator

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

// SignalHandler cancels a run on SIGINT or SIGTERM
type SignalHandler struct {
	sigChan chan os.Signal
}

// NewSignalHandler creates a new signal handler
func NewSignalHandler() *SignalHandler {
	sh := &SignalHandler{
		sigChan: make(chan os.Signal, 1),
	}
	signal.Notify(sh.sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sh
}

// HandleSignals cancels the run context on the first signal. The watcher
// exits when ctx is done.
func (sh *SignalHandler) HandleSignals(ctx context.Context, cancel context.CancelFunc) {
	go func() {
		select {
		case sig := <-sh.sigChan:
			log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal, aborting run before further output is written")
			cancel()
		case <-ctx.Done():
		}
	}()
}

// Stop stops signal delivery to the handler
func (sh *SignalHandler) Stop() {
	signal.Stop(sh.sigChan)
}
