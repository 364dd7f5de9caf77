package workers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// HTTPServerWorker serves the REST API and both WebSocket transports.
// On cancellation it stops accepting and waits up to shutdownTimeout for
// in-flight requests.
type HTTPServerWorker struct {
	log             *slog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
	listening       chan net.Addr
}

func NewHTTPServerWorker(log *slog.Logger, address string, handler http.Handler, shutdownTimeout time.Duration) *HTTPServerWorker {
	return &HTTPServerWorker{
		log: log,
		server: &http.Server{
			Addr:              address,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: shutdownTimeout,
		listening:       make(chan net.Addr, 1),
	}
}

// Listening yields the bound address once the listener is up.
func (w *HTTPServerWorker) Listening() <-chan net.Addr {
	return w.listening
}

func (w *HTTPServerWorker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.server.Addr)
	if err != nil {
		return err
	}
	select {
	case w.listening <- listener.Addr():
	default:
	}

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting HTTP server", "address", listener.Addr().String(), "at", time.Now().UTC())
		errChan <- w.server.Serve(listener)
	}()

	select {
	case err := <-errChan:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	w.log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
	defer cancel()
	if err := w.server.Shutdown(shutdownCtx); err != nil {
		w.log.Warn("HTTP server shutdown incomplete", "error", err)
	}
	return nil
}
