package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/andrebq/rolegate/internal/logutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// Serve runs handler on bind until ctx is cancelled, then shuts the
// server down gracefully. Every request is logged.
func Serve(ctx context.Context, bind string, handler http.Handler) error {
	log := logutil.GetOrDefault(ctx).With().Str("server.addr", bind).Logger()
	server := http.Server{
		Handler:           Instrument(log, handler),
		Addr:              bind,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute * 5,
	}
	err := make(chan error, 1)
	done := make(chan struct{})
	go serveInBackground(ctx, log, &server, err, done)
	<-done
	return <-err
}

// Instrument attaches a request scoped logger (with a request id) to
// every request and writes one access log entry per response.
func Instrument(log zerolog.Logger, next http.Handler) http.Handler {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLog := hlog.FromRequest(r)
		next.ServeHTTP(w, r.WithContext(logutil.WithLogger(r.Context(), *reqLog)))
	})
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request")
	})
	return hlog.NewHandler(log)(
		hlog.RequestIDHandler("req_id", "X-Request-Id")(
			hlog.RemoteAddrHandler("remote_addr")(
				access(h))))
}

func serveInBackground(ctx context.Context, log zerolog.Logger, server *http.Server, firstErr chan<- error, done chan<- struct{}) {
	defer close(done)
	serverCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		defer close(firstErr)
		log.Info().Msg("Starting HTTP server")
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			log.Info().Msg("Server closed")
			return
		} else if err != nil {
			firstErr <- err
		}
	}()
	<-serverCtx.Done()
	if ctx.Err() == nil {
		// listener failed, nothing to shutdown
		return
	}
	log.Info().Msg("Initiating shutdown process")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Unable to shutdown cleanly")
	}
	log.Info().Msg("Shutdown completed")
}
