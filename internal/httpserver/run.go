package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Run serves until ctx is cancelled, then shuts down gracefully: the
// listener stops accepting, in-flight dispatcher work finishes, and
// background action tasks get the configured drain window before being
// cancelled.
func (srv *HTTPServer) Run(ctx context.Context) error {
	addr := net.JoinHostPort(srv.host, fmt.Sprintf("%d", srv.port))

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: srv.gin,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		srv.l.Infof(ctx, "listening on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			srv.l.Warnf(ctx, "http shutdown: %v", err)
		}

		srv.l.Infof(ctx, "draining action tasks (up to %s)", srv.drainTimeout)
		srv.sched.Drain(srv.drainTimeout)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	srv.l.Info(ctx, "server stopped")
	return nil
}
