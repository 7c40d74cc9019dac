package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Serve runs the API and metrics servers until ctx is cancelled, then drains them.
// ready, if non-nil, receives the bound API address once listening.
func Serve(ctx context.Context, app *App, ready func(addr string)) error {
	handler, err := app.Server().Handler(ctx)
	if err != nil {
		return err
	}

	apiLn, err := net.Listen("tcp", app.Config.ListenAddr)
	if err != nil {
		return err
	}
	servers := []*http.Server{{Handler: handler, ReadHeaderTimeout: 10 * time.Second}}
	listeners := []net.Listener{apiLn}

	if addr := app.Config.MetricsAddr; addr != "" && addr != app.Config.ListenAddr {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			_ = apiLn.Close()
			return err
		}
		servers = append(servers, &http.Server{Handler: app.Metrics.Handler(), ReadHeaderTimeout: 10 * time.Second})
		listeners = append(listeners, ln)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, srv := range servers {
		ln := listeners[i]
		app.Logger.Info("listening", "addr", ln.Addr().String())
		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	if ready != nil {
		ready(apiLn.Addr().String())
	}

	g.Go(func() error {
		<-gctx.Done()
		app.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
				_ = srv.Close()
			}
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}
