// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/matt-FFFFFF/pipeterm/internal/ctxlog"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Router serves the collectors on GET /metrics and a liveness probe on
// GET /health.
func (m *Metrics) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	return r
}

// Serve listens on addr until ctx is done. The returned channel receives one
// value when the server stops: ctx.Err() after a clean shutdown, or the
// error that stopped it.
func (m *Metrics) Serve(ctx context.Context, addr string) <-chan error {
	errCh := make(chan error, 2) //nolint:mnd

	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			errCh <- err
			return
		}

		errCh <- ctx.Err()
	}()

	go func() {
		ctxlog.Info(ctx, "serving metrics", "addr", addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ctxlog.Error(ctx, "metrics server failed", "addr", addr, "error", err)
			errCh <- err
		}
	}()

	return errCh
}
