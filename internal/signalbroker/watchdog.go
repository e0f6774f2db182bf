// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"
	"syscall"

	"github.com/matt-FFFFFF/pipeterm/internal/ctxlog"
)

// Watch cancels the context on the second signal of a given type.
// It returns when that happens or when sigCh is closed.
func Watch(ctx context.Context, sigCh chan os.Signal, cancel context.CancelFunc) {
	seen := make(map[os.Signal]struct{})

	for sig := range sigCh {
		if _, ok := seen[sig]; ok {
			ctxlog.Info(ctx, "watchdog", "detail", "received second signal of type, terminating", "signal", sig.String())
			cancel()

			return
		}

		ctxlog.Info(ctx, "watchdog", "detail", "received first signal of type, no-op", "signal", sig.String())

		seen[sig] = struct{}{}
	}
}

// Forward translates job control signals into flag requests until ctx is done
// or sigCh is closed. SIGINT becomes an interrupt request and SIGTSTP a
// suspend request. SIGTERM and SIGQUIT call stop and return.
func Forward(ctx context.Context, sigCh <-chan os.Signal, flags *Flags, stop context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}

			switch sig {
			case syscall.SIGINT:
				ctxlog.Debug(ctx, "signalbroker", "detail", "interrupt requested")
				flags.RequestInterrupt()
			case syscall.SIGTSTP:
				ctxlog.Debug(ctx, "signalbroker", "detail", "suspend requested")
				flags.RequestSuspend()
			case syscall.SIGTERM, syscall.SIGQUIT:
				ctxlog.Info(ctx, "signalbroker", "detail", "terminate requested", "signal", sig.String())
				stop()

				return
			}
		}
	}
}
