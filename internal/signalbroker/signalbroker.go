// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package signalbroker turns operating system signals into the interrupt and
// suspend requests the engine polls for.
//
// New subscribes a channel to signals, Watch is the terminate watchdog and
// Forward translates the job control keys of a terminal host into Flags.
package signalbroker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/matt-FFFFFF/pipeterm/internal/ctxlog"
)

// termSignals leave SIGINT alone: in a shell it belongs to the foreground
// pipeline, not to the process.
var termSignals = []os.Signal{
	syscall.SIGTERM,
	syscall.SIGHUP,
}

// JobControlSignals are the signals a line host forwards to the engine.
var JobControlSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTSTP,
	syscall.SIGTERM,
	syscall.SIGQUIT,
}

// New subscribes a channel to sigs, or to the terminate signals if none are given.
// Call Stop when done with it.
func New(ctx context.Context, sigs ...os.Signal) chan os.Signal {
	ch := make(chan os.Signal, 1)

	if len(sigs) == 0 {
		sigs = termSignals
	}

	ctxlog.Debug(ctx, "signalbroker", "detail", "creating signal broker", "signals", sigs)
	signal.Notify(ch, sigs...)

	return ch
}

// Stop unsubscribes ch. The channel is not closed.
func Stop(ch chan os.Signal) {
	signal.Stop(ch)
}
