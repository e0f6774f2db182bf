// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package engine

import (
	"context"

	"github.com/matt-FFFFFF/pipeterm/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeterm/internal/proc"
)

// Pump is called once per host tick. It acts on pending interrupt and
// suspend requests, forwards whatever the foreground has written, checks
// which of its processes have exited, drains background streams and steps
// a running multiWatch session. It never blocks and reports whether the
// host should redraw.
func (e *Engine) Pump(ctx context.Context) bool {
	changed := false

	if e.flags.TakeInterrupt() && e.Interrupt(ctx) {
		changed = true
	}

	if e.flags.TakeSuspend() && e.Suspend(ctx) {
		changed = true
	}

	e.reapOrphans(ctx)

	if e.capture != nil && e.pumpCapture(ctx) {
		changed = true
	}

	e.jobs.Drain()

	if e.watch != nil {
		if e.watch.Step(0) {
			changed = true
		}

		if e.watch.Done() {
			e.finishWatch(ctx)

			changed = true
		}
	}

	e.metrics.Jobs(e.jobs.Count())

	return changed
}

func (e *Engine) pumpCapture(ctx context.Context) bool {
	c := e.capture
	changed := false

	for _, fd := range []*int{&c.OutFD, &c.ErrFD} {
		if e.drain(fd) {
			changed = true
		}
	}

	alive := false

	for i, pid := range c.PIDs {
		if pid <= 0 {
			continue
		}

		if exited, status := proc.Reap(pid); exited {
			ctxlog.Debug(ctx, "stage exited", "pid", pid, "status", status)
			c.PIDs[i] = 0

			continue
		}

		alive = true
	}

	if !alive && c.OutFD < 0 && c.ErrFD < 0 {
		ctxlog.Debug(ctx, "pipeline finished", "command", c.Command)
		c.Active = false
		e.capture = nil
		changed = true
	}

	return changed
}

// drain reads *fd until it would block, forwarding everything to the sink.
// At end of file or on error the descriptor is closed and set to -1.
func (e *Engine) drain(fd *int) bool {
	if *fd < 0 {
		return false
	}

	changed := false

	for total := 0; total < pumpLimit; {
		n, st := proc.ReadNonblock(*fd, e.buf)

		switch st {
		case proc.ReadData:
			e.sink.Append(e.buf[:n])
			total += n
			changed = true

			continue
		case proc.ReadAgain:
			return changed
		}

		proc.Close(*fd)
		*fd = -1

		return true
	}

	return changed
}
