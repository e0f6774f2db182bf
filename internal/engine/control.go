// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/matt-FFFFFF/pipeterm/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeterm/internal/jobs"
	"github.com/matt-FFFFFF/pipeterm/internal/proc"
)

const (
	// MsgInterrupted is written when the foreground is interrupted.
	MsgInterrupted = "^C\n"
	// MsgTooManyJobs is written when the job table is full on suspend.
	MsgTooManyJobs = "^Z\n[Too many background jobs]\n"
)

// Interrupt cancels the foreground: every tracked process gets SIGINT, the
// capture streams are closed and the capture is dropped. A running multiWatch
// session is cancelled instead. It reports whether there was anything to
// interrupt.
func (e *Engine) Interrupt(ctx context.Context) bool {
	if e.watch != nil {
		e.watch.Cancel()
		e.finishWatch(ctx)

		return true
	}

	c := e.capture
	if c == nil {
		return false
	}

	for i, pid := range c.PIDs {
		if pid <= 0 {
			continue
		}

		if err := proc.Signal(pid, syscall.SIGINT); err != nil {
			ctxlog.Warn(ctx, "cannot interrupt stage", "pid", pid, "error", err)
		}

		e.orphans = append(e.orphans, pid)
		c.PIDs[i] = 0
	}

	e.dropCapture()
	e.sink.AppendString(MsgInterrupted)
	e.metrics.Interrupted()

	ctxlog.Info(ctx, "pipeline interrupted", "command", c.Command)

	return true
}

// Suspend moves the foreground pipeline into the job table and resumes its
// processes there. If the table is full the pipeline is killed instead. A
// running multiWatch session is stopped and abandoned. It reports whether
// there was anything to suspend.
func (e *Engine) Suspend(ctx context.Context) bool {
	if e.watch != nil {
		e.watch.Background()
		e.finishWatch(ctx)

		return true
	}

	c := e.capture
	if c == nil {
		return false
	}

	slot, err := e.jobs.Add(ctx, c.PIDs, c.Command, []int{c.OutFD, c.ErrFD})
	if errors.Is(err, jobs.ErrRegistryFull) {
		ctxlog.Warn(ctx, "job table full, killing pipeline", "command", c.Command)
		e.sink.AppendString(MsgTooManyJobs)
		e.abandon(c.PIDs)
		e.dropCapture()

		return true
	}

	// The registry owns the streams now.
	c.OutFD, c.ErrFD = -1, -1

	for _, pid := range c.PIDs {
		if err := proc.Signal(pid, syscall.SIGCONT); err != nil {
			ctxlog.Warn(ctx, "cannot resume stage", "pid", pid, "error", err)
		}
	}

	e.sink.AppendString(fmt.Sprintf("^Z\n[%d] %d\n", slot, c.Foreground))
	e.dropCapture()
	e.metrics.Backgrounded()
	e.metrics.Jobs(e.jobs.Count())

	ctxlog.Info(ctx, "pipeline backgrounded", "slot", slot, "command", c.Command)

	return true
}

func (e *Engine) dropCapture() {
	c := e.capture
	if c == nil {
		return
	}

	proc.Close(c.OutFD)
	proc.Close(c.ErrFD)
	c.OutFD, c.ErrFD = -1, -1
	c.Active = false
	e.capture = nil
}
