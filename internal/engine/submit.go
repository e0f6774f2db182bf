// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"os"
	"strings"

	"github.com/matt-FFFFFF/pipeterm/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeterm/internal/multiwatch"
	"github.com/matt-FFFFFF/pipeterm/internal/shellparse"
)

// Submit is the entry point for a line of input. The line is recorded in the
// history, then run as a multiWatch session, a built-in or a pipeline. A line
// ending in `&` is launched and immediately moved to the job table.
//
// Problems the user should see are written to the sink; the returned error
// is for the host's logs.
func (e *Engine) Submit(ctx context.Context, text string) error {
	e.flags.Clear()

	if strings.TrimSpace(text) == "" {
		return nil
	}

	if e.echo {
		cwd, err := os.Getwd()
		if err != nil {
			cwd = "?"
		}

		e.sink.AppendString(cwd + "> " + text + "\n")
	}

	if err := e.hist.Record(text); err != nil {
		ctxlog.Warn(ctx, "cannot record history", "error", err)
	}

	line := shellparse.Classify(text)

	switch line.Kind {
	case shellparse.LineEmpty:
		return nil
	case shellparse.LineWatch:
		return e.StartWatch(ctx, shellparse.ParseWatchList(line.WatchArgs))
	}

	p, err := shellparse.Parse(line.Text, e.parseOpts...)
	if err != nil {
		e.sink.AppendString("pipeterm: " + err.Error() + "\n")
		return err
	}

	before := e.capture

	if err := e.Execute(ctx, p, line.Text); err != nil {
		return err
	}

	if line.Background && e.capture != nil && e.capture != before {
		e.Suspend(ctx)
	}

	return nil
}

// StartWatch begins a multiWatch session in the foreground. The session is
// stepped by Pump.
func (e *Engine) StartWatch(ctx context.Context, cmds []string) error {
	if e.Busy() {
		e.sink.AppendString(MsgForegroundBusy)
		return ErrForegroundBusy
	}

	s, err := multiwatch.Start(ctx, cmds, e.WatchOptions())
	if err != nil {
		return err //nolint:wrapcheck
	}

	e.watch = s

	return nil
}

// WatchOptions are the session options matching this engine's settings.
func (e *Engine) WatchOptions() multiwatch.Options {
	stdin := e.stdin
	if stdin == nil {
		stdin = e.devnull
	}

	return multiwatch.Options{
		Shell:       e.cfg.Shell,
		PollTimeout: e.cfg.WatchPoll,
		Env:         e.env,
		Stdin:       stdin,
		Sink:        e.sink,
	}
}

// finishWatch records the end of the session and keeps track of children
// that are still around so they get reaped.
func (e *Engine) finishWatch(ctx context.Context) {
	s := e.watch
	if s == nil {
		return
	}

	e.watch = nil
	e.orphans = append(e.orphans, s.PIDs()...)
	e.metrics.WatchFinished(s.Outcome().String())

	ctxlog.Debug(ctx, "watch session finished", "session", s.ID(), "outcome", s.Outcome().String())
}
