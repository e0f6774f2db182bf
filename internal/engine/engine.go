// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"errors"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/pipeterm/internal/config"
	"github.com/matt-FFFFFF/pipeterm/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeterm/internal/history"
	"github.com/matt-FFFFFF/pipeterm/internal/jobs"
	"github.com/matt-FFFFFF/pipeterm/internal/metrics"
	"github.com/matt-FFFFFF/pipeterm/internal/multiwatch"
	"github.com/matt-FFFFFF/pipeterm/internal/proc"
	"github.com/matt-FFFFFF/pipeterm/internal/shellparse"
	"github.com/matt-FFFFFF/pipeterm/internal/signalbroker"
	"github.com/matt-FFFFFF/pipeterm/internal/sink"
	"github.com/spf13/afero"
)

// pumpChunk is the read size of the foreground pump. pumpLimit bounds what
// one stream may deliver in a single tick so a fast producer cannot hold
// the control loop.
const (
	pumpChunk = 4096
	pumpLimit = 1 << 20
)

var (
	// ErrForegroundBusy is returned when a pipeline is submitted while another
	// one, or a multiWatch session, holds the foreground.
	ErrForegroundBusy = errors.New("a pipeline is already running")
	// ErrOpenNullDevice is returned by New when the null device cannot be opened.
	ErrOpenNullDevice = errors.New("cannot open null device")
)

// MsgForegroundBusy is written to the sink when a submission is rejected.
const MsgForegroundBusy = "pipeterm: a pipeline is already running (Ctrl+Z to background, Ctrl+C to cancel)\n"

// Options wires an Engine to its collaborators. Nil fields get defaults.
type Options struct {
	Config  *config.Config
	Sink    sink.Sink
	History *history.Recorder
	Jobs    *jobs.Registry
	Flags   *signalbroker.Flags
	Metrics *metrics.Metrics
	Env     []string

	// Stdin is given to the first stage of every pipeline and Stderr to every
	// stage but the last. Both default to the null device.
	Stdin  *os.File
	Stderr *os.File

	// EchoCommands writes the prompt and the submitted line to the sink.
	EchoCommands bool
}

// Engine is the shell core.
type Engine struct {
	cfg     *config.Config
	sink    sink.Sink
	hist    *history.Recorder
	jobs    *jobs.Registry
	flags   *signalbroker.Flags
	metrics *metrics.Metrics
	env     []string
	stdin   *os.File
	stderr  *os.File
	devnull *os.File
	echo    bool

	parseOpts []shellparse.Option

	capture *Capture
	watch   *multiwatch.Session
	orphans []int
	buf     []byte
	closed  bool
}

// New creates an Engine.
func New(opts Options) (*Engine, error) {
	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Join(ErrOpenNullDevice, err)
	}

	e := &Engine{
		cfg:     opts.Config,
		sink:    opts.Sink,
		hist:    opts.History,
		jobs:    opts.Jobs,
		flags:   opts.Flags,
		metrics: opts.Metrics,
		env:     opts.Env,
		stdin:   opts.Stdin,
		stderr:  opts.Stderr,
		devnull: devnull,
		echo:    opts.EchoCommands,
		buf:     make([]byte, pumpChunk),
	}

	if e.cfg == nil {
		e.cfg = config.Default()
	}

	if e.sink == nil {
		e.sink = sink.Discard
	}

	if e.hist == nil {
		e.hist = history.New(afero.NewMemMapFs(), "", e.cfg.HistoryCapacity)
	}

	if e.jobs == nil {
		e.jobs = jobs.New(jobs.WithPolicy(jobs.Policy(e.cfg.BackgroundOutput)),
			jobs.WithLogDir(afero.NewOsFs(), e.cfg.JobLogDir))
	}

	if e.flags == nil {
		e.flags = &signalbroker.Flags{}
	}

	if e.env == nil {
		e.env = os.Environ()
	}

	if e.stdin == nil {
		e.stdin = devnull
	}

	if e.stderr == nil {
		e.stderr = devnull
	}

	e.parseOpts = []shellparse.Option{shellparse.WithQuoteAwarePipes(e.cfg.QuoteAwarePipes)}

	return e, nil
}

// Sink returns the sink output is written to.
func (e *Engine) Sink() sink.Sink {
	return e.sink
}

// History returns the history recorder.
func (e *Engine) History() *history.Recorder {
	return e.hist
}

// Registry returns the background job table.
func (e *Engine) Registry() *jobs.Registry {
	return e.jobs
}

// Flags returns the pending request flags.
func (e *Engine) Flags() *signalbroker.Flags {
	return e.flags
}

// RequestInterrupt asks the next Pump to interrupt the foreground.
// It is safe to call from any goroutine.
func (e *Engine) RequestInterrupt() {
	e.flags.RequestInterrupt()
}

// RequestSuspend asks the next Pump to move the foreground to the background.
// It is safe to call from any goroutine.
func (e *Engine) RequestSuspend() {
	e.flags.RequestSuspend()
}

// Busy reports whether a pipeline or a multiWatch session holds the foreground.
func (e *Engine) Busy() bool {
	return e.capture != nil || e.watch != nil
}

// Capture returns a copy of the active foreground capture, or nil.
func (e *Engine) Capture() *Capture {
	if e.capture == nil {
		return nil
	}

	c := *e.capture
	c.PIDs = append([]int(nil), e.capture.PIDs...)

	return &c
}

// Watching reports whether a multiWatch session is running.
func (e *Engine) Watching() bool {
	return e.watch != nil
}

// Close interrupts whatever holds the foreground and releases the job table's
// streams. Background processes keep running. Calling Close again does
// nothing.
func (e *Engine) Close(ctx context.Context) error {
	if e.closed {
		return nil
	}

	e.closed = true

	var result error

	e.Interrupt(ctx)
	e.reapOrphans(ctx)

	if len(e.orphans) > 0 {
		ctxlog.Debug(ctx, "leaving unreaped processes", "pids", e.orphans)
	}

	if err := e.jobs.Close(); err != nil {
		result = multierror.Append(result, err)
	}

	if err := e.devnull.Close(); err != nil {
		result = multierror.Append(result, err)
	}

	return result
}

// reapOrphans collects processes that were signalled and forgotten.
func (e *Engine) reapOrphans(ctx context.Context) {
	if len(e.orphans) == 0 {
		return
	}

	left := e.orphans[:0]

	for _, pid := range e.orphans {
		if exited, status := proc.Reap(pid); exited {
			ctxlog.Debug(ctx, "reaped", "pid", pid, "status", status)
			continue
		}

		left = append(left, pid)
	}

	e.orphans = left
}
