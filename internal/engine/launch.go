// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/matt-FFFFFF/pipeterm/internal/config"
	"github.com/matt-FFFFFF/pipeterm/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeterm/internal/proc"
	"github.com/matt-FFFFFF/pipeterm/internal/shellparse"
)

// Capture is the foreground pipeline: the read ends of its captured output
// and the processes still being tracked.
type Capture struct {
	OutFD      int    // Final stage stdout, -1 when redirected to a file or closed.
	ErrFD      int    // Final stage stderr, -1 once closed.
	PIDs       []int  // One per stage, 0 once reaped or if the stage never started.
	Stages     int    // Number of stages launched.
	Pipes      int    // Inter-stage pipes created.
	Failed     int    // Stages that did not get a process.
	Active     bool   // Still owned by the pump.
	Foreground int    // Pid of the final stage at launch.
	Command    string // Command text, kept for the job table.
}

// stageError is a failure local to one stage.
type stageError struct {
	name string
	err  error
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%s: %s", e.name, proc.Reason(e.err))
}

func (e *stageError) Unwrap() error {
	return e.err
}

// resourceError reports whether err means the system could not create a
// process at all, as opposed to this particular program being unusable.
func resourceError(err error) bool {
	return errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.ENOMEM) ||
		errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE)
}

// claimForeground applies the foreground conflict policy.
func (e *Engine) claimForeground(ctx context.Context) error {
	if !e.Busy() {
		return nil
	}

	if e.cfg.ForegroundConflict == config.ConflictReplace && e.watch == nil {
		ctxlog.Info(ctx, "replacing running pipeline", "command", e.capture.Command)
		e.Interrupt(ctx)

		return nil
	}

	e.sink.AppendString(MsgForegroundBusy)

	return ErrForegroundBusy
}

// Launch starts every stage of p and publishes a new foreground capture. It
// does not wait for anything.
//
// A stage whose redirection cannot be opened, or whose program cannot be
// found, gets no process: its diagnostic is written to the stream its stderr
// would have gone to and it counts as exited with proc.ExitReserved. The
// other stages run regardless.
func (e *Engine) Launch(ctx context.Context, p shellparse.Pipeline, command string) (*Capture, error) {
	if p.Len() == 0 {
		return nil, shellparse.ErrEmptyPipeline
	}

	if err := e.claimForeground(ctx); err != nil {
		return nil, err
	}

	n := p.Len()
	logger := ctxlog.Logger(ctx).With("command", command)

	var parentEnds []*os.File

	closeParentEnds := func() {
		for _, f := range parentEnds {
			_ = f.Close()
		}
	}

	links := make([][2]*os.File, n-1)

	for i := range links {
		r, w, err := os.Pipe()
		if err != nil {
			closeParentEnds()
			return nil, errors.Join(proc.ErrFailedToCreatePipe, err)
		}

		links[i] = [2]*os.File{r, w}
		parentEnds = append(parentEnds, r, w)
	}

	outFD := -1

	var outW *os.File

	if !p.Last().RedirectsOut() {
		fd, w, err := capturePipe()
		if err != nil {
			closeParentEnds()
			return nil, err
		}

		outFD, outW = fd, w
		parentEnds = append(parentEnds, w)
	}

	errFD, errW, err := capturePipe()
	if err != nil {
		closeParentEnds()
		proc.Close(outFD)

		return nil, err
	}

	parentEnds = append(parentEnds, errW)

	c := &Capture{
		OutFD:   outFD,
		ErrFD:   errFD,
		PIDs:    make([]int, n),
		Stages:  n,
		Pipes:   n - 1,
		Active:  true,
		Command: command,
	}

	for i, st := range p.Stages {
		stdio := [3]*os.File{e.stdin, e.devnull, e.stderr}

		if i > 0 {
			stdio[0] = links[i-1][0]
		}

		switch {
		case i < n-1:
			stdio[1] = links[i][1]
		case outW != nil:
			stdio[1] = outW
		}

		if i == n-1 {
			stdio[2] = errW
		}

		pid, err := e.spawn(st, stdio)
		if err == nil {
			logger.Debug("stage spawned", "stage", i, "pid", pid, "name", st.Name())
			c.PIDs[i] = pid

			continue
		}

		if resourceError(err) {
			logger.Error("cannot spawn stage", "stage", i, "error", err)
			e.abandon(c.PIDs)
			closeParentEnds()
			proc.Close(outFD)
			proc.Close(errFD)

			return nil, errors.Join(proc.ErrCouldNotStartProcess, err)
		}

		logger.Info("stage failed", "stage", i, "error", err)
		c.Failed++

		fmt.Fprintf(stdio[2], "pipeterm: %s\n", err)
	}

	closeParentEnds()

	c.Foreground = c.PIDs[n-1]
	e.capture = c
	e.metrics.Launched(n-c.Failed, c.Failed)

	logger.Info("pipeline launched", "stages", n, "failed", c.Failed, "pids", c.PIDs)

	return e.Capture(), nil
}

// capturePipe creates a pipe whose read end stays in this process, non-blocking.
func capturePipe() (int, *os.File, error) {
	fd, w, err := proc.Pipe()
	if err != nil {
		return -1, nil, err
	}

	if err := proc.SetNonblock(fd); err != nil {
		proc.Close(fd)
		_ = w.Close()

		return -1, nil, errors.Join(proc.ErrFailedToCreatePipe, err)
	}

	return fd, w, nil
}

// spawn performs what a forked child would do before exec: open the
// redirections in order, then locate and start the program.
func (e *Engine) spawn(st shellparse.Stage, stdio [3]*os.File) (int, error) {
	if st.RedirectsIn() {
		f, err := os.Open(st.InFile)
		if err != nil {
			return 0, &stageError{name: target(st.InFile, "<"), err: err}
		}

		defer f.Close()

		stdio[0] = f
	}

	if st.RedirectsOut() {
		flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if st.Append {
			flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}

		f, err := os.OpenFile(st.OutFile, flags, 0o644) //nolint:gosec
		if err != nil {
			return 0, &stageError{name: target(st.OutFile, ">"), err: err}
		}

		defer f.Close()

		stdio[1] = f
	}

	path, err := proc.LookPath(st.Name(), e.env)
	if err != nil {
		return 0, &stageError{name: st.Name(), err: err}
	}

	pid, err := proc.Start(path, st.Args, stdio, e.env)
	if err != nil {
		if resourceError(err) {
			return 0, err
		}

		return 0, &stageError{name: st.Name(), err: err}
	}

	return pid, nil
}

// target names a redirection in diagnostics; a missing target is shown as
// its operator.
func target(path, op string) string {
	if path == "" {
		return op
	}

	return path
}

// abandon kills pids and leaves them to be reaped later.
func (e *Engine) abandon(pids []int) {
	for _, pid := range pids {
		if pid <= 0 {
			continue
		}

		_ = proc.Signal(pid, syscall.SIGKILL)
		e.orphans = append(e.orphans, pid)
	}
}
