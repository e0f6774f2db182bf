// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package multiwatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/matt-FFFFFF/pipeterm/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeterm/internal/proc"
	"github.com/matt-FFFFFF/pipeterm/internal/sink"
	"github.com/rs/xid"
	"golang.org/x/sys/unix"
)

const (
	// DefaultPollTimeout bounds each readiness wait of Run.
	DefaultPollTimeout = 200 * time.Millisecond
	// DefaultShell interprets each command.
	DefaultShell = "/bin/sh"
	// ReadChunk is the most read from one stream per readiness event.
	ReadChunk = 256

	// MsgStarted is written once every command has been spawned.
	MsgStarted = "multiWatch started. Press Ctrl+C to stop.\n"
	// MsgNoCommands is written when the command list is empty.
	MsgNoCommands = "multiWatch: no commands\n"
	// MsgPipeFailed is written when a stream could not be created.
	MsgPipeFailed = "multiWatch: pipe failed\n"
	// MsgInterrupted is written when a session is cancelled.
	MsgInterrupted = "\nmultiWatch interrupted by Ctrl+C\n"
	// MsgBackgrounded is written when a session is suspended.
	MsgBackgrounded = "\n^Z\n[multiWatch processes suspended and moved to background]\n"
)

// Separator brackets every chunk of output.
var Separator = strings.Repeat("-", 52)

var (
	// ErrNoCommands is returned by Start for an empty command list.
	ErrNoCommands = errors.New("no commands to watch")
	// ErrSpawn is returned by Start when a stream could not be created.
	ErrSpawn = errors.New("could not start watch session")
)

// Outcome is how a session ended.
type Outcome int

const (
	// Running means the session has not ended yet.
	Running Outcome = iota
	// Completed means every stream reached end of file.
	Completed
	// Interrupted means the session was cancelled.
	Interrupted
	// Backgrounded means the children were stopped and left behind.
	Backgrounded
)

func (o Outcome) String() string {
	switch o {
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Interrupted:
		return "interrupted"
	case Backgrounded:
		return "backgrounded"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Signals tells a running session whether the user asked to stop.
// Implementations must be safe to call from the session's goroutine while
// another goroutine sets them.
type Signals interface {
	Interrupted() bool
	Suspended() bool
}

// Options configures a session.
type Options struct {
	Shell       string        // Interpreter run as `<shell> -c <command>`.
	PollTimeout time.Duration // Used by Run for each wait.
	Env         []string      // Child environment, os.Environ() when nil.
	Stdin       *os.File      // Child stdin, the null device when nil.
	Sink        sink.Sink     // Where output goes, discarded when nil.
	Now         func() time.Time
}

// Session is one monitor run. It is not safe for concurrent use.
type Session struct {
	id      xid.ID
	cmds    []string
	pids    []int
	fds     []int
	open    int
	outcome Outcome
	opts    Options
	ctx     context.Context
	buf     []byte
}

// Start spawns one child per command, each with stdout and stderr joined into
// a single non-blocking stream.
func Start(ctx context.Context, cmds []string, opts Options) (*Session, error) {
	if opts.Sink == nil {
		opts.Sink = sink.Discard
	}

	if len(cmds) == 0 {
		opts.Sink.AppendString(MsgNoCommands)
		return nil, ErrNoCommands
	}

	if opts.Shell == "" {
		opts.Shell = DefaultShell
	}

	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}

	if opts.Env == nil {
		opts.Env = os.Environ()
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Session{
		id:   xid.New(),
		cmds: append([]string(nil), cmds...),
		pids: make([]int, len(cmds)),
		fds:  make([]int, len(cmds)),
		opts: opts,
		buf:  make([]byte, ReadChunk),
	}
	s.ctx = ctxlog.New(ctx, ctxlog.Logger(ctx).With("session", s.id.String()))

	for i := range s.fds {
		s.fds[i] = -1
	}

	stdin := opts.Stdin
	if stdin == nil {
		devnull, err := os.Open(os.DevNull)
		if err != nil {
			return nil, errors.Join(ErrSpawn, err)
		}

		defer devnull.Close()

		stdin = devnull
	}

	for i, cmd := range s.cmds {
		if err := s.spawn(i, cmd, stdin); err != nil {
			opts.Sink.AppendString(MsgPipeFailed)
			s.terminate()

			return nil, errors.Join(ErrSpawn, err)
		}
	}

	ctxlog.Info(s.ctx, "watch session started", "commands", len(s.cmds))
	opts.Sink.AppendString(MsgStarted)

	return s, nil
}

// spawn starts command i. A shell that cannot be executed still yields a
// stream, carrying the diagnostic, so that the session's shape does not change.
func (s *Session) spawn(i int, cmd string, stdin *os.File) error {
	rfd, w, err := proc.Pipe()
	if err != nil {
		return err
	}

	defer w.Close()

	if err := proc.SetNonblock(rfd); err != nil {
		proc.Close(rfd)
		return err
	}

	s.fds[i] = rfd
	s.open++

	argv := []string{shellName(s.opts.Shell), "-c", cmd}

	pid, err := proc.StartGroup(s.opts.Shell, argv, [3]*os.File{stdin, w, w}, s.opts.Env)
	if err != nil {
		ctxlog.Warn(s.ctx, "watch command did not start", "command", cmd, "error", err)
		fmt.Fprintf(w, "pipeterm: %s: %s\n", s.opts.Shell, proc.Reason(err))

		return nil
	}

	ctxlog.Debug(s.ctx, "watch command spawned", "command", cmd, "pid", pid)
	s.pids[i] = pid

	return nil
}

func shellName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}

	return path
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id.String()
}

// Commands returns the watched command texts.
func (s *Session) Commands() []string {
	return append([]string(nil), s.cmds...)
}

// Open returns the number of streams not yet at end of file.
func (s *Session) Open() int {
	return s.open
}

// Live returns the number of children not yet seen to exit.
func (s *Session) Live() int {
	n := 0

	for _, pid := range s.pids {
		if pid > 0 {
			n++
		}
	}

	return n
}

// PIDs returns the children not yet seen to exit.
func (s *Session) PIDs() []int {
	out := make([]int, 0, len(s.pids))

	for _, pid := range s.pids {
		if pid > 0 {
			out = append(out, pid)
		}
	}

	return out
}

// Done reports whether the session has ended.
func (s *Session) Done() bool {
	return s.outcome != Running
}

// Outcome reports how the session ended, or Running.
func (s *Session) Outcome() Outcome {
	return s.outcome
}

// Step waits at most timeout for output, forwards one read per ready stream
// and reaps exited children without blocking. It reports whether anything
// was written to the sink or a stream closed.
func (s *Session) Step(timeout time.Duration) bool {
	if s.Done() {
		return false
	}

	changed := false

	pfds := make([]unix.PollFd, 0, s.open)
	idx := make([]int, 0, s.open)

	for i, fd := range s.fds {
		if fd < 0 {
			continue
		}

		pfds = append(pfds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN | unix.POLLHUP}) //nolint:gosec
		idx = append(idx, i)
	}

	n, err := unix.Poll(pfds, int(timeout/time.Millisecond))
	if err != nil && !errors.Is(err, unix.EINTR) {
		ctxlog.Warn(s.ctx, "watch poll failed", "error", err)
	}

	if n > 0 {
		for k, pfd := range pfds {
			if pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) == 0 {
				continue
			}

			if s.readOnce(idx[k]) {
				changed = true
			}
		}
	}

	s.reap()

	if s.open == 0 {
		s.outcome = Completed
		changed = true

		ctxlog.Info(s.ctx, "watch session completed", "live", s.Live())
	}

	return changed
}

// readOnce performs a single read on stream i.
func (s *Session) readOnce(i int) bool {
	n, st := proc.ReadNonblock(s.fds[i], s.buf)

	switch st {
	case proc.ReadData:
		s.emit(s.cmds[i], s.buf[:n])
		return true
	case proc.ReadAgain:
		return false
	default:
		ctxlog.Debug(s.ctx, "watch stream closed", "command", s.cmds[i], "state", st.String())
		s.closeStream(i)

		return true
	}
}

func (s *Session) emit(cmd string, payload []byte) {
	ts := s.opts.Now()

	var b strings.Builder

	b.Grow(len(cmd) + len(payload) + 2*len(Separator) + 32)
	fmt.Fprintf(&b, "\n\"%s\" , %d.%03d:\n", cmd, ts.Unix(), ts.Nanosecond()/int(time.Millisecond))
	b.WriteString(Separator)
	b.WriteByte('\n')
	b.Write(payload)
	b.WriteByte('\n')
	b.WriteString(Separator)
	b.WriteByte('\n')

	s.opts.Sink.AppendString(b.String())
}

func (s *Session) closeStream(i int) {
	if s.fds[i] < 0 {
		return
	}

	proc.Close(s.fds[i])
	s.fds[i] = -1
	s.open--
}

func (s *Session) closeAll() {
	for i := range s.fds {
		s.closeStream(i)
	}
}

func (s *Session) reap() {
	for i, pid := range s.pids {
		if pid <= 0 {
			continue
		}

		if exited, status := proc.Reap(pid); exited {
			ctxlog.Debug(s.ctx, "watch command exited", "pid", pid, "status", status)
			s.pids[i] = 0
		}
	}
}

// terminate interrupts and reaps every live child and closes every stream.
func (s *Session) terminate() {
	for i, pid := range s.pids {
		if pid <= 0 {
			continue
		}

		if err := proc.SignalGroup(pid, syscall.SIGINT); err != nil {
			ctxlog.Warn(s.ctx, "could not interrupt watch command", "pid", pid, "error", err)
		}

		status := proc.WaitBlocking(pid)
		ctxlog.Debug(s.ctx, "watch command reaped", "pid", pid, "status", status)
		s.pids[i] = 0
	}

	s.closeAll()
}

// Cancel interrupts every live child and waits for each of them to exit.
func (s *Session) Cancel() {
	if s.Done() {
		return
	}

	s.opts.Sink.AppendString(MsgInterrupted)
	s.terminate()
	s.outcome = Interrupted

	ctxlog.Info(s.ctx, "watch session interrupted")
}

// Background stops every live child and abandons them and their streams.
func (s *Session) Background() {
	if s.Done() {
		return
	}

	s.opts.Sink.AppendString(MsgBackgrounded)

	for _, pid := range s.pids {
		if err := proc.SignalGroup(pid, syscall.SIGTSTP); err != nil {
			ctxlog.Warn(s.ctx, "could not stop watch command", "pid", pid, "error", err)
		}
	}

	s.closeAll()
	s.outcome = Backgrounded

	ctxlog.Info(s.ctx, "watch session backgrounded", "pids", s.PIDs())
}

// Poll checks sig and acts on a pending request. It reports whether the
// session ended because of it. Interrupt takes precedence.
func (s *Session) Poll(sig Signals) bool {
	if s.Done() {
		return true
	}

	switch {
	case sig.Interrupted():
		s.Cancel()
	case sig.Suspended():
		s.Background()
	default:
		return false
	}

	return true
}

// Run drives the session until every stream closes or sig asks it to stop.
// A done ctx counts as an interrupt.
func (s *Session) Run(ctx context.Context, sig Signals) Outcome {
	for !s.Done() {
		if ctx.Err() != nil {
			s.Cancel()
			break
		}

		if s.Poll(sig) {
			break
		}

		s.Step(s.opts.PollTimeout)
	}

	return s.outcome
}
