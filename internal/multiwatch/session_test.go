// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package multiwatch

import (
	"context"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/matt-FFFFFF/pipeterm/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeterm/internal/proc"
	"github.com/matt-FFFFFF/pipeterm/internal/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sys/unix"
)

type testSignals struct {
	interrupt atomic.Bool
	suspend   atomic.Bool
}

func (s *testSignals) Interrupted() bool { return s.interrupt.Load() }
func (s *testSignals) Suspended() bool   { return s.suspend.Load() }

func testCtx() context.Context {
	return ctxlog.New(context.Background(), ctxlog.DiscardLogger)
}

func fixedNow() time.Time {
	return time.Unix(1700000000, 5*int64(time.Millisecond))
}

func TestRunCompletes(t *testing.T) {
	defer goleak.VerifyNone(t)

	out := sink.NewScrollback(1 << 16)

	s, err := Start(testCtx(), []string{"echo a", "echo b"}, Options{Sink: out, Now: fixedNow})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, 2, s.Open())

	outcome := s.Run(testCtx(), &testSignals{})
	assert.Equal(t, Completed, outcome)
	assert.Equal(t, 0, s.Open(), "every stream should be closed")
	assert.True(t, s.Done())

	text := out.String()
	assert.Contains(t, text, MsgStarted)

	for _, cmd := range []string{"echo a", "echo b"} {
		payload := cmd[len(cmd)-1:]
		chunk := "\n\"" + cmd + "\" , 1700000000.005:\n" + Separator + "\n" + payload + "\n\n" + Separator + "\n"
		assert.Contains(t, text, chunk, "output of %q should be labelled and bracketed", cmd)
	}

	assert.Less(t, strings.Index(text, MsgStarted), strings.Index(text, "\"echo a\""), "start banner comes first")

	// Stragglers are collected by later steps if the streams closed first.
	assert.Eventually(t, func() bool {
		s.reap()
		return s.Live() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStartNoCommands(t *testing.T) {
	out := sink.NewScrollback(1024)

	s, err := Start(testCtx(), nil, Options{Sink: out})
	require.ErrorIs(t, err, ErrNoCommands)
	assert.Nil(t, s)
	assert.Equal(t, MsgNoCommands, out.String())
}

func TestCancelReapsEveryChild(t *testing.T) {
	out := sink.NewScrollback(1 << 16)

	s, err := Start(testCtx(), []string{"sleep 30", "sleep 30; echo never", "echo quick"}, Options{Sink: out})
	require.NoError(t, err)

	pids := s.PIDs()
	require.Len(t, pids, 3)

	s.Step(50 * time.Millisecond)

	start := time.Now()

	s.Cancel()
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, Interrupted, s.Outcome())
	assert.Equal(t, 0, s.Live())
	assert.Equal(t, 0, s.Open())
	assert.Contains(t, out.String(), MsgInterrupted)
	assert.NotContains(t, out.String(), "never")

	for _, pid := range pids {
		exited, status := proc.Reap(pid)
		assert.True(t, exited)
		assert.Equal(t, -1, status, "pid %d should already have been reaped", pid)
	}

	s.Cancel()
	assert.Equal(t, 1, strings.Count(out.String(), MsgInterrupted), "cancel after the end is a no-op")
}

func TestRunInterruptRequest(t *testing.T) {
	defer goleak.VerifyNone(t)

	sig := &testSignals{}
	out := sink.NewScrollback(1 << 16)

	s, err := Start(testCtx(), []string{"sleep 30"}, Options{Sink: out, PollTimeout: 20 * time.Millisecond})
	require.NoError(t, err)

	time.AfterFunc(100*time.Millisecond, func() { sig.interrupt.Store(true) })

	assert.Equal(t, Interrupted, s.Run(testCtx(), sig))
	assert.Equal(t, 0, s.Live())
}

func TestRunContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(testCtx())
	cancel()

	s, err := Start(testCtx(), []string{"sleep 30"}, Options{})
	require.NoError(t, err)

	assert.Equal(t, Interrupted, s.Run(ctx, &testSignals{}))
	assert.Equal(t, 0, s.Live())
}

func TestBackgroundStopsChildren(t *testing.T) {
	sig := &testSignals{}
	sig.suspend.Store(true)
	out := sink.NewScrollback(1 << 16)

	s, err := Start(testCtx(), []string{"sleep 30"}, Options{Sink: out})
	require.NoError(t, err)

	pid := s.PIDs()[0]

	assert.Equal(t, Backgrounded, s.Run(testCtx(), sig))
	assert.Equal(t, 0, s.Open())
	assert.Equal(t, 1, s.Live(), "backgrounded children are not reaped")
	assert.Contains(t, out.String(), MsgBackgrounded)

	var ws unix.WaitStatus

	_, err = unix.Wait4(pid, &ws, unix.WUNTRACED, nil)
	require.NoError(t, err)
	assert.True(t, ws.Stopped(), "child should be stopped")

	require.NoError(t, proc.SignalGroup(pid, syscall.SIGKILL))
	proc.WaitBlocking(pid)
}

func TestInterruptWinsOverSuspend(t *testing.T) {
	sig := &testSignals{}
	sig.interrupt.Store(true)
	sig.suspend.Store(true)

	s, err := Start(testCtx(), []string{"sleep 30"}, Options{})
	require.NoError(t, err)

	assert.True(t, s.Poll(sig))
	assert.Equal(t, Interrupted, s.Outcome())
}

func TestShellMissing(t *testing.T) {
	out := sink.NewScrollback(1 << 16)

	s, err := Start(testCtx(), []string{"echo hi"}, Options{Sink: out, Shell: "/nonexistent/sh", Now: fixedNow})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Live())

	assert.Equal(t, Completed, s.Run(testCtx(), &testSignals{}))
	assert.Contains(t, out.String(), "pipeterm: /nonexistent/sh: no such file or directory")
	assert.Contains(t, out.String(), "\"echo hi\" , 1700000000.005:")
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "completed", Completed.String())
	assert.Equal(t, "interrupted", Interrupted.String())
	assert.Equal(t, "backgrounded", Backgrounded.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "Outcome(9)", Outcome(9).String())
}
