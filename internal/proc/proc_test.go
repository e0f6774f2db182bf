// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package proc

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitExit(t *testing.T, pid int) int {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if exited, status := Reap(pid); exited {
			return status
		}

		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("process %d did not exit", pid)

	return -1
}

func TestPipe_NonblockingRead(t *testing.T) {
	r, w, err := Pipe()
	require.NoError(t, err)

	defer Close(r)

	require.NoError(t, SetNonblock(r))

	buf := make([]byte, 16)
	n, st := ReadNonblock(r, buf)
	assert.Equal(t, 0, n)
	assert.Equal(t, ReadAgain, st, "empty pipe should not block")

	_, err = w.WriteString("hello")
	require.NoError(t, err)

	n, st = ReadNonblock(r, buf)
	assert.Equal(t, ReadData, st)
	assert.Equal(t, "hello", string(buf[:n]))

	require.NoError(t, w.Close())

	_, st = ReadNonblock(r, buf)
	assert.Equal(t, ReadEOF, st)
}

func TestStart_EchoIntoPipe(t *testing.T) {
	path, err := LookPath("echo", nil)
	require.NoError(t, err)

	r, w, err := Pipe()
	require.NoError(t, err)

	defer Close(r)

	pid, err := Start(path, []string{"echo", "hi"}, [3]*os.File{os.Stdin, w, os.Stderr}, os.Environ())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, 0, waitExit(t, pid))

	buf := make([]byte, 16)
	n, err := syscall.Read(r, buf)
	require.NoError(t, err)
	assert.Equal(t, "hi\n", string(buf[:n]))
}

func TestReap_AliveThenSignalled(t *testing.T) {
	path, err := LookPath("sleep", nil)
	require.NoError(t, err)

	pid, err := Start(path, []string{"sleep", "10"}, [3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Environ())
	require.NoError(t, err)

	exited, _ := Reap(pid)
	assert.False(t, exited, "sleep should still be running")

	require.NoError(t, Signal(pid, syscall.SIGINT))
	assert.Equal(t, 128+int(syscall.SIGINT), WaitBlocking(pid))

	exited, status := Reap(pid)
	assert.True(t, exited, "an already reaped pid is reported as exited")
	assert.Equal(t, -1, status)
	assert.NoError(t, Signal(pid, syscall.SIGINT), "signalling a gone process is not an error")
}

func TestLookPath(t *testing.T) {
	path, err := LookPath("sh", nil)
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = LookPath("definitely-not-a-real-command-xyz", nil)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = LookPath("/not/a/real/command", nil)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = LookPath(os.TempDir(), nil)
	require.ErrorIs(t, err, ErrPermission)
}

func TestLookPath_UsesEnvPath(t *testing.T) {
	dir := t.TempDir()
	tool := filepath.Join(dir, "pipeterm-env-tool")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o755)) //nolint:gosec

	_, err := LookPath("pipeterm-env-tool", nil)
	require.ErrorIs(t, err, ErrNotFound, "the process PATH should not contain the tool")

	path, err := LookPath("pipeterm-env-tool", []string{"PATH=/nowhere", "HOME=/tmp", "PATH=" + dir})
	require.NoError(t, err)
	assert.Equal(t, tool, path, "the last PATH entry should win")

	_, err = LookPath("pipeterm-env-tool", []string{"PATH=" + dir, "PATH=/nowhere"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStart_NotExecutable(t *testing.T) {
	_, err := Start("/not/a/real/command", []string{"x"}, [3]*os.File{os.Stdin, os.Stdout, os.Stderr}, nil)
	require.ErrorIs(t, err, ErrCouldNotStartProcess)
}

func TestStartGroup_SignalReachesGrandchild(t *testing.T) {
	devnull, err := os.Open(os.DevNull)
	require.NoError(t, err)

	defer devnull.Close()

	sh, err := LookPath("sh", nil)
	require.NoError(t, err)

	pid, err := StartGroup(sh, []string{"sh", "-c", "sleep 30; echo done"}, [3]*os.File{devnull, devnull, devnull}, os.Environ())
	require.NoError(t, err)

	pgid, err := syscall.Getpgid(pid)
	require.NoError(t, err)
	assert.Equal(t, pid, pgid, "child should lead its own group")

	start := time.Now()

	require.NoError(t, SignalGroup(pid, syscall.SIGINT))
	assert.Equal(t, 128+int(syscall.SIGINT), WaitBlocking(pid))
	assert.Less(t, time.Since(start), 10*time.Second, "the sleep should have been interrupted too")
	assert.NoError(t, SignalGroup(pid, syscall.SIGINT), "a vanished group is not an error")
}

func TestReason(t *testing.T) {
	_, err := os.Open("/definitely/not/here")
	require.Error(t, err)
	assert.Equal(t, "no such file or directory", Reason(err))

	_, err = LookPath("pipeterm-no-such-command", nil)
	assert.Equal(t, "command not found", Reason(err))

	assert.Equal(t, "permission denied", Reason(syscall.EACCES))
	assert.Empty(t, Reason(nil))
}
