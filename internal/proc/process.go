// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package proc

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// ExitReserved is the status reported for a stage that could not be executed
// or whose redirection target could not be opened.
const ExitReserved = 127

var (
	// ErrFailedToCreatePipe is returned when the operating system pipe could not be created.
	ErrFailedToCreatePipe = errors.New("failed to create pipe")
	// ErrCouldNotStartProcess is returned when the process could not be started.
	ErrCouldNotStartProcess = errors.New("could not start process")
	// ErrNotFound is returned when a program cannot be located.
	ErrNotFound = errors.New("command not found")
	// ErrPermission is returned when a program exists but cannot be executed.
	ErrPermission = errors.New("permission denied")
)

// Start spawns path with argv and the given stdio. The runtime's handle on the
// process is released immediately: the caller owns the pid and must reap it
// with Reap or WaitBlocking.
func Start(path string, argv []string, stdio [3]*os.File, env []string) (int, error) {
	return start(path, argv, stdio, env, nil)
}

// StartGroup is Start with the child placed in a new process group whose id
// is its pid, so that SignalGroup reaches everything it spawns.
func StartGroup(path string, argv []string, stdio [3]*os.File, env []string) (int, error) {
	return start(path, argv, stdio, env, &syscall.SysProcAttr{Setpgid: true})
}

func start(path string, argv []string, stdio [3]*os.File, env []string, sys *syscall.SysProcAttr) (int, error) {
	ps, err := os.StartProcess(path, argv, &os.ProcAttr{
		Env:   env,
		Files: stdio[:],
		Sys:   sys,
	})
	if err != nil {
		return 0, errors.Join(ErrCouldNotStartProcess, err)
	}

	pid := ps.Pid
	_ = ps.Release()

	return pid, nil
}

// Reap checks, without blocking, whether pid has exited and collects it if so.
// A pid that is no longer our child is reported as exited with status -1.
// Any other error reports the process as alive so that the next tick retries.
func Reap(pid int) (bool, int) {
	if pid <= 0 {
		return true, -1
	}

	var ws unix.WaitStatus

	for {
		wpid, err := unix.Wait4(pid, &ws, unix.WNOHANG, nil)

		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.ECHILD):
			return true, -1
		case err != nil:
			return false, 0
		case wpid == 0:
			return false, 0
		case ws.Stopped() || ws.Continued():
			return false, 0
		default:
			return true, exitStatus(ws)
		}
	}
}

// WaitBlocking waits for pid to exit. It must only be used on a process that
// has already been sent a terminating signal.
func WaitBlocking(pid int) int {
	if pid <= 0 {
		return -1
	}

	var ws unix.WaitStatus

	for {
		_, err := unix.Wait4(pid, &ws, 0, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}

		if err != nil {
			return -1
		}

		return exitStatus(ws)
	}
}

// Signal sends sig to pid. A process that no longer exists is not an error.
func Signal(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return nil
	}

	if err := unix.Kill(pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		return err //nolint:wrapcheck
	}

	return nil
}

// SignalGroup sends sig to the process group led by pid.
func SignalGroup(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return nil
	}

	if err := unix.Kill(-pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		return err //nolint:wrapcheck
	}

	return nil
}

func exitStatus(ws unix.WaitStatus) int {
	if ws.Signaled() {
		return 128 + int(ws.Signal())
	}

	return ws.ExitStatus()
}

// Reason returns the operating system's description of what went wrong in
// err, without the operation and path decorations.
func Reason(err error) string {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno.Error()
	}

	var pe *os.PathError
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}

	for _, sentinel := range []error{ErrNotFound, ErrPermission} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}

	if err == nil {
		return ""
	}

	return err.Error()
}
