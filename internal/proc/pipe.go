// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package proc

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// ReadState describes the outcome of a non-blocking read.
type ReadState int

const (
	// ReadData means n > 0 bytes were read.
	ReadData ReadState = iota
	// ReadAgain means no data is available right now, the stream stays open.
	ReadAgain
	// ReadEOF means the writing side has gone away.
	ReadEOF
	// ReadError means an unrecoverable read error occurred.
	ReadError
)

// String implements the Stringer interface for ReadState.
func (s ReadState) String() string {
	switch s {
	case ReadData:
		return "data"
	case ReadAgain:
		return "again"
	case ReadEOF:
		return "eof"
	case ReadError:
		return "error"
	default:
		return "unknown"
	}
}

// Pipe creates an anonymous pipe. The read end is returned as a raw descriptor
// so it can be polled and read without the Go runtime poller, the write end is
// wrapped in an *os.File so it can be handed to a child process.
// Both ends are close-on-exec and blocking; call SetNonblock on the read end.
func Pipe() (int, *os.File, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return -1, nil, errors.Join(ErrFailedToCreatePipe, err)
	}

	return fds[0], os.NewFile(uintptr(fds[1]), "|1"), nil
}

// SetNonblock puts the descriptor into non-blocking mode.
func SetNonblock(fd int) error {
	return unix.SetNonblock(fd, true) //nolint:wrapcheck
}

// ReadNonblock performs a single read on a non-blocking descriptor.
func ReadNonblock(fd int, buf []byte) (int, ReadState) {
	for {
		n, err := unix.Read(fd, buf)

		switch {
		case err == nil && n > 0:
			return n, ReadData
		case err == nil:
			return 0, ReadEOF
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK):
			return 0, ReadAgain
		default:
			return 0, ReadError
		}
	}
}

// Close closes a raw descriptor. Negative descriptors are ignored.
func Close(fd int) {
	if fd < 0 {
		return
	}

	_ = unix.Close(fd)
}
