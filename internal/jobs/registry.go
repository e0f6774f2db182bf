// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/matt-FFFFFF/pipeterm/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeterm/internal/proc"
	"github.com/spf13/afero"
)

const (
	// Capacity is the number of background job slots.
	Capacity = 64
	// CommandSnapshotMax is the longest command text kept for a job.
	CommandSnapshotMax = 255
	// UnknownCommand is shown for a job whose command text was not available.
	UnknownCommand = "(unknown)"

	drainChunk = 4096
)

// ErrRegistryFull is returned by Add when every slot is in use.
var ErrRegistryFull = errors.New("too many background jobs")

// Policy decides what happens to a job's output streams once it is backgrounded.
type Policy string

const (
	// PolicyDetach closes the streams. Children that keep writing will get
	// a broken pipe once nobody reads.
	PolicyDetach Policy = "detach"
	// PolicyDiscard keeps reading the streams and throws the data away.
	PolicyDiscard Policy = "discard"
	// PolicyLogFile keeps reading the streams into a per-job log file.
	PolicyLogFile Policy = "logfile"
)

// Prober checks process liveness without blocking.
type Prober interface {
	Reap(pid int) (exited bool, status int)
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(pid int) (bool, int)

// Reap implements Prober.
func (f ProberFunc) Reap(pid int) (bool, int) {
	return f(pid)
}

// Job is one slot of the registry.
type Job struct {
	Active  bool
	PIDs    []int // 0 once the process has been seen to exit.
	NProcs  int
	Command string

	streams []int
	out     io.WriteCloser
}

// Listing is the status line of a running job.
type Listing struct {
	Slot    int // 1-based.
	Command string
	PIDs    []int
}

// Registry is the bounded background job table.
// It is not safe for concurrent use.
type Registry struct {
	slots  [Capacity]Job
	count  int
	policy Policy
	logDir string
	fs     afero.Fs
	prober Prober
}

// Option configures a Registry.
type Option func(*Registry)

// WithPolicy sets the background output policy.
func WithPolicy(p Policy) Option {
	return func(r *Registry) {
		r.policy = p
	}
}

// WithLogDir sets the directory PolicyLogFile writes into.
func WithLogDir(fs afero.Fs, dir string) Option {
	return func(r *Registry) {
		r.fs = fs
		r.logDir = dir
	}
}

// WithProber replaces the liveness check, for tests.
func WithProber(p Prober) Option {
	return func(r *Registry) {
		r.prober = p
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		policy: PolicyDetach,
		fs:     afero.NewOsFs(),
		prober: ProberFunc(proc.Reap),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Policy returns the background output policy in use.
func (r *Registry) Policy() Policy {
	return r.policy
}

// Count returns the number of active jobs.
func (r *Registry) Count() int {
	return r.count
}

// Job returns a copy of the job in the given 1-based slot.
func (r *Registry) Job(slot int) (Job, bool) {
	if slot < 1 || slot > Capacity {
		return Job{}, false
	}

	j := r.slots[slot-1]
	j.PIDs = slices.Clone(j.PIDs)

	return j, j.Active
}

// Add stores a pipeline in the first free slot and returns its 1-based slot.
// streams are the pipeline's still open, non-blocking output descriptors; the
// registry takes ownership of them and handles them according to its policy.
// Finished jobs are reconciled away first, so ErrRegistryFull means every
// slot holds a live process. On ErrRegistryFull ownership stays with the
// caller.
func (r *Registry) Add(ctx context.Context, pids []int, command string, streams []int) (int, error) {
	r.Reconcile(ctx)

	idx := -1

	for i := range r.slots {
		if !r.slots[i].Active {
			idx = i
			break
		}
	}

	if idx < 0 {
		return 0, ErrRegistryFull
	}

	if command == "" {
		command = UnknownCommand
	}

	if len(command) > CommandSnapshotMax {
		command = command[:CommandSnapshotMax]
	}

	open := make([]int, 0, len(streams))

	for _, fd := range streams {
		if fd >= 0 {
			open = append(open, fd)
		}
	}

	r.slots[idx] = Job{
		Active:  true,
		PIDs:    slices.Clone(pids),
		NProcs:  len(pids),
		Command: command,
	}
	r.count++

	job := &r.slots[idx]
	logger := ctxlog.Logger(ctx).With("slot", idx+1)

	switch r.policy {
	case PolicyDiscard:
		job.streams = open
		job.out = nopWriteCloser{io.Discard}
	case PolicyLogFile:
		out, err := r.openLog(idx + 1)
		if err != nil {
			logger.Warn("cannot open job log, discarding output instead", "error", err)

			out = nopWriteCloser{io.Discard}
		}

		job.streams = open
		job.out = out
	default:
		for _, fd := range open {
			proc.Close(fd)
		}
	}

	logger.Debug("job added", "pids", pids, "policy", r.policy, "streams", len(job.streams))

	return idx + 1, nil
}

func (r *Registry) openLog(slot int) (io.WriteCloser, error) {
	if err := r.fs.MkdirAll(r.logDir, 0o700); err != nil {
		return nil, fmt.Errorf("create job log directory: %w", err)
	}

	name := filepath.Join(r.logDir, fmt.Sprintf("job-%d.log", slot))

	f, err := r.fs.Create(name)
	if err != nil {
		return nil, fmt.Errorf("create job log: %w", err)
	}

	return f, nil
}

// Drain reads whatever the background jobs' streams have available without
// blocking. It reports whether anything was read or closed.
func (r *Registry) Drain() bool {
	changed := false
	buf := make([]byte, drainChunk)

	for i := range r.slots {
		job := &r.slots[i]
		if !job.Active || len(job.streams) == 0 {
			continue
		}

		open := job.streams[:0]

		for _, fd := range job.streams {
			alive, read := drainStream(fd, buf, job.out)
			if read || !alive {
				changed = true
			}

			if alive {
				open = append(open, fd)
			}
		}

		if len(open) == 0 {
			job.streams = nil
		} else {
			job.streams = open
		}
	}

	return changed
}

// drainStream reads fd until it has nothing more to give. alive is false
// once the stream has been closed.
func drainStream(fd int, buf []byte, out io.Writer) (alive, read bool) {
	for {
		n, st := proc.ReadNonblock(fd, buf)

		switch st {
		case proc.ReadData:
			read = true
			_, _ = out.Write(buf[:n])
		case proc.ReadAgain:
			return true, read
		default:
			proc.Close(fd)
			return false, read
		}
	}
}

// Reconcile re-checks the liveness of every active job without blocking and
// frees the slots whose processes have all exited.
func (r *Registry) Reconcile(ctx context.Context) {
	for i := range r.slots {
		job := &r.slots[i]
		if !job.Active {
			continue
		}

		alive := false

		for j, pid := range job.PIDs {
			if pid <= 0 {
				continue
			}

			if exited, status := r.prober.Reap(pid); exited {
				ctxlog.Debug(ctx, "background process exited", "slot", i+1, "pid", pid, "status", status)

				job.PIDs[j] = 0

				continue
			}

			alive = true
		}

		if !alive {
			r.release(ctx, i)
		}
	}
}

// List reconciles and returns the running jobs in slot order.
func (r *Registry) List(ctx context.Context) []Listing {
	r.Reconcile(ctx)

	var out []Listing

	for i := range r.slots {
		job := &r.slots[i]
		if !job.Active {
			continue
		}

		out = append(out, Listing{
			Slot:    i + 1,
			Command: job.Command,
			PIDs:    slices.Clone(job.PIDs),
		})
	}

	return out
}

func (r *Registry) release(ctx context.Context, idx int) {
	job := &r.slots[idx]

	for _, fd := range job.streams {
		proc.Close(fd)
	}

	if job.out != nil {
		_ = job.out.Close()
	}

	r.slots[idx] = Job{}
	r.count--

	ctxlog.Debug(ctx, "job finished", "slot", idx+1)
}

// Close releases every stream and log file held by the registry. The
// processes themselves are left running.
func (r *Registry) Close() error {
	var errs []error

	for i := range r.slots {
		job := &r.slots[i]

		for _, fd := range job.streams {
			proc.Close(fd)
		}

		job.streams = nil

		if job.out != nil {
			if err := job.out.Close(); err != nil {
				errs = append(errs, err)
			}

			job.out = nil
		}
	}

	return errors.Join(errs...)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
