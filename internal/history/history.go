// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package history

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

const (
	// DefaultCapacity is the number of entries kept in memory.
	DefaultCapacity = 10000
	// ListWindow is the number of entries the history built-in prints.
	ListWindow = 1000
	// MinMatch is the shortest common substring Search accepts.
	MinMatch = 3
	// FileName is the name of the history file in the home directory.
	FileName = ".pipeterm_history"
)

var (
	// ErrReadHistory is returned when the history file exists but cannot be read.
	ErrReadHistory = errors.New("failed to read history file")
	// ErrWriteHistory is returned when a line cannot be appended to the history file.
	ErrWriteHistory = errors.New("failed to append to history file")
)

// Entry is one recorded line with its 1-based sequence number.
type Entry struct {
	Seq  int
	Line string
}

// Recorder is the command history. It is safe for concurrent use.
type Recorder struct {
	fs       afero.Fs
	path     string
	capacity int
	entries  []string
	mu       sync.RWMutex
}

// New creates a recorder persisting to path on fs. An empty path keeps the
// history in memory only. A capacity of zero or less selects DefaultCapacity.
func New(fs afero.Fs, path string, capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	if fs == nil {
		fs = afero.NewOsFs()
	}

	return &Recorder{
		fs:       fs,
		path:     path,
		capacity: capacity,
	}
}

// DefaultPath returns the history file location in the user's home directory,
// or an empty string when there is no home directory.
func DefaultPath() string {
	home := os.Getenv("HOME")
	if home == "" {
		return ""
	}

	return filepath.Join(home, FileName)
}

// Path returns the file the recorder persists to.
func (r *Recorder) Path() string {
	return r.path
}

// Load reads the whole history file into the ring. A missing file is not an error.
func (r *Recorder) Load() error {
	if r.path == "" {
		return nil
	}

	f, err := r.fs.Open(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return errors.Join(ErrReadHistory, err)
	}

	defer f.Close() //nolint:errcheck

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)

	for sc.Scan() {
		r.Add(strings.TrimRight(sc.Text(), "\r"))
	}

	if err := sc.Err(); err != nil {
		return errors.Join(ErrReadHistory, err)
	}

	return nil
}

// Add appends line to the ring only. Empty lines are ignored and the oldest
// entry is evicted once the ring is full.
func (r *Recorder) Add(line string) {
	if line == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) == r.capacity {
		copy(r.entries, r.entries[1:])
		r.entries = r.entries[:len(r.entries)-1]
	}

	r.entries = append(r.entries, line)
}

// Record adds line to the ring and appends it to the history file.
func (r *Recorder) Record(line string) error {
	if line == "" {
		return nil
	}

	r.Add(line)

	if r.path == "" {
		return nil
	}

	f, err := r.fs.OpenFile(r.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return errors.Join(ErrWriteHistory, err)
	}

	defer f.Close() //nolint:errcheck

	if _, err := f.Write([]byte(line + "\n")); err != nil {
		return errors.Join(ErrWriteHistory, err)
	}

	return nil
}

// Len returns the number of entries in the ring.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Lines returns a copy of every entry, oldest first.
func (r *Recorder) Lines() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.entries))
	copy(out, r.entries)

	return out
}

// Recent returns the last n entries, oldest first, numbered from 1 over the
// whole ring.
func (r *Recorder) Recent(n int) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	start := 0
	if n >= 0 && len(r.entries) > n {
		start = len(r.entries) - n
	}

	out := make([]Entry, 0, len(r.entries)-start)
	for i := start; i < len(r.entries); i++ {
		out = append(out, Entry{Seq: i + 1, Line: r.entries[i]})
	}

	return out
}
