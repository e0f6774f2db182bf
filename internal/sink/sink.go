// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package sink

import (
	"io"
	"sync"
)

// Sink receives output bytes. Implementations may drop bytes they cannot hold.
type Sink interface {
	Append(p []byte)
	AppendString(s string)
}

// Clearer is implemented by sinks that can be emptied on request.
type Clearer interface {
	Clear()
}

// Discard is a sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Append([]byte)       {}
func (discard) AppendString(string) {}

// WriterSink forwards appended bytes to an io.Writer. Write errors are dropped,
// a sink has no way to report them.
type WriterSink struct {
	w  io.Writer
	mu sync.Mutex
}

// NewWriter returns a sink that writes straight through to w.
func NewWriter(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Append implements Sink.
func (s *WriterSink) Append(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.w.Write(p)
}

// AppendString implements Sink.
func (s *WriterSink) AppendString(str string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = io.WriteString(s.w, str)
}

// Clear writes the ANSI sequence that clears a terminal and homes the cursor.
func (s *WriterSink) Clear() {
	s.AppendString("\033[H\033[2J")
}
