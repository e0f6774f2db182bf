// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package sink

import (
	"bytes"
	"strings"
	"sync"
)

// DefaultScrollback is the default capacity of a Scrollback in bytes.
const DefaultScrollback = 1 << 20

const ellipsis = "..."

// Scrollback is a bounded output buffer that also keeps track of the last
// complete line, for status displays. Appends beyond the capacity are dropped.
// It is safe for concurrent use.
type Scrollback struct {
	buf            bytes.Buffer
	capacity       int
	lastLine       string
	partialBuilder strings.Builder
	truncated      bool
	version        uint64
	mu             sync.RWMutex
}

var (
	_ Sink    = (*Scrollback)(nil)
	_ Clearer = (*Scrollback)(nil)
)

// NewScrollback creates a scrollback holding at most capacity bytes.
// A capacity of zero or less selects DefaultScrollback.
func NewScrollback(capacity int) *Scrollback {
	if capacity <= 0 {
		capacity = DefaultScrollback
	}

	return &Scrollback{capacity: capacity}
}

// Append implements Sink.
func (s *Scrollback) Append(p []byte) {
	if len(p) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.capacity - s.buf.Len()
	if room <= 0 {
		s.truncated = true
		return
	}

	if len(p) > room {
		p = p[:room]
		s.truncated = true
	}

	s.buf.Write(p)
	s.processNewData(string(p))
	s.version++
}

// AppendString implements Sink.
func (s *Scrollback) AppendString(str string) {
	s.Append([]byte(str))
}

// processNewData updates the last line based on new data.
// Must be called with the write lock held.
func (s *Scrollback) processNewData(data string) {
	s.partialBuilder.WriteString(data)
	combined := s.partialBuilder.String()

	lines := strings.Split(combined, "\n")
	if len(lines) == 1 {
		return
	}

	s.lastLine = lines[len(lines)-2]
	s.partialBuilder.Reset()
	s.partialBuilder.WriteString(lines[len(lines)-1])
}

// Clear implements Clearer.
func (s *Scrollback) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf.Reset()
	s.lastLine = ""
	s.partialBuilder.Reset()
	s.truncated = false
	s.version++
}

// Bytes returns a copy of the buffered output.
func (s *Scrollback) Bytes() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return bytes.Clone(s.buf.Bytes())
}

// String returns the buffered output as a string.
func (s *Scrollback) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.buf.String()
}

// Len returns the number of buffered bytes.
func (s *Scrollback) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.buf.Len()
}

// Truncated reports whether any bytes have been dropped since the last Clear.
func (s *Scrollback) Truncated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.truncated
}

// Version increases on every change, so a renderer can skip unchanged frames.
func (s *Scrollback) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.version
}

// LastLine returns the last complete line. If maxLength > 0 longer lines are
// cut and end in "...".
func (s *Scrollback) LastLine(maxLength int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := s.lastLine
	if maxLength > len(ellipsis) && len(result) > maxLength {
		result = result[:maxLength-len(ellipsis)] + ellipsis
	}

	return result
}

// PartialLine returns the text after the last newline.
func (s *Scrollback) PartialLine() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.partialBuilder.String()
}
