// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package sink

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrollback_AppendAndLastLine(t *testing.T) {
	s := NewScrollback(0)

	s.AppendString("first line\nsecond ")
	assert.Equal(t, "first line", s.LastLine(0))
	assert.Equal(t, "second ", s.PartialLine())

	s.Append([]byte("half\nthird\n"))
	assert.Equal(t, "third", s.LastLine(0))
	assert.Empty(t, s.PartialLine())
	assert.Equal(t, "first line\nsecond half\nthird\n", s.String())
}

func TestScrollback_LastLineTruncation(t *testing.T) {
	s := NewScrollback(0)
	s.AppendString("a very long line of output\n")

	assert.Equal(t, "a very ...", s.LastLine(10))
	assert.Equal(t, "a very long line of output", s.LastLine(100))
}

func TestScrollback_Bounded(t *testing.T) {
	s := NewScrollback(8)

	s.AppendString("12345")
	assert.False(t, s.Truncated())

	s.AppendString("67890")
	assert.Equal(t, "12345678", s.String())
	assert.True(t, s.Truncated())

	v := s.Version()
	s.AppendString("more")
	assert.Equal(t, 8, s.Len())
	assert.Equal(t, v, s.Version(), "a full buffer does not change")
}

func TestScrollback_Clear(t *testing.T) {
	s := NewScrollback(4)
	s.AppendString("abcdef\n")
	s.Clear()

	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Truncated())
	assert.Empty(t, s.LastLine(0))

	s.AppendString("ok")
	assert.Equal(t, "ok", s.String())
}

func TestScrollback_BytesIsCopy(t *testing.T) {
	s := NewScrollback(0)
	s.AppendString("abc")

	b := s.Bytes()
	b[0] = 'x'

	assert.Equal(t, "abc", s.String())
}

func TestScrollback_Concurrent(t *testing.T) {
	s := NewScrollback(0)

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 100 {
				s.AppendString("x\n")
				_ = s.LastLine(0)
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 8*100*2, s.Len())
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer

	w := NewWriter(&buf)
	w.AppendString("hello ")
	w.Append([]byte("world"))
	Discard.AppendString("dropped")

	assert.Equal(t, "hello world", buf.String())
}
