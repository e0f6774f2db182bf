// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package shellparse

import (
	"strings"
)

const (
	// WatchKeyword introduces a multi-command monitor invocation.
	WatchKeyword = "multiWatch"
	// MaxWatch is the maximum number of commands a monitor runs at once.
	MaxWatch = 64
)

// LineKind classifies a submitted line.
type LineKind int

const (
	// LineEmpty is a line with nothing to run.
	LineEmpty LineKind = iota
	// LinePipeline is a built-in or an external pipeline.
	LinePipeline
	// LineWatch is a multiWatch invocation.
	LineWatch
)

// String implements the Stringer interface for LineKind.
func (k LineKind) String() string {
	switch k {
	case LineEmpty:
		return "empty"
	case LinePipeline:
		return "pipeline"
	case LineWatch:
		return "watch"
	default:
		return "unknown"
	}
}

// Line is a normalized submission.
type Line struct {
	Text       string   // Normalized text without the background marker.
	Background bool     // The line ended with `&`.
	Kind       LineKind // What the engine should do with it.
	WatchArgs  string   // For LineWatch, the text after the keyword.
}

// NormalizeLine maps line breaks to spaces, trims the text and collapses runs
// of blanks so that multi-line input runs as a single command line.
func NormalizeLine(text string) string {
	text = strings.NewReplacer("\r", " ", "\n", " ").Replace(text)

	var b strings.Builder

	b.Grow(len(text))

	inSpace := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == ' ' || c == '\t' {
			if !inSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}

			inSpace = true

			continue
		}

		b.WriteByte(c)

		inSpace = false
	}

	return strings.TrimRight(b.String(), " ")
}

// Classify normalizes text and works out what kind of submission it is.
func Classify(text string) Line {
	text = NormalizeLine(text)

	l := Line{}

	if strings.HasSuffix(text, "&") {
		l.Background = true
		text = strings.TrimRight(strings.TrimSuffix(text, "&"), " ")
	}

	l.Text = text

	switch {
	case text == "":
		l.Kind = LineEmpty
	case strings.HasPrefix(text, WatchKeyword):
		l.Kind = LineWatch
		l.WatchArgs = strings.TrimLeft(text[len(WatchKeyword):], " \t")
	default:
		l.Kind = LinePipeline
	}

	return l
}

// ParseWatchList extracts the double quoted commands of a monitor invocation
// such as `["cmd1", "cmd2"]`. Anything outside quotes is ignored.
func ParseWatchList(args string) []string {
	var cmds []string

	p := 0
	n := len(args)

	for p < n && len(cmds) < MaxWatch {
		for p < n && args[p] != '"' {
			p++
		}

		if p >= n {
			break
		}

		p++
		start := p

		for p < n && args[p] != '"' {
			p++
		}

		cmds = append(cmds, args[start:p])

		if p < n {
			p++
		}
	}

	return cmds
}
