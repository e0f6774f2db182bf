// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/matt-FFFFFF/pipeterm/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeterm/internal/history"
	"github.com/matt-FFFFFF/pipeterm/internal/proc"
	"github.com/matt-FFFFFF/pipeterm/internal/shellparse"
	"github.com/matt-FFFFFF/pipeterm/internal/sink"
)

// HelpText is the output of the help built-in.
const HelpText = `
pipeterm
=================================

Built-in Commands:
  cd [dir]          Change directory
  clear             Clear the screen
  history           Show command history
  jobs              Show background jobs
  help              Show this help message
  multiWatch [...]  Run commands in parallel

I/O Redirection:
  cmd < file        Redirect input from file
  cmd > file        Redirect output to file (overwrite)
  cmd >> file       Redirect output to file (append)
  cmd1 | cmd2       Pipe output to next command
  cmd &             Run command in background

Keyboard Shortcuts:
  Ctrl+A            Move cursor to line start
  Ctrl+E            Move cursor to line end
  Ctrl+C            Interrupt running command
  Ctrl+Z            Move command to background
  Ctrl+R            Search command history
  Up/Down           Recall previous commands
  PageUp/PageDown   Scroll output
  Ctrl+D            Exit

Examples:
  ls -la | grep txt
  sort < input.txt > output.txt
  multiWatch ["cmd1", "cmd2"]

`

// MsgNoHistoryMatch is written when a history search finds nothing.
const MsgNoHistoryMatch = "No match for search term in history\n"

type builtin func(ctx context.Context, st shellparse.Stage)

func (e *Engine) builtin(name string) (builtin, bool) {
	switch name {
	case "cd":
		return e.cd, true
	case "history":
		return e.history, true
	case "clear":
		return e.clear, true
	case "help":
		return e.help, true
	case "jobs":
		return e.listJobs, true
	default:
		return nil, false
	}
}

// Execute runs p: a single-stage built-in runs here and now, anything else
// is launched.
func (e *Engine) Execute(ctx context.Context, p shellparse.Pipeline, command string) error {
	if p.Len() == 1 {
		if fn, ok := e.builtin(p.Stages[0].Name()); ok {
			ctxlog.Debug(ctx, "builtin", "name", p.Stages[0].Name())
			fn(ctx, p.Stages[0])

			return nil
		}
	}

	_, err := e.Launch(ctx, p, command)

	return err
}

func (e *Engine) cd(ctx context.Context, st shellparse.Stage) {
	dir := os.Getenv("HOME")
	if dir == "" {
		dir = "."
	}

	if len(st.Args) > 1 {
		dir = st.Args[1]
	}

	if err := os.Chdir(dir); err != nil {
		ctxlog.Debug(ctx, "cd failed", "dir", dir, "error", err)
		e.sink.AppendString(fmt.Sprintf("cd: %s: %s\n", dir, proc.Reason(err)))
	}
}

func (e *Engine) history(_ context.Context, _ shellparse.Stage) {
	var b strings.Builder

	for _, entry := range e.hist.Recent(history.ListWindow) {
		fmt.Fprintf(&b, "%d  %s\n", entry.Seq, entry.Line)
	}

	e.sink.AppendString(b.String())
}

func (e *Engine) clear(_ context.Context, _ shellparse.Stage) {
	if c, ok := e.sink.(sink.Clearer); ok {
		c.Clear()
	}
}

func (e *Engine) help(_ context.Context, _ shellparse.Stage) {
	e.sink.AppendString(HelpText)
}

func (e *Engine) listJobs(ctx context.Context, _ shellparse.Stage) {
	e.sink.AppendString(e.Jobs(ctx))
}

// Jobs reconciles the job table and returns the jobs listing.
func (e *Engine) Jobs(ctx context.Context) string {
	var b strings.Builder

	if c := e.capture; c != nil && c.Foreground > 0 {
		fmt.Fprintf(&b, "[fg]  Running                 (pid %d)\n", c.Foreground)
	}

	for _, l := range e.jobs.List(ctx) {
		fmt.Fprintf(&b, "[%d]  Running                 %s\n", l.Slot, l.Command)
	}

	e.metrics.Jobs(e.jobs.Count())

	if b.Len() == 0 {
		return "No jobs running\n"
	}

	return b.String()
}

// SearchHistory writes the history entries matching term to the sink.
func (e *Engine) SearchHistory(term string) []string {
	matches := e.hist.Search(term)
	if len(matches) == 0 {
		e.sink.AppendString(MsgNoHistoryMatch)
		return nil
	}

	e.sink.AppendString(strings.Join(matches, "\n") + "\n")

	return matches
}

// Prompt is the working directory, a running marker while the foreground is
// busy, and "> ".
func (e *Engine) Prompt() string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "?"
	}

	if e.Busy() {
		cwd += " [running]"
	}

	return cwd + "> "
}
