// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package line is the line command: the shell on a plain terminal line,
// with the terminal handed to the running pipeline.
package line

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/matt-FFFFFF/pipeterm/cmd/pipeterm/shell"
	"github.com/matt-FFFFFF/pipeterm/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeterm/internal/engine"
	"github.com/matt-FFFFFF/pipeterm/internal/proc"
	"github.com/matt-FFFFFF/pipeterm/internal/signalbroker"
	"github.com/matt-FFFFFF/pipeterm/internal/sink"
	"github.com/peterh/liner"
	"github.com/urfave/cli/v3"
)

// ErrReadLine is returned when the terminal cannot be read.
var ErrReadLine = errors.New("cannot read input")

// Prompter reads lines from the user.
type Prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// LineCmd runs the shell on the terminal line.
var LineCmd = &cli.Command{
	Name:  "line",
	Usage: "Run the shell on a plain terminal line",
	Description: `Reads one line at a time and runs it with the terminal as the pipeline's
stdin and stderr. Ctrl+C interrupts the running pipeline, Ctrl+Z moves it to
the background and Ctrl+D at an empty prompt exits.`,
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	cfg, err := shell.LoadConfig(cmd)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	sh, err := shell.Open(ctx, cmd, cfg, engine.Options{
		Sink:   sink.NewWriter(cmd.Root().Writer),
		Stdin:  os.Stdin,
		Stderr: os.Stderr,
	})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	defer func() {
		if err := sh.Close(ctx); err != nil {
			ctxlog.Warn(ctx, "shutdown", "error", err)
		}
	}()

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	sigCh := signalbroker.New(ctx, signalbroker.JobControlSignals...)
	defer signalbroker.Stop(sigCh)

	go signalbroker.Forward(ctx, sigCh, sh.Engine.Flags(), stop)

	ln := liner.NewLiner()

	defer func() {
		_ = ln.Close()
	}()

	ln.SetCtrlCAborts(true)

	for _, l := range sh.Engine.History().Lines() {
		ln.AppendHistory(l)
	}

	return Loop(ctx, ln, sh.Engine, cfg.Tick)
}

// Loop reads and runs lines until end of input or until ctx is done. Each
// line runs to completion, or until it is interrupted or backgrounded,
// before the next prompt.
func Loop(ctx context.Context, p Prompter, e *engine.Engine, tick time.Duration) error {
	for ctx.Err() == nil {
		text, err := p.Prompt(e.Prompt())

		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return errors.Join(ErrReadLine, err)
		}

		if strings.TrimSpace(text) != "" {
			p.AppendHistory(text)
		}

		if err := e.Submit(ctx, text); err != nil {
			if errors.Is(err, proc.ErrCouldNotStartProcess) || errors.Is(err, proc.ErrFailedToCreatePipe) {
				ctxlog.Error(ctx, "cannot launch pipeline", "command", text, "error", err)
				e.Sink().AppendString("pipeterm: " + proc.Reason(err) + "\n")
			}

			continue
		}

		Wait(ctx, e, tick)
	}

	return nil
}

// Wait pumps e every tick until nothing holds the foreground. If ctx is done
// first the foreground is interrupted.
func Wait(ctx context.Context, e *engine.Engine, tick time.Duration) {
	if !e.Busy() {
		return
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		e.Pump(ctx)

		if !e.Busy() {
			return
		}

		select {
		case <-ctx.Done():
			e.Interrupt(ctx)
			return
		case <-ticker.C:
		}
	}
}
