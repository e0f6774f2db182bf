// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package watch is the watch command: a multiWatch session outside the shell.
package watch

import (
	"context"
	"errors"

	"github.com/matt-FFFFFF/pipeterm/cmd/pipeterm/shell"
	"github.com/matt-FFFFFF/pipeterm/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeterm/internal/multiwatch"
	"github.com/matt-FFFFFF/pipeterm/internal/signalbroker"
	"github.com/matt-FFFFFF/pipeterm/internal/sink"
	"github.com/urfave/cli/v3"
)

// exitInterrupted is the conventional status of a process ended by SIGINT.
const exitInterrupted = 130

// WatchCmd runs commands in parallel and labels their output.
var WatchCmd = &cli.Command{
	Name:      "watch",
	Usage:     "Run commands in parallel and label each chunk of output",
	UsageText: `pipeterm watch "cmd1" "cmd2" ...`,
	Description: `Starts every argument with the configured shell and prints each chunk of
output under the command that produced it, with a timestamp. Ctrl+C stops
every command and waits for it; Ctrl+Z stops them and returns.`,
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	cfg, err := shell.LoadConfig(cmd)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	env, err := cfg.Environ()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	flags := &signalbroker.Flags{}

	sigCh := signalbroker.New(ctx, signalbroker.JobControlSignals...)
	defer signalbroker.Stop(sigCh)

	go signalbroker.Forward(ctx, sigCh, flags, stop)

	s, err := multiwatch.Start(ctx, cmd.Args().Slice(), multiwatch.Options{
		Shell:       cfg.Shell,
		PollTimeout: cfg.WatchPoll,
		Env:         env,
		Sink:        sink.NewWriter(cmd.Root().Writer),
	})
	if errors.Is(err, multiwatch.ErrNoCommands) {
		return cli.Exit("", 1)
	}

	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	outcome := s.Run(ctx, flags)
	ctxlog.Info(ctx, "watch finished", "session", s.ID(), "outcome", outcome.String())

	if outcome == multiwatch.Interrupted {
		return cli.Exit("", exitInterrupted)
	}

	return nil
}
