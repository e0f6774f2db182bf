// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ui is the tui command: the full-screen shell.
package ui

import (
	"context"

	"github.com/matt-FFFFFF/pipeterm/cmd/pipeterm/shell"
	"github.com/matt-FFFFFF/pipeterm/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeterm/internal/engine"
	"github.com/matt-FFFFFF/pipeterm/internal/sink"
	"github.com/matt-FFFFFF/pipeterm/internal/tui"
	"github.com/urfave/cli/v3"
)

// TUICmd runs the full-screen shell.
var TUICmd = &cli.Command{
	Name:  "tui",
	Usage: "Run the full-screen shell (default)",
	Description: `Runs the shell in the terminal's alternate screen. Output of the running
pipeline scrolls above the input line while you keep typing. Child processes
read from /dev/null because the terminal belongs to the shell.`,
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	// The screen belongs to the TUI, so logs go to a file or nowhere.
	if !shell.LoggingToFile(cmd) {
		ctx = ctxlog.New(ctx, ctxlog.DiscardLogger)
	}

	cfg, err := shell.LoadConfig(cmd)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	sb := sink.NewScrollback(cfg.ScrollbackBytes)

	sh, err := shell.Open(ctx, cmd, cfg, engine.Options{Sink: sb})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	runErr := tui.NewRunner(ctx, sh.Engine, sb, cfg.Tick).Run()

	if err := sh.Close(ctx); err != nil {
		ctxlog.Warn(ctx, "shutdown", "error", err)
	}

	return runErr
}
