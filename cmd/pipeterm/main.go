// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the pipeterm command-line interface (CLI).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/pipeterm"
	"github.com/matt-FFFFFF/pipeterm/cmd/pipeterm/config"
	"github.com/matt-FFFFFF/pipeterm/cmd/pipeterm/line"
	"github.com/matt-FFFFFF/pipeterm/cmd/pipeterm/shell"
	"github.com/matt-FFFFFF/pipeterm/cmd/pipeterm/ui"
	"github.com/matt-FFFFFF/pipeterm/cmd/pipeterm/watch"
	"github.com/matt-FFFFFF/pipeterm/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeterm/internal/signalbroker"
	"github.com/urfave/cli/v3"
)

// rootCmd is the root command for the CLI.
var rootCmd = &cli.Command{
	Commands: []*cli.Command{
		ui.TUICmd,
		line.LineCmd,
		watch.WatchCmd,
		config.ConfigCmd,
	},
	DefaultCommand: ui.TUICmd.Name,
	Flags:          shell.Flags(),
	Before:         shell.Before,
	After:          shell.After,
	Writer:         os.Stdout,
	ErrWriter:      os.Stderr,
	Name:           "pipeterm",
	Description: `pipeterm is an interactive shell. It runs pipelines with file redirection,
keeps them responsive while they produce output, moves them to the background
with Ctrl+Z and watches several commands at once with multiWatch.`,
	Usage:     "pipeterm [tui|line|watch|config]",
	Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
	Authors: []any{
		"Matt White (matt-FFFFFF)",
	},
	EnableShellCompletion: true,
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)
	defer cancel()

	sigCh := signalbroker.New(ctx)

	go signalbroker.Watch(ctx, sigCh, cancel)

	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", pipeterm.Version, pipeterm.Commit)

	err := rootCmd.Run(ctx, os.Args) // Err is handled by cli framework

	if ctx.Err() != nil {
		ctxlog.Logger(ctx).Error("command terminated due to cancellation", "error", ctx.Err())
		os.Exit(1)
	}

	if err != nil {
		ctxlog.Logger(ctx).Error("command execution failed", "error", err)
		os.Exit(1)
	}
}
