// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/pipeterm/internal/engine"
	"github.com/matt-FFFFFF/pipeterm/internal/sink"
)

// Runner owns the bubbletea program hosting an engine.
type Runner struct {
	model   *Model
	program *tea.Program
}

// NewRunner creates a full-screen runner for e, which must write to sb.
// Additional program options are passed to bubbletea, mostly for tests.
func NewRunner(ctx context.Context, e *engine.Engine, sb *sink.Scrollback, tick time.Duration, opts ...tea.ProgramOption) *Runner {
	model := NewModel(ctx, e, sb, tick)

	opts = append([]tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	}, opts...)

	return &Runner{
		model:   model,
		program: tea.NewProgram(model, opts...),
	}
}

// Model returns the runner's model.
func (r *Runner) Model() *Model {
	return r.model
}

// Run blocks until the user quits or ctx is cancelled. Cancellation is not
// an error.
func (r *Runner) Run() error {
	_, err := r.program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}

	return err //nolint:wrapcheck
}

// Quit asks the program to exit. It is safe to call from any goroutine.
func (r *Runner) Quit() {
	r.program.Quit()
}
