// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/pipeterm/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeterm/internal/proc"
)

// TickMsg asks the model to pump the engine.
type TickMsg time.Time

func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Init implements bubbletea.Model.Init.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.tickCmd(),
	)
}

// Update implements bubbletea.Model.Update.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TickMsg:
		m.engine.Pump(m.ctx)
		m.refresh(false)
		m.updatePrompt()

		return m, m.tickCmd()

	case tea.KeyMsg:
		cmd := m.handleKeyPress(msg)
		m.refresh(false)
		m.updatePrompt()

		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateViewportSize()

		return m, nil

	case tea.MouseMsg:
		var cmd tea.Cmd

		m.viewport, cmd = m.viewport.Update(msg)

		return m, cmd

	case tea.QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

// handleKeyPress processes keyboard input. Everything not bound here goes to
// the input line, which provides the usual editing keys.
func (m *Model) handleKeyPress(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		if m.searching {
			m.endSearch(true)
			return nil
		}

		m.submit()

		return nil

	case "ctrl+c":
		switch {
		case m.searching:
			m.endSearch(false)
		case m.engine.Busy():
			m.engine.Interrupt(m.ctx)
		default:
			m.resetInput()
		}

		return nil

	case "ctrl+z":
		m.engine.Suspend(m.ctx)
		return nil

	case "ctrl+r":
		if !m.searching {
			m.searching = true
			m.resetInput()
		}

		return nil

	case "esc":
		if m.searching {
			m.endSearch(false)
		}

		return nil

	case "ctrl+d":
		if m.engine.Busy() || m.input.Value() != "" {
			return nil
		}

		m.quitting = true

		return tea.Quit

	case "up":
		if !m.searching {
			m.recallStep(-1)
		}

		return nil

	case "down":
		if !m.searching {
			m.recallStep(1)
		}

		return nil

	case "pgup":
		m.viewport.ViewUp()
		return nil

	case "pgdown":
		m.viewport.ViewDown()
		return nil
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return cmd
}

func (m *Model) submit() {
	text := m.input.Value()
	m.resetInput()

	err := m.engine.Submit(m.ctx, text)

	switch {
	case err == nil:
	case errors.Is(err, proc.ErrCouldNotStartProcess), errors.Is(err, proc.ErrFailedToCreatePipe):
		ctxlog.Error(m.ctx, "cannot launch pipeline", "command", text, "error", err)
		m.engine.Sink().AppendString(fmt.Sprintf("pipeterm: %s\n", proc.Reason(err)))
	default:
		ctxlog.Debug(m.ctx, "submission not run", "command", text, "error", err)
	}

	m.viewport.GotoBottom()
}

func (m *Model) endSearch(run bool) {
	term := m.input.Value()

	m.searching = false
	m.resetInput()

	if run && strings.TrimSpace(term) != "" {
		m.engine.SearchHistory(term)
	}
}

// View implements bubbletea.Model.View.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var view strings.Builder

	view.WriteString(m.viewport.View())
	view.WriteString("\n")
	view.WriteString(m.renderStatusBar())
	view.WriteString("\n")
	view.WriteString(m.input.View())

	return view.String()
}

func (m *Model) renderStatusBar() string {
	var parts []string

	if m.engine.Watching() {
		parts = append(parts, m.styles.Running.Render("multiWatch running"))
	} else if c := m.engine.Capture(); c != nil {
		parts = append(parts, m.styles.Running.Render(fmt.Sprintf("running %q", c.Command)))
	}

	if n := m.engine.Registry().Count(); n > 0 {
		parts = append(parts, m.styles.Status.Render(fmt.Sprintf("%d background job(s)", n)))
	}

	help := "Ctrl+D exit, help for more"
	if m.engine.Busy() {
		help = "Ctrl+C interrupt, Ctrl+Z background"
	}

	parts = append(parts, m.styles.Help.Render(help))

	return strings.Join(parts, "  ")
}
