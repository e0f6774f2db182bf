// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/pipeterm/internal/engine"
	"github.com/matt-FFFFFF/pipeterm/internal/sink"
)

const (
	// reservedLines is the status bar plus the input line.
	reservedLines = 2
	// DefaultTick is used when the model is given a non-positive tick.
	DefaultTick = 16 * time.Millisecond
	// SearchPrompt replaces the prompt while a history search is typed.
	SearchPrompt = "(reverse-i-search): "
)

// Model is the bubbletea model of the shell host.
type Model struct {
	ctx        context.Context
	engine     *engine.Engine
	scrollback *sink.Scrollback
	tick       time.Duration

	input    textinput.Model
	viewport viewport.Model
	styles   *Styles

	width  int
	height int

	// version is the scrollback version last copied into the viewport.
	version uint64

	// recall indexes the history line shown in the input, -1 when the user
	// is editing their own draft.
	recall int
	draft  string

	searching bool
	quitting  bool
}

// Styles contains all the styling for the TUI.
type Styles struct {
	Prompt  lipgloss.Style
	Running lipgloss.Style
	Search  lipgloss.Style
	Status  lipgloss.Style
	Help    lipgloss.Style
}

// NewStyles creates the default styling for the TUI.
func NewStyles() *Styles {
	return &Styles{
		Prompt: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")),
		Running: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true),
		Search: lipgloss.NewStyle().
			Foreground(lipgloss.Color("13")).
			Bold(true),
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
	}
}

// NewModel creates a model driving e. The engine must write to sb.
func NewModel(ctx context.Context, e *engine.Engine, sb *sink.Scrollback, tick time.Duration) *Model {
	if tick <= 0 {
		tick = DefaultTick
	}

	input := textinput.New()
	input.Focus()

	m := &Model{
		ctx:        ctx,
		engine:     e,
		scrollback: sb,
		tick:       tick,
		input:      input,
		viewport:   viewport.New(0, 0),
		styles:     NewStyles(),
		recall:     -1,
	}

	m.updatePrompt()

	return m
}

// Input returns the text currently in the input line.
func (m *Model) Input() string {
	return m.input.Value()
}

// Searching reports whether the input line holds a history search term.
func (m *Model) Searching() bool {
	return m.searching
}

// getViewportHeight returns the available height for the scrollback.
func (m *Model) getViewportHeight() int {
	if m.height <= reservedLines {
		return 1
	}

	return m.height - reservedLines
}

func (m *Model) updateViewportSize() {
	m.viewport.Width = m.width
	m.viewport.Height = m.getViewportHeight()
	m.input.Width = max(m.width-lipgloss.Width(m.input.Prompt)-1, 1)
	m.refresh(true)
}

// refresh copies the scrollback into the viewport when it has changed. The
// view follows new output unless the user has scrolled away from the end.
func (m *Model) refresh(force bool) {
	v := m.scrollback.Version()
	if v == m.version && !force {
		return
	}

	follow := m.viewport.AtBottom() || m.version == 0

	m.version = v
	m.viewport.SetContent(m.scrollback.String())

	if follow {
		m.viewport.GotoBottom()
	}
}

func (m *Model) updatePrompt() {
	if m.searching {
		m.input.Prompt = m.styles.Search.Render(SearchPrompt)
		return
	}

	m.input.Prompt = m.styles.Prompt.Render(m.engine.Prompt())
}

// recallStep moves through the history by delta, -1 for older.
func (m *Model) recallStep(delta int) {
	lines := m.engine.History().Lines()
	if len(lines) == 0 {
		return
	}

	switch {
	case m.recall < 0 && delta > 0:
		return
	case m.recall < 0:
		m.draft = m.input.Value()
		m.recall = len(lines)
	}

	m.recall += delta

	switch {
	case m.recall < 0:
		m.recall = 0
	case m.recall >= len(lines):
		m.recall = -1
		m.input.SetValue(m.draft)
		m.input.CursorEnd()

		return
	}

	m.input.SetValue(lines[m.recall])
	m.input.CursorEnd()
}

func (m *Model) resetInput() {
	m.input.Reset()
	m.recall = -1
	m.draft = ""
}
