// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"strings"
	"syscall"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/pipeterm/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeterm/internal/engine"
	"github.com/matt-FFFFFF/pipeterm/internal/history"
	"github.com/matt-FFFFFF/pipeterm/internal/proc"
	"github.com/matt-FFFFFF/pipeterm/internal/sink"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T) (*Model, *sink.Scrollback) {
	t.Helper()

	ctx := ctxlog.New(context.Background(), ctxlog.DiscardLogger)
	sb := sink.NewScrollback(1 << 16)

	e, err := engine.New(engine.Options{
		Sink:    sb,
		History: history.New(afero.NewMemMapFs(), "", 0),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, e.Close(ctx))
	})

	m := NewModel(ctx, e, sb, time.Millisecond)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	return m, sb
}

func typeText(m *Model, text string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func press(m *Model, k tea.KeyType) tea.Cmd {
	_, cmd := m.Update(tea.KeyMsg{Type: k})
	return cmd
}

// tickUntilIdle pumps the engine the way the program's tick would.
func tickUntilIdle(t *testing.T, m *Model) {
	t.Helper()

	require.Eventually(t, func() bool {
		m.Update(TickMsg(time.Now()))
		return !m.engine.Busy()
	}, 10*time.Second, time.Millisecond)
}

func TestNewModel(t *testing.T) {
	m, _ := newTestModel(t)

	assert.Equal(t, 22, m.viewport.Height, "status bar and input line are reserved")
	assert.Equal(t, 80, m.viewport.Width)
	assert.Equal(t, -1, m.recall)
	assert.False(t, m.Searching())
	assert.Contains(t, m.input.Prompt, "> ")
}

func TestModel_GetViewportHeight(t *testing.T) {
	m, _ := newTestModel(t)

	m.height = 1
	assert.Equal(t, 1, m.getViewportHeight(), "never below one line")

	m.height = 10
	assert.Equal(t, 8, m.getViewportHeight())
}

func TestModel_SubmitShowsOutput(t *testing.T) {
	m, sb := newTestModel(t)

	typeText(m, "echo hello from tui")
	assert.Equal(t, "echo hello from tui", m.Input())

	press(m, tea.KeyEnter)
	assert.Empty(t, m.Input(), "input is cleared on submit")

	tickUntilIdle(t, m)

	assert.Equal(t, "hello from tui\n", sb.String())
	assert.Contains(t, m.View(), "hello from tui")
}

func TestModel_TickKeepsTicking(t *testing.T) {
	m, _ := newTestModel(t)

	_, cmd := m.Update(TickMsg(time.Now()))
	require.NotNil(t, cmd, "every tick schedules the next one")

	msg := cmd()
	assert.IsType(t, TickMsg{}, msg)
}

func TestModel_CtrlC(t *testing.T) {
	m, sb := newTestModel(t)

	typeText(m, "half typed")
	press(m, tea.KeyCtrlC)
	assert.Empty(t, m.Input(), "idle Ctrl+C clears the input")
	assert.Empty(t, sb.String())

	typeText(m, "sleep 30")
	press(m, tea.KeyEnter)
	require.True(t, m.engine.Busy())
	assert.Contains(t, m.View(), "[running]")

	press(m, tea.KeyCtrlC)
	assert.False(t, m.engine.Busy())
	assert.Equal(t, engine.MsgInterrupted, sb.String())
}

func TestModel_CtrlZ(t *testing.T) {
	m, sb := newTestModel(t)

	typeText(m, "sleep 30")
	press(m, tea.KeyEnter)
	pid := m.engine.Capture().Foreground

	press(m, tea.KeyCtrlZ)
	assert.False(t, m.engine.Busy())
	assert.True(t, strings.HasPrefix(sb.String(), "^Z\n[1] "))
	assert.Contains(t, m.renderStatusBar(), "1 background job(s)")

	job, ok := m.engine.Registry().Job(1)
	require.True(t, ok)
	assert.Equal(t, []int{pid}, job.PIDs)

	_ = proc.Signal(pid, syscall.SIGKILL)
	proc.WaitBlocking(pid)
}

func TestModel_HistoryRecall(t *testing.T) {
	m, _ := newTestModel(t)

	for _, cmd := range []string{"help", "jobs"} {
		typeText(m, cmd)
		press(m, tea.KeyEnter)
	}

	typeText(m, "draft")

	press(m, tea.KeyUp)
	assert.Equal(t, "jobs", m.Input())

	press(m, tea.KeyUp)
	assert.Equal(t, "help", m.Input())

	press(m, tea.KeyUp)
	assert.Equal(t, "help", m.Input(), "stops at the oldest entry")

	press(m, tea.KeyDown)
	assert.Equal(t, "jobs", m.Input())

	press(m, tea.KeyDown)
	assert.Equal(t, "draft", m.Input(), "the draft comes back past the newest entry")
}

func TestModel_HistorySearch(t *testing.T) {
	m, sb := newTestModel(t)

	typeText(m, "echo needle")
	press(m, tea.KeyEnter)
	tickUntilIdle(t, m)
	sb.Clear()

	press(m, tea.KeyCtrlR)
	require.True(t, m.Searching())
	assert.Contains(t, m.input.Prompt, SearchPrompt)

	typeText(m, "needle")
	press(m, tea.KeyEnter)
	assert.False(t, m.Searching())
	assert.Equal(t, "echo needle\n", sb.String())

	sb.Clear()
	press(m, tea.KeyCtrlR)
	typeText(m, "zzzz")
	press(m, tea.KeyEnter)
	assert.Equal(t, engine.MsgNoHistoryMatch, sb.String())

	sb.Clear()
	press(m, tea.KeyCtrlR)
	typeText(m, "needle")
	press(m, tea.KeyEsc)
	assert.False(t, m.Searching())
	assert.Empty(t, sb.String(), "a cancelled search prints nothing")
}

func TestModel_CtrlD(t *testing.T) {
	m, _ := newTestModel(t)

	typeText(m, "x")
	assert.Nil(t, press(m, tea.KeyCtrlD), "ignored with pending input")

	press(m, tea.KeyCtrlC)

	cmd := press(m, tea.KeyCtrlD)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestModel_ClearBuiltin(t *testing.T) {
	m, sb := newTestModel(t)

	sb.AppendString("old\n")
	m.Update(TickMsg(time.Now()))
	assert.Contains(t, m.View(), "old")

	typeText(m, "clear")
	press(m, tea.KeyEnter)
	assert.NotContains(t, m.View(), "old")
}
