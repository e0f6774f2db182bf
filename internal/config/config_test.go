// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"

	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memFs(t *testing.T, files map[string]string) {
	t.Helper()

	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o600))
	}

	stubs := gostub.Stub(&FsFactory, func() afero.Fs { return fs })
	t.Cleanup(stubs.Reset)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ConflictReject, cfg.ForegroundConflict)
	assert.Equal(t, OutputDetach, cfg.BackgroundOutput)
	assert.Equal(t, 16*time.Millisecond, cfg.Tick)
	assert.Equal(t, 200*time.Millisecond, cfg.WatchPoll)
	assert.Equal(t, "/bin/sh", cfg.Shell)
	assert.False(t, cfg.QuoteAwarePipes)
}

func TestLoadYAML(t *testing.T) {
	memFs(t, map[string]string{"/etc/pipeterm.yaml": `
history_file: /tmp/hist
history_capacity: 500
tick: 10ms
watch_poll: 50ms
foreground_conflict: replace
background_output: logfile
job_log_dir: /tmp/jobs
quote_aware_pipes: true
`})

	cfg, err := Load("/etc/pipeterm.yaml", false)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/hist", cfg.HistoryFile)
	assert.Equal(t, 500, cfg.HistoryCapacity)
	assert.Equal(t, 10*time.Millisecond, cfg.Tick)
	assert.Equal(t, 50*time.Millisecond, cfg.WatchPoll)
	assert.Equal(t, ConflictReplace, cfg.ForegroundConflict)
	assert.Equal(t, OutputLogFile, cfg.BackgroundOutput)
	assert.Equal(t, "/tmp/jobs", cfg.JobLogDir)
	assert.True(t, cfg.QuoteAwarePipes)
	assert.Equal(t, 1<<20, cfg.ScrollbackBytes, "unset values keep their default")
}

func TestLoadHCL(t *testing.T) {
	memFs(t, map[string]string{"/etc/pipeterm.hcl": `
scrollback_bytes  = 65536
background_output = "discard"
shell             = "/bin/bash"
`})

	cfg, err := Load("/etc/pipeterm.hcl", false)
	require.NoError(t, err)
	assert.Equal(t, 65536, cfg.ScrollbackBytes)
	assert.Equal(t, OutputDiscard, cfg.BackgroundOutput)
	assert.Equal(t, "/bin/bash", cfg.Shell)
	assert.Equal(t, 10000, cfg.HistoryCapacity)
}

func TestLoadMissing(t *testing.T) {
	memFs(t, nil)

	cfg, err := Load("/nope/config.yaml", true)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load("/nope/config.yaml", false)
	require.ErrorIs(t, err, ErrReadConfig)
}

func TestLoadErrors(t *testing.T) {
	memFs(t, map[string]string{
		"/bad.yaml":    "tick: [unclosed\n",
		"/bad.hcl":     "tick = \n",
		"/config.toml": "tick = 1",
		"/dur.yaml":    "tick: soon\nwatch_poll: later\n",
		"/range.yaml":  "tick: 2s\nhistory_capacity: -4\nforeground_conflict: queue\n",
	})

	_, err := Load("/bad.yaml", false)
	require.ErrorIs(t, err, ErrParseConfig)

	_, err = Load("/bad.hcl", false)
	require.ErrorIs(t, err, ErrParseConfig)

	_, err = Load("/config.toml", false)
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load("/dur.yaml", false)
	require.ErrorIs(t, err, ErrParseConfig)
	assert.Contains(t, err.Error(), "tick")
	assert.Contains(t, err.Error(), "watch_poll", "every bad duration is reported")

	_, err = Load("/range.yaml", false)
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "tick")
	assert.Contains(t, err.Error(), "history_capacity")
	assert.Contains(t, err.Error(), "foreground_conflict")
}

func TestValidateLogDirRequired(t *testing.T) {
	cfg := Default()
	cfg.BackgroundOutput = OutputLogFile
	cfg.JobLogDir = ""

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "job_log_dir")
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, "/xdg/pipeterm/config.yaml", DefaultPath())

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/ada")
	assert.Equal(t, "/home/ada/.config/pipeterm/config.yaml", DefaultPath())
}

func TestYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Tick = 20 * time.Millisecond
	cfg.QuoteAwarePipes = true

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "tick: 20ms")
	assert.Contains(t, string(out), "quote_aware_pipes: true")

	memFs(t, map[string]string{"/round.yaml": string(out)})

	back, err := Load("/round.yaml", false)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
