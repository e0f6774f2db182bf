// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/matt-FFFFFF/pipeterm/cmd/pipeterm/shell"
	appconfig "github.com/matt-FFFFFF/pipeterm/internal/config"
	"github.com/matt-FFFFFF/pipeterm/internal/ctxlog"
	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := &cli.Command{
		Name:           "pipeterm",
		Flags:          shell.Flags(),
		Commands:       []*cli.Command{ConfigCmd},
		Writer:         &out,
		ErrWriter:      io.Discard,
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}

	ctx := ctxlog.New(context.Background(), ctxlog.DiscardLogger)
	err := root.Run(ctx, append([]string{"pipeterm"}, args...))

	return out.String(), err
}

func TestConfigPrintsEffectiveConfiguration(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/pipeterm.yaml", []byte("foreground_conflict: replace\n"), 0o600))

	stubs := gostub.Stub(&appconfig.FsFactory, func() afero.Fs { return fs })
	defer stubs.Reset()

	out, err := run(t, "--config", "/etc/pipeterm.yaml", "config")
	require.NoError(t, err)

	assert.Contains(t, out, "foreground_conflict: replace\n")
	assert.Contains(t, out, "shell: /bin/sh\n")
	assert.Contains(t, out, "tick: 16ms\n")
}

func TestConfigRejectsInvalidFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bad.yaml", []byte("background_output: sometimes\n"), 0o600))

	stubs := gostub.Stub(&appconfig.FsFactory, func() afero.Fs { return fs })
	defer stubs.Reset()

	_, err := run(t, "--config", "/bad.yaml", "config")

	var exit cli.ExitCoder
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 1, exit.ExitCode())
}

func TestConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	out, err := run(t, "config", "--path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "pipeterm", "config.yaml")+"\n", out)
}
