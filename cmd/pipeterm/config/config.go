// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config is the config command.
package config

import (
	"context"
	"fmt"

	"github.com/matt-FFFFFF/pipeterm/cmd/pipeterm/shell"
	appconfig "github.com/matt-FFFFFF/pipeterm/internal/config"
	"github.com/urfave/cli/v3"
)

const pathFlag = "path"

// ConfigCmd prints the effective configuration.
var ConfigCmd = &cli.Command{
	Name:  "config",
	Usage: "Print the effective configuration as YAML",
	Description: `Loads the configuration the shell would use, validates it and prints it.
Without --config the default file is read if it exists, otherwise the
built-in defaults are shown.`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  pathFlag,
			Usage: "Print the default configuration file location instead",
		},
	},
	Action: actionFunc,
}

func actionFunc(_ context.Context, cmd *cli.Command) error {
	if cmd.Bool(pathFlag) {
		_, err := fmt.Fprintln(cmd.Root().Writer, appconfig.DefaultPath())
		return err //nolint:wrapcheck
	}

	cfg, err := shell.LoadConfig(cmd)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	out, err := cfg.YAML()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	_, err = cmd.Root().Writer.Write(out)

	return err //nolint:wrapcheck
}
