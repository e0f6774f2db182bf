// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package shell builds what the pipeterm hosts share from the command line:
// the configuration, the file logger, the metrics endpoint and the engine.
package shell

import (
	"context"
	"errors"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/pipeterm/internal/config"
	"github.com/matt-FFFFFF/pipeterm/internal/ctxlog"
	"github.com/matt-FFFFFF/pipeterm/internal/engine"
	"github.com/matt-FFFFFF/pipeterm/internal/history"
	"github.com/matt-FFFFFF/pipeterm/internal/metrics"
	"github.com/urfave/cli/v3"
)

const (
	// ConfigFlag names the configuration file.
	ConfigFlag = "config"
	// MetricsAddrFlag is the listen address of the metrics endpoint.
	MetricsAddrFlag = "metrics-addr"
	// LogFileFlag sends the log to a file instead of stderr.
	LogFileFlag = "log-file"
)

var (
	// ErrLoadConfig is returned when the configuration cannot be used.
	ErrLoadConfig = errors.New("cannot load configuration")
	// ErrOpenLog is returned when the log file cannot be opened.
	ErrOpenLog = errors.New("cannot open log file")
	// ErrStartEngine is returned when the engine cannot be created.
	ErrStartEngine = errors.New("cannot start shell engine")
)

// Flags returns the global flags of the pipeterm command.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:      ConfigFlag,
			Aliases:   []string{"c"},
			Usage:     "Read the configuration from this YAML or HCL file",
			TakesFile: true,
			Sources:   cli.EnvVars("PIPETERM_CONFIG"),
		},
		&cli.StringFlag{
			Name:  MetricsAddrFlag,
			Usage: "Serve Prometheus metrics on this address, for example 127.0.0.1:9464",
		},
		&cli.StringFlag{
			Name:      LogFileFlag,
			Usage:     "Write JSON logs to this file",
			TakesFile: true,
			Sources:   cli.EnvVars("PIPETERM_LOG_FILE"),
		},
	}
}

type logCloserKey struct{}

// Before installs the file logger when --log-file is given.
func Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String(LogFileFlag)
	if path == "" {
		return ctx, nil
	}

	logger, closer, err := ctxlog.NewFile(path)
	if err != nil {
		return ctx, errors.Join(ErrOpenLog, err)
	}

	ctx = ctxlog.New(ctx, logger)

	return context.WithValue(ctx, logCloserKey{}, closer), nil
}

// After closes the file logger installed by Before.
func After(ctx context.Context, _ *cli.Command) error {
	if closer, ok := ctx.Value(logCloserKey{}).(io.Closer); ok {
		return closer.Close() //nolint:wrapcheck
	}

	return nil
}

// LoggingToFile reports whether --log-file was given.
func LoggingToFile(cmd *cli.Command) bool {
	return cmd.String(LogFileFlag) != ""
}

// LoadConfig loads the file named by --config, or the default file if it
// exists.
func LoadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String(ConfigFlag)
	optional := path == ""

	if optional {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path, optional)
	if err != nil {
		return nil, errors.Join(ErrLoadConfig, err)
	}

	return cfg, nil
}

// Shell is an engine together with the services started for it.
type Shell struct {
	Config  *config.Config
	Engine  *engine.Engine
	Metrics *metrics.Metrics

	stopMetrics context.CancelFunc
	metricsDone <-chan error
}

// Open creates the engine for cfg. The history, metrics and child
// environment in opts are filled in here; the host provides the sink and
// the children's stdio.
func Open(ctx context.Context, cmd *cli.Command, cfg *config.Config, opts engine.Options) (*Shell, error) {
	env, err := cfg.Environ()
	if err != nil {
		return nil, errors.Join(ErrLoadConfig, err)
	}

	path := cfg.HistoryFile
	if path == "" {
		path = history.DefaultPath()
	}

	hist := history.New(config.FsFactory(), path, cfg.HistoryCapacity)
	if err := hist.Load(); err != nil {
		ctxlog.Warn(ctx, "cannot load history", "path", path, "error", err)
	}

	sh := &Shell{
		Config:  cfg,
		Metrics: metrics.New(),
	}

	if addr := cmd.String(MetricsAddrFlag); addr != "" {
		var mctx context.Context

		mctx, sh.stopMetrics = context.WithCancel(ctx)
		sh.metricsDone = sh.Metrics.Serve(mctx, addr)
	}

	opts.Config = cfg
	opts.History = hist
	opts.Metrics = sh.Metrics
	opts.Env = env

	sh.Engine, err = engine.New(opts)
	if err != nil {
		sh.stop()
		return nil, errors.Join(ErrStartEngine, err)
	}

	ctxlog.Debug(ctx, "shell opened", "history", path, "entries", hist.Len())

	return sh, nil
}

// Close shuts the engine down and stops the metrics endpoint.
func (s *Shell) Close(ctx context.Context) error {
	var result error

	if err := s.Engine.Close(ctx); err != nil {
		result = multierror.Append(result, err)
	}

	if err := s.stop(); err != nil {
		result = multierror.Append(result, err)
	}

	return result
}

func (s *Shell) stop() error {
	if s.stopMetrics == nil {
		return nil
	}

	s.stopMetrics()

	if err := <-s.metricsDone; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
