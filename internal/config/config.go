// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/spf13/afero"
)

const (
	// ConflictReject refuses a new pipeline while one is in the foreground.
	ConflictReject = "reject"
	// ConflictReplace interrupts the running pipeline and launches the new one.
	ConflictReplace = "replace"

	// OutputDetach closes a backgrounded job's streams.
	OutputDetach = "detach"
	// OutputDiscard keeps reading a backgrounded job's streams and drops the data.
	OutputDiscard = "discard"
	// OutputLogFile keeps reading a backgrounded job's streams into a log file.
	OutputLogFile = "logfile"
)

var (
	// ErrReadConfig is returned when the configuration file cannot be read.
	ErrReadConfig = errors.New("cannot read configuration file")
	// ErrParseConfig is returned when the configuration file is malformed.
	ErrParseConfig = errors.New("cannot parse configuration file")
	// ErrUnsupportedFormat is returned for a file extension with no decoder.
	ErrUnsupportedFormat = errors.New("unsupported configuration format")
	// ErrInvalidConfig is returned when a value is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrEnvFile is returned when the env file cannot be read.
	ErrEnvFile = errors.New("cannot read env file")
)

// Config is the effective configuration.
type Config struct {
	HistoryFile        string        `yaml:"history_file"`
	HistoryCapacity    int           `yaml:"history_capacity" validate:"gte=1,lte=1000000"`
	ScrollbackBytes    int           `yaml:"scrollback_bytes" validate:"gte=4096"`
	Tick               time.Duration `yaml:"tick" validate:"gte=5ms,lte=1s"`
	WatchPoll          time.Duration `yaml:"watch_poll" validate:"gte=1ms,lte=1s"`
	ForegroundConflict string        `yaml:"foreground_conflict" validate:"oneof=reject replace"`
	BackgroundOutput   string        `yaml:"background_output" validate:"oneof=detach discard logfile"`
	JobLogDir          string        `yaml:"job_log_dir" validate:"required_if=BackgroundOutput logfile"`
	EnvFile            string        `yaml:"env_file"`
	Shell              string        `yaml:"shell" validate:"required,startswith=/"`
	QuoteAwarePipes    bool          `yaml:"quote_aware_pipes"`
}

// file is the on-disk shape. Durations are strings and unset values are zero.
type file struct {
	HistoryFile        string `yaml:"history_file,omitempty" hcl:"history_file,optional"`
	HistoryCapacity    int    `yaml:"history_capacity,omitempty" hcl:"history_capacity,optional"`
	ScrollbackBytes    int    `yaml:"scrollback_bytes,omitempty" hcl:"scrollback_bytes,optional"`
	Tick               string `yaml:"tick,omitempty" hcl:"tick,optional"`
	WatchPoll          string `yaml:"watch_poll,omitempty" hcl:"watch_poll,optional"`
	ForegroundConflict string `yaml:"foreground_conflict,omitempty" hcl:"foreground_conflict,optional"`
	BackgroundOutput   string `yaml:"background_output,omitempty" hcl:"background_output,optional"`
	JobLogDir          string `yaml:"job_log_dir,omitempty" hcl:"job_log_dir,optional"`
	EnvFile            string `yaml:"env_file,omitempty" hcl:"env_file,optional"`
	Shell              string `yaml:"shell,omitempty" hcl:"shell,optional"`
	QuoteAwarePipes    bool   `yaml:"quote_aware_pipes,omitempty" hcl:"quote_aware_pipes,optional"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HistoryCapacity:    10000,
		ScrollbackBytes:    1 << 20,
		Tick:               16 * time.Millisecond,
		WatchPoll:          200 * time.Millisecond,
		ForegroundConflict: ConflictReject,
		BackgroundOutput:   OutputDetach,
		JobLogDir:          filepath.Join(stateHome(), "pipeterm", "jobs"),
		Shell:              "/bin/sh",
	}
}

// DefaultPath is where the configuration file is looked for when none is named.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "pipeterm", "config.yaml")
	}

	return filepath.Join(home(), ".config", "pipeterm", "config.yaml")
}

func stateHome() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return dir
	}

	return filepath.Join(home(), ".local", "state")
}

func home() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}

	return "."
}

// Load reads and validates the configuration at path. When optional is true a
// missing file yields the defaults.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()

	data, err := afero.ReadFile(FsFactory(), path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return nil, errors.Join(ErrReadConfig, err)
	}

	var f file

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, errors.Join(ErrParseConfig, err)
		}
	case ".hcl":
		if err := hclsimple.Decode(path, data, nil, &f); err != nil {
			return nil, errors.Join(ErrParseConfig, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}

	if err := cfg.merge(f); err != nil {
		return nil, errors.Join(ErrParseConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// merge overlays the values set in f.
func (c *Config) merge(f file) error {
	var result error

	setString(&c.HistoryFile, f.HistoryFile)
	setString(&c.ForegroundConflict, f.ForegroundConflict)
	setString(&c.BackgroundOutput, f.BackgroundOutput)
	setString(&c.JobLogDir, f.JobLogDir)
	setString(&c.EnvFile, f.EnvFile)
	setString(&c.Shell, f.Shell)

	if f.HistoryCapacity != 0 {
		c.HistoryCapacity = f.HistoryCapacity
	}

	if f.ScrollbackBytes != 0 {
		c.ScrollbackBytes = f.ScrollbackBytes
	}

	if f.QuoteAwarePipes {
		c.QuoteAwarePipes = true
	}

	for _, d := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"tick", f.Tick, &c.Tick},
		{"watch_poll", f.WatchPoll, &c.WatchPoll},
	} {
		if d.raw == "" {
			continue
		}

		v, err := time.ParseDuration(d.raw)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", d.name, err))
			continue
		}

		*d.dst = v
	}

	return result
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks every value is within range. All problems are reported.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		return name
	})

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Join(ErrInvalidConfig, err)
	}

	var result *multierror.Error

	for _, fe := range verrs {
		result = multierror.Append(result, fmt.Errorf("%s: failed %q check (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}

	return errors.Join(ErrInvalidConfig, result)
}

// YAML renders the effective configuration in file form.
func (c *Config) YAML() ([]byte, error) {
	f := file{
		HistoryFile:        c.HistoryFile,
		HistoryCapacity:    c.HistoryCapacity,
		ScrollbackBytes:    c.ScrollbackBytes,
		Tick:               c.Tick.String(),
		WatchPoll:          c.WatchPoll.String(),
		ForegroundConflict: c.ForegroundConflict,
		BackgroundOutput:   c.BackgroundOutput,
		JobLogDir:          c.JobLogDir,
		EnvFile:            c.EnvFile,
		Shell:              c.Shell,
		QuoteAwarePipes:    c.QuoteAwarePipes,
	}

	out, err := yaml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal configuration: %w", err)
	}

	return out, nil
}
