// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
)

// Environ returns the environment for spawned commands: the process
// environment overlaid with the pairs from EnvFile, if one is set.
func (c *Config) Environ() ([]string, error) {
	base := os.Environ()

	if c.EnvFile == "" {
		return base, nil
	}

	f, err := FsFactory().Open(c.EnvFile)
	if err != nil {
		return nil, errors.Join(ErrEnvFile, err)
	}

	defer f.Close()

	pairs, err := godotenv.Parse(f)
	if err != nil {
		return nil, errors.Join(ErrEnvFile, err)
	}

	return overlay(base, pairs), nil
}

// overlay replaces or appends the pairs in env, keeping the order stable.
func overlay(env []string, pairs map[string]string) []string {
	out := make([]string, 0, len(env)+len(pairs))
	seen := make(map[string]bool, len(pairs))

	for _, kv := range env {
		k, _, _ := strings.Cut(kv, "=")
		if v, ok := pairs[k]; ok {
			out = append(out, k+"="+v)
			seen[k] = true

			continue
		}

		out = append(out, kv)
	}

	keys := make([]string, 0, len(pairs))

	for k := range pairs {
		if !seen[k] {
			keys = append(keys, k)
		}
	}

	slices.Sort(keys)

	for _, k := range keys {
		out = append(out, k+"="+pairs[k])
	}

	return out
}
