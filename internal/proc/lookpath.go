// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package proc

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// LookPath resolves a program name the way execvp does: a name containing a
// slash is used as given, anything else is searched for in the PATH of env,
// the environment the program will run with. When env has no PATH the
// process's own is used. Directories and files without an execute bit are
// skipped.
func LookPath(name string, env []string) (string, error) {
	if name == "" {
		return "", ErrNotFound
	}

	if strings.Contains(name, "/") {
		if err := executable(name); err != nil {
			return "", err
		}

		return name, nil
	}

	path, ok := lookupEnv(env, "PATH")
	if !ok {
		path = os.Getenv("PATH")
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			dir = "."
		}

		candidate := filepath.Join(dir, name)
		if executable(candidate) == nil {
			return candidate, nil
		}
	}

	return "", ErrNotFound
}

// lookupEnv returns the value of key in env. Later entries win, as they do
// for execve.
func lookupEnv(env []string, key string) (string, bool) {
	for i := len(env) - 1; i >= 0; i-- {
		if v, ok := strings.CutPrefix(env[i], key+"="); ok {
			return v, true
		}
	}

	return "", false
}

func executable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}

		return errors.Join(ErrPermission, err)
	}

	if info.IsDir() || info.Mode()&0o111 == 0 {
		return ErrPermission
	}

	return nil
}
