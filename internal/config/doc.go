// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config loads the pipeterm settings file.
//
// The file may be YAML (.yaml, .yml) or HCL (.hcl); both use the same
// attribute names. Anything not set keeps its default. Reads go through
// FsFactory so tests can substitute an in-memory filesystem.
package config
