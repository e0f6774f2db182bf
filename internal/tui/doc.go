// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tui is the full-screen host for the shell engine. It shows the
// scrollback in a viewport above a single input line and drives the engine
// from a periodic tick, so output from running pipelines appears while the
// user keeps typing.
package tui
