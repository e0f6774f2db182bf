// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog carries a *slog.Logger in a context.Context.
//
// The level of the package loggers follows the PIPETERM_LOG_LEVEL environment
// variable. The interactive hosts own the terminal, so they log to a file
// (see NewFile) or not at all.
package ctxlog
