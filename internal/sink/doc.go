// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package sink defines where the engine sends the bytes it produces and
// provides a bounded scrollback buffer implementation of it.
//
// The engine only ever appends to a sink, it never reads it back. A host
// renders the scrollback from whatever goroutine it likes.
package sink
