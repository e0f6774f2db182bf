// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package proc contains the process and pipe primitives the engine is built on.
//
// Everything here works on raw descriptors and raw process ids so that the
// caller can poll, read and reap without ever blocking the control loop.
// Pipes are created close-on-exec: a child only inherits the descriptors it
// is explicitly handed as stdin, stdout and stderr.
package proc
