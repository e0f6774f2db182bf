// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package engine is the shell core: it launches pipelines without waiting for
// them, pumps their output into a sink once per host tick, and moves them
// between the foreground and the job table.
//
// An Engine is driven from a single goroutine. The only methods that may be
// called from elsewhere are RequestInterrupt and RequestSuspend; the requests
// they record are acted on at the start of the next Pump.
package engine
