// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import "sync/atomic"

// Flags holds the pending interrupt and suspend requests.
// A host sets them from any goroutine; the engine consumes them.
type Flags struct {
	interrupt atomic.Bool
	suspend   atomic.Bool
}

// RequestInterrupt records an interrupt request.
func (f *Flags) RequestInterrupt() {
	f.interrupt.Store(true)
}

// RequestSuspend records a suspend request.
func (f *Flags) RequestSuspend() {
	f.suspend.Store(true)
}

// Interrupted reports a pending interrupt without consuming it.
func (f *Flags) Interrupted() bool {
	return f.interrupt.Load()
}

// Suspended reports a pending suspend without consuming it.
func (f *Flags) Suspended() bool {
	return f.suspend.Load()
}

// TakeInterrupt consumes a pending interrupt.
func (f *Flags) TakeInterrupt() bool {
	return f.interrupt.Swap(false)
}

// TakeSuspend consumes a pending suspend.
func (f *Flags) TakeSuspend() bool {
	return f.suspend.Swap(false)
}

// Clear drops both requests.
func (f *Flags) Clear() {
	f.interrupt.Store(false)
	f.suspend.Store(false)
}
