// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package multiwatch runs several unrelated shell commands side by side and
// streams their combined output to a sink, one labelled and timestamped chunk
// per read.
//
// A Session is driven either one Step at a time by a host event loop, or to
// completion with Run. Both forms consult a Signals value between waits so
// that an interrupt or suspend request is never delayed by more than one
// poll timeout.
package multiwatch
