// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package history records submitted command lines in a bounded in-memory ring
// backed by an append-only plain text file, one command per line.
package history
