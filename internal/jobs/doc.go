// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package jobs is the job control registry: a fixed table of pipelines that
// were moved out of the foreground and keep running unobserved.
//
// Slots are only reused after a liveness reconciliation has seen every
// process of the slot exit. What happens to a background job's output is a
// policy decision, see Policy.
package jobs
