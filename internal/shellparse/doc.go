// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package shellparse turns submitted command text into pipelines.
//
// The grammar is deliberately small: whitespace separated words, verbatim
// single or double quoted words, `<` and `>`/`>>` redirections and `|`
// between stages. There are no variables, escapes or command substitution.
// Parsing never fails on malformed input; constructs degrade to a best-effort
// reading (an unterminated quote runs to the end of the text).
package shellparse
