// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package shellparse

const (
	// MaxArgs is the capacity of a stage's argument vector including its
	// terminator slot. At most MaxArgs-1 arguments are kept.
	MaxArgs = 128
	// MaxPipe is the maximum number of stages in a pipeline.
	MaxPipe = 16
	// MaxInput is the size of the buffer a stage's text is tokenized from.
	// Longer text is truncated.
	MaxInput = 1024
)

// Stage is one command of a pipeline together with its own redirections.
type Stage struct {
	Args    []string // Argument vector, Args[0] is the program.
	InFile  string   // Input redirection target, empty when none.
	OutFile string   // Output redirection target, empty when none.
	Append  bool     // Open OutFile for appending rather than truncating.

	// InMissing and OutMissing record a `<` or `>` with no target word. The
	// redirection still applies, to an empty path, so opening it fails.
	InMissing  bool
	OutMissing bool
}

// RedirectsIn reports whether the stage reads from a file.
func (s Stage) RedirectsIn() bool {
	return s.InFile != "" || s.InMissing
}

// RedirectsOut reports whether the stage writes to a file.
func (s Stage) RedirectsOut() bool {
	return s.OutFile != "" || s.OutMissing
}

// Name returns the program name of the stage.
func (s Stage) Name() string {
	if len(s.Args) == 0 {
		return ""
	}

	return s.Args[0]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n'
}

// ParseStage tokenizes the text of a single pipeline stage.
//
// Words are separated by whitespace. A word starting with a quote runs
// verbatim to the matching quote. `<` takes the next word as the input file,
// `>` the next word as the output file and `>>` additionally sets Append.
// Once MaxArgs-1 arguments are collected the rest of the text is dropped.
// A redirection with no target word redirects to the empty path.
func ParseStage(text string) Stage {
	if len(text) > MaxInput-1 {
		text = text[:MaxInput-1]
	}

	var st Stage

	n := len(text)
	p := 0

	word := func() string {
		for p < n && isSpace(text[p]) {
			p++
		}

		start := p
		for p < n && !isSpace(text[p]) {
			p++
		}

		return text[start:p]
	}

	for p < n {
		for p < n && isSpace(text[p]) {
			p++
		}

		if p >= n {
			break
		}

		switch c := text[p]; c {
		case '"', '\'':
			p++
			start := p

			for p < n && text[p] != c {
				p++
			}

			st.Args = append(st.Args, text[start:p])

			if p < n {
				p++ // closing quote
			}

		case '<':
			p++

			st.InFile = word()
			st.InMissing = st.InFile == ""

		case '>':
			p++

			app := false
			if p < n && text[p] == '>' {
				app = true
				p++
			}

			st.OutFile = word()
			st.OutMissing = st.OutFile == ""
			st.Append = app

		default:
			start := p
			for p < n && !isSpace(text[p]) && text[p] != '<' && text[p] != '>' {
				p++
			}

			st.Args = append(st.Args, text[start:p])
		}

		if len(st.Args) >= MaxArgs-1 {
			break
		}
	}

	return st
}
