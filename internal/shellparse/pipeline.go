// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package shellparse

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyPipeline is returned when the text contains no command at all.
	ErrEmptyPipeline = errors.New("empty pipeline")
	// ErrEmptyStage is returned when one stage of a pipeline has no program.
	ErrEmptyStage = errors.New("empty pipeline stage")
)

// Pipeline is an ordered sequence of 1..MaxPipe stages.
type Pipeline struct {
	Stages []Stage
}

// Len returns the number of stages.
func (p Pipeline) Len() int {
	return len(p.Stages)
}

// Last returns the final stage, the only one whose redirection decides
// whether the pipeline's output is captured.
func (p Pipeline) Last() Stage {
	if len(p.Stages) == 0 {
		return Stage{}
	}

	return p.Stages[len(p.Stages)-1]
}

type options struct {
	quoteAwarePipes bool
}

// Option configures Parse.
type Option func(*options)

// WithQuoteAwarePipes keeps a `|` inside quotes as literal text instead of
// splitting the stage there.
func WithQuoteAwarePipes(enabled bool) Option {
	return func(o *options) {
		o.quoteAwarePipes = enabled
	}
}

// SplitPipeline splits text into stage texts on every `|` character.
// Quotes are not taken into account. Once MaxPipe stages exist the remaining
// text, further pipes included, belongs to the final stage.
func SplitPipeline(text string) []string {
	return split(text, false)
}

// SplitPipelineQuoted is SplitPipeline, except that a `|` between matching
// quotes does not split.
func SplitPipelineQuoted(text string) []string {
	return split(text, true)
}

func split(text string, quoteAware bool) []string {
	stages := make([]string, 0, 1)
	start := 0

	var quote byte

	for i := 0; i < len(text) && len(stages) < MaxPipe-1; i++ {
		c := text[i]

		if quoteAware {
			switch {
			case quote != 0 && c == quote:
				quote = 0
				continue
			case quote == 0 && (c == '"' || c == '\''):
				quote = c
				continue
			case quote != 0:
				continue
			}
		}

		if c == '|' {
			stages = append(stages, text[start:i])
			start = i + 1
		}
	}

	return append(stages, text[start:])
}

// Parse splits text into stages and tokenizes each one.
func Parse(text string, opts ...Option) (Pipeline, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if strings.TrimSpace(text) == "" {
		return Pipeline{}, ErrEmptyPipeline
	}

	parts := split(text, o.quoteAwarePipes)
	p := Pipeline{Stages: make([]Stage, 0, len(parts))}

	for i, part := range parts {
		st := ParseStage(strings.TrimSpace(part))
		if len(st.Args) == 0 {
			return Pipeline{}, fmt.Errorf("stage %d: %w", i+1, ErrEmptyStage)
		}

		p.Stages = append(p.Stages, st)
	}

	return p, nil
}
