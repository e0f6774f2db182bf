// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package shellparse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_TwoStages(t *testing.T) {
	p, err := Parse("ls -la | grep txt")
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())
	assert.Equal(t, Stage{Args: []string{"ls", "-la"}}, p.Stages[0])
	assert.Equal(t, Stage{Args: []string{"grep", "txt"}}, p.Stages[1])
	assert.Equal(t, p.Stages[1], p.Last())
}

func TestParse_SingleStageRedirection(t *testing.T) {
	p, err := Parse("sort < input.txt > output.txt")
	require.NoError(t, err)
	require.Equal(t, 1, p.Len())
	assert.Equal(t, []string{"sort"}, p.Stages[0].Args)
	assert.Equal(t, "input.txt", p.Stages[0].InFile)
	assert.Equal(t, "output.txt", p.Stages[0].OutFile)
	assert.False(t, p.Stages[0].Append)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("   ")
	require.ErrorIs(t, err, ErrEmptyPipeline)

	_, err = Parse("ls |")
	require.ErrorIs(t, err, ErrEmptyStage)
	assert.Contains(t, err.Error(), "stage 2")

	_, err = Parse("| wc")
	require.ErrorIs(t, err, ErrEmptyStage)
}

func TestSplitPipeline_QuoteUnaware(t *testing.T) {
	got := SplitPipeline(`echo "a|b"`)
	assert.Equal(t, []string{`echo "a`, `b"`}, got)
}

func TestSplitPipelineQuoted(t *testing.T) {
	got := SplitPipelineQuoted(`echo "a|b" | tr a-z A-Z`)
	assert.Equal(t, []string{`echo "a|b" `, ` tr a-z A-Z`}, got)

	p, err := Parse(`echo 'x|y'`, WithQuoteAwarePipes(true))
	require.NoError(t, err)
	require.Equal(t, 1, p.Len())
	assert.Equal(t, []string{"echo", "x|y"}, p.Stages[0].Args)
}

func TestSplitPipeline_CapAbsorbsRemainder(t *testing.T) {
	parts := make([]string, 20)
	for i := range parts {
		parts[i] = "cat"
	}

	got := SplitPipeline(strings.Join(parts, "|"))
	require.Len(t, got, MaxPipe)
	assert.Equal(t, "cat|cat|cat|cat|cat", got[MaxPipe-1])
}

func TestSplitPipeline_NoPipe(t *testing.T) {
	assert.Equal(t, []string{"echo hi"}, SplitPipeline("echo hi"))
}
