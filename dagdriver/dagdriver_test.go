package dagdriver

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dhardin/vaspan/atom"
	"github.com/dhardin/vaspan/va"
	"github.com/dhardin/vaspan/variable"
	"github.com/dhardin/vaspan/vaspanlog"
)

// dotStarVA builds the unanchored `.*`: three states, each with a
// self-loop on Any, so the frontier never empties and Build never returns
// jump.ErrEmptyLevel regardless of document content or length — handy
// for tests that only care about the driving loop, not match semantics.
func dotStarVA() *va.VA {
	match := variable.New(variable.MatchName)

	v, err := va.New(3, []va.Transition{
		{Source: 0, Target: 0, Label: va.LetterLabel{Atom: atom.Any{}}},
		{Source: 0, Target: 1, Label: va.MarkerLabel{Marker: variable.OpenOf(match)}},
		{Source: 1, Target: 1, Label: va.LetterLabel{Atom: atom.Any{}}},
		{Source: 1, Target: 2, Label: va.MarkerLabel{Marker: variable.CloseOf(match)}},
		{Source: 2, Target: 2, Label: va.LetterLabel{Atom: atom.Any{}}},
	}, []int{2})
	if err != nil {
		panic(err)
	}

	return v
}

func TestBuildReturnsContextErrOnPreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, dotStarVA(), []rune("abc"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestWithOnLayerFiresOncePerRuneWithOneBasedLevels(t *testing.T) {
	var levels []int

	_, err := Build(context.Background(), dotStarVA(), []rune("abcd"), WithOnLayer(func(level int) {
		levels = append(levels, level)
	}))
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4}, levels)
}

// TestWithCleanDivisorReducesCleanCallCount pins down the cleaning
// schedule's exact call count for an 8-rune document (a pure function of
// level & -level, independent of the VA): the default divisor (1)
// issues 20 Clean calls, while divisor 2 halves each layer's depth and
// issues only 12. A larger divisor must never schedule more cleaning
// than the default.
func TestWithCleanDivisorReducesCleanCallCount(t *testing.T) {
	document := []rune("abcdefgh")

	defaultCount := countCleanCalls(t, document, nil)
	halvedCount := countCleanCalls(t, document, []Option{WithCleanDivisor(2)})

	require.Equal(t, 20, defaultCount)
	require.Equal(t, 12, halvedCount)
	require.Less(t, halvedCount, defaultCount)
}

func countCleanCalls(t *testing.T, document []rune, opts []Option) int {
	t.Helper()

	var buf bytes.Buffer
	logger := vaspanlog.New(&buf, "")

	allOpts := append([]Option{WithLogger(logger)}, opts...)
	_, err := Build(context.Background(), dotStarVA(), document, allOpts...)
	require.NoError(t, err)

	return strings.Count(buf.String(), "cleaning layer")
}

func TestWithLoggerReportsLayersAndCompletion(t *testing.T) {
	var buf bytes.Buffer
	logger := vaspanlog.New(&buf, "")

	_, err := Build(context.Background(), dotStarVA(), []rune("ab"), WithLogger(logger))
	require.NoError(t, err)

	output := buf.String()
	require.Contains(t, output, "built layer 1")
	require.Contains(t, output, "built layer 2")
	require.Contains(t, output, "preprocessing complete: 2 layers built")
}

func TestBuildWithoutLoggerDoesNotPanic(t *testing.T) {
	_, err := Build(context.Background(), dotStarVA(), []rune("xyz"))
	require.NoError(t, err)
}
