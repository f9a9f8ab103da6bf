package vaspan

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dhardin/vaspan/atom"
	"github.com/dhardin/vaspan/dagdriver"
	"github.com/dhardin/vaspan/enumerator"
	"github.com/dhardin/vaspan/mapping"
	"github.com/dhardin/vaspan/naive"
	"github.com/dhardin/vaspan/va"
	"github.com/dhardin/vaspan/variable"
)

// wordClass and the builders below hand-construct the small VAs these
// tests run against, standing in for the Glushkov compiler this module
// does not implement (see the package doc comment: pattern compilation
// is an external collaborator).

func wordClass() atom.Predicate {
	return atom.Class{Intervals: []atom.Range{
		{Lo: '0', Hi: '9'},
		{Lo: 'A', Hi: 'Z'},
		{Lo: '_', Hi: '_'},
		{Lo: 'a', Hi: 'z'},
	}}
}

// buildAnchoredAStar builds ^a*$: open match, loop on 'a', close match.
func buildAnchoredAStar() *va.VA {
	match := variable.New(variable.MatchName)

	v, err := va.New(3, []va.Transition{
		{Source: 0, Target: 1, Label: va.MarkerLabel{Marker: variable.OpenOf(match)}},
		{Source: 1, Target: 1, Label: va.LetterLabel{Atom: atom.Literal('a')}},
		{Source: 1, Target: 2, Label: va.MarkerLabel{Marker: variable.CloseOf(match)}},
	}, []int{2})
	if err != nil {
		panic(err)
	}

	return v
}

// buildUnanchoredDot builds the unanchored wildcard `.`: a prefix `.*`
// loop, a single required `.`, the match markers, then a suffix `.*`
// loop, exactly as the parser collaborator would produce for a pattern
// with no ^ or $.
func buildUnanchoredDot() *va.VA {
	match := variable.New(variable.MatchName)

	v, err := va.New(4, []va.Transition{
		{Source: 0, Target: 0, Label: va.LetterLabel{Atom: atom.Any{}}},
		{Source: 0, Target: 1, Label: va.MarkerLabel{Marker: variable.OpenOf(match)}},
		{Source: 1, Target: 2, Label: va.LetterLabel{Atom: atom.Any{}}},
		{Source: 2, Target: 3, Label: va.MarkerLabel{Marker: variable.CloseOf(match)}},
		{Source: 3, Target: 3, Label: va.LetterLabel{Atom: atom.Any{}}},
	}, []int{3})
	if err != nil {
		panic(err)
	}

	return v
}

// buildUnanchoredDotStar builds the unanchored `.*`: identical shape to
// buildUnanchoredDot, except the core between the match markers is
// itself a `.*` loop rather than a single `.`.
func buildUnanchoredDotStar() *va.VA {
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

// buildAnchoredGroupAPlus builds ^(?P<g>a+)$: match and the single group
// g share exactly the same span, since g is the whole anchored pattern.
func buildAnchoredGroupAPlus() *va.VA {
	match := variable.New(variable.MatchName)
	g := variable.New("g")

	v, err := va.New(6, []va.Transition{
		{Source: 0, Target: 1, Label: va.MarkerLabel{Marker: variable.OpenOf(match)}},
		{Source: 1, Target: 2, Label: va.MarkerLabel{Marker: variable.OpenOf(g)}},
		{Source: 2, Target: 3, Label: va.LetterLabel{Atom: atom.Literal('a')}},
		{Source: 3, Target: 3, Label: va.LetterLabel{Atom: atom.Literal('a')}},
		{Source: 3, Target: 4, Label: va.MarkerLabel{Marker: variable.CloseOf(g)}},
		{Source: 4, Target: 5, Label: va.MarkerLabel{Marker: variable.CloseOf(match)}},
	}, []int{5})
	if err != nil {
		panic(err)
	}

	return v
}

// buildUnanchoredUserAtHost builds the unanchored `\w+@\w+`: two named
// groups either side of a literal '@', wrapped in the usual prefix/
// suffix `.*` loops.
func buildUnanchoredUserAtHost() *va.VA {
	match := variable.New(variable.MatchName)
	u := variable.New("u")
	v1 := variable.New("v")
	w := wordClass()

	automaton, err := va.New(10, []va.Transition{
		{Source: 0, Target: 0, Label: va.LetterLabel{Atom: atom.Any{}}},
		{Source: 0, Target: 1, Label: va.MarkerLabel{Marker: variable.OpenOf(match)}},
		{Source: 1, Target: 2, Label: va.MarkerLabel{Marker: variable.OpenOf(u)}},
		{Source: 2, Target: 3, Label: va.LetterLabel{Atom: w}},
		{Source: 3, Target: 3, Label: va.LetterLabel{Atom: w}},
		{Source: 3, Target: 4, Label: va.MarkerLabel{Marker: variable.CloseOf(u)}},
		{Source: 4, Target: 5, Label: va.LetterLabel{Atom: atom.Literal('@')}},
		{Source: 5, Target: 6, Label: va.MarkerLabel{Marker: variable.OpenOf(v1)}},
		{Source: 6, Target: 7, Label: va.LetterLabel{Atom: w}},
		{Source: 7, Target: 7, Label: va.LetterLabel{Atom: w}},
		{Source: 7, Target: 8, Label: va.MarkerLabel{Marker: variable.CloseOf(v1)}},
		{Source: 8, Target: 9, Label: va.MarkerLabel{Marker: variable.CloseOf(match)}},
		{Source: 9, Target: 9, Label: va.LetterLabel{Atom: atom.Any{}}},
	}, []int{9})
	if err != nil {
		panic(err)
	}

	return automaton
}

func runMatches(t *testing.T, v *va.VA, document string) []mapping.Match {
	t.Helper()

	seq, err := EnumMatches(context.Background(), v, []rune(document))
	require.NoError(t, err)

	var out []mapping.Match
	for m := range seq {
		out = append(out, m)
	}

	return out
}

func spansOf(matches []mapping.Match) []mapping.Span {
	out := make([]mapping.Span, len(matches))
	for i, m := range matches {
		out[i] = m.Span
	}

	return out
}

func TestAnchoredStarOverEmptyDocument(t *testing.T) {
	matches := runMatches(t, buildAnchoredAStar(), "")
	require.ElementsMatch(t, []mapping.Span{{Start: 0, End: 0}}, spansOf(matches))
}

func TestAnchoredStarOverAllAs(t *testing.T) {
	matches := runMatches(t, buildAnchoredAStar(), "aaaa")
	require.ElementsMatch(t, []mapping.Span{{Start: 0, End: 4}}, spansOf(matches))
}

func TestUnanchoredDotOverTwoChars(t *testing.T) {
	matches := runMatches(t, buildUnanchoredDot(), "ab")
	require.ElementsMatch(t, []mapping.Span{{Start: 0, End: 1}, {Start: 1, End: 2}}, spansOf(matches))
}

func TestUnanchoredDotStarAllSubstrings(t *testing.T) {
	matches := runMatches(t, buildUnanchoredDotStar(), "abc")

	var want []mapping.Span
	for s := 0; s <= 3; s++ {
		for e := s; e <= 3; e++ {
			want = append(want, mapping.Span{Start: s, End: e})
		}
	}

	require.ElementsMatch(t, want, spansOf(matches))
}

func TestAnchoredGroupSpansMatchWholeDocument(t *testing.T) {
	matches := runMatches(t, buildAnchoredGroupAPlus(), "aaa")
	require.Len(t, matches, 1)
	require.Equal(t, mapping.Span{Start: 0, End: 3}, matches[0].Span)
	require.Equal(t, mapping.Span{Start: 0, End: 3}, matches[0].Groups["g"])
}

func TestUnanchoredUserAtHost(t *testing.T) {
	matches := runMatches(t, buildUnanchoredUserAtHost(), "x@y a@b")
	require.Len(t, matches, 2)

	byStart := make(map[int]mapping.Match, 2)
	for _, m := range matches {
		byStart[m.Span.Start] = m
	}

	first, ok := byStart[0]
	require.True(t, ok)
	require.Equal(t, mapping.Span{Start: 0, End: 3}, first.Span)
	require.Equal(t, mapping.Span{Start: 0, End: 1}, first.Groups["u"])
	require.Equal(t, mapping.Span{Start: 2, End: 3}, first.Groups["v"])

	second, ok := byStart[4]
	require.True(t, ok)
	require.Equal(t, mapping.Span{Start: 4, End: 7}, second.Span)
	require.Equal(t, mapping.Span{Start: 4, End: 5}, second.Groups["u"])
	require.Equal(t, mapping.Span{Start: 6, End: 7}, second.Groups["v"])
}

func TestEmptyDocumentAndPatternWithNoCaptureGroups(t *testing.T) {
	matches := runMatches(t, buildAnchoredAStar(), "")
	require.Len(t, matches, 1)
	require.Empty(t, matches[0].Groups)
}

// TestEngineAgreesWithNaiveEnumerator is the differential test: for a
// handful of small (VA, document) pairs, the indexed-DAG engine and the
// exhaustive naive reference must produce the same set of mappings.
func TestEngineAgreesWithNaiveEnumerator(t *testing.T) {
	cases := []struct {
		name     string
		build    func() *va.VA
		document string
	}{
		{"anchored star/empty", buildAnchoredAStar, ""},
		{"anchored star/aaaa", buildAnchoredAStar, "aaaa"},
		{"unanchored dot/ab", buildUnanchoredDot, "ab"},
		{"unanchored dot-star/abc", buildUnanchoredDotStar, "abc"},
		{"anchored group/aaa", buildAnchoredGroupAPlus, "aaa"},
		{"user-at-host", buildUnanchoredUserAtHost, "x@y a@b"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := tc.build()
			document := []rune(tc.document)

			driver, err := dagdriver.Build(context.Background(), v, document)
			require.NoError(t, err)

			engineMappings := collect(enumerator.New(driver).Mappings())
			naiveMappings := naive.EnumMappings(v, document)

			require.ElementsMatch(t, normalize(naiveMappings), normalize(engineMappings))
		})
	}
}

func collect(seq func(func(mapping.Mapping) bool)) []mapping.Mapping {
	var out []mapping.Mapping
	seq(func(m mapping.Mapping) bool {
		out = append(out, m)
		return true
	})

	return out
}

// normalize renders each mapping as a canonical, order-independent
// string key so that two mappings produced via different traversal
// orders can be compared for set equality.
func normalize(mappings []mapping.Mapping) []string {
	out := make([]string, len(mappings))

	for i, m := range mappings {
		entries := append([]mapping.Entry(nil), m...)
		sort.Slice(entries, func(a, b int) bool {
			if entries[a].Position != entries[b].Position {
				return entries[a].Position < entries[b].Position
			}
			if entries[a].Marker.Side != entries[b].Marker.Side {
				return entries[a].Marker.Side < entries[b].Marker.Side
			}

			return entries[a].Marker.Var.Name < entries[b].Marker.Var.Name
		})

		keys := make([]string, len(entries))
		for j, e := range entries {
			keys[j] = fmt.Sprintf("%s:%d", e.Marker.String(), e.Position)
		}
		out[i] = fmt.Sprintf("%v", keys)
	}

	return out
}
