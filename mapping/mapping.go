// Package mapping converts the raw output of the enumerator — an
// ordered list of (marker, document position) pairs — into the
// user-visible Match record the engine ultimately produces.
package mapping

import (
	"github.com/dhardin/vaspan/variable"
)

// Entry is one (marker, position) pair recorded while walking the
// indexed DAG backward.
type Entry struct {
	Marker   variable.Marker
	Position int
}

// Mapping is one full assignment of marker positions discovered by a
// single accepting run of the enumerator. Entries are produced in
// layer-descending order by the enumerator; nothing in this package sorts
// them, since ordering beyond grouping by marker is not part of the contract.
type Mapping []Entry

// Span is a half-open [Start, End) range of document positions.
type Span struct {
	Start, End int
}

// Valid reports whether every variable in variables has exactly one
// Open and one Close marker in m, with Open at or before Close, and no
// variable is assigned twice on the same side. Used only by the naive
// reference enumerator, which (unlike the indexed-DAG engine) can
// produce paths where a variable was touched more than once or not at
// all.
func Valid(variables []variable.Variable, m Mapping) bool {
	opens := make(map[[16]byte]int)
	closes := make(map[[16]byte]int)

	for _, e := range m {
		switch e.Marker.Side {
		case variable.Open:
			if _, dup := opens[e.Marker.Var.ID]; dup {
				return false
			}
			opens[e.Marker.Var.ID] = e.Position
		case variable.Close:
			if _, dup := closes[e.Marker.Var.ID]; dup {
				return false
			}
			closes[e.Marker.Var.ID] = e.Position
		}
	}

	for _, v := range variables {
		open, hasOpen := opens[v.ID]
		close_, hasClose := closes[v.ID]
		if !hasOpen || !hasClose || open > close_ {
			return false
		}
	}

	return true
}

// Match is the user-visible result: the overall match span plus the
// span of every named group touched by the run.
type Match struct {
	Span   Span
	Groups map[string]Span
}

// ToMatch buckets m's markers by variable name into group spans, pulls
// out the reserved "match" variable as the overall Span, and reports
// false if the match span is incomplete (the match variable never
// opened or never closed on this run — this can happen for a mapping
// drawn from an alternative path that the engine did not actually take).
func ToMatch(variables []variable.Variable, m Mapping) (Match, bool) {
	type bounds struct {
		start, end int
		hasStart   bool
		hasEnd     bool
	}

	byName := make(map[string]*bounds, len(variables))
	for _, v := range variables {
		byName[v.Name] = &bounds{}
	}

	for _, e := range m {
		b, ok := byName[e.Marker.Var.Name]
		if !ok {
			continue
		}
		switch e.Marker.Side {
		case variable.Open:
			b.start, b.hasStart = e.Position, true
		case variable.Close:
			b.end, b.hasEnd = e.Position, true
		}
	}

	matchBounds, ok := byName[variable.MatchName]
	if !ok || !matchBounds.hasStart || !matchBounds.hasEnd {
		return Match{}, false
	}

	groups := make(map[string]Span, len(byName)-1)
	for name, b := range byName {
		if name == variable.MatchName {
			continue
		}
		if b.hasStart && b.hasEnd {
			groups[name] = Span{Start: b.start, End: b.end}
		}
	}

	return Match{
		Span:   Span{Start: matchBounds.start, End: matchBounds.end},
		Groups: groups,
	}, true
}
