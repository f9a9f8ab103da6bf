// Package enumerator implements the constant-delay backward walk over
// the indexed product DAG: given a built dagdriver.Driver, it produces
// every mapping accepted by the VA over the document, one at a time,
// without ever materializing the full set.
//
// The walk is driven by nextLevel/followSpSm, which split the set of
// markers reachable backward from a frontier into every realizable
// (S+, S-) partition — this is what turns what would otherwise be
// exponential backtracking into one emission per distinct assignment.
package enumerator

import (
	"iter"

	"github.com/dhardin/vaspan/dagdriver"
	"github.com/dhardin/vaspan/mapping"
	"github.com/dhardin/vaspan/va"
	"github.com/dhardin/vaspan/variable"
)

// Enumerator walks a built indexed DAG backward, emitting mappings.
type Enumerator struct {
	driver *dagdriver.Driver
}

// New wraps a built driver for enumeration.
func New(d *dagdriver.Driver) *Enumerator {
	return &Enumerator{driver: d}
}

// frame is one entry of the explicit backward-walk stack: the layer
// under consideration, the frontier of states live at that layer, and
// the mapping accumulated on the path taken to reach it.
type frame struct {
	level int
	gamma []int
	soFar mapping.Mapping
}

// Mappings returns a lazy, pull-based sequence of every mapping accepted
// by the driver's VA over its document. Iteration order is deterministic
// for a fixed VA and document but is not part of the contract: compare
// results as sets.
func (e *Enumerator) Mappings() iter.Seq[mapping.Mapping] {
	return func(yield func(mapping.Mapping) bool) {
		v := e.driver.VA()
		document := e.driver.Document()
		j := e.driver.Jump()
		// Single-step reversed assignation edges: followSpSm walks them
		// transitively, so every marker along a chain is seen.
		revAdj := make([][]va.MarkerTarget, v.NumStates)
		for s, pairs := range v.AssignAdj() {
			for _, mt := range pairs {
				revAdj[mt.Target] = append(revAdj[mt.Target], va.MarkerTarget{Marker: mt.Marker, Target: s})
			}
		}

		stack := []frame{{
			level: len(document),
			gamma: append([]int(nil), v.Finals...),
			soFar: nil,
		}}

		for len(stack) > 0 {
			fr := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			for _, sp := range nextLevel(revAdj, fr.gamma) {
				if len(sp.gamma2) == 0 {
					continue
				}

				newMapping := append(append(mapping.Mapping(nil), fr.soFar...), entriesFor(sp.markers, fr.level)...)

				if fr.level == 0 && containsState(sp.gamma2, v.Initial) {
					if !yield(newMapping) {
						return
					}
					continue
				}

				newLevel, newGamma := j.Query(fr.level, sp.gamma2)
				if len(newGamma) > 0 {
					stack = append(stack, frame{level: newLevel, gamma: newGamma, soFar: newMapping})
				}
			}
		}
	}
}

func entriesFor(markers []variable.Marker, level int) []mapping.Entry {
	out := make([]mapping.Entry, len(markers))
	for i, m := range markers {
		out[i] = mapping.Entry{Marker: m, Position: level}
	}

	return out
}

func containsState(states []int, target int) bool {
	for _, s := range states {
		if s == target {
			return true
		}
	}

	return false
}

// split is one (S+, gamma2) pair produced by nextLevel: S+ is the set of
// markers realized on the paths landing in gamma2.
type split struct {
	markers []variable.Marker
	gamma2  []int
}

// markerSet is a small working set of markers, used while exploring
// (S+, S-) partitions.
type markerSet map[variable.Marker]struct{}

func setOf(markers []variable.Marker) markerSet {
	s := make(markerSet, len(markers))
	for _, m := range markers {
		s[m] = struct{}{}
	}

	return s
}

// nextLevel enumerates every realizable (S+, S-) split of the markers
// reachable backward from gamma via rev-assignation edges inside the
// current layer, returning, for each, the set of markers forced open/
// closed (S+) and the projected frontier (gamma2) that realizes it.
//
// Complexity: O(2^|K|) candidate splits explored in the worst case,
// where K is the set of in-layer markers reachable from gamma, but each
// dead branch is pruned as soon as followSpSm returns empty, keeping the
// amortized cost per emitted split polynomial in |VA.states|.
func nextLevel(revAdj [][]va.MarkerTarget, gamma []int) []split {
	k := collectMarkers(revAdj, gamma)

	type pending struct {
		sp, sm []variable.Marker
	}

	var out []split
	stack := []pending{{}}

	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		sp := append([]variable.Marker(nil), fr.sp...)
		sm := append([]variable.Marker(nil), fr.sm...)
		gamma2 := followSpSm(revAdj, gamma, setOf(sp), setOf(sm))

		if len(gamma2) == 0 {
			continue
		}

		for len(sp)+len(sm) < len(k) {
			depth := len(sp) + len(sm)
			sp = append(sp, k[depth])
			candidate := followSpSm(revAdj, gamma, setOf(sp), setOf(sm))

			if len(candidate) > 0 {
				gamma2 = candidate

				newSp := append([]variable.Marker(nil), sp[:len(sp)-1]...)
				newSm := append(append([]variable.Marker(nil), sm...), sp[len(sp)-1])
				stack = append(stack, pending{sp: newSp, sm: newSm})
			} else {
				sm = append(sm, sp[len(sp)-1])
				sp = sp[:len(sp)-1]
				gamma2 = nil
			}
		}

		if gamma2 == nil {
			gamma2 = followSpSm(revAdj, gamma, setOf(sp), setOf(sm))
		}

		out = append(out, split{markers: sp, gamma2: gamma2})
	}

	return out
}

// collectMarkers gathers every marker labelling a rev-assignation edge
// reachable from gamma, in first-discovery order.
func collectMarkers(revAdj [][]va.MarkerTarget, gamma []int) []variable.Marker {
	seenMarker := make(markerSet)
	seenState := make(map[int]bool, len(gamma))
	var k []variable.Marker

	stack := append([]int(nil), gamma...)
	for _, v := range gamma {
		seenState[v] = true
	}

	for len(stack) > 0 {
		source := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, mt := range revAdj[source] {
			if _, ok := seenMarker[mt.Marker]; !ok {
				seenMarker[mt.Marker] = struct{}{}
				k = append(k, mt.Marker)
			}
			if !seenState[mt.Target] {
				seenState[mt.Target] = true
				stack = append(stack, mt.Target)
			}
		}
	}

	return k
}

// followSpSm computes, for every vertex reachable from gamma by
// rev-assignation edges whose marker is not in sm, the set of sp-markers
// encountered on the path to it — keeping the largest such set under
// inclusion when multiple paths disagree, and annotating a vertex as
// unrealizable (failed) if two incomparable sets collide. Returns every
// vertex whose realized set equals sp exactly.
func followSpSm(revAdj [][]va.MarkerTarget, gamma []int, sp, sm markerSet) []int {
	pathSet := make(map[int]markerSet, len(gamma))
	failed := make(map[int]bool)

	for _, v := range gamma {
		pathSet[v] = markerSet{}
	}

	queue := append([]int(nil), gamma...)
	for len(queue) > 0 {
		source := queue[0]
		queue = queue[1:]

		for _, mt := range revAdj[source] {
			if _, excluded := sm[mt.Marker]; excluded {
				continue
			}

			target := mt.Target
			_, known := pathSet[target]
			if !known {
				queue = append(queue, target)
			}
			if known && failed[target] {
				continue
			}

			candidate := cloneMarkerSet(pathSet[source])
			if _, forced := sp[mt.Marker]; forced {
				candidate[mt.Marker] = struct{}{}
			}

			switch {
			case !known || isSupersetOrEqual(candidate, pathSet[target]):
				pathSet[target] = candidate
			case !isSupersetOrEqual(pathSet[target], candidate):
				failed[target] = true
			}
		}
	}

	var out []int
	for v, ps := range pathSet {
		if !failed[v] && setsEqual(ps, sp) {
			out = append(out, v)
		}
	}

	return out
}

func cloneMarkerSet(s markerSet) markerSet {
	out := make(markerSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}

	return out
}

func isSupersetOrEqual(a, b markerSet) bool {
	for k := range b {
		if _, ok := a[k]; !ok {
			return false
		}
	}

	return true
}

func setsEqual(a, b markerSet) bool {
	return len(a) == len(b) && isSupersetOrEqual(a, b)
}
