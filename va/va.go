// Package va implements the variable automaton (VA): a nondeterministic
// finite automaton whose transitions are labeled either with a character
// predicate ("letter edge") or with a capture-group open/close marker
// ("assignation edge").
//
// A VA is immutable after construction (New validates it once and rejects
// ill-formed inputs); its derived adjacency views are computed lazily and
// memoized behind sync.Once/sync.Mutex guards, per the build-once-barrier
// design note in the specification this package implements. Because a VA
// is read-only after construction, a single VA may be shared across
// concurrently running enumerations over different documents.
package va

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dhardin/vaspan/atom"
	"github.com/dhardin/vaspan/variable"
)

// Sentinel errors for VA construction.
var (
	// ErrStateOutOfRange indicates a transition or final state index
	// falls outside [0, NumStates).
	ErrStateOutOfRange = errors.New("va: state index out of range")

	// ErrNoStates indicates a VA was constructed with zero states.
	ErrNoStates = errors.New("va: automaton has no states")

	// ErrAssignationCycle indicates the in-layer assignation subgraph
	// contains a directed cycle, which would make product-DAG layers
	// infinite. A Glushkov-constructed VA never has this problem; this
	// check defends against hand-built or malformed VAs.
	ErrAssignationCycle = errors.New("va: assignation subgraph has a cycle")
)

// Label is the tagged union carried by a Transition: either a letter
// (character predicate) or a marker (capture-group boundary).
type Label interface {
	isLabel()
}

// LetterLabel is a Transition label matched against one document rune.
type LetterLabel struct {
	Atom atom.Predicate
}

func (LetterLabel) isLabel() {}

// MarkerLabel is a Transition label that records a capture boundary;
// traversing it consumes no document rune.
type MarkerLabel struct {
	Marker variable.Marker
}

func (MarkerLabel) isLabel() {}

// Transition is one edge (source, label, target) of the automaton.
type Transition struct {
	Source int
	Target int
	Label  Label
}

// MarkerTarget pairs a marker label with the state an assignation edge
// (or a chain of them, once closed over) leads to.
type MarkerTarget struct {
	Marker variable.Marker
	Target int
}

// VA is a 5-tuple (NumStates, Initial=0, Finals, Transitions, Variables).
type VA struct {
	NumStates   int
	Initial     int
	Finals      []int
	Transitions []Transition
	Variables   []variable.Variable

	letterMu    sync.Mutex
	letterCache map[rune][][]int

	assignOnce       sync.Once
	assignAdj        [][]MarkerTarget
	closureOnce      sync.Once
	assignClosure    [][]MarkerTarget
	revClosureOnce   sync.Once
	revAssignClosure [][]MarkerTarget
}

// New constructs a VA, validating transitions and finals, and rejecting
// any VA whose in-layer assignation subgraph contains a cycle.
//
// Complexity: O(numStates + len(transitions)).
func New(numStates int, transitions []Transition, finals []int) (*VA, error) {
	if numStates <= 0 {
		return nil, ErrNoStates
	}

	for _, f := range finals {
		if f < 0 || f >= numStates {
			return nil, fmt.Errorf("va: final state %d: %w", f, ErrStateOutOfRange)
		}
	}

	varSet := make(map[[16]byte]variable.Variable)
	for _, t := range transitions {
		if t.Source < 0 || t.Source >= numStates {
			return nil, fmt.Errorf("va: transition source %d: %w", t.Source, ErrStateOutOfRange)
		}
		if t.Target < 0 || t.Target >= numStates {
			return nil, fmt.Errorf("va: transition target %d: %w", t.Target, ErrStateOutOfRange)
		}
		if ml, ok := t.Label.(MarkerLabel); ok {
			varSet[ml.Marker.Var.ID] = ml.Marker.Var
		}
	}

	variables := make([]variable.Variable, 0, len(varSet))
	for _, v := range varSet {
		variables = append(variables, v)
	}

	v := &VA{
		NumStates:   numStates,
		Initial:     0,
		Finals:      finals,
		Transitions: transitions,
		Variables:   variables,
		letterCache: make(map[rune][][]int),
	}

	if err := v.checkAssignationAcyclic(); err != nil {
		return nil, err
	}

	return v, nil
}

// checkAssignationAcyclic runs a white/gray/black DFS over the
// assignation-only subgraph and fails on any back-edge.
func (v *VA) checkAssignationAcyclic() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	adj := v.AssignAdj()
	state := make([]int, v.NumStates)

	var visit func(s int) error
	visit = func(s int) error {
		state[s] = gray
		for _, mt := range adj[s] {
			switch state[mt.Target] {
			case gray:
				return fmt.Errorf("va: state %d: %w", mt.Target, ErrAssignationCycle)
			case white:
				if err := visit(mt.Target); err != nil {
					return err
				}
			}
		}
		state[s] = black

		return nil
	}

	for s := 0; s < v.NumStates; s++ {
		if state[s] == white {
			if err := visit(s); err != nil {
				return err
			}
		}
	}

	return nil
}

// IsFinal reports whether state s is one of the VA's accepting states.
func (v *VA) IsFinal(s int) bool {
	for _, f := range v.Finals {
		if f == s {
			return true
		}
	}

	return false
}

// LetterAdj returns, for each source state s, the target states reachable
// by a single letter edge whose predicate matches r, in transition order.
// The result is memoized per rune on first request.
//
// Complexity: O(len(Transitions)) on cache miss, O(1) amortized after.
func (v *VA) LetterAdj(r rune) [][]int {
	v.letterMu.Lock()
	defer v.letterMu.Unlock()

	if cached, ok := v.letterCache[r]; ok {
		return cached
	}

	adj := make([][]int, v.NumStates)
	for _, t := range v.Transitions {
		ll, ok := t.Label.(LetterLabel)
		if !ok || !ll.Atom.Matches(r) {
			continue
		}
		adj[t.Source] = append(adj[t.Source], t.Target)
	}

	v.letterCache[r] = adj

	return adj
}

// AssignAdj returns, for each source state s, the list of (marker,
// target) pairs reached by a single assignation edge out of s.
func (v *VA) AssignAdj() [][]MarkerTarget {
	v.assignOnce.Do(func() {
		adj := make([][]MarkerTarget, v.NumStates)
		for _, t := range v.Transitions {
			ml, ok := t.Label.(MarkerLabel)
			if !ok {
				continue
			}
			adj[t.Source] = append(adj[t.Source], MarkerTarget{Marker: ml.Marker, Target: t.Target})
		}
		v.assignAdj = adj
	})

	return v.assignAdj
}

// AssignClosure returns, for each source state s, every (marker, target)
// pair reachable from s by a chain of one-or-more assignation edges; each
// pair carries the marker of the last edge of its chain. The same pair
// appears once per distinct path reaching it; no deduplication is done.
func (v *VA) AssignClosure() [][]MarkerTarget {
	v.closureOnce.Do(func() {
		adj := v.AssignAdj()
		closure := make([][]MarkerTarget, v.NumStates)

		for s := 0; s < v.NumStates; s++ {
			closure[s] = closureFrom(adj, s)
		}
		v.assignClosure = closure
	})

	return v.assignClosure
}

// closureFrom enumerates every (marker, target) pair reachable from s by
// one-or-more assignation edges, via plain DFS over the (acyclic, by
// construction) assignation subgraph.
func closureFrom(adj [][]MarkerTarget, s int) []MarkerTarget {
	var out []MarkerTarget

	var visit func(cur int)
	visit = func(cur int) {
		for _, mt := range adj[cur] {
			out = append(out, mt)
			visit(mt.Target)
		}
	}
	visit(s)

	return out
}

// RevAssignClosure returns, for each target state t, every (marker,
// source) pair such that (marker, t) is in AssignClosure()[source].
func (v *VA) RevAssignClosure() [][]MarkerTarget {
	v.revClosureOnce.Do(func() {
		closure := v.AssignClosure()
		rev := make([][]MarkerTarget, v.NumStates)

		for s, pairs := range closure {
			for _, mt := range pairs {
				rev[mt.Target] = append(rev[mt.Target], MarkerTarget{Marker: mt.Marker, Target: s})
			}
		}
		v.revAssignClosure = rev
	})

	return v.revAssignClosure
}
