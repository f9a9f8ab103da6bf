// Package jump implements the indexed product DAG between a variable
// automaton and a document: the central structure that lets the
// enumerator skip over runs of the document containing no capture
// boundary, using precomputed boolean reachability between "landmark"
// vertices.
//
// A Jump is built one document layer at a time via Advance, pruned
// periodically via Clean, and queried via Query to walk backward from a
// frontier of VA states at one layer to the deepest landmark layer that
// reaches it. The five invariants linking jl, rlevel, reach, and the
// layer levelset (I1-I5) are maintained across every Advance and Clean
// call; see the package tests for the invariant checks themselves.
package jump

import (
	"errors"
	"sort"

	"github.com/dhardin/vaspan/bitmatrix"
	"github.com/dhardin/vaspan/levelset"
	"github.com/dhardin/vaspan/va"
)

// ErrEmptyLevel indicates that building the next layer would leave it
// with zero reachable vertices: the pattern cannot match any string with
// the document consumed so far as a prefix.
var ErrEmptyLevel = errors.New("jump: layer would be empty")

// layerKey indexes the reach map by an (i, j) layer pair, i <= j.
type layerKey = [2]int

// Jump is the incremental indexed product DAG described in the package
// doc comment.
type Jump struct {
	ls        *levelset.LevelSet
	lastLevel int

	jl        map[int][]int          // jl[level][pos] = jump level
	nonjump   map[int]map[int]bool   // nonjump[level][pos] = true iff landmark
	rlevel    map[int]map[int]struct{}
	revRlevel map[int]map[int]struct{}
	reach     map[layerKey]*bitmatrix.Matrix
	inJumps   map[int][]int
}

// New builds the initial layer (layer 0) from initialFrontier (normally
// just the VA's initial state) and closes it over assignation edges.
//
// Complexity: O(|initialFrontier| + size of its assignation closure).
func New(initialFrontier []int, assignClosure [][]va.MarkerTarget) *Jump {
	j := &Jump{
		ls:        levelset.New(),
		jl:        make(map[int][]int),
		nonjump:   make(map[int]map[int]bool),
		rlevel:    map[int]map[int]struct{}{0: {}},
		revRlevel: map[int]map[int]struct{}{0: {}},
		reach:     make(map[layerKey]*bitmatrix.Matrix),
		inJumps:   make(map[int][]int),
	}

	for _, s := range initialFrontier {
		pos := j.ls.Register(s, 0)
		j.growJL(0, pos+1)
		j.jl[0][pos] = 0
	}

	j.extendLevel(0, assignClosure)
	j.inJumps[0] = make([]int, j.ls.Len(0))
	j.lastLevel = 0

	return j
}

// LastLevel returns the highest layer index built so far.
func (j *Jump) LastLevel() int {
	return j.lastLevel
}

// growJL grows jl[level] to at least n entries, zero-filled.
func (j *Jump) growJL(level, n int) {
	cur := j.jl[level]
	if len(cur) >= n {
		return
	}
	grown := make([]int, n)
	copy(grown, cur)
	j.jl[level] = grown
}

// markNonjump flags the vertex at (level, pos) as a landmark: it carries
// an incoming assignation edge inside level.
func (j *Jump) markNonjump(level, pos int) {
	if j.nonjump[level] == nil {
		j.nonjump[level] = make(map[int]bool)
	}
	j.nonjump[level][pos] = true
}

func (j *Jump) isNonjump(level, pos int) bool {
	return j.nonjump[level][pos]
}

// extendLevel expands level by following the assignation closure out of
// every vertex already registered in it (step b of Advance, and the
// equivalent setup step for layer 0). Every newly reached vertex is
// marked nonjump and its jl is raised to at least its source's jl.
func (j *Jump) extendLevel(level int, assignClosure [][]va.MarkerTarget) {
	states := append([]int(nil), j.ls.States(level)...)

	for _, s := range states {
		sPos, _ := j.ls.Index(level, s)

		for _, mt := range assignClosure[s] {
			t := mt.Target
			tPos := j.ls.Register(t, level)
			j.growJL(level, tPos+1)
			j.markNonjump(level, tPos)

			if j.jl[level][tPos] < j.jl[level][sPos] {
				j.jl[level][tPos] = j.jl[level][sPos]
			}
		}
	}
}

// Advance reads one document character by consuming letterAdj (the VA's
// letter_adj for that character) and builds the next layer.
//
// Complexity: O(|V[L]| + |V[N]|^2) dominated by the reach matrix update.
func (j *Jump) Advance(letterAdj [][]int, assignClosure [][]va.MarkerTarget) error {
	L := j.lastLevel
	N := L + 1

	for _, s := range j.ls.States(L) {
		sPos, _ := j.ls.Index(L, s)

		for _, t := range letterAdj[s] {
			tPos := j.ls.Register(t, N)
			j.growJL(N, tPos+1)

			if j.isNonjump(L, sPos) {
				j.jl[N][tPos] = L
			} else if j.jl[N][tPos] < j.jl[L][sPos] {
				j.jl[N][tPos] = j.jl[L][sPos]
			}
		}
	}

	if j.ls.Len(N) == 0 {
		return ErrEmptyLevel
	}

	j.extendLevel(N, assignClosure)

	if err := j.computeReach(N, letterAdj); err != nil {
		return err
	}
	j.lastLevel = N

	return nil
}

// computeReach implements Advance's steps (c), (d), and (e): rlevel
// bookkeeping, the new reach[(L, N)] matrix and its compositions with
// existing reach matrices, and the in_jumps counter update.
func (j *Jump) computeReach(N int, letterAdj [][]int) error {
	L := N - 1

	rl := make(map[int]struct{})
	for pos := 0; pos < j.ls.Len(N); pos++ {
		rl[j.jl[N][pos]] = struct{}{}
	}
	j.rlevel[N] = rl

	for m := range rl {
		if j.revRlevel[m] == nil {
			j.revRlevel[m] = make(map[int]struct{})
		}
		j.revRlevel[m][N] = struct{}{}
	}

	mat, err := bitmatrix.New(j.ls.Len(L), j.ls.Len(N))
	if err != nil {
		return err
	}

	for _, s := range j.ls.States(L) {
		sPos, _ := j.ls.Index(L, s)

		for _, t := range letterAdj[s] {
			tPos, ok := j.ls.Index(N, t)
			if !ok {
				continue
			}
			if err := mat.Set(sPos, tPos); err != nil {
				return err
			}
		}
	}
	j.reach[layerKey{L, N}] = mat

	for m := range rl {
		if m >= L {
			continue
		}
		sub, ok := j.reach[layerKey{m, L}]
		if !ok {
			continue
		}
		prod, err := sub.Mul(mat)
		if err != nil {
			return err
		}
		j.reach[layerKey{m, N}] = prod
	}

	if _, ok := rl[L]; !ok {
		delete(j.reach, layerKey{L, N})
	}

	j.inJumps[N] = make([]int, j.ls.Len(N))
	for m := range rl {
		rm, ok := j.reach[layerKey{m, N}]
		if !ok {
			continue
		}
		if j.inJumps[m] == nil {
			j.inJumps[m] = make([]int, j.ls.Len(m))
		}
		for pos, v := range rm.RowSums() {
			if pos < len(j.inJumps[m]) {
				j.inJumps[m][pos] += v
			}
		}
	}

	return nil
}

// Clean prunes layer level of vertices useless to every remaining
// enumeration path: a vertex is useful iff it either still has an
// incoming jump from some upper layer, or it can reach (via in-layer
// assignation edges) another useful vertex. Returns false if level does
// not exist or nothing was removed.
//
// Complexity: O(|V[level]|) for the component walk, plus the cost of
// trimming the handful of reach matrices touching level.
func (j *Jump) Clean(level int, assignAdj [][]va.MarkerTarget) bool {
	if !j.ls.Has(level) {
		return false
	}

	states := append([]int(nil), j.ls.States(level)...)
	inLevel := make(map[int]struct{}, len(states))
	dead := make(map[int]struct{}, len(states))
	for _, s := range states {
		inLevel[s] = struct{}{}
		dead[s] = struct{}{}
	}

	seen := make(map[int]struct{})

	type frame struct {
		source int
		path   []int
	}

	for _, start := range states {
		if _, ok := seen[start]; ok {
			continue
		}

		stack := []frame{{source: start, path: []int{start}}}
		for len(stack) > 0 {
			fr := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			source, path := fr.source, fr.path
			seen[source] = struct{}{}

			sourcePos, _ := j.ls.Index(level, source)
			useful := sourcePos < len(j.inJumps[level]) && j.inJumps[level][sourcePos] > 0

			if !useful {
				for _, mt := range assignAdj[source] {
					if _, inLvl := inLevel[mt.Target]; !inLvl {
						continue
					}
					if _, stillDead := dead[mt.Target]; !stillDead {
						useful = true
						break
					}
				}
			}

			if useful {
				for _, v := range path {
					delete(dead, v)
				}
				path = nil
			}

			for _, mt := range assignAdj[source] {
				target := mt.Target
				if _, inLvl := inLevel[target]; !inLvl {
					continue
				}
				if _, already := seen[target]; already {
					continue
				}
				newPath := append(append([]int(nil), path...), target)
				stack = append(stack, frame{source: target, path: newPath})
			}
		}
	}

	if len(dead) == 0 {
		return false
	}

	removedCols := make([]int, 0, len(dead))
	for v := range dead {
		pos, _ := j.ls.Index(level, v)
		removedCols = append(removedCols, pos)
	}
	sort.Ints(removedCols)

	for uplevel := range j.revRlevel[level] {
		if m, ok := j.reach[layerKey{level, uplevel}]; ok {
			j.reach[layerKey{level, uplevel}] = m.DeleteRows(removedCols)
		}
	}

	for sublevel := range j.rlevel[level] {
		m, ok := j.reach[layerKey{sublevel, level}]
		if !ok {
			continue
		}

		diff := m.RowSumsOf(removedCols)
		if j.inJumps[sublevel] != nil {
			for pos, v := range diff {
				if pos < len(j.inJumps[sublevel]) {
					j.inJumps[sublevel][pos] -= v
				}
			}
		}
		j.reach[layerKey{sublevel, level}] = m.DeleteCols(removedCols)
	}

	j.ls.Remove(level, dead)
	j.inJumps[level] = deleteIndices(j.inJumps[level], removedCols)
	j.jl[level] = deleteIndices(j.jl[level], removedCols)
	j.nonjump[level] = remapNonjump(j.nonjump[level], removedCols, len(states))

	if !j.ls.Has(level) {
		for sublevel := range j.rlevel[level] {
			delete(j.reach, layerKey{sublevel, level})
		}
		for uplevel := range j.revRlevel[level] {
			delete(j.reach, layerKey{level, uplevel})
			delete(j.rlevel[uplevel], level)
		}
		for sublevel := range j.rlevel[level] {
			delete(j.revRlevel[sublevel], level)
		}
		delete(j.rlevel, level)
		delete(j.revRlevel, level)
		delete(j.jl, level)
		delete(j.nonjump, level)
		delete(j.inJumps, level)
	}

	return true
}

// deleteIndices returns a copy of slice with the (already sorted)
// positions in removed dropped, preserving the order of the rest.
func deleteIndices(slice []int, removed []int) []int {
	skip := make(map[int]bool, len(removed))
	for _, p := range removed {
		skip[p] = true
	}

	out := make([]int, 0, len(slice)-len(removed))
	for i, v := range slice {
		if skip[i] {
			continue
		}
		out = append(out, v)
	}

	return out
}

// remapNonjump repacks a position-keyed nonjump set after oldLen
// positions are compacted down by dropping the positions in removed.
func remapNonjump(set map[int]bool, removed []int, oldLen int) map[int]bool {
	skip := make(map[int]bool, len(removed))
	for _, p := range removed {
		skip[p] = true
	}

	out := make(map[int]bool)
	newPos := 0
	for old := 0; old < oldLen; old++ {
		if skip[old] {
			continue
		}
		if set[old] {
			out[newPos] = true
		}
		newPos++
	}

	return out
}

// Query finds the deepest landmark layer reachable backward from
// frontier (a set of VA states) at level, and projects frontier down to
// that layer. Returns (-1, nil) if no vertex in frontier has a jl (the
// frontier is unreachable from any landmark, normally only seen for a
// frontier that quietly fell out of the built layers).
//
// Complexity: O(|frontier| + |V[j]|*|frontier|) for the projection scan.
func (j *Jump) Query(level int, frontier []int) (int, []int) {
	best := -1
	found := false

	for _, v := range frontier {
		pos, ok := j.ls.Index(level, v)
		if !ok {
			continue
		}
		jl := j.jl[level][pos]
		found = true
		if jl > best {
			best = jl
		}
	}

	if !found {
		return -1, nil
	}
	if best == level {
		return best, nil
	}

	mat, ok := j.reach[layerKey{best, level}]
	if !ok {
		return best, nil
	}

	var projected []int
	for lpos, target := range j.ls.States(best) {
		reached := false
		for _, v := range frontier {
			kpos, ok := j.ls.Index(level, v)
			if !ok {
				continue
			}
			if mat.Test(lpos, kpos) {
				reached = true
				break
			}
		}
		if reached {
			projected = append(projected, target)
		}
	}

	return best, projected
}
