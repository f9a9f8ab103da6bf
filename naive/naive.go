// Package naive provides an exponential-time reference enumerator used
// only for differential testing against the indexed-DAG engine: it
// explores every accepting run of a VA over a document by explicit
// backtracking, with no notion of layers, landmarks, or jumps.
package naive

import (
	"github.com/dhardin/vaspan/mapping"
	"github.com/dhardin/vaspan/va"
)

type frame struct {
	state    int
	position int
	soFar    mapping.Mapping
}

// EnumMappings returns every mapping produced by an accepting run of v
// over document, via unrestricted DFS backtracking. It has no delay
// guarantee and is meant for small VAs and short documents only (tests
// keep |document| <= 30 and |v.NumStates| <= 20, per the equivalence
// property this package exists to check).
func EnumMappings(v *va.VA, document []rune) []mapping.Mapping {
	var out []mapping.Mapping

	stack := []frame{{state: v.Initial, position: 0, soFar: nil}}

	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if fr.position == len(document) && v.IsFinal(fr.state) && mapping.Valid(v.Variables, fr.soFar) {
			out = append(out, fr.soFar)
		}

		for _, t := range v.Transitions {
			if t.Source != fr.state {
				continue
			}

			switch label := t.Label.(type) {
			case va.MarkerLabel:
				next := append(append(mapping.Mapping(nil), fr.soFar...), mapping.Entry{
					Marker:   label.Marker,
					Position: fr.position,
				})
				stack = append(stack, frame{state: t.Target, position: fr.position, soFar: next})

			case va.LetterLabel:
				if fr.position < len(document) && label.Atom.Matches(document[fr.position]) {
					stack = append(stack, frame{state: t.Target, position: fr.position + 1, soFar: fr.soFar})
				}
			}
		}
	}

	return out
}
