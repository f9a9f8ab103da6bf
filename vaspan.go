// Package vaspan enumerates every valid marker mapping — and therefore
// every match, including every distinct capture-group assignment — of a
// variable automaton (VA) over a fixed, in-memory document. Matches are
// produced lazily with preprocessing linear in document size and
// amortized constant delay per emitted match.
//
//	atom/, variable/, va/ — the automaton data model
//	levelset/  — per-layer ordered vertex registry
//	bitmatrix/ — packed boolean reachability matrices
//	jump/      — the incremental indexed product DAG
//	dagdriver/ — preprocessing: builds the indexed DAG one document
//	             position at a time and runs the cleaning schedule
//	enumerator/ — the constant-delay backward walk that emits mappings
//	mapping/   — mapping -> Match conversion
//	naive/     — exponential reference enumerator, test-only
//
// The surface regular-expression syntax, its Glushkov-style compiler
// into a VA, and any CLI or graph-rendering front end are external
// collaborators: this module starts at the VA and ends at a stream of
// Match values.
package vaspan

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/dhardin/vaspan/dagdriver"
	"github.com/dhardin/vaspan/enumerator"
	"github.com/dhardin/vaspan/jump"
	"github.com/dhardin/vaspan/mapping"
	"github.com/dhardin/vaspan/va"
)

// ErrEmptyLanguage indicates the VA accepts no string over some prefix
// of the document. EnumMatches never returns this error: it converts
// the condition into an empty match stream, matching the boundary
// contract described for Jump.Advance.
var ErrEmptyLanguage = errors.New("vaspan: empty language over document prefix")

// ErrInvalidPattern is returned unchanged from a parser collaborator;
// this package never constructs one itself, since pattern compilation
// is out of scope (see the package doc comment).
var ErrInvalidPattern = errors.New("vaspan: invalid pattern")

// EnumMatches returns a lazy sequence of every Match the VA v produces
// over document. If v's language is empty over some prefix of document,
// the sequence is simply empty; no error is surfaced for that case, per
// the specification's error-taxonomy kind 2 (empty language is handled
// locally, never surfaced).
//
// Any other preprocessing failure (currently only ctx cancellation) is
// returned as an error instead of a sequence.
func EnumMatches(ctx context.Context, v *va.VA, document []rune, opts ...dagdriver.Option) (iter.Seq[mapping.Match], error) {
	driver, err := dagdriver.Build(ctx, v, document, opts...)
	if err != nil {
		if errors.Is(err, jump.ErrEmptyLevel) {
			return func(func(mapping.Match) bool) {}, nil
		}

		return nil, fmt.Errorf("vaspan: EnumMatches: %w", err)
	}

	enum := enumerator.New(driver)

	return func(yield func(mapping.Match) bool) {
		for m := range enum.Mappings() {
			match, ok := mapping.ToMatch(v.Variables, m)
			if !ok {
				continue
			}
			if !yield(match) {
				return
			}
		}
	}, nil
}
