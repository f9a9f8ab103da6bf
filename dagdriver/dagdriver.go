// Package dagdriver builds the indexed product DAG (the jump package's
// Jump structure) for a fixed VA over a fixed document: one layer per
// document position, with periodic pruning at the schedule the
// specification prescribes. It is the glue between the automaton, the
// document, and the jump index — it holds no enumeration logic of its
// own.
package dagdriver

import (
	"context"

	"github.com/dhardin/vaspan/jump"
	"github.com/dhardin/vaspan/va"
	"github.com/dhardin/vaspan/vaspanlog"
)

// Driver owns a fully-built indexed DAG for one (VA, document) pair,
// ready to be handed to an Enumerator.
type Driver struct {
	va       *va.VA
	document []rune
	jump     *jump.Jump
}

// Option configures Build.
type Option func(*config)

type config struct {
	cleanDivisor int
	onLayer      func(level int)
	log          *vaspanlog.Logger
}

func defaultConfig() *config {
	return &config{cleanDivisor: 1, log: vaspanlog.Discard()}
}

// WithCleanDivisor scales down the exponential cleaning schedule by n:
// instead of cleaning d = l & (-l) layers after building layer l, only
// max(1, d/n) are cleaned. A larger divisor trades slower pruning (more
// memory retained) for fewer clean calls; n <= 1 is a no-op.
func WithCleanDivisor(n int) Option {
	return func(c *config) {
		if n > 1 {
			c.cleanDivisor = n
		}
	}
}

// WithOnLayer registers a callback invoked after each layer is built,
// receiving the new layer's index (1-based: the first call reports 1).
// Used by callers that want preprocessing progress feedback without the
// driver depending on a progress-bar library.
func WithOnLayer(fn func(level int)) Option {
	return func(c *config) { c.onLayer = fn }
}

// WithLogger replaces the default no-op logger with l. Build reports
// each layer built and each layer pruned by the cleaning schedule via
// l.Debugf; nothing is logged by default.
func WithLogger(l *vaspanlog.Logger) Option {
	return func(c *config) { c.log = l }
}

// Build runs the full preprocessing phase: constructs layer 0 from the
// VA's initial state, then consumes document one rune at a time,
// advancing the jump index and cleaning layers at the schedule from
// the specification's cleaning-schedule design note. Returns
// jump.ErrEmptyLevel if some prefix of document makes the VA's language
// empty; the caller is expected to convert that into an empty match
// stream rather than surface it.
func Build(ctx context.Context, v *va.VA, document []rune, opts ...Option) (*Driver, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	j := jump.New([]int{v.Initial}, v.AssignClosure())

	for pos := 0; pos < len(document); pos++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		letterAdj := v.LetterAdj(document[pos])
		if err := j.Advance(letterAdj, v.AssignClosure()); err != nil {
			return nil, err
		}

		level := pos + 1
		cfg.log.Debugf("built layer %d", level)
		if cfg.onLayer != nil {
			cfg.onLayer(level)
		}

		depth := level & -level
		depth = depth / cfg.cleanDivisor
		if depth < 1 {
			depth = 1
		}

		for l := level - 1; l >= level-depth && l >= 0; l-- {
			cfg.log.Debugf("cleaning layer %d (scheduled from level %d)", l, level)
			if j.Clean(l, v.AssignAdj()) {
				cfg.log.Debugf("clean discarded dead vertices in layer %d", l)
			}
		}
	}

	cfg.log.Infof("preprocessing complete: %d layers built", len(document))

	return &Driver{va: v, document: document, jump: j}, nil
}

// VA returns the automaton this driver was built for.
func (d *Driver) VA() *va.VA { return d.va }

// Document returns the document this driver was built against.
func (d *Driver) Document() []rune { return d.document }

// Jump returns the built indexed DAG.
func (d *Driver) Jump() *jump.Jump { return d.jump }
