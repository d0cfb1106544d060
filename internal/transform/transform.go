// Package transform rewrites layout file bodies by rescaling scalar
// attribute values in place.
package transform

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pdxtools/guiscale/internal/extract"
	"github.com/pdxtools/guiscale/internal/grammar"
)

// ErrGrammarDrift reports that extraction and substitution disagreed on
// the scalar occurrences of an attribute. Both passes share one grammar
// instance, so this is an internal-consistency fault, not a value
// error.
var ErrGrammarDrift = errors.New("extraction and substitution disagree on scalar occurrences")

// Transformer rewrites content over the shared grammar. Sentinels pass
// through verbatim; composite blocks are recursed into; everything
// outside recognized values is preserved byte for byte.
type Transformer struct {
	grammar   *grammar.Grammar
	extractor *extract.Extractor
}

// New creates a transformer. The grammar must be the same instance used
// for extraction, or the two passes diverge silently.
func New(g *grammar.Grammar) *Transformer {
	return &Transformer{
		grammar:   g,
		extractor: extract.New(g),
	}
}

// ApplyFixed multiplies every scalar value by factor, rounding to the
// nearest integer. Used in batch mode where one externally supplied
// factor covers the whole file.
func (t *Transformer) ApplyFixed(content string, factor float64) string {
	out, err := t.rewrite(content, func(string) (float64, bool) {
		return factor, true
	}, nil)
	if err != nil {
		// Unreachable without a consistency tracker.
		return content
	}
	return out
}

// ApplyFactors rescales each attribute by its own learned factor.
// Attributes without an entry in factors are left unmodified; coverage
// gaps are expected and silently tolerated. Scalar values are consumed
// in document order against a precomputed extraction, and any
// disagreement between the two passes returns ErrGrammarDrift.
func (t *Transformer) ApplyFactors(content string, factors map[string]float64) (string, error) {
	tracker := newTracker(t.extractor.Extract(content))

	out, err := t.rewrite(content, func(attr string) (float64, bool) {
		f, ok := factors[attr]
		return f, ok
	}, tracker)
	if err != nil {
		return "", err
	}

	if rest := tracker.remaining(); rest > 0 {
		return "", fmt.Errorf("%w: %d extracted values never substituted", ErrGrammarDrift, rest)
	}
	return out, nil
}

// rewrite walks recognized occurrences and substitutes scaled values,
// copying all surrounding text untouched.
func (t *Transformer) rewrite(content string, factorFor func(attr string) (float64, bool), tracker *popTracker) (string, error) {
	occs := t.grammar.Occurrences(content)
	if len(occs) == 0 {
		return content, nil
	}

	var b strings.Builder
	b.Grow(len(content))

	last := 0
	for _, occ := range occs {
		b.WriteString(content[last:occ.Start])

		value, err := t.rewriteValue(occ.Attribute, occ.Value, factorFor, tracker)
		if err != nil {
			return "", err
		}
		b.WriteString(value)

		last = occ.End
	}
	b.WriteString(content[last:])

	return b.String(), nil
}

// rewriteValue classifies one raw value and returns its replacement.
func (t *Transformer) rewriteValue(attr, raw string, factorFor func(attr string) (float64, bool), tracker *popTracker) (string, error) {
	switch t.grammar.Classify(raw) {
	case grammar.KindScalar:
		return t.rewriteScalar(attr, raw, factorFor, tracker)

	case grammar.KindComposite:
		return t.rewriteComposite(attr, raw, factorFor, tracker)

	default:
		return raw, nil
	}
}

// rewriteComposite rescales the scalar leaves of a block, joining the
// results back with the original separators. The owning attribute's
// factor covers its nested values.
func (t *Transformer) rewriteComposite(attr, block string, factorFor func(attr string) (float64, bool), tracker *popTracker) (string, error) {
	pairs := t.grammar.Pairs(block)
	if len(pairs) == 0 {
		return block, nil
	}

	var b strings.Builder
	b.Grow(len(block))

	last := 0
	for _, pair := range pairs {
		b.WriteString(block[last:pair.Start])

		if t.grammar.Classify(pair.Value) == grammar.KindScalar {
			value, err := t.rewriteScalar(attr, pair.Value, factorFor, tracker)
			if err != nil {
				return "", err
			}
			b.WriteString(value)
		} else {
			b.WriteString(pair.Value)
		}

		last = pair.End
	}
	b.WriteString(block[last:])

	return b.String(), nil
}

func (t *Transformer) rewriteScalar(attr, raw string, factorFor func(attr string) (float64, bool), tracker *popTracker) (string, error) {
	v, err := grammar.ParseScalar(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q classified scalar but failed to parse", ErrGrammarDrift, raw)
	}

	if tracker != nil {
		if err := tracker.pop(attr, v); err != nil {
			return "", err
		}
	}

	factor, ok := factorFor(attr)
	if !ok {
		return raw, nil
	}
	return Round(v, factor), nil
}

// Round scales a value and formats the result as an integer. Rounding
// is half away from zero, applied here and nowhere else so the same
// (value, factor) pair always produces the same integer.
func Round(value, factor float64) string {
	return strconv.FormatInt(int64(math.Round(value*factor)), 10)
}

// popTracker consumes the precomputed extraction in document order.
type popTracker struct {
	pending extract.Result
}

func newTracker(result extract.Result) *popTracker {
	return &popTracker{pending: result}
}

func (p *popTracker) pop(attr string, value float64) error {
	values := p.pending[attr]
	if len(values) == 0 {
		return fmt.Errorf("%w: substitution found unextracted %s value %v", ErrGrammarDrift, attr, value)
	}
	if values[0] != value {
		return fmt.Errorf("%w: %s expected %v, substituting %v", ErrGrammarDrift, attr, values[0], value)
	}
	p.pending[attr] = values[1:]
	return nil
}

func (p *popTracker) remaining() int {
	return p.pending.Count()
}
