// Package extract flattens layout file bodies into per-attribute
// ordered lists of scalar values.
package extract

import (
	"github.com/pdxtools/guiscale/internal/grammar"
)

// Result maps an attribute name to the scalar values found under it,
// in document order. Duplicates are retained: repeated occurrences of
// one attribute are separate samples. Attributes that yielded no scalar
// value are absent from the map.
//
// A Result only exists for content that was actually read; unreadable
// files surface as errors in the caller before extraction runs, so an
// empty Result always means "zero recognized scalars", never "no
// content".
type Result map[string][]float64

// Count returns the total number of scalar values across attributes.
func (r Result) Count() int {
	n := 0
	for _, values := range r {
		n += len(values)
	}
	return n
}

// Extractor walks recognized occurrences and collects scalar leaves.
type Extractor struct {
	grammar *grammar.Grammar
}

// New creates an extractor over the shared grammar.
func New(g *grammar.Grammar) *Extractor {
	return &Extractor{grammar: g}
}

// Extract scans content and returns the scalar values per attribute.
// Sentinel values contribute nothing; composite blocks are walked and
// their scalar leaves contribute to the owning attribute's list.
func (e *Extractor) Extract(content string) Result {
	result := Result{}

	for _, occ := range e.grammar.Occurrences(content) {
		switch e.grammar.Classify(occ.Value) {
		case grammar.KindScalar:
			v, err := grammar.ParseScalar(occ.Value)
			if err != nil {
				continue // classified scalar, so this cannot happen
			}
			result[occ.Attribute] = append(result[occ.Attribute], v)

		case grammar.KindComposite:
			for _, pair := range e.grammar.Pairs(occ.Value) {
				if e.grammar.Classify(pair.Value) != grammar.KindScalar {
					continue
				}
				v, err := grammar.ParseScalar(pair.Value)
				if err != nil {
					continue
				}
				result[occ.Attribute] = append(result[occ.Attribute], v)
			}
		}
	}

	return result
}
