// Package grammar recognizes attribute=value occurrences in
// brace-delimited UI layout files and classifies their values.
//
// Extraction and substitution must operate on one Grammar instance:
// the recognized attribute set and the sentinel rule live here and
// nowhere else, so the two passes cannot drift apart.
package grammar

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Kind classifies a raw attribute value.
type Kind int

const (
	// KindSentinel values are never rescaled and pass through verbatim.
	// Percentages, @-references, time-suffixed literals ("10s") and the
	// exact literal -1, plus anything that fails scalar parsing.
	KindSentinel Kind = iota

	// KindComposite values are single-level { name = value ... } blocks.
	KindComposite

	// KindScalar values parse as decimal numbers and are rescaled.
	KindScalar
)

// Occurrence is one recognized attribute with the byte span of its raw
// value within the scanned text.
type Occurrence struct {
	Attribute string // canonical (lowercased) attribute name
	Value     string // raw value text, unclassified
	Start     int    // byte offset of Value in the input
	End       int
}

// Pair is one name = value entry inside a composite block, with the
// byte span of the value relative to the block text.
type Pair struct {
	Name  string
	Value string
	Start int
	End   int
}

// Grammar matches attribute occurrences for a fixed recognized set.
type Grammar struct {
	attrs   map[string]struct{}
	pattern *regexp.Regexp
	pairs   *regexp.Regexp
}

// Value tokens, in order: a single-level brace block, a signed decimal
// number with an optional unit/percent suffix, or a fallback run up to
// the next closing brace or newline. The suffix letters are captured so
// values like "10s" or "50%" stay intact for sentinel classification.
const valueToken = `(\{[^{}]*\}|-?\d+(?:\.\d+)?[%a-z]*|[^}\r\n]+)`

// New compiles a grammar for the given attribute names. Names are
// matched case-insensitively on word boundaries.
func New(attributes []string) (*Grammar, error) {
	if len(attributes) == 0 {
		return nil, fmt.Errorf("no attributes configured")
	}

	attrs := make(map[string]struct{}, len(attributes))
	quoted := make([]string, 0, len(attributes))
	for _, name := range attributes {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, dup := attrs[name]; dup {
			continue
		}
		attrs[name] = struct{}{}
		quoted = append(quoted, regexp.QuoteMeta(name))
	}
	if len(quoted) == 0 {
		return nil, fmt.Errorf("no attributes configured")
	}

	// Longest names first so shared prefixes resolve deterministically.
	sort.Slice(quoted, func(i, j int) bool {
		if len(quoted[i]) != len(quoted[j]) {
			return len(quoted[i]) > len(quoted[j])
		}
		return quoted[i] < quoted[j]
	})

	pattern, err := regexp.Compile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b\s*=\s*` + valueToken)
	if err != nil {
		return nil, fmt.Errorf("compile grammar: %w", err)
	}

	return &Grammar{
		attrs:   attrs,
		pattern: pattern,
		pairs:   regexp.MustCompile(`([A-Za-z_]\w*)\s*=\s*([^\s{}]+)`),
	}, nil
}

// Recognizes reports whether name is in the recognized attribute set.
func (g *Grammar) Recognizes(name string) bool {
	_, ok := g.attrs[strings.ToLower(name)]
	return ok
}

// Occurrences scans content and returns every recognized attribute
// occurrence in document order.
func (g *Grammar) Occurrences(content string) []Occurrence {
	idx := g.pattern.FindAllStringSubmatchIndex(content, -1)
	if idx == nil {
		return nil
	}

	occs := make([]Occurrence, 0, len(idx))
	for _, m := range idx {
		// m[2:4] is the attribute group, m[4:6] the value group.
		occs = append(occs, Occurrence{
			Attribute: strings.ToLower(content[m[2]:m[3]]),
			Value:     content[m[4]:m[5]],
			Start:     m[4],
			End:       m[5],
		})
	}
	return occs
}

// Pairs returns the name = value entries inside a composite block, with
// value spans relative to the block text.
func (g *Grammar) Pairs(block string) []Pair {
	idx := g.pairs.FindAllStringSubmatchIndex(block, -1)
	if idx == nil {
		return nil
	}

	pairs := make([]Pair, 0, len(idx))
	for _, m := range idx {
		pairs = append(pairs, Pair{
			Name:  block[m[2]:m[3]],
			Value: block[m[4]:m[5]],
			Start: m[4],
			End:   m[5],
		})
	}
	return pairs
}

// Classify applies the classification rules in order; first match wins.
//
//  1. Contains %, @ or "10s" → sentinel.
//  2. Exactly -1 → sentinel.
//  3. Starts with { → composite.
//  4. Parses as a float → scalar.
//  5. Anything else → sentinel pass-through, never an error.
func (g *Grammar) Classify(value string) Kind {
	v := strings.TrimSpace(value)

	if strings.ContainsAny(v, "%@") || strings.Contains(v, "10s") {
		return KindSentinel
	}
	if v == "-1" {
		return KindSentinel
	}
	if strings.HasPrefix(v, "{") {
		return KindComposite
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return KindScalar
	}
	return KindSentinel
}

// ParseScalar parses a scalar value. Callers are expected to have
// classified the value first.
func ParseScalar(value string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(value), 64)
}
