// Copyright fmforge, 2026. All rights reserved.

// Package similarity scores lexical closeness of feature names. Scores
// feed both fragment merging and coverage evaluation, so the function is
// deterministic: same pair, same score, no randomness and no model calls.
// Implements: docs/ARCHITECTURE § Similarity.
package similarity

import (
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/unicode/norm"
)

const defaultCacheSize = 4096

// prepared is the analyzed form of a name, cached per surface string.
type prepared struct {
	norm    string
	tokens  map[string]struct{}
	bigrams map[string]int
	nbig    int
}

// Matcher scores name pairs. Safe for sequential reuse; the loop and the
// evaluator each own one. Not safe for concurrent use.
type Matcher struct {
	cache *lru.Cache[string, prepared]
}

// NewMatcher returns a Matcher with a prepared-form cache of the given
// size. Non-positive sizes fall back to the default.
func NewMatcher(cacheSize int) *Matcher {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	// lru.New errors only on non-positive size.
	cache, _ := lru.New[string, prepared](cacheSize)
	return &Matcher{cache: cache}
}

// Normalize canonicalizes a feature name for comparison: NFC form,
// word-split (separators and camelCase boundaries), casefolded, joined
// by single spaces.
func Normalize(name string) string {
	return strings.Join(tokenize(name), " ")
}

// Score returns the similarity of two names in [0,1]. Equal normalized
// forms score 1. Otherwise the score is the larger of the token-set
// Jaccard index and the character-bigram Dice coefficient, so multiword
// names match on shared words and near-misses match on shared spelling.
func (m *Matcher) Score(a, b string) float64 {
	pa := m.prepare(a)
	pb := m.prepare(b)

	if pa.norm == "" || pb.norm == "" {
		if pa.norm == pb.norm {
			return 1
		}
		return 0
	}
	if pa.norm == pb.norm {
		return 1
	}

	j := jaccard(pa.tokens, pb.tokens)
	d := dice(pa, pb)
	if d > j {
		return d
	}
	return j
}

func (m *Matcher) prepare(name string) prepared {
	if p, ok := m.cache.Get(name); ok {
		return p
	}

	tokens := tokenize(name)
	p := prepared{
		norm:    strings.Join(tokens, " "),
		tokens:  make(map[string]struct{}, len(tokens)),
		bigrams: map[string]int{},
	}
	for _, t := range tokens {
		p.tokens[t] = struct{}{}
	}
	compact := strings.Join(tokens, "")
	runes := []rune(compact)
	for i := 0; i+1 < len(runes); i++ {
		p.bigrams[string(runes[i:i+2])]++
		p.nbig++
	}

	m.cache.Add(name, p)
	return p
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func dice(a, b prepared) float64 {
	if a.nbig == 0 || b.nbig == 0 {
		return 0
	}
	shared := 0
	for g, ca := range a.bigrams {
		if cb, ok := b.bigrams[g]; ok {
			if cb < ca {
				shared += cb
			} else {
				shared += ca
			}
		}
	}
	return 2 * float64(shared) / float64(a.nbig+b.nbig)
}

// tokenize splits a name into lowercase word tokens. Splits happen at
// non-alphanumeric runs and at camelCase boundaries, so "PaymentGateway",
// "payment_gateway", and "Payment Gateway" all tokenize identically.
func tokenize(name string) []string {
	s := norm.NFC.String(name)

	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = nil
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(cur) > 0 && boundary(runes, i) {
			flush()
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

// boundary reports whether a camelCase word break precedes runes[i]:
// lower-to-upper ("paymentGateway") or the last upper of an acronym run
// ("HTTPServer" splits before "Server").
func boundary(runes []rune, i int) bool {
	if i == 0 || !unicode.IsUpper(runes[i]) {
		return false
	}
	prev := runes[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	if unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
		return true
	}
	return false
}
