// Package attribution computes a lexical proxy for attention: how strongly a
// generated word relates to each token of the prompt, based on character
// trigram overlap and substring containment. It does not read any model
// internals.
package attribution

import "strings"

const (
	// ShingleSize is the length, in runes, of the substrings compared.
	ShingleSize = 3

	// SubstringBoost is added to a token's score when the word and the token
	// contain one another.
	SubstringBoost = 0.5

	maxScore = 1.0
)

// Score returns one relevance value per prompt token, in token order.
//
// When any value is nonzero the vector is normalized to sum to 1. When every
// value is zero (including the empty token list) the zeros are returned
// unchanged.
func Score(word string, tokens []string) []float64 {
	scores := make([]float64, len(tokens))
	if len(tokens) == 0 {
		return scores
	}

	w := strings.ToLower(word)
	if w == "" {
		return scores
	}
	wordShingles := shingles(w)

	canon := make([]string, len(tokens))
	for i, tok := range tokens {
		canon[i] = strings.ToLower(tok)
		scores[i] = jaccard(wordShingles, shingles(canon[i]))
	}

	for i, tok := range canon {
		if tok == "" {
			continue
		}
		if strings.Contains(tok, w) || strings.Contains(w, tok) {
			scores[i] = min(scores[i]+SubstringBoost, maxScore)
		}
	}

	var total float64
	for _, s := range scores {
		total += s
	}
	if total > 0 {
		for i := range scores {
			scores[i] /= total
		}
	}

	return scores
}

// shingleSet is a set of fixed-length rune substrings.
type shingleSet map[string]struct{}

// shingles returns the set of contiguous ShingleSize-rune substrings of s.
// Strings shorter than ShingleSize yield an empty set.
func shingles(s string) shingleSet {
	runes := []rune(s)
	if len(runes) < ShingleSize {
		return nil
	}

	set := make(shingleSet, len(runes)-ShingleSize+1)
	for i := 0; i+ShingleSize <= len(runes); i++ {
		set[string(runes[i:i+ShingleSize])] = struct{}{}
	}
	return set
}

// jaccard is |a ∩ b| / |a ∪ b|, or 0 when either set is empty.
func jaccard(a, b shingleSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for s := range a {
		if _, ok := b[s]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
