// Package tokenizer splits raw text into word, punctuation and whitespace
// units. It is a visual approximation of model tokenization used for prompt
// analysis and as the token axis of the attribution view; it is not the
// provider's real vocabulary.
package tokenizer

import (
	"regexp"
	"strings"
)

// Kind classifies a Token.
type Kind string

const (
	KindWord  Kind = "word"
	KindPunct Kind = "punct"
	KindSpace Kind = "space"
)

// Token is a single fragment of the input text, in original order.
type Token struct {
	Text string `json:"text"`
	Kind Kind   `json:"kind"`
}

// pattern matches, in priority order: a run of letters/digits/underscore,
// a single non-space non-word rune, or a run of whitespace.
var (
	pattern = regexp.MustCompile(`[\p{L}\p{N}_]+|[^\p{L}\p{N}_\s]|\s+`)
	wordRun = regexp.MustCompile(`^[\p{L}\p{N}_]+$`)
)

// Tokenize splits text into its general form, whitespace included.
// Concatenating the Text of every returned token yields text unchanged.
func Tokenize(text string) []Token {
	matches := pattern.FindAllString(text, -1)
	tokens := make([]Token, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, Token{Text: m, Kind: classify(m)})
	}
	return tokens
}

// PromptTokens returns the attribution token list for a prompt: the
// tokenization of text with whitespace-only fragments removed.
func PromptTokens(text string) []string {
	tokens := Tokenize(text)
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t.Kind == KindSpace {
			continue
		}
		out = append(out, t.Text)
	}
	return out
}

func classify(fragment string) Kind {
	if strings.TrimSpace(fragment) == "" {
		return KindSpace
	}
	if wordRun.MatchString(fragment) {
		return KindWord
	}
	return KindPunct
}
