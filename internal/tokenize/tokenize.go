// Package tokenize provides text normalization for indexing and query parsing.
//
// Every piece of text that enters the engine (entity descriptions, leadership
// names, and user queries alike) passes through the same pipeline: split into
// alphanumeric words, lowercase, stem with the Snowball English stemmer, and
// (optionally) drop stopwords. The stopword set is itself stemmed once at
// construction time, so membership tests always compare stemmed-to-stemmed.
//
// Usage Example:
//
//	tok := tokenize.New()
//	tokens := tok.Tokenize("Designs and manufactures GPU chips")
//	// ["design", "manufactur", "gpu", "chip"]
//
// Tokenization is deterministic: the same input always yields the same output.
package tokenize

import (
	"regexp"
	"strings"

	"github.com/kljensen/snowball"
)

// wordRegex is compiled once at package initialization; a run of non-word
// characters is a delimiter and is discarded
var wordRegex = regexp.MustCompile(`\w+`)

// punctRegex strips punctuation from raw stopwords (e.g. "don't" -> "dont")
// before they are stemmed into the stopword set
var punctRegex = regexp.MustCompile(`[^a-zA-Z\d\s:]`)

// Tokenizer normalizes raw text into stemmed token sequences.
type Tokenizer struct {
	stopwords map[string]struct{}
}

// New creates a Tokenizer with a stemmed English stopword set.
// The raw stopword list is cleaned of punctuation, lowercased, and stemmed,
// so stopword membership is checked against already-stemmed tokens.
func New() *Tokenizer {
	t := &Tokenizer{
		stopwords: make(map[string]struct{}, len(englishStopwords)),
	}
	for _, sw := range englishStopwords {
		cleaned := punctRegex.ReplaceAllString(sw, "")
		t.stopwords[t.Stem(cleaned)] = struct{}{}
	}
	return t
}

// Stem lowercases and stems a single word using the Snowball English stemmer.
// If stemming fails, the lowercased original is returned unchanged.
func (t *Tokenizer) Stem(word string) string {
	word = strings.ToLower(word)
	stemmed, err := snowball.Stem(word, "english", true)
	if err != nil {
		return word
	}
	return stemmed
}

// Tokenize splits text into stemmed, lowercased tokens with stopwords removed.
// Empty or whitespace-only input yields an empty sequence, not an error.
func (t *Tokenizer) Tokenize(text string) []string {
	return t.tokenize(text, true)
}

// TokenizeKeepStopwords is Tokenize without stopword removal. Query parsing
// relies on this: grammar markers like "with" and "in" are stopwords in the
// corpus sense but load-bearing in the query grammar.
func (t *Tokenizer) TokenizeKeepStopwords(text string) []string {
	return t.tokenize(text, false)
}

// IsStopword reports whether a stemmed token is in the stopword set.
func (t *Tokenizer) IsStopword(stemmed string) bool {
	_, ok := t.stopwords[stemmed]
	return ok
}

func (t *Tokenizer) tokenize(text string, removeStopwords bool) []string {
	words := wordRegex.FindAllString(strings.ToLower(text), -1)

	tokens := make([]string, 0, len(words))
	for _, word := range words {
		stemmed := t.Stem(word)
		if removeStopwords {
			if _, isStopword := t.stopwords[stemmed]; isStopword {
				continue
			}
		}
		tokens = append(tokens, stemmed)
	}

	return tokens
}
