// Package index builds the inverted index over a tokenized dataset.
//
// The index maps token → (symbol → weight), where weight is the token's
// relative frequency within an entity's combined text multiplied by its
// inverse document frequency across the whole corpus. The idf here is
// deliberately 1/df, inverse-proportional rather than the classical logarithm.
// Rarer tokens score strictly higher, which is exactly the monotonic behavior
// the engine's ranking contract depends on; do not swap in log(N/df).
//
// Building is a one-time, CPU-bound pass; the resulting index is read-only
// and safe for concurrent lookups.
package index

import (
	"log/slog"

	"github.com/chriscorrea/tickersift/internal/dataset"
)

// Index holds document frequencies, inverse document frequencies, and the
// token→symbol→weight postings for one tokenized dataset.
type Index struct {
	df       map[string]int
	idf      map[string]float64
	postings map[string]map[string]float64
}

// Build constructs the inverted index from a table's combined-text token
// caches. The table must already be tokenized. Building is idempotent:
// calling Build twice over unchanged token caches yields an identical index.
func Build(t *dataset.Table) *Index {
	idx := &Index{
		df:       make(map[string]int),
		idf:      make(map[string]float64),
		postings: make(map[string]map[string]float64),
	}

	// document frequency: each row counts at most once per token, even if
	// the token repeats within that row's combined text
	for i := 0; i < t.Len(); i++ {
		seen := make(map[string]struct{})
		for _, token := range t.CombinedTokens(i) {
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			idx.df[token]++
		}
	}

	// idf is fixed once computed from the full corpus
	for token, df := range idx.df {
		idx.idf[token] = 1.0 / float64(df)
	}

	// per-row term frequencies scaled by idf
	for i := 0; i < t.Len(); i++ {
		tokens := t.CombinedTokens(i)
		if len(tokens) == 0 {
			continue
		}

		counts := make(map[string]int)
		for _, token := range tokens {
			counts[token]++
		}

		symbol := t.Row(i).Symbol
		total := float64(len(tokens))
		for token, count := range counts {
			weights, ok := idx.postings[token]
			if !ok {
				weights = make(map[string]float64)
				idx.postings[token] = weights
			}
			weights[symbol] = float64(count) / total * idx.idf[token]
		}
	}

	slog.Debug("inverted index built", "rows", t.Len(), "terms", len(idx.df))
	return idx
}

// Postings returns the symbol→weight map for a token, or nil if the token
// does not occur in the corpus. Callers must not mutate the returned map.
func (x *Index) Postings(token string) map[string]float64 {
	return x.postings[token]
}

// IDF returns the inverse document frequency of a token and whether the token
// occurs in the corpus at all.
func (x *Index) IDF(token string) (float64, bool) {
	idf, ok := x.idf[token]
	return idf, ok
}

// DocFrequency returns the number of entities whose combined text contains
// the token at least once.
func (x *Index) DocFrequency(token string) int {
	return x.df[token]
}

// Terms returns the number of distinct tokens in the corpus.
func (x *Index) Terms() int {
	return len(x.df)
}
