// Package engine ties the dataset, inverted index, and query parser together
// into the retrieval and ranking pipeline.
//
// An Engine is built in two blocking steps (Load ingests the snapshot
// sources, BuildIndex tokenizes and indexes them) and then serves read-only
// queries. The built table and index are published as one immutable snapshot
// behind an atomic pointer: queries from any number of goroutines read the
// snapshot without locking, and a hot reload builds a complete new snapshot
// offline before swapping the pointer. The nil pointer doubles as the ready
// gate; no query is served before the first build completes.
//
// Query execution is a fixed multi-stage pipeline: lexical scoring over the
// inverted index, then location, leadership, and condition filtering (each
// condition narrowing the survivors of the previous pass, with quantile
// thresholds recomputed per pass), then a score-descending sort and
// unit-scaled formatting.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chriscorrea/tickersift/internal/dataset"
	"github.com/chriscorrea/tickersift/internal/fetch"
	"github.com/chriscorrea/tickersift/internal/index"
	"github.com/chriscorrea/tickersift/internal/query"
	"github.com/chriscorrea/tickersift/internal/tokenize"
)

// snapshot is one immutable (table, index) pair served to queries.
type snapshot struct {
	table *dataset.Table
	index *index.Index
}

// Engine owns the dataset table and inverted index for the process lifetime
// and executes queries against them.
type Engine struct {
	schema   dataset.Schema
	keywords map[string]string // stemmed keyword phrase → numeric field
	tok      *tokenize.Tokenizer
	parser   *query.Parser
	logger   *slog.Logger

	mu      sync.Mutex     // guards pending between Load and BuildIndex
	pending *dataset.Table // loaded but not yet indexed

	snap atomic.Pointer[snapshot]
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSchema overrides the snapshot column layout.
func WithSchema(schema dataset.Schema) Option {
	return func(e *Engine) {
		e.schema = schema
	}
}

// WithKeywordFields overrides the keyword→field map. Keys are raw phrases;
// they are stemmed per word during construction.
func WithKeywordFields(m map[string]string) Option {
	return func(e *Engine) {
		e.keywords = m
	}
}

// New creates an Engine with the default schema and keyword map. The engine
// is not ready until Load and BuildIndex have both completed.
func New(opts ...Option) *Engine {
	tok := tokenize.New()
	e := &Engine{
		schema:   DefaultSchema(),
		keywords: DefaultKeywordFields(),
		tok:      tok,
		parser:   query.NewParser(tok),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	// stem the keyword map keys once, so they match tokens produced at
	// query time
	stemmed := make(map[string]string, len(e.keywords))
	for raw, field := range e.keywords {
		stemmed[e.stemPhrase(raw)] = field
	}
	e.keywords = stemmed

	return e
}

// stemPhrase stems each whitespace-separated word of a keyword phrase.
func (e *Engine) stemPhrase(phrase string) string {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = e.tok.Stem(w)
	}
	return strings.Join(words, " ")
}

// Load ingests one or more snapshot sources (file paths, http(s) URLs, or
// "-" for stdin) into a pending table. A missing symbol column or an
// unreadable source aborts the load; the engine stays in its previous state.
func (e *Engine) Load(ctx context.Context, sources ...string) error {
	table, err := e.loadTable(ctx, sources)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.pending = table
	e.mu.Unlock()

	e.logger.Debug("snapshot sources loaded", "sources", len(sources), "rows", table.Len())
	return nil
}

// BuildIndex tokenizes the pending table, builds the inverted index, and
// publishes the pair as the live snapshot. Until the first successful call,
// Query returns ErrNotReady.
func (e *Engine) BuildIndex() error {
	e.mu.Lock()
	table := e.pending
	e.pending = nil
	e.mu.Unlock()

	if table == nil {
		return ErrNoDataset
	}

	table.TokenizeAll(e.tok)
	idx := index.Build(table)
	e.snap.Store(&snapshot{table: table, index: idx})

	e.logger.Debug("index published", "rows", table.Len(), "terms", idx.Terms())
	return nil
}

// Reload builds a complete new table and index from the sources and swaps it
// in atomically. In-flight queries keep reading the old snapshot; the live
// dataset is never mutated in place.
func (e *Engine) Reload(ctx context.Context, sources ...string) error {
	table, err := e.loadTable(ctx, sources)
	if err != nil {
		return err
	}
	table.TokenizeAll(e.tok)
	idx := index.Build(table)
	e.snap.Store(&snapshot{table: table, index: idx})

	e.logger.Debug("snapshot reloaded", "rows", table.Len(), "terms", idx.Terms())
	return nil
}

// Ready reports whether an index snapshot has been published.
func (e *Engine) Ready() bool {
	return e.snap.Load() != nil
}

// loadTable opens every source and parses them into one table.
func (e *Engine) loadTable(ctx context.Context, sources []string) (*dataset.Table, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no snapshot sources provided")
	}

	readers := make([]io.Reader, 0, len(sources))
	closers := make([]io.Closer, 0, len(sources))
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	for _, source := range sources {
		rc, err := fetch.Open(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("opening snapshot source %q: %w", source, err)
		}
		readers = append(readers, rc)
		closers = append(closers, rc)
	}

	return dataset.Load(e.schema, readers...)
}

// FieldValue is one formatted numeric field in a query result, keyed by the
// condition's original keyword phrase.
type FieldValue struct {
	Keyword string `json:"keyword"`
	Value   string `json:"value"`
}

// Result is one ranked entity in a query's result set.
type Result struct {
	Symbol string       `json:"symbol"`
	Name   string       `json:"name"`
	Fields []FieldValue `json:"fields,omitempty"`
	Score  string       `json:"tf_idf_score"`
}

// Query parses the raw query, scores candidates via the inverted index,
// applies the parsed filter facets, and returns the surviving entities sorted
// by accumulated score (descending; ties break by symbol for determinism).
//
// An empty raw query returns ErrEmptyQuery ("nothing asked"), which callers
// must distinguish from a non-nil empty result set ("nothing matched"). If no
// index snapshot has been published yet, Query returns ErrNotReady.
func (e *Engine) Query(raw string) ([]Result, error) {
	snap := e.snap.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	if raw == "" {
		return nil, ErrEmptyQuery
	}

	intent := e.parser.Parse(raw)

	// accumulate tf-idf weight per symbol across all matching free-text terms
	scores := make(map[string]float64)
	for _, term := range intent.Text {
		for symbol, weight := range snap.index.Postings(e.tok.Stem(term)) {
			scores[symbol] += weight
		}
	}

	// candidate set: symbols with a nonzero accumulated score
	candidates := make([]int, 0, len(scores))
	for symbol := range scores {
		if rowIdx, ok := snap.table.RowIndex(symbol); ok {
			candidates = append(candidates, rowIdx)
		}
	}
	e.logger.Debug("candidates scored", "query", raw, "terms", len(intent.Text), "candidates", len(candidates))

	survivors := e.filterCandidates(snap, candidates, intent)

	// sort by accumulated score, descending; symbol breaks ties
	sort.SliceStable(survivors, func(i, j int) bool {
		si := scores[snap.table.Row(survivors[i]).Symbol]
		sj := scores[snap.table.Row(survivors[j]).Symbol]
		if si != sj {
			return si > sj
		}
		return snap.table.Row(survivors[i]).Symbol < snap.table.Row(survivors[j]).Symbol
	})

	results := make([]Result, 0, len(survivors))
	for _, rowIdx := range survivors {
		row := snap.table.Row(rowIdx)
		results = append(results, Result{
			Symbol: row.Symbol,
			Name:   strings.TrimSpace(row.Name),
			Fields: e.formatConditionFields(row, intent.Conditions),
			Score:  fmt.Sprintf("%.5f", scores[row.Symbol]),
		})
	}
	return results, nil
}

// filterCandidates applies the parsed filter facets in fixed order: location,
// then leadership, then each condition in the order parsed. Quantile
// thresholds are recomputed per condition over whatever candidates survived
// the prior passes, so condition order affects results.
func (e *Engine) filterCandidates(snap *snapshot, candidates []int, intent *query.Intent) []int {
	if len(intent.Location) > 0 {
		kept := candidates[:0:0]
		for _, rowIdx := range candidates {
			if containsAll(snap.table.FieldTokens(locationField, rowIdx), intent.Location) {
				kept = append(kept, rowIdx)
			}
		}
		candidates = kept
	}

	if len(intent.Leadership) > 0 {
		kept := candidates[:0:0]
		for _, rowIdx := range candidates {
			if containsAll(snap.table.FieldTokens(leadershipField, rowIdx), intent.Leadership) {
				kept = append(kept, rowIdx)
			}
		}
		candidates = kept
	}

	for _, cond := range intent.Conditions {
		field, ok := e.keywords[cond.Keyword]
		if !ok {
			// unresolvable keyword: drop the condition, keep the candidates
			e.logger.Debug("skipping unresolvable condition keyword", "keyword", cond.Keyword)
			continue
		}

		threshold := 0.0
		if cond.Threshold != nil {
			threshold = *cond.Threshold
		} else {
			values := make([]float64, 0, len(candidates))
			for _, rowIdx := range candidates {
				values = append(values, snap.table.Row(rowIdx).Numeric[field])
			}
			q := 0.25
			if cond.Above {
				q = 0.75
			}
			threshold = quantile(values, q)
		}

		// strict comparisons; NaN values fail both directions and drop out
		kept := candidates[:0:0]
		for _, rowIdx := range candidates {
			v := snap.table.Row(rowIdx).Numeric[field]
			if (cond.Above && v > threshold) || (!cond.Above && v < threshold) {
				kept = append(kept, rowIdx)
			}
		}
		e.logger.Debug("condition applied", "keyword", cond.Keyword, "field", field,
			"threshold", threshold, "before", len(candidates), "after", len(kept))
		candidates = kept
	}

	return candidates
}

// formatConditionFields renders the resolved field value of every parsed
// condition for one row. A duplicate keyword keeps its first position and
// takes the last value; an unresolvable keyword is skipped.
func (e *Engine) formatConditionFields(row dataset.Row, conditions []query.Condition) []FieldValue {
	var fields []FieldValue
	position := make(map[string]int, len(conditions))

	for _, cond := range conditions {
		field, ok := e.keywords[cond.Keyword]
		if !ok {
			continue
		}
		value := formatMagnitude(row.Numeric[field])
		if at, dup := position[cond.Keyword]; dup {
			fields[at].Value = value
			continue
		}
		position[cond.Keyword] = len(fields)
		fields = append(fields, FieldValue{Keyword: cond.Keyword, Value: value})
	}
	return fields
}

// containsAll reports whether every required entry occurs in the token list.
func containsAll(tokens []string, required []string) bool {
	for _, want := range required {
		found := false
		for _, token := range tokens {
			if token == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
