// Package dataset provides the in-memory row-oriented table of entity records
// that the search engine indexes and filters.
//
// A Table is built once from one or more tabular CSV snapshots. Rows from all
// sources are concatenated into one logical table, missing numeric values are
// coerced to an explicit NaN sentinel, and a symbol→row map is constructed for
// O(1) identity lookup. After loading, TokenizeAll computes the per-field and
// combined-text token caches that indexing and filtering read from.
//
// The table is read-only once built; queries never mutate it.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/chriscorrea/tickersift/internal/tokenize"
)

// ErrMissingSymbolColumn indicates a snapshot without the unique symbol
// column; the table cannot be queried, so this is a fatal load error.
var ErrMissingSymbolColumn = errors.New("snapshot is missing the symbol column")

// Schema declares the column layout of a snapshot source.
type Schema struct {
	SymbolColumn  string   // unique identifier column (required in every source)
	NameColumn    string   // display name column
	TextFields    []string // named text fields (description, industry, ...)
	NumericFields []string // named numeric fields (price, market_cap, ...)
	Sentinel      string   // literal placeholder marking a missing numeric value
}

// Row is one entity record: a tradable symbol with its text and numeric
// fields. A missing numeric value is IEEE NaN, never 0; downstream
// comparisons and quantiles must treat it as absent.
type Row struct {
	Symbol  string
	Name    string
	Text    map[string]string
	Numeric map[string]float64
}

// Table is the in-memory dataset plus its tokenized field caches.
type Table struct {
	schema   Schema
	rows     []Row
	bySymbol map[string]int

	// token caches, populated by TokenizeAll
	combined    [][]string
	fieldTokens map[string][][]string
}

// Load ingests one or more tabular sources and concatenates their rows into a
// single table. Each source must carry a header row including the symbol
// column. Numeric cells equal to the declared sentinel, empty, or unparsable
// are coerced to NaN so downstream arithmetic does not silently misinterpret
// a placeholder string.
func Load(schema Schema, sources ...io.Reader) (*Table, error) {
	t := &Table{
		schema:   schema,
		bySymbol: make(map[string]int),
	}

	for i, src := range sources {
		if err := t.readSource(src); err != nil {
			return nil, fmt.Errorf("loading snapshot %d: %w", i+1, err)
		}
	}

	// symbol→row map; a duplicate symbol resolves to its last occurrence
	for i, row := range t.rows {
		t.bySymbol[row.Symbol] = i
	}

	slog.Debug("dataset loaded", "sources", len(sources), "rows", len(t.rows))
	return t, nil
}

// readSource appends all rows of one CSV source to the table.
func (t *Table) readSource(src io.Reader) error {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1 // tolerate ragged rows; missing cells become NaN/""

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	if _, ok := columns[t.schema.SymbolColumn]; !ok {
		return ErrMissingSymbolColumn
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading record: %w", err)
		}

		row := Row{
			Symbol:  strings.TrimSpace(cell(record, columns, t.schema.SymbolColumn)),
			Name:    cell(record, columns, t.schema.NameColumn),
			Text:    make(map[string]string, len(t.schema.TextFields)),
			Numeric: make(map[string]float64, len(t.schema.NumericFields)),
		}
		for _, field := range t.schema.TextFields {
			row.Text[field] = cell(record, columns, field)
		}
		for _, field := range t.schema.NumericFields {
			row.Numeric[field] = t.parseNumeric(cell(record, columns, field))
		}
		t.rows = append(t.rows, row)
	}

	return nil
}

// cell returns the value of a named column in a record, or "" if the column
// is absent from the source or the record is too short.
func cell(record []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// parseNumeric coerces a raw cell into a float64. The sentinel placeholder,
// empty cells, and unparsable values all become NaN and continue; a single
// bad cell must never abort the load.
func (t *Table) parseNumeric(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == t.schema.Sentinel {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// TokenizeAll computes the tokenized form of every declared text field for
// every row, plus the combined text (symbol, name, and all text fields
// concatenated) used for corpus-wide indexing. The caches are rebuilt in full
// on every call, so they are never partially stale.
func (t *Table) TokenizeAll(tok *tokenize.Tokenizer) {
	t.combined = make([][]string, len(t.rows))
	t.fieldTokens = make(map[string][][]string, len(t.schema.TextFields))
	for _, field := range t.schema.TextFields {
		t.fieldTokens[field] = make([][]string, len(t.rows))
	}

	for i, row := range t.rows {
		var combined strings.Builder
		combined.WriteString(row.Symbol)
		combined.WriteString(" ")
		combined.WriteString(row.Name)
		for _, field := range t.schema.TextFields {
			text := row.Text[field]
			combined.WriteString(" ")
			combined.WriteString(text)
			t.fieldTokens[field][i] = tok.Tokenize(text)
		}
		t.combined[i] = tok.Tokenize(combined.String())
	}

	slog.Debug("dataset tokenized", "rows", len(t.rows), "textFields", len(t.schema.TextFields))
}

// Tokenized reports whether TokenizeAll has run on the current rows.
func (t *Table) Tokenized() bool {
	return t.combined != nil
}

// Len returns the number of rows in the table.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the row at index i.
func (t *Table) Row(i int) Row {
	return t.rows[i]
}

// RowIndex returns the row index for a symbol, if present.
func (t *Table) RowIndex(symbol string) (int, bool) {
	i, ok := t.bySymbol[symbol]
	return i, ok
}

// CombinedTokens returns the cached combined-text token sequence for row i.
// TokenizeAll must have run first.
func (t *Table) CombinedTokens(i int) []string {
	return t.combined[i]
}

// FieldTokens returns the cached token sequence of one text field for row i,
// or nil if the field is not declared in the schema.
func (t *Table) FieldTokens(field string, i int) []string {
	cache, ok := t.fieldTokens[field]
	if !ok {
		return nil
	}
	return cache[i]
}
