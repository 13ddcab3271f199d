// Package query parses a constrained natural-language query into a structured
// intent with five facets: free-text terms, numeric conditions, location
// constraints, leadership-name constraints, and a ranking directive.
//
// The grammar is narrow and deliberate: a left-to-right scan splits the token
// stream on the clause markers "with" (condition), "led by" (leadership),
// "in" (location), and "ranked by" (ranking), recursively re-scanning the
// remainder after each split. The split semantics, including their quirks,
// are an output-parity contract for the ranking pipeline; do not tidy them
// into a different grammar.
package query

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/chriscorrea/tickersift/internal/tokenize"
)

// clause labels produced by the recursive split
const (
	clauseText       = "text"
	clauseCondition  = "condition"
	clauseLeadership = "leadership"
	clauseLocation   = "location"
	clauseRanking    = "ranking"
)

// screenedWords are filler words dropped from the query before tokenization.
var screenedWords = map[string]struct{}{
	"equity":    {},
	"what":      {},
	"which":     {},
	"where":     {},
	"stock":     {},
	"buy":       {},
	"best":      {},
	"companies": {},
	"company":   {},
	"ticker":    {},
}

// Condition is one numeric filter directive: a keyword phrase naming a field,
// a direction, and an optional explicit threshold. A nil Threshold means the
// engine cuts at a corpus quantile (75th percentile above, 25th below).
type Condition struct {
	Keyword   string
	Above     bool
	Threshold *float64
}

// Ranking is an explicit "ranked by" directive.
type Ranking struct {
	Field      string
	Descending bool
}

// Intent is the structured form of one query. It is created fresh per parse
// and discarded after the query returns.
type Intent struct {
	Text       []string
	Conditions []Condition
	Location   []string
	Leadership []string
	Ranking    *Ranking
}

// Parser turns raw query strings into Intents.
type Parser struct {
	tok *tokenize.Tokenizer
}

// NewParser creates a Parser that normalizes query text with the given
// tokenizer (the same one used to build the index, so terms line up).
func NewParser(tok *tokenize.Tokenizer) *Parser {
	return &Parser{tok: tok}
}

// Parse splits a raw query into a structured Intent.
//
// An empty query yields an Intent with all facets empty; callers treat that
// as "no results", not an error. A single-token query becomes a bare
// free-text lookup, bypassing clause splitting entirely.
func (p *Parser) Parse(raw string) *Intent {
	// the best/lambo/moon flags read the raw text, before screening strips
	// the trigger words
	useBest := strings.Contains(raw, "best") || strings.Contains(raw, "lambo")
	useMoon := strings.Contains(raw, "to the moon")

	screened := screen(raw)

	// stopwords stay in: markers like "with" and "in" carry the grammar
	tokens := p.tok.TokenizeKeepStopwords(screened)
	slog.Debug("query screened", "raw", raw, "tokens", len(tokens))

	intent := &Intent{Text: []string{}}
	switch len(tokens) {
	case 0:
		// fallthrough to synthetic conditions only
	case 1:
		intent.Text = tokens
	default:
		clauses := make(map[string][]string)
		splitClauses(clauses, tokens, clauseText)
		p.extract(intent, clauses)
	}

	// synthetic conditions apply regardless of what the grammar parsed
	if useBest {
		intent.Conditions = append(intent.Conditions,
			Condition{Keyword: "growth", Above: true},
			Condition{Keyword: "market cap", Above: false},
		)
	}
	if useMoon {
		intent.Conditions = append(intent.Conditions,
			Condition{Keyword: "growth", Above: true},
			Condition{Keyword: "cash", Above: true},
		)
	}

	return intent
}

// screen lowercases the raw query, collapses a leading "show me", and drops
// the filler words.
func screen(raw string) string {
	words := strings.Fields(raw)
	for i, w := range words {
		words[i] = strings.ToLower(strings.TrimSpace(w))
	}
	if len(words) > 1 && words[0] == "show" && words[1] == "me" {
		words = words[2:]
	}

	kept := make([]string, 0, len(words))
	for _, w := range words {
		if _, drop := screenedWords[w]; drop || w == "" {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// splitClauses scans tokens left to right for the earliest clause marker,
// assigns the tokens before it to the current label, and recurses on the
// remainder under the marker's label.
//
// Two quirks are intentional: a marker in the final token position is treated
// as plain text (the whole remainder stays with the current label), and a
// repeated label overwrites the earlier span.
func splitClauses(clauses map[string][]string, tokens []string, label string) {
	if len(tokens) == 0 {
		return
	}

	markerAt := -1
	var next string
	var pre, rest []string
	for i := 0; i < len(tokens); i++ {
		switch {
		case tokens[i] == "with":
			next, pre, rest = clauseCondition, tokens[:i], tokens[i+1:]
		case tokens[i] == "led" && i+1 < len(tokens) && tokens[i+1] == "by":
			next, pre, rest = clauseLeadership, tokens[:i], tokens[i+2:]
		case tokens[i] == "in":
			next, pre, rest = clauseLocation, tokens[:i], tokens[i+1:]
		case tokens[i] == "ranked" && i+1 < len(tokens) && tokens[i+1] == "by":
			next, pre, rest = clauseRanking, tokens[:i], tokens[i+2:]
		default:
			continue
		}
		markerAt = i
		break
	}

	if markerAt == -1 || markerAt == len(tokens)-1 {
		clauses[label] = tokens
		return
	}

	clauses[label] = pre
	splitClauses(clauses, rest, next)
}

// extract performs per-clause semantic extraction into the intent.
func (p *Parser) extract(intent *Intent, clauses map[string][]string) {
	intent.Text = clauses[clauseText]
	if intent.Text == nil {
		intent.Text = []string{}
	}

	if tokens, ok := clauses[clauseRanking]; ok {
		intent.Ranking = parseRanking(tokens)
	}
	if tokens, ok := clauses[clauseLeadership]; ok {
		intent.Leadership = parseLeadership(tokens)
	}
	if tokens, ok := clauses[clauseLocation]; ok {
		intent.Location = tokens
	}
	if tokens, ok := clauses[clauseCondition]; ok {
		intent.Conditions = parseConditions(tokens)
	}
}

// parseRanking reads an optional trailing "ascend"/"descend" literal; without
// one, the whole clause is the field and descending is the default.
func parseRanking(tokens []string) *Ranking {
	if len(tokens) == 0 {
		return nil
	}
	hasDirection := false
	for _, t := range tokens {
		if t == "ascend" || t == "descend" {
			hasDirection = true
			break
		}
	}
	if hasDirection {
		return &Ranking{
			Field:      strings.Join(tokens[:len(tokens)-1], " "),
			Descending: tokens[len(tokens)-1] != "ascend",
		}
	}
	return &Ranking{Field: strings.Join(tokens, " "), Descending: true}
}

// parseLeadership joins the clause and splits on the literal "and" into
// leader-name strings.
func parseLeadership(tokens []string) []string {
	pieces := strings.Split(strings.Join(tokens, " "), "and")
	names := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		names = append(names, strings.TrimSpace(piece))
	}
	return names
}

// parseConditions splits the clause on the literal "and" into independent
// condition phrases and extracts one Condition per recognized phrase.
//
// "low"/"high" are substring checks (with the below/lower/higher exclusions)
// whose keyword is the text after the match; otherwise the phrase splits on
// the first matching separator out of "abov", "below", "higher than",
// "lower than" (in that priority) into a keyword and a numeric literal.
// Note the stemmed separator: query tokens pass through the stemmer, so
// "above" arrives as "abov".
func parseConditions(tokens []string) []Condition {
	phrases := strings.Split(strings.Join(tokens, " "), "and")

	var conditions []Condition
	for _, phrase := range phrases {
		lowIn := strings.Contains(phrase, "low") &&
			!strings.Contains(phrase, "below") &&
			!strings.Contains(phrase, "lower")
		highIn := strings.Contains(phrase, "high") &&
			!strings.Contains(phrase, "higher")

		switch {
		case lowIn:
			parts := strings.Split(phrase, "low")
			conditions = append(conditions, Condition{
				Keyword: strings.TrimSpace(parts[1]),
				Above:   false,
			})
		case highIn:
			parts := strings.Split(phrase, "high")
			conditions = append(conditions, Condition{
				Keyword: strings.TrimSpace(parts[1]),
				Above:   true,
			})
		default:
			if cond, ok := parseThresholdCondition(phrase); ok {
				conditions = append(conditions, cond)
			}
		}
	}
	return conditions
}

// parseThresholdCondition extracts a (keyword, direction, explicit threshold)
// condition from a phrase carrying one of the literal separators.
func parseThresholdCondition(phrase string) (Condition, bool) {
	separators := []struct {
		literal string
		above   bool
	}{
		{"abov", true},
		{"below", false},
		{"higher than", true},
		{"lower than", false},
	}

	for _, sep := range separators {
		if !strings.Contains(phrase, sep.literal) {
			continue
		}
		pieces := strings.Split(phrase, sep.literal)
		for i, piece := range pieces {
			pieces[i] = strings.TrimSpace(piece)
		}
		if len(pieces) < 2 || pieces[1] == "" {
			return Condition{}, false
		}
		value, ok := parseNumericLiteral(pieces[1])
		if !ok {
			// unparsable literal drops the condition, never the query
			slog.Debug("dropping condition with unparsable literal", "phrase", phrase)
			return Condition{}, false
		}
		return Condition{Keyword: pieces[0], Above: sep.above, Threshold: &value}, true
	}
	return Condition{}, false
}

// parseNumericLiteral post-processes a spoken numeric literal: a leading
// "0 " reads the space as a decimal point, and " million"/" billion"
// suffixes expand to their zeros (with remaining spaces stripped) before the
// float parse. The tokenizer splits "2.5" into "2 5", which is why the
// zero-space decimal convention exists.
func parseNumericLiteral(raw string) (float64, bool) {
	if len(raw) > 1 && raw[0] == '0' && raw[1] == ' ' {
		raw = strings.ReplaceAll(raw, " ", ".")
	}
	if strings.Contains(raw, "million") {
		raw = strings.ReplaceAll(raw, " million", "000000")
		raw = strings.ReplaceAll(raw, " ", "")
	}
	if strings.Contains(raw, "billion") {
		raw = strings.ReplaceAll(raw, " billion", "000000000")
		raw = strings.ReplaceAll(raw, " ", "")
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
