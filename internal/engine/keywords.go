package engine

import "github.com/chriscorrea/tickersift/internal/dataset"

// field names used by the location and leadership filters
const (
	locationField   = "description"
	leadershipField = "ceo"
)

// DefaultSchema declares the column layout of the stock snapshot CSVs.
func DefaultSchema() dataset.Schema {
	return dataset.Schema{
		SymbolColumn: "symbol",
		NameColumn:   "name",
		TextFields:   []string{"description", "industry", "ceo"},
		NumericFields: []string{
			"price", "pe", "market_cap", "revenue", "net_income", "eps",
			"ebitda", "free_cashflow", "cash", "growth", "debt_ratio",
		},
		Sentinel: "__nan__",
	}
}

// DefaultKeywordFields maps user-facing financial keywords and synonyms to
// the underlying numeric field names. Keys are raw phrases here; the engine
// stems each word at construction time so lookups match the stemmed tokens
// the parser produces at query time.
func DefaultKeywordFields() map[string]string {
	return map[string]string{
		"pe":                    "pe",
		"price earnings":        "pe",
		"price earnings ratio":  "pe",
		"pe ratio":              "pe",
		"price":                 "price",
		"growth":                "growth",
		"net income growth":     "growth",
		"earnings growth":       "growth",
		"earning growth":        "growth",
		"revenue":               "revenue",
		"debt ratio":            "debt_ratio",
		"risk":                  "debt_ratio",
		"market cap":            "market_cap",
		"market capitalization": "market_cap",
		"eps":                   "eps",
		"cashflow":              "free_cashflow",
		"cash":                  "cash",
		"income":                "net_income",
		"net income":            "net_income",
		"earnings":              "net_income",
		"profit":                "net_income",
		"ebitda":                "ebitda",
	}
}
