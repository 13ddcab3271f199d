package query

import (
	"reflect"
	"testing"

	"github.com/chriscorrea/tickersift/internal/tokenize"
)

func newParser() *Parser {
	return NewParser(tokenize.New())
}

func TestParseEmptyQuery(t *testing.T) {
	intent := newParser().Parse("")
	if len(intent.Text) != 0 {
		t.Errorf("Text = %v, want empty", intent.Text)
	}
	if intent.Conditions != nil || intent.Location != nil || intent.Leadership != nil || intent.Ranking != nil {
		t.Errorf("empty query produced non-empty facets: %+v", intent)
	}
}

func TestParseSingleToken(t *testing.T) {
	intent := newParser().Parse("gpu")
	if !reflect.DeepEqual(intent.Text, []string{"gpu"}) {
		t.Errorf("Text = %v, want [gpu]", intent.Text)
	}
	if intent.Conditions != nil {
		t.Errorf("Conditions = %v, want nil", intent.Conditions)
	}
}

func TestParseShowMeCollapse(t *testing.T) {
	intent := newParser().Parse("show me gpu")
	if !reflect.DeepEqual(intent.Text, []string{"gpu"}) {
		t.Errorf("Text = %v, want [gpu]", intent.Text)
	}
}

func TestParseScreenedWords(t *testing.T) {
	intent := newParser().Parse("which companies make gpu chips")
	// "which" and "companies" are screened before tokenization
	want := []string{"make", "gpu", "chip"}
	if !reflect.DeepEqual(intent.Text, want) {
		t.Errorf("Text = %v, want %v", intent.Text, want)
	}
}

func TestParseLowCondition(t *testing.T) {
	intent := newParser().Parse("gpu chips with low price")
	if !reflect.DeepEqual(intent.Text, []string{"gpu", "chip"}) {
		t.Errorf("Text = %v, want [gpu chip]", intent.Text)
	}
	if len(intent.Conditions) != 1 {
		t.Fatalf("Conditions = %v, want one", intent.Conditions)
	}
	cond := intent.Conditions[0]
	if cond.Keyword != "price" || cond.Above || cond.Threshold != nil {
		t.Errorf("Condition = %+v, want {price below, quantile}", cond)
	}
}

func TestParseCompoundConditions(t *testing.T) {
	intent := newParser().Parse("gpu with low price and high growth")
	if len(intent.Conditions) != 2 {
		t.Fatalf("Conditions = %v, want two", intent.Conditions)
	}
	if intent.Conditions[0].Keyword != "price" || intent.Conditions[0].Above {
		t.Errorf("Conditions[0] = %+v, want {price below}", intent.Conditions[0])
	}
	if intent.Conditions[1].Keyword != "growth" || !intent.Conditions[1].Above {
		t.Errorf("Conditions[1] = %+v, want {growth above}", intent.Conditions[1])
	}
}

func TestParseCompoundKeywordPhrase(t *testing.T) {
	intent := newParser().Parse("biotech companies with low price and high earning growth")
	if !reflect.DeepEqual(intent.Text, []string{"biotech"}) {
		t.Errorf("Text = %v, want [biotech]", intent.Text)
	}
	want := []Condition{
		{Keyword: "price", Above: false},
		{Keyword: "earn growth", Above: true},
	}
	if !reflect.DeepEqual(intent.Conditions, want) {
		t.Errorf("Conditions = %v, want %v", intent.Conditions, want)
	}
}

func TestParseExplicitThreshold(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		keyword string
		above   bool
		value   float64
	}{
		// "above" reaches the parser stemmed to "abov"
		{"above integer", "tech with price above 50", "price", true, 50},
		{"below integer", "tech with price below 50", "price", false, 50},
		// the tokenizer splits "0.5" into "0 5"; the leading zero reads the
		// space as a decimal point
		{"decimal literal", "tech with growth above 0.5", "growth", true, 0.5},
		{"million suffix", "tech with revenue above 100 million", "revenu", true, 100e6},
		{"billion suffix", "tech with cash above 2 billion", "cash", true, 2e9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := newParser().Parse(tt.query)
			if len(intent.Conditions) != 1 {
				t.Fatalf("Conditions = %v, want one", intent.Conditions)
			}
			cond := intent.Conditions[0]
			if cond.Keyword != tt.keyword {
				t.Errorf("Keyword = %q, want %q", cond.Keyword, tt.keyword)
			}
			if cond.Above != tt.above {
				t.Errorf("Above = %v, want %v", cond.Above, tt.above)
			}
			if cond.Threshold == nil {
				t.Fatal("Threshold = nil, want explicit value")
			}
			if *cond.Threshold != tt.value {
				t.Errorf("Threshold = %v, want %v", *cond.Threshold, tt.value)
			}
		})
	}
}

func TestParseUnparsableThresholdDropped(t *testing.T) {
	intent := newParser().Parse("tech with price above something")
	if len(intent.Conditions) != 0 {
		t.Errorf("Conditions = %v, want none", intent.Conditions)
	}
	if !reflect.DeepEqual(intent.Text, []string{"tech"}) {
		t.Errorf("Text = %v, want [tech]", intent.Text)
	}
}

func TestParseLocation(t *testing.T) {
	intent := newParser().Parse("banks in california")
	if !reflect.DeepEqual(intent.Text, []string{"bank"}) {
		t.Errorf("Text = %v, want [bank]", intent.Text)
	}
	if !reflect.DeepEqual(intent.Location, []string{"california"}) {
		t.Errorf("Location = %v, want [california]", intent.Location)
	}
}

func TestParseLeadership(t *testing.T) {
	intent := newParser().Parse("chips led by jensen huang")
	if !reflect.DeepEqual(intent.Leadership, []string{"jensen huang"}) {
		t.Errorf("Leadership = %v, want [jensen huang]", intent.Leadership)
	}
}

func TestParseChainedClauses(t *testing.T) {
	intent := newParser().Parse("gpu chips with high growth in california")
	if !reflect.DeepEqual(intent.Text, []string{"gpu", "chip"}) {
		t.Errorf("Text = %v, want [gpu chip]", intent.Text)
	}
	if len(intent.Conditions) != 1 || intent.Conditions[0].Keyword != "growth" {
		t.Errorf("Conditions = %v, want [{growth above}]", intent.Conditions)
	}
	if !reflect.DeepEqual(intent.Location, []string{"california"}) {
		t.Errorf("Location = %v, want [california]", intent.Location)
	}
}

func TestParseRepeatedClauseOverwrites(t *testing.T) {
	intent := newParser().Parse("gpu with low price with high growth")
	// the second condition clause replaces the first entirely
	if len(intent.Conditions) != 1 {
		t.Fatalf("Conditions = %v, want one", intent.Conditions)
	}
	if intent.Conditions[0].Keyword != "growth" || !intent.Conditions[0].Above {
		t.Errorf("Conditions[0] = %+v, want {growth above}", intent.Conditions[0])
	}
}

func TestParseTrailingMarkerIsText(t *testing.T) {
	intent := newParser().Parse("gpu with")
	if !reflect.DeepEqual(intent.Text, []string{"gpu", "with"}) {
		t.Errorf("Text = %v, want [gpu with]", intent.Text)
	}
	if intent.Conditions != nil {
		t.Errorf("Conditions = %v, want nil", intent.Conditions)
	}
}

func TestParseRankedNeverMatches(t *testing.T) {
	// "ranked" stems to "rank", which the clause scan does not recognize, so
	// the whole phrase stays free text
	intent := newParser().Parse("gpu ranked by growth")
	if !reflect.DeepEqual(intent.Text, []string{"gpu", "rank", "by", "growth"}) {
		t.Errorf("Text = %v, want [gpu rank by growth]", intent.Text)
	}
	if intent.Ranking != nil {
		t.Errorf("Ranking = %+v, want nil", intent.Ranking)
	}
}

func TestParseBestSynthetic(t *testing.T) {
	intent := newParser().Parse("best gpu")
	if !reflect.DeepEqual(intent.Text, []string{"gpu"}) {
		t.Errorf("Text = %v, want [gpu]", intent.Text)
	}
	want := []Condition{
		{Keyword: "growth", Above: true},
		{Keyword: "market cap", Above: false},
	}
	if !reflect.DeepEqual(intent.Conditions, want) {
		t.Errorf("Conditions = %v, want %v", intent.Conditions, want)
	}
}

func TestParseMoonSynthetic(t *testing.T) {
	intent := newParser().Parse("gpu to the moon")
	want := []Condition{
		{Keyword: "growth", Above: true},
		{Keyword: "cash", Above: true},
	}
	if !reflect.DeepEqual(intent.Conditions, want) {
		t.Errorf("Conditions = %v, want %v", intent.Conditions, want)
	}
}

func TestParseRankingDirective(t *testing.T) {
	tests := []struct {
		name       string
		tokens     []string
		field      string
		descending bool
	}{
		{"bare field defaults descending", []string{"growth"}, "growth", true},
		{"explicit descend", []string{"growth", "descend"}, "growth", true},
		{"explicit ascend", []string{"growth", "ascend"}, "growth", false},
		{"multi token field", []string{"market", "cap", "ascend"}, "market cap", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := parseRanking(tt.tokens)
			if r == nil {
				t.Fatal("parseRanking() = nil")
			}
			if r.Field != tt.field || r.Descending != tt.descending {
				t.Errorf("parseRanking(%v) = %+v, want {%s %v}", tt.tokens, r, tt.field, tt.descending)
			}
		})
	}
	if parseRanking(nil) != nil {
		t.Error("parseRanking(nil) != nil")
	}
}
