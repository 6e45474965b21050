// Package nlsql maps natural-language questions onto SQL: a pure slot
// extractor over the schema registry, a deterministic renderer, and a
// generator that falls back to LLM synthesis under validate/retry
// discipline.
package nlsql

import (
	"regexp"
	"strings"

	"github.com/citypulse/trafficqa/relational"
	"github.com/citypulse/trafficqa/schema"
)

// CueMatcher abstracts the locale-specific pattern tables used for intent
// and slot cues. The default implementation carries English tables; other
// locales plug in their own behind this interface.
type CueMatcher interface {
	// Classify detects the aggregation family of the question. The second
	// return is the match confidence (1 when a family pattern fired, 0 when
	// falling back to plain select).
	Classify(text string) (schema.QueryKind, float64)
	// MatchAliases returns the aliases from the bank that occur in text, in
	// bank order.
	MatchAliases(text string, aliases []string) []string
	// Conditions extracts comparison, time, and location conditions bound to
	// the given table.
	Conditions(text string, table relational.Table) []schema.Condition
	// Modifiers extracts grouping, ordering, and limit cues for the table.
	Modifiers(text string, table relational.Table) (groupBy, orderBy []string, limit int)
}

// kindFamily is one ordered pattern family; the first family whose pattern
// matches wins.
type kindFamily struct {
	kind     schema.QueryKind
	patterns []*regexp.Regexp
}

// EnglishMatcher is the default CueMatcher with English pattern tables.
type EnglishMatcher struct {
	families []kindFamily

	numericRe  *regexp.Regexp
	locationRe *regexp.Regexp
	yearRe     *regexp.Regexp
	sinceRe    *regexp.Regexp
	perRe      *regexp.Regexp
	topRe      *regexp.Regexp
	orderRe    *regexp.Regexp
}

// NewEnglishMatcher builds the default matcher.
func NewEnglishMatcher() *EnglishMatcher {
	re := regexp.MustCompile
	return &EnglishMatcher{
		families: []kindFamily{
			{schema.KindCount, []*regexp.Regexp{
				re(`(?i)\bhow many\b`),
				re(`(?i)\bnumber of\b`),
				re(`(?i)\bcount\b`),
			}},
			{schema.KindSum, []*regexp.Regexp{
				re(`(?i)\btotal\b`),
				re(`(?i)\bsum of\b`),
				re(`(?i)\bcombined\b`),
			}},
			{schema.KindAvg, []*regexp.Regexp{
				re(`(?i)\baverage\b`),
				re(`(?i)\bmean\b`),
				re(`(?i)\bavg\b`),
			}},
			{schema.KindMax, []*regexp.Regexp{
				re(`(?i)\bhighest\b`),
				re(`(?i)\bmaximum\b`),
				re(`(?i)\bmost\b`),
				re(`(?i)\bbusiest\b`),
			}},
			{schema.KindMin, []*regexp.Regexp{
				re(`(?i)\blowest\b`),
				re(`(?i)\bminimum\b`),
				re(`(?i)\bleast\b`),
				re(`(?i)\bquietest\b`),
			}},
		},
		numericRe:  re(`(?i)\b(?:more than|greater than|above|over|less than|fewer than|below|under|exactly|equal to)\s+(\d+(?:\.\d+)?)`),
		locationRe: re(`(?i)\b(?:in|at|within|of)\s+(?:the\s+)?(?:district|area|zone|region)\s+([\p{L}\d][\p{L}\d _-]*?)(?:\s*[?.,!]|$|\s+(?:and|or|with)\b)`),
		yearRe:     re(`(?i)\b(?:in|during|of)\s+(19|20)\d{2}\b`),
		sinceRe:    re(`(?i)\bsince\s+((?:19|20)\d{2})\b`),
		perRe:      re(`(?i)\b(?:per|by|for each|grouped by)\s+(district|area|zone|region|kind|type|status)\b`),
		topRe:      re(`(?i)\btop\s+(\d+)\b`),
		orderRe:    re(`(?i)\b(?:sorted|ordered)\s+by\s+([a-z_ ]+?)(?:\s*[?.,!]|$)`),
	}
}

// Classify implements CueMatcher. Families are checked in fixed order so
// "how many" wins over a later "most".
func (m *EnglishMatcher) Classify(text string) (schema.QueryKind, float64) {
	for _, fam := range m.families {
		for _, p := range fam.patterns {
			if p.MatchString(text) {
				return fam.kind, 1
			}
		}
	}
	return schema.KindSelect, 0
}

// MatchAliases implements CueMatcher with word-boundary matching.
func (m *EnglishMatcher) MatchAliases(text string, aliases []string) []string {
	lower := strings.ToLower(text)
	var hits []string
	for _, alias := range aliases {
		if alias == "" {
			continue
		}
		if containsWord(lower, strings.ToLower(alias)) {
			hits = append(hits, alias)
		}
	}
	return hits
}

// Conditions implements CueMatcher. Conditions accumulate; no dedup is
// applied.
func (m *EnglishMatcher) Conditions(text string, table relational.Table) []schema.Condition {
	var conds []schema.Condition

	// Numeric comparisons bind to the first numeric column whose alias
	// appears near the cue; default to the first numeric column.
	if match := m.numericRe.FindStringSubmatch(text); match != nil {
		op := numericOperator(match[0])
		if col, ok := numericColumn(m, text, table); ok {
			conds = append(conds, schema.Condition{Column: col, Operator: op, Value: match[1]})
		}
	}

	// Location expressions produce a LIKE condition on the location column.
	if col, ok := table.LocationColumn(); ok {
		if match := m.locationRe.FindStringSubmatch(text); match != nil {
			value := strings.TrimSpace(match[1])
			conds = append(conds, schema.Condition{
				Column:   col.Name,
				Operator: schema.OpLike,
				Value:    "%" + value + "%",
			})
		}
	}

	// Time expressions bind to the temporal column.
	if col, ok := table.TemporalColumn(); ok {
		if match := m.sinceRe.FindStringSubmatch(text); match != nil {
			conds = append(conds, schema.Condition{
				Column:   col.Name,
				Operator: schema.OpGte,
				Value:    match[1] + "-01-01",
			})
		} else if match := m.yearRe.FindStringSubmatch(text); match != nil {
			year := match[0][strings.LastIndex(match[0], " ")+1:]
			conds = append(conds, schema.Condition{
				Column:   col.Name,
				Operator: schema.OpLike,
				Value:    year + "%",
			})
		}
	}

	return conds
}

// Modifiers implements CueMatcher.
func (m *EnglishMatcher) Modifiers(text string, table relational.Table) ([]string, []string, int) {
	var groupBy, orderBy []string
	limit := 0

	if match := m.perRe.FindStringSubmatch(text); match != nil {
		cue := strings.ToLower(match[1])
		if col, ok := columnForCue(cue, table); ok {
			groupBy = append(groupBy, col)
		}
	}
	if match := m.topRe.FindStringSubmatch(text); match != nil {
		limit = atoiSafe(match[1])
	}
	if match := m.orderRe.FindStringSubmatch(text); match != nil {
		cue := strings.TrimSpace(strings.ToLower(match[1]))
		if col, ok := columnForCue(cue, table); ok {
			orderBy = append(orderBy, col)
		}
	}
	return groupBy, orderBy, limit
}

func numericOperator(cue string) schema.Operator {
	lower := strings.ToLower(cue)
	switch {
	case strings.Contains(lower, "more"), strings.Contains(lower, "greater"),
		strings.Contains(lower, "above"), strings.Contains(lower, "over"):
		return schema.OpGt
	case strings.Contains(lower, "less"), strings.Contains(lower, "fewer"),
		strings.Contains(lower, "below"), strings.Contains(lower, "under"):
		return schema.OpLt
	default:
		return schema.OpEq
	}
}

func numericColumn(m *EnglishMatcher, text string, table relational.Table) (string, bool) {
	var fallback string
	for _, c := range table.Columns {
		if !c.Numeric {
			continue
		}
		if fallback == "" {
			fallback = c.Name
		}
		if len(m.MatchAliases(text, c.Aliases)) > 0 {
			return c.Name, true
		}
	}
	if fallback != "" {
		return fallback, true
	}
	return "", false
}

func columnForCue(cue string, table relational.Table) (string, bool) {
	for _, c := range table.Columns {
		if strings.EqualFold(c.Name, cue) {
			return c.Name, true
		}
		for _, a := range c.Aliases {
			if strings.EqualFold(a, cue) {
				return c.Name, true
			}
		}
	}
	return "", false
}

func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
		if idx >= len(text) {
			return false
		}
	}
}

func isWordChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
		if n > 1_000_000 {
			return 1_000_000
		}
	}
	return n
}
