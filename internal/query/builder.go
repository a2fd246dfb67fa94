// Package query builds a complete, validated per-dimension code selection
// from a free-text question and a table's normalized variable model.
//
// The builder is a rule-based deterministic classifier operating purely on
// string matching against the question text and variable/category labels. It
// never consults a language model, so every emitted code is a member of the
// metadata by construction.
package query

import (
	"errors"
	"fmt"
	"strings"

	"statcheck/internal/logging"
	"statcheck/internal/types"
)

// ErrUnsatisfiableTime signals that the question names year(s) the table's
// time dimension does not cover. The build fails rather than substituting a
// different year, which would answer a different question than asked.
var ErrUnsatisfiableTime = errors.New("query: requested years not present in time dimension")

// dimensionClass identifies which selection rule owns a variable.
type dimensionClass int

const (
	classMetric dimensionClass = iota
	classTime
	classMonth
	classSex
	classRegion
	classRemaining
)

// rule pairs a variable predicate with its resolution. Rules apply in fixed
// order; the first matching class wins for each variable.
type rule struct {
	class   dimensionClass
	matches func(v types.Variable) bool
	resolve func(b *builder, v types.Variable) ([]string, error)
}

// rules is the ordered fallback table, one entry per dimension class.
var rules = []rule{
	{classMetric, isMetricDimension, (*builder).resolveMetric},
	{classTime, isTimeDimension, (*builder).resolveTime},
	{classMonth, isMonthDimension, (*builder).resolveMonth},
	{classSex, isSexDimension, (*builder).resolveSex},
	{classRegion, isRegionDimension, (*builder).resolveRegion},
	{classRemaining, func(types.Variable) bool { return true }, (*builder).resolveRemaining},
}

type builder struct {
	question string // lowercased
	years    []string
	query    *types.Query
}

// Build produces a Query with exactly one non-empty Selection per variable,
// or an error when no valid query exists for this table.
func Build(question string, variables []types.Variable) (*types.Query, error) {
	if len(variables) == 0 {
		return nil, fmt.Errorf("query: no variables to select against")
	}

	b := &builder{
		question: strings.ToLower(question),
		years:    ExtractYears(question),
		query:    &types.Query{},
	}

	for _, v := range variables {
		if len(v.Values) == 0 {
			return nil, fmt.Errorf("query: variable %s has no values", v.ID)
		}

		for _, r := range rules {
			if !r.matches(v) {
				continue
			}
			items, err := r.resolve(b, v)
			if err != nil {
				return nil, err
			}
			b.query.Selection = append(b.query.Selection, types.Selection{
				Dimension: v.ID,
				Items:     items,
			})
			logging.QueryDebug("Dimension %s resolved to %d code(s)", v.ID, len(items))
			break
		}
	}

	logging.Query("Built query with %d selections for question %q", len(b.query.Selection), question)
	return b.query, nil
}

// =============================================================================
// DIMENSION CLASS PREDICATES
// =============================================================================

func labelContains(v types.Variable, needles ...string) bool {
	text := strings.ToLower(v.Text)
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func isMetricDimension(v types.Variable) bool {
	return v.ID == "ContentsCode" || labelContains(v, "content", "observation", "measure")
}

func isTimeDimension(v types.Variable) bool {
	id := strings.ToLower(v.ID)
	return v.ID == "Tid" || strings.Contains(id, "tid") || strings.Contains(id, "time") ||
		labelContains(v, "year", "time")
}

func isMonthDimension(v types.Variable) bool {
	return v.ID == "Manad" || labelContains(v, "month")
}

func isSexDimension(v types.Variable) bool {
	return v.ID == "Kon" || labelContains(v, "sex")
}

func isRegionDimension(v types.Variable) bool {
	return v.ID == "Region" || labelContains(v, "region", "area", "county", "municipality")
}

// =============================================================================
// RESOLUTIONS
// =============================================================================

// metricKeywords maps question terms to category label terms, scanned in
// order. The first category whose label matches the implied keyword wins.
var metricKeywords = []struct {
	question []string
	label    []string
}{
	{[]string{"divorc"}, []string{"divorc"}},
	{[]string{"marriage", "married", "wedding"}, []string{"marriage"}},
	{[]string{"death", "die", "mortality"}, []string{"death"}},
	{[]string{"birth", "born"}, []string{"birth"}},
	{[]string{"immigra"}, []string{"immigra"}},
	{[]string{"emigra"}, []string{"emigra"}},
	{[]string{"citizenship"}, []string{"citizenship"}},
	{[]string{"population"}, []string{"population"}},
}

func (b *builder) resolveMetric(v types.Variable) ([]string, error) {
	chosen := -1

	if isInflationQuestion(b.question) {
		// CPI tables publish the same indicator at annual and monthly change
		// rates; annual is the answer to "what was inflation in Y" unless the
		// question explicitly asks monthly.
		want, avoid := "annual", "month"
		if strings.Contains(b.question, "month") {
			want, avoid = "month", "annual"
		}
		for i, text := range v.ValueTexts {
			label := strings.ToLower(text)
			if strings.Contains(label, want) && !strings.Contains(label, avoid) {
				chosen = i
				break
			}
		}
	}

	if chosen < 0 {
		for _, kw := range metricKeywords {
			if !containsAny(b.question, kw.question) {
				continue
			}
			for i, text := range v.ValueTexts {
				if containsAny(strings.ToLower(text), kw.label) {
					chosen = i
					break
				}
			}
			if chosen >= 0 {
				break
			}
		}
	}

	if chosen < 0 {
		chosen = 0 // no keyword matched, first available category
	}

	b.query.ContentsCode = v.Values[chosen]
	b.query.ContentsLabel = v.TextFor(v.Values[chosen])
	return []string{v.Values[chosen]}, nil
}

func (b *builder) resolveTime(v types.Variable) ([]string, error) {
	monthly := isMonthlyCodes(v.Values)

	if len(b.years) > 0 {
		var items []string
		for _, code := range v.Values {
			for _, year := range b.years {
				if strings.HasPrefix(code, year) {
					items = append(items, code)
					break
				}
			}
		}
		if len(items) == 0 {
			logging.Query("Requested years %v not covered by time dimension %s", b.years, v.ID)
			return nil, ErrUnsatisfiableTime
		}
		return items, nil
	}

	// No year mentioned: default to the most recent available period.
	if !monthly {
		return []string{v.Values[len(v.Values)-1]}, nil
	}

	latest := yearPrefix(v.Values[len(v.Values)-1])
	var items []string
	for _, code := range v.Values {
		if strings.HasPrefix(code, latest) {
			items = append(items, code)
		}
	}
	return items, nil
}

// resolveMonth selects every code: a month sub-dimension separate from the
// time dimension always yields a complete year of monthly detail.
func (b *builder) resolveMonth(v types.Variable) ([]string, error) {
	return append([]string(nil), v.Values...), nil
}

var (
	maleTerms   = []string{"men", "male", "males", "boys"}
	femaleTerms = []string{"women", "female", "females", "girls"}
	totalTerms  = []string{"total", "both", "all sexes"}
)

func (b *builder) resolveSex(v types.Variable) ([]string, error) {
	male := containsAnyWord(b.question, maleTerms)
	female := containsAnyWord(b.question, femaleTerms)

	if male != female {
		want, exclude := maleTerms, femaleTerms
		if female {
			want, exclude = femaleTerms, maleTerms
		}
		for i, text := range v.ValueTexts {
			label := strings.ToLower(text)
			if containsAnyWord(label, want) && !containsAnyWord(label, exclude) {
				return []string{v.Values[i]}, nil
			}
		}
	}

	// Neither or both mentioned: prefer a combined/total code.
	for i, text := range v.ValueTexts {
		if containsAny(strings.ToLower(text), totalTerms) {
			return []string{v.Values[i]}, nil
		}
	}
	for _, code := range v.Values {
		if code == "1+2" { // known totals sentinel
			return []string{code}, nil
		}
	}

	// No totals code: select every category rather than silently dropping
	// half the population. The formatter keeps these disaggregated.
	return append([]string(nil), v.Values...), nil
}

// regionSuffixes are generic words removed from region labels before
// substring matching against the question.
var regionSuffixes = []string{"county", "municipality", "city"}

func (b *builder) resolveRegion(v types.Variable) ([]string, error) {
	for i, text := range v.ValueTexts {
		name := strings.ToLower(text)
		for _, suffix := range regionSuffixes {
			name = strings.ReplaceAll(name, suffix, "")
		}
		name = strings.TrimSpace(name)
		if name != "" && strings.Contains(b.question, name) {
			return []string{v.Values[i]}, nil
		}
	}

	// Default to the nation-level code.
	for _, code := range v.Values {
		if code == "00" {
			return []string{code}, nil
		}
	}
	for i, text := range v.ValueTexts {
		if strings.Contains(strings.ToLower(text), "sweden") {
			return []string{v.Values[i]}, nil
		}
	}
	return []string{v.Values[0]}, nil
}

func (b *builder) resolveRemaining(v types.Variable) ([]string, error) {
	if isInflationQuestion(b.question) {
		for i, text := range v.ValueTexts {
			label := strings.ToLower(text)
			if strings.Contains(label, "consumer price index") || strings.Contains(label, "cpi") {
				return []string{v.Values[i]}, nil
			}
		}
	}
	return []string{v.Values[0]}, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func isInflationQuestion(question string) bool {
	return strings.Contains(question, "inflation") || strings.Contains(question, "cpi")
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// containsAnyWord matches whole words only, so "men" does not fire on
// "government".
func containsAnyWord(text string, words []string) bool {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9')
	})
	for _, f := range fields {
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}
	return false
}
