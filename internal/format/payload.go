package format

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"statcheck/internal/types"
)

// Payload is the structured per-year aggregation of a result set. Prose
// phrasing is the caller's concern; this only carries the numbers and the
// qualifiers needed to phrase them honestly.
type Payload struct {
	Question    string      `json:"question"`
	TableID     string      `json:"tableId"`
	Dataset     string      `json:"dataset"`
	MetricLabel string      `json:"metricLabel,omitempty"`
	Aggregation string      `json:"aggregation"` // "total" or "average"
	Qualifiers  []string    `json:"qualifiers,omitempty"`
	Unit        string      `json:"unit,omitempty"`
	Values      []YearValue `json:"values"`
	BySex       []SexSeries `json:"bySex,omitempty"`
}

// YearValue is one aggregated point.
type YearValue struct {
	Year  string  `json:"year"`
	Value float64 `json:"value"`
}

// SexSeries is a per-sex-category series, emitted instead of Values when the
// underlying rows are sex-disaggregated with no totals code: summing those
// across categories would fabricate a series that was never published.
type SexSeries struct {
	SexCode string      `json:"sexCode"`
	Values  []YearValue `json:"values"`
}

var (
	monetaryPattern = regexp.MustCompile(`\b(salary|wage|pay|earnings|income|rent|price|cost|expenditure|spending|revenue|sales)\b`)
	ratePattern     = regexp.MustCompile(`\b(rate|index|mean|average)\b|percent|percentage`)
	stockPattern    = regexp.MustCompile(`population|stock`)
	wagePattern     = regexp.MustCompile(`\b(salary|wage|pay|earnings|income)\b`)
	sekPattern      = regexp.MustCompile(`\bsek\b|krona|\bkr\b`)
)

// metricFallbacks maps question terms to metric labels when the query
// carried none.
var metricFallbacks = []struct {
	term  string
	label string
}{
	{"divorc", "Divorces"},
	{"marriage", "Marriages"},
	{"married", "Marriages"},
	{"wedding", "Marriages"},
	{"death", "Deaths"},
	{"birth", "Births"},
	{"immigra", "Immigrations"},
	{"emigra", "Emigrations"},
	{"population", "Population"},
}

// BuildPayload aggregates result rows per year. Rate-, index-, stock-, wage-
// and inflation-like metrics average across periods; counts sum. Returns nil
// for an empty result set.
func BuildPayload(results []types.Result, question string) *Payload {
	if len(results) == 0 {
		return nil
	}

	lowerQ := strings.ToLower(question)
	first := results[0]

	contentLabel := ""
	if first.DebugQuery != nil {
		contentLabel = strings.TrimSpace(first.DebugQuery.ContentsLabel)
	}
	labelLower := strings.ToLower(contentLabel)

	isInflation := strings.Contains(lowerQ, "inflation") || strings.Contains(lowerQ, "cpi")
	isRateLike := ratePattern.MatchString(labelLower) || strings.Contains(labelLower, "ratio") ||
		strings.Contains(labelLower, "per 1000") || strings.Contains(labelLower, "per capita") ||
		ratePattern.MatchString(lowerQ)
	isStockLike := stockPattern.MatchString(labelLower)
	isWageLike := wagePattern.MatchString(labelLower) || wagePattern.MatchString(lowerQ)
	useAverage := isInflation || isRateLike || isStockLike || isWageLike

	aggregation := "total"
	if useAverage {
		aggregation = "average"
	}

	metricLabel := contentLabel
	if metricLabel == "" {
		for _, fb := range metricFallbacks {
			if strings.Contains(lowerQ, fb.term) {
				metricLabel = fb.label
				break
			}
		}
	}

	p := &Payload{
		Question:    question,
		TableID:     first.TableID,
		Dataset:     first.Dataset,
		MetricLabel: metricLabel,
		Aggregation: aggregation,
		Qualifiers:  qualifiers(first.DebugQuery),
		Unit:        unitLabel(lowerQ, first.Dataset, labelLower, isRateLike, isWageLike),
	}

	if first.SexDisaggregated {
		p.BySex = aggregateBySex(results, useAverage)
	} else {
		p.Values = aggregateByYear(results, useAverage)
	}
	return p
}

func aggregateByYear(results []types.Result, useAverage bool) []YearValue {
	type agg struct {
		sum   float64
		count int
	}
	byYear := make(map[string]*agg)
	for _, r := range results {
		year := r.Year
		if year == "" {
			year = "unknown"
		}
		a := byYear[year]
		if a == nil {
			a = &agg{}
			byYear[year] = a
		}
		a.sum += r.Value
		a.count++
	}

	years := make([]string, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Strings(years)

	values := make([]YearValue, 0, len(years))
	for _, y := range years {
		a := byYear[y]
		v := a.sum
		if useAverage && a.count > 0 {
			v = a.sum / float64(a.count)
		}
		values = append(values, YearValue{Year: y, Value: v})
	}
	return values
}

func aggregateBySex(results []types.Result, useAverage bool) []SexSeries {
	bySex := make(map[string][]types.Result)
	for _, r := range results {
		bySex[r.SexCode] = append(bySex[r.SexCode], r)
	}

	codes := make([]string, 0, len(bySex))
	for c := range bySex {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	series := make([]SexSeries, 0, len(codes))
	for _, c := range codes {
		series = append(series, SexSeries{
			SexCode: c,
			Values:  aggregateByYear(bySex[c], useAverage),
		})
	}
	return series
}

// qualifiers derives phrasing qualifiers from the sex and month selections.
func qualifiers(q *types.Query) []string {
	if q == nil {
		return nil
	}

	var out []string
	if sel := q.SelectionFor("Kon"); sel != nil && len(sel.Items) > 0 {
		if len(sel.Items) > 1 {
			out = append(out, "both sexes")
		} else {
			out = append(out, fmt.Sprintf("sex code %s", sel.Items[0]))
		}
	}
	if sel := q.SelectionFor("Manad"); sel != nil && len(sel.Items) > 0 {
		if len(sel.Items) >= 12 {
			out = append(out, "all months")
		} else {
			out = append(out, fmt.Sprintf("month code %s", sel.Items[0]))
		}
	}
	return out
}

// unitLabel infers a currency or suppresses the unit entirely for
// percent/index/rate metrics where a unit suffix would mislead.
func unitLabel(lowerQ, dataset, labelLower string, isRateLike, isWageLike bool) string {
	text := lowerQ + " " + strings.ToLower(dataset) + " " + labelLower

	monetary := isWageLike || monetaryPattern.MatchString(text)
	isPercentLike := strings.Contains(text, "percent") || strings.Contains(text, "percentage")
	isIndexLike := strings.Contains(text, "index")
	isRateWord := isRateLike && !monetary

	if isPercentLike || isIndexLike || isRateWord {
		return ""
	}

	switch {
	case sekPattern.MatchString(text):
		if strings.Contains(text, "million") || strings.Contains(text, "msek") {
			return "SEK million"
		}
		if strings.Contains(text, "thousand") || strings.Contains(text, "tsek") {
			return "SEK thousand"
		}
		return "SEK"
	case strings.Contains(text, "eur"):
		return "EUR"
	case strings.Contains(text, "usd") || strings.Contains(text, "$"):
		return "USD"
	case monetary:
		return "SEK"
	}
	return ""
}
