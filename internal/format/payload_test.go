package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statcheck/internal/types"
)

func row(year string, value float64) types.Result {
	return types.Result{
		Value:   value,
		Year:    year,
		Dataset: "Deaths by year",
		TableID: "TAB4392",
		DebugQuery: &types.Query{
			ContentsCode:  "C01",
			ContentsLabel: "Deaths per year",
		},
	}
}

func TestBuildPayload_CountsSumPerYear(t *testing.T) {
	results := []types.Result{
		row("2020", 100),
		row("2020", 50),
		row("2021", 70),
	}

	p := BuildPayload(results, "how many deaths in 2020 and 2021")
	require.NotNil(t, p)

	assert.Equal(t, "total", p.Aggregation)
	assert.Equal(t, "TAB4392", p.TableID)
	assert.Equal(t, "Deaths per year", p.MetricLabel)
	require.Len(t, p.Values, 2)
	assert.Equal(t, YearValue{Year: "2020", Value: 150}, p.Values[0])
	assert.Equal(t, YearValue{Year: "2021", Value: 70}, p.Values[1])
}

func TestBuildPayload_RatesAverage(t *testing.T) {
	results := []types.Result{
		{Value: 1.0, Year: "2020", TableID: "TAB2772", Dataset: "CPI",
			DebugQuery: &types.Query{ContentsLabel: "Annual change rate"}},
		{Value: 3.0, Year: "2020", TableID: "TAB2772", Dataset: "CPI",
			DebugQuery: &types.Query{ContentsLabel: "Annual change rate"}},
	}

	p := BuildPayload(results, "what was inflation in 2020")
	require.NotNil(t, p)
	assert.Equal(t, "average", p.Aggregation)
	require.Len(t, p.Values, 1)
	assert.Equal(t, 2.0, p.Values[0].Value)
	assert.Empty(t, p.Unit, "rate metrics carry no unit suffix")
}

func TestBuildPayload_PopulationAverages(t *testing.T) {
	results := []types.Result{
		{Value: 10, Year: "2020", TableID: "T",
			DebugQuery: &types.Query{ContentsLabel: "Population"}},
		{Value: 20, Year: "2020", TableID: "T",
			DebugQuery: &types.Query{ContentsLabel: "Population"}},
	}

	p := BuildPayload(results, "population of Sweden in 2020")
	require.NotNil(t, p)
	assert.Equal(t, "average", p.Aggregation)
	assert.Equal(t, 15.0, p.Values[0].Value)
}

func TestBuildPayload_WagesGetCurrency(t *testing.T) {
	results := []types.Result{
		{Value: 34200, Year: "2022", TableID: "T",
			DebugQuery: &types.Query{ContentsLabel: "Average monthly salary"}},
	}

	p := BuildPayload(results, "average salary in Sweden 2022")
	require.NotNil(t, p)
	assert.Equal(t, "average", p.Aggregation)
	assert.Equal(t, "SEK", p.Unit)
}

func TestBuildPayload_MetricLabelFallsBackToQuestion(t *testing.T) {
	results := []types.Result{{Value: 1, Year: "2020", TableID: "T", Dataset: "d"}}

	p := BuildPayload(results, "how many marriages in 2020")
	require.NotNil(t, p)
	assert.Equal(t, "Marriages", p.MetricLabel)
}

func TestBuildPayload_Qualifiers(t *testing.T) {
	q := &types.Query{Selection: []types.Selection{
		{Dimension: "Kon", Items: []string{"1", "2"}},
		{Dimension: "Manad", Items: []string{"01", "02", "03", "04", "05", "06",
			"07", "08", "09", "10", "11", "12"}},
	}}
	results := []types.Result{{Value: 1, Year: "2020", TableID: "T", DebugQuery: q}}

	p := BuildPayload(results, "deaths in 2020")
	require.NotNil(t, p)
	assert.Contains(t, p.Qualifiers, "both sexes")
	assert.Contains(t, p.Qualifiers, "all months")
}

func TestBuildPayload_SexDisaggregatedSeries(t *testing.T) {
	q := &types.Query{Selection: []types.Selection{
		{Dimension: "Kon", Items: []string{"1", "2"}},
	}}
	results := []types.Result{
		{Value: 40, Year: "2020", TableID: "T", SexDisaggregated: true, SexCode: "1", DebugQuery: q},
		{Value: 50, Year: "2020", TableID: "T", SexDisaggregated: true, SexCode: "2", DebugQuery: q},
		{Value: 42, Year: "2021", TableID: "T", SexDisaggregated: true, SexCode: "1", DebugQuery: q},
	}

	p := BuildPayload(results, "deaths by sex")
	require.NotNil(t, p)

	// Per-category series, never a fabricated cross-sex total.
	assert.Empty(t, p.Values)
	require.Len(t, p.BySex, 2)

	assert.Equal(t, "1", p.BySex[0].SexCode)
	require.Len(t, p.BySex[0].Values, 2)
	assert.Equal(t, YearValue{Year: "2020", Value: 40}, p.BySex[0].Values[0])
	assert.Equal(t, YearValue{Year: "2021", Value: 42}, p.BySex[0].Values[1])

	assert.Equal(t, "2", p.BySex[1].SexCode)
	require.Len(t, p.BySex[1].Values, 1)
	assert.Equal(t, YearValue{Year: "2020", Value: 50}, p.BySex[1].Values[0])
}

func TestBuildPayload_EmptyResults(t *testing.T) {
	assert.Nil(t, BuildPayload(nil, "anything"))
}

func TestUnitLabel(t *testing.T) {
	tests := []struct {
		name  string
		q     string
		label string
		want  string
	}{
		{"plain count", "how many deaths", "deaths per year", ""},
		{"sek from krona", "salary in kronor", "average monthly salary", "SEK"},
		{"sek millions", "household spending in million sek", "expenditure", "SEK million"},
		{"eur", "trade with eurozone in eur", "exports", "EUR"},
		{"index suppressed", "consumer price index", "cpi index", ""},
		{"percent suppressed", "unemployment percentage", "unemployment rate", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isRate := tt.name == "percent suppressed" || tt.name == "index suppressed"
			isWage := tt.name == "sek from krona"
			got := unitLabel(tt.q, "", tt.label, isRate, isWage)
			assert.Equal(t, tt.want, got)
		})
	}
}
