// Package format maps decoded cube observations back to semantically labeled
// result rows, and aggregates them into a structured answer payload.
package format

import (
	"math"
	"regexp"
	"strings"

	"statcheck/internal/cube"
	"statcheck/internal/types"
)

const sourceName = "SCB"

// timeCodePattern matches annual and monthly time codes. The century prefix
// matters: region codes are also 4-digit (Stockholm municipality is "0180")
// and must never be mistaken for a year.
var timeCodePattern = regexp.MustCompile(`^(18|19|20)\d{2}(M\d{2})?$`)

// Format converts observations into Result rows. Non-finite values are
// excluded here, not at decode time. Each row carries the full query for
// downstream provenance.
func Format(ds *cube.Dataset, observations []types.Observation, tableTitle, tableID string, q *types.Query, variables []types.Variable) []types.Result {
	unit := resolveUnit(q, variables)

	sexDim, sexDisaggregated := sexSelection(q)

	results := make([]types.Result, 0, len(observations))
	for _, obs := range observations {
		if math.IsNaN(obs.Value) || math.IsInf(obs.Value, 0) {
			continue
		}

		r := types.Result{
			Value:      obs.Value,
			Unit:       unit,
			Label:      observationLabel(ds, obs),
			Year:       observationYear(obs),
			Source:     sourceName,
			Dataset:    tableTitle,
			TableID:    tableID,
			DebugQuery: q,
		}
		if sexDisaggregated {
			r.SexDisaggregated = true
			r.SexCode = obs.CodeFor(sexDim)
		}
		results = append(results, r)
	}
	return results
}

// resolveUnit looks up the chosen metric code against the metric variable's
// value texts, defaulting to a generic placeholder.
func resolveUnit(q *types.Query, variables []types.Variable) string {
	if q == nil || q.ContentsCode == "" {
		return "unit"
	}
	for _, v := range variables {
		if v.ID != "ContentsCode" && !strings.Contains(strings.ToLower(v.Text), "content") {
			continue
		}
		if text := v.TextFor(q.ContentsCode); text != q.ContentsCode {
			return text
		}
	}
	if q.ContentsLabel != "" {
		return q.ContentsLabel
	}
	return "unit"
}

// observationYear finds the coordinate matching a time-code pattern and
// returns its year prefix, falling back to the last coordinate.
func observationYear(obs types.Observation) string {
	for _, code := range obs.Codes {
		if timeCodePattern.MatchString(code) {
			return code[:4]
		}
	}
	if len(obs.Codes) > 0 {
		return obs.Codes[len(obs.Codes)-1]
	}
	return ""
}

// observationLabel joins the coordinate labels in dimension order.
func observationLabel(ds *cube.Dataset, obs types.Observation) string {
	parts := make([]string, 0, len(obs.Codes))
	for i, code := range obs.Codes {
		if ds != nil && i < len(obs.Dimensions) {
			if dim, ok := ds.Dimension[obs.Dimensions[i]]; ok {
				parts = append(parts, dim.LabelFor(code))
				continue
			}
		}
		parts = append(parts, code)
	}
	return strings.Join(parts, ", ")
}

// sexSelection reports whether the query selected multiple sex categories
// with no totals code available.
func sexSelection(q *types.Query) (string, bool) {
	if q == nil {
		return "", false
	}
	for _, sel := range q.Selection {
		if sel.Dimension == "Kon" && len(sel.Items) > 1 {
			return sel.Dimension, true
		}
	}
	return "", false
}
