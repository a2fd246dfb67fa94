// Package types defines the shared data model for the statcheck resolution
// pipeline: catalog tables, normalized dimension variables, per-dimension
// selections, decoded observations, and the final result rows.
package types

import "time"

// Table is a curated catalog entry pointing at one remote statistical table.
// Seeded out-of-band; read-only to the pipeline and immutable during a
// resolution.
type Table struct {
	ID          string `json:"id"`          // stable identifier, e.g. "TAB4392"
	Title       string `json:"title"`       // human label
	Description string `json:"description"` // often equals Title upstream
	APIPath     string `json:"api_path"`    // relative locator, e.g. "tables/TAB4392"
	Keywords    string `json:"keywords"`    // JSON-encoded list or comma-delimited string

	// Period coverage and freshness, used for candidate ranking.
	FirstPeriod string    `json:"first_period,omitempty"`
	LastPeriod  string    `json:"last_period,omitempty"`
	Updated     time.Time `json:"updated,omitempty"`
}

// Variable is one normalized dimension of a statistical cube.
// Values[i] always corresponds to ValueTexts[i].
type Variable struct {
	ID         string   `json:"id"`   // dimension code: "Tid", "ContentsCode", "Kon", ...
	Text       string   `json:"text"` // human label
	Values     []string `json:"values"`
	ValueTexts []string `json:"valueTexts"`
}

// TextFor returns the human label for a category code, falling back to the
// code itself when the variable carries no label for it.
func (v Variable) TextFor(code string) string {
	for i, val := range v.Values {
		if val == code && i < len(v.ValueTexts) {
			return v.ValueTexts[i]
		}
	}
	return code
}

// Contains reports whether code is a member of the variable's value list.
func (v Variable) Contains(code string) bool {
	for _, val := range v.Values {
		if val == code {
			return true
		}
	}
	return false
}

// Selection is the subset of category codes chosen along one dimension.
type Selection struct {
	Dimension string   `json:"dimension"`
	Items     []string `json:"items"`
}

// Query is a complete, validated data-selection query: exactly one Selection
// per metadata variable, plus the chosen metric for downstream labeling.
type Query struct {
	Selection     []Selection `json:"selection"`
	ContentsCode  string      `json:"contentsCode,omitempty"`
	ContentsLabel string      `json:"contentsLabel,omitempty"`
}

// SelectionFor returns the selection for a dimension id, or nil.
func (q *Query) SelectionFor(dimension string) *Selection {
	for i := range q.Selection {
		if q.Selection[i].Dimension == dimension {
			return &q.Selection[i]
		}
	}
	return nil
}

// Observation is one decoded cube cell: a coordinate assignment (one category
// code per dimension, in cube dimension order) plus its scalar value.
// Ephemeral, produced by the decoder and consumed by the formatter.
type Observation struct {
	Dimensions []string `json:"dimensions"` // dimension ids, cube order
	Codes      []string `json:"codes"`      // parallel category codes
	Value      float64  `json:"value"`
}

// CodeFor returns the coordinate code for a dimension id, or "".
func (o Observation) CodeFor(dimension string) string {
	for i, d := range o.Dimensions {
		if d == dimension && i < len(o.Codes) {
			return o.Codes[i]
		}
	}
	return ""
}

// Result is one final output row returned to the caller.
type Result struct {
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	Label      string  `json:"label"`
	Year       string  `json:"year"`
	Source     string  `json:"source"`
	Dataset    string  `json:"dataset"` // table title
	TableID    string  `json:"table_id"`
	DebugQuery *Query  `json:"debug_query,omitempty"`

	// SexDisaggregated marks rows produced under an all-sexes selection with
	// no totals code: consumers must not sum them as one series.
	SexDisaggregated bool   `json:"sex_disaggregated,omitempty"`
	SexCode          string `json:"sex_code,omitempty"`
}
