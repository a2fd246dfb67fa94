// Package cube decodes the compressed statistical cube wire format
// (JSON-stat 2.0 shaped: dimension definitions plus a flat row-major value
// array) into per-cell observations.
package cube

import (
	"sort"

	"statcheck/internal/logging"
	"statcheck/internal/types"
)

// Dataset is the cube wire format. Value holds one entry per cell of the
// implied N-dimensional grid; nil entries are absent cells, not zeros.
type Dataset struct {
	ID        []string             `json:"id"`
	Size      []int                `json:"size"`
	Value     []*float64           `json:"value"`
	Dimension map[string]Dimension `json:"dimension"`
}

// Dimension describes one categorical axis.
type Dimension struct {
	Label    string   `json:"label"`
	Category Category `json:"category"`
}

// Category holds the index map (authoritative ordering) and optional labels.
type Category struct {
	Index map[string]int    `json:"index"`
	Label map[string]string `json:"label"`
}

// Codes returns the dimension's category codes ordered by index ascending.
// The index values are the authoritative order, not the natural key order.
func (d Dimension) Codes() []string {
	codes := make([]string, 0, len(d.Category.Index))
	for code := range d.Category.Index {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		return d.Category.Index[codes[i]] < d.Category.Index[codes[j]]
	})
	return codes
}

// LabelFor returns the human label for a category code, falling back to the
// code itself.
func (d Dimension) LabelFor(code string) string {
	if label, ok := d.Category.Label[code]; ok && label != "" {
		return label
	}
	return code
}

// Decode flattens the dataset into one Observation per non-null cell.
// A dataset without id or size arrays decodes to an empty sequence.
func Decode(ds *Dataset) []types.Observation {
	if ds == nil || len(ds.ID) == 0 || len(ds.Size) == 0 {
		logging.DecodeDebug("Dataset missing id or size arrays, nothing to decode")
		return nil
	}

	// Per-dimension category codes, index order.
	codes := make([][]string, len(ds.ID))
	for i, dimID := range ds.ID {
		codes[i] = ds.Dimension[dimID].Codes()
	}

	// Per-dimension stride: product of all subsequent dimension sizes.
	// The last dimension varies fastest (row-major).
	multipliers := make([]int, len(ds.Size))
	mult := 1
	for i := len(ds.Size) - 1; i >= 0; i-- {
		multipliers[i] = mult
		mult *= ds.Size[i]
	}

	observations := make([]types.Observation, 0, len(ds.Value))
	for i, v := range ds.Value {
		if v == nil {
			continue // sparse cube, absent cell
		}

		obs := types.Observation{
			Dimensions: ds.ID,
			Codes:      make([]string, len(ds.ID)),
			Value:      *v,
		}
		for d := range ds.ID {
			coord := (i / multipliers[d]) % ds.Size[d]
			if coord < len(codes[d]) {
				obs.Codes[d] = codes[d][coord]
			}
		}
		observations = append(observations, obs)
	}

	logging.DecodeDebug("Decoded %d observations from %d cells across %d dimensions",
		len(observations), len(ds.Value), len(ds.ID))
	return observations
}
