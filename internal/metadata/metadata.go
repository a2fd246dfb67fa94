// Package metadata normalizes a table's dimension metadata into the uniform
// variable model. Two upstream shapes exist: a flat variable list, and a
// JSON-stat style dimension map. Both are tagged and converted at this
// boundary so every downstream component sees one canonical form.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"statcheck/internal/cube"
	"statcheck/internal/types"
)

// ErrUnsupportedShape signals that neither known metadata shape is present.
var ErrUnsupportedShape = errors.New("metadata: unsupported shape")

// Raw is the union of the two supported metadata shapes.
type Raw struct {
	// Shape (a): flat variable list.
	Variables []RawVariable `json:"variables"`

	// Shape (b): dimension map keyed by dimension id, with the top-level id
	// array carrying dimension order when present.
	ID        []string                  `json:"id"`
	Dimension map[string]cube.Dimension `json:"dimension"`
}

// RawVariable is one entry of the flat variable list shape.
type RawVariable struct {
	Code       string   `json:"code"`
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Values     []string `json:"values"`
	ValueTexts []string `json:"valueTexts"`
}

// Parse unmarshals raw metadata bytes and normalizes them.
func Parse(data []byte) ([]types.Variable, error) {
	var raw Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("metadata: failed to parse: %w", err)
	}
	return Normalize(&raw)
}

// Normalize converts either supported shape into an ordered list of
// Variables. Returns ErrUnsupportedShape when neither shape is present.
func Normalize(raw *Raw) ([]types.Variable, error) {
	switch {
	case len(raw.Variables) > 0:
		return fromVariableList(raw.Variables)
	case len(raw.Dimension) > 0:
		return fromDimensionMap(raw.ID, raw.Dimension)
	default:
		return nil, ErrUnsupportedShape
	}
}

func fromVariableList(list []RawVariable) ([]types.Variable, error) {
	variables := make([]types.Variable, 0, len(list))
	for _, rv := range list {
		id := rv.Code
		if id == "" {
			id = rv.ID
		}
		if id == "" {
			return nil, fmt.Errorf("metadata: variable with empty id")
		}

		v := types.Variable{
			ID:         id,
			Text:       rv.Text,
			Values:     rv.Values,
			ValueTexts: rv.ValueTexts,
		}
		// ValueTexts must stay parallel to Values.
		if len(v.ValueTexts) < len(v.Values) {
			texts := make([]string, len(v.Values))
			copy(texts, v.ValueTexts)
			for i := len(v.ValueTexts); i < len(v.Values); i++ {
				texts[i] = v.Values[i]
			}
			v.ValueTexts = texts
		}
		variables = append(variables, v)
	}
	return variables, nil
}

func fromDimensionMap(order []string, dims map[string]cube.Dimension) ([]types.Variable, error) {
	ids := order
	if len(ids) == 0 {
		ids = make([]string, 0, len(dims))
		for id := range dims {
			ids = append(ids, id)
		}
		sort.Strings(ids)
	}

	variables := make([]types.Variable, 0, len(ids))
	for _, id := range ids {
		dim, ok := dims[id]
		if !ok {
			continue
		}

		values := dim.Codes()
		texts := make([]string, len(values))
		for i, code := range values {
			texts[i] = dim.LabelFor(code)
		}

		text := dim.Label
		if text == "" {
			text = id
		}

		variables = append(variables, types.Variable{
			ID:         id,
			Text:       text,
			Values:     values,
			ValueTexts: texts,
		})
	}
	return variables, nil
}
