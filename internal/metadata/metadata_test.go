package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_VariableListShape(t *testing.T) {
	raw := `{
		"variables": [
			{"code": "ContentsCode", "text": "observations",
			 "values": ["C01"], "valueTexts": ["Deaths per year"]},
			{"code": "Tid", "text": "year",
			 "values": ["2019", "2020"], "valueTexts": ["2019", "2020"]}
		]
	}`

	vars, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Len(t, vars, 2)

	assert.Equal(t, "ContentsCode", vars[0].ID)
	assert.Equal(t, "observations", vars[0].Text)
	assert.Equal(t, []string{"C01"}, vars[0].Values)
	assert.Equal(t, []string{"Deaths per year"}, vars[0].ValueTexts)

	assert.Equal(t, "Tid", vars[1].ID)
	assert.Equal(t, []string{"2019", "2020"}, vars[1].Values)
}

func TestParse_VariableListPadsMissingTexts(t *testing.T) {
	raw := `{
		"variables": [
			{"code": "Tid", "text": "year",
			 "values": ["2019", "2020", "2021"], "valueTexts": ["2019"]}
		]
	}`

	vars, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Len(t, vars, 1)

	// Missing texts fall back to the codes so the arrays stay parallel.
	assert.Equal(t, []string{"2019", "2020", "2021"}, vars[0].ValueTexts)
	assert.Equal(t, "2020", vars[0].TextFor("2020"))
}

func TestParse_VariableListAcceptsIDField(t *testing.T) {
	raw := `{"variables": [{"id": "Region", "text": "region", "values": ["00"], "valueTexts": ["Sweden"]}]}`

	vars, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.Equal(t, "Region", vars[0].ID)
}

func TestParse_DimensionMapShape(t *testing.T) {
	raw := `{
		"id": ["Tid", "Kon"],
		"dimension": {
			"Kon": {"label": "sex", "category": {
				"index": {"1": 0, "2": 1},
				"label": {"1": "men", "2": "women"}
			}},
			"Tid": {"label": "year", "category": {
				"index": {"2020": 0}
			}}
		}
	}`

	vars, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Len(t, vars, 2)

	// Top-level id array carries the dimension order.
	assert.Equal(t, "Tid", vars[0].ID)
	assert.Equal(t, []string{"2020"}, vars[0].Values)
	assert.Equal(t, []string{"2020"}, vars[0].ValueTexts)

	assert.Equal(t, "Kon", vars[1].ID)
	assert.Equal(t, "sex", vars[1].Text)
	assert.Equal(t, []string{"1", "2"}, vars[1].Values)
	assert.Equal(t, []string{"men", "women"}, vars[1].ValueTexts)
}

func TestParse_DimensionMapWithoutOrderSortsKeys(t *testing.T) {
	raw := `{
		"dimension": {
			"Tid": {"category": {"index": {"2020": 0}}},
			"Kon": {"category": {"index": {"1": 0}}}
		}
	}`

	vars, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Len(t, vars, 2)
	assert.Equal(t, "Kon", vars[0].ID)
	assert.Equal(t, "Tid", vars[1].ID)
}

func TestParse_UnsupportedShape(t *testing.T) {
	_, err := Parse([]byte(`{"links": [{"rel": "self"}]}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedShape)
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`not json`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedShape)
}

func TestParse_VariableWithEmptyID(t *testing.T) {
	_, err := Parse([]byte(`{"variables": [{"text": "year", "values": ["2020"]}]}`))
	require.Error(t, err)
}
