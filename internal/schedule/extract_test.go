package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/meralco-rates/internal/model"
)

func rateCells(bracket string) []string {
	return []string{bracket, "5.1", "0.9", "0.4", "1.0", "0.2", "0.5", "0.3", "(0.1)", "50%", "0", "0.08"}
}

func TestExtractResidential(t *testing.T) {
	pages := []model.Page{
		{Number: 1, Tables: []model.Table{
			{{"Cover page"}, {"Summary Schedule of Rates"}},
			{
				residentialHeader,
				{"RESIDENTIAL"},
				{"", "", "", "", "", "", "", "", "", "", "", ""},
				rateCells("0 TO 50 KWH"),
				rateCells("51 TO 70 KWH"),
				rateCells("1,000 to 999 pesos"),
			},
		}},
		{Number: 2, Tables: []model.Table{
			{
				residentialHeader,
				rateCells("OVER 1000 KWH"),
				{"GENERAL SERVICE A"},
				rateCells("0 TO 5 KWH"),
			},
			{residentialHeader, rateCells("0 TO 9 KWH")},
		}},
	}

	got := ExtractResidential(pages)

	var labels []string
	for _, r := range got.Rows {
		labels = append(labels, r.BracketLabel)
	}
	assert.Equal(t, []string{"0 TO 50 KWH", "51 TO 70 KWH", "OVER 1000 KWH"}, labels)
	assert.Empty(t, got.Diagnostics)

	require.NotNil(t, got.Layout)
	assert.Equal(t, []int{4, 5}, got.Layout.Indices(model.ChargeDistribution))
}

func TestExtractResidential_MappingRebuiltPerTable(t *testing.T) {
	// Same charges, different column order on the second page.
	reordered := []string{
		"", "Transmission", "Generation", "System Loss", "Distribution",
		"Supply", "Metering", "Lifeline Subsidy", "Lifeline Discount",
	}
	pages := []model.Page{
		{Number: 1, Tables: []model.Table{{residentialHeader, rateCells("0 TO 50 KWH")}}},
		{Number: 2, Tables: []model.Table{{reordered, {"51 TO 70 KWH", "0.9", "5.1", "0.4", "1.0", "0.5", "0.3", "0", "0"}}}},
	}

	got := ExtractResidential(pages)
	require.Len(t, got.Rows, 2)
	assert.InDelta(t, 5.1, got.Rows[1].Charge(model.ChargeGeneration), 1e-9)
	assert.InDelta(t, 0.9, got.Rows[1].Charge(model.ChargeTransmission), 1e-9)
	assert.Equal(t, []int{1}, got.Layout.Indices(model.ChargeTransmission))
}

func TestExtractResidential_Diagnostics(t *testing.T) {
	pages := []model.Page{
		{Number: 3, Tables: []model.Table{
			{
				{"", "Generation", "Transmission"},
				{"0 TO 50 KWH", "5.1", "0.9"},
			},
			{
				residentialHeader,
				{"51 TO 70 KWH", "0", "0.9", "0.4", "1.0", "0.2", "0.5", "0.3", "0", "0"},
			},
		}},
	}

	got := ExtractResidential(pages)
	assert.Empty(t, got.Rows)
	require.Len(t, got.Diagnostics, 2)

	assert.Equal(t, 3, got.Diagnostics[0].Page)
	assert.Equal(t, 0, got.Diagnostics[0].Table)
	assert.Equal(t, "0 TO 50 KWH", got.Diagnostics[0].Bracket)
	assert.Contains(t, got.Diagnostics[0].Reason, "missing required columns")

	assert.Equal(t, 1, got.Diagnostics[1].Table)
	assert.Contains(t, got.Diagnostics[1].Reason, "zero core charge")
}

func TestExtractResidential_NoTables(t *testing.T) {
	got := ExtractResidential([]model.Page{{Number: 1}})
	assert.Empty(t, got.Rows)
	assert.Nil(t, got.Layout)
}
