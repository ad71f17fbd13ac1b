package schedule

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/meralco-rates/internal/model"
)

// residentialHeader is a typical single-line residential header. Columns:
// 0 bracket, 1 generation, 2 transmission, 3 system loss, 4-5 distribution,
// 6 supply, 7 metering, 8 lifeline subsidy, 9 lifeline discount,
// 10 senior citizen, 11 fit-all.
var residentialHeader = []string{
	"", "Generation", "Transmission", "System Loss", "Distribution", "Distribution",
	"Supply", "Metering", "Lifeline Subsidy", "Lifeline Discount", "Senior Citizen", "FIT-All",
}

func residentialMapping() model.ColumnMapping {
	return InferColumns(model.Table{residentialHeader})
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"5.1234", 5.1234},
		{" 1,234.56 ", 1234.56},
		{"(1,234.56)", -1234.56},
		{"(0.0123)", -0.0123},
		{"P1.50", 1.5},
		{"PHP 2,000.00", 2000},
		{"₱0.75", 0.75},
		{"(P0.10)", -0.1},
		{"-0.5", -0.5},
		{"", 0},
		{"-", 0},
		{"n/a", 0},
		{"()", 0},
		{"NaN", 0},
		{"Inf", 0},
		{"-Infinity", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseAmount(tt.in), 1e-9)
		})
	}
}

func TestParsePercent(t *testing.T) {
	assert.InDelta(t, 50.0, ParsePercent("50%"), 1e-9)
	assert.InDelta(t, 100.0, ParsePercent(" 100 % "), 1e-9)
	assert.InDelta(t, 0.0, ParsePercent("%"), 1e-9)
}

func TestParseBracket(t *testing.T) {
	ptr := func(n int) *int { return &n }

	tests := []struct {
		label string
		min   int
		max   *int
	}{
		{"0 TO 50 KWH", 0, ptr(50)},
		{"51 to 70 kWh", 51, ptr(70)},
		{"201TO300KWH", 201, ptr(300)},
		{"1,001 TO 1,500 KWH", 1001, ptr(1500)},
		{"OVER 1000 KWH", 1001, nil},
		{"over 1,000 kwh", 1001, nil},
		{"OVER 500 KWH (see note)", 501, nil},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			lo, hi, err := ParseBracket(tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.min, lo)
			assert.Equal(t, tt.max, hi)
		})
	}

	for _, bad := range []string{"RESIDENTIAL", "UP TO 50 KWH", "50 KWH", "", "OVER KWH"} {
		_, _, err := ParseBracket(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseBracket_OpenBoundOverflow(t *testing.T) {
	label := fmt.Sprintf("OVER %d KWH", math.MaxInt)
	lo, hi, err := ParseBracket(label)
	require.ErrorIs(t, err, ErrNotDataRow)
	assert.Zero(t, lo)
	assert.Nil(t, hi)

	_, err = ParseRow([]string{label, "5.1", "1.0", "0.4", "1.2"}, model.NewColumnMapping())
	assert.ErrorIs(t, err, ErrNotDataRow)

	_, _, err = ParseBracket("OVER 99999999999999999999 KWH")
	assert.Error(t, err)
}

func TestParseRow_Valid(t *testing.T) {
	cells := []string{
		"0 TO 50\nKWH", "5.1234", "0.9876", "0.4321", "1.0000", "0.2345",
		"0.5000", "0.3000", "(0.1234)", "100%", "0.0011", "0.0838",
	}

	row, err := ParseRow(cells, residentialMapping())
	require.NoError(t, err)

	assert.Equal(t, "0 TO 50 KWH", row.BracketLabel)
	assert.Equal(t, 0, row.MinKWh)
	require.NotNil(t, row.MaxKWh)
	assert.Equal(t, 50, *row.MaxKWh)

	assert.InDelta(t, 5.1234, row.Charge(model.ChargeGeneration), 1e-9)
	assert.InDelta(t, 0.9876, row.Charge(model.ChargeTransmission), 1e-9)
	assert.InDelta(t, 0.4321, row.Charge(model.ChargeSystemLoss), 1e-9)
	assert.InDelta(t, 1.2345, row.Charge(model.ChargeDistribution), 1e-9, "split columns are summed")
	assert.InDelta(t, 0.5, row.Charge(model.ChargeSupply), 1e-9)
	assert.InDelta(t, 0.3, row.Charge(model.ChargeMetering), 1e-9)
	assert.InDelta(t, 0.0011, row.Charge(model.ChargeSeniorCitizen), 1e-9)
	assert.InDelta(t, 0.0838, row.Charge(model.ChargeFITAll), 1e-9)
	assert.InDelta(t, -0.1234, row.Lifeline.RateSubsidyPerKWh, 1e-9)
	assert.InDelta(t, 100.0, row.Lifeline.ApplicableDiscountPercent, 1e-9)

	// Every optional charge is present even when unmapped.
	for _, k := range model.ChargeKeys() {
		_, ok := row.Charges[k]
		assert.True(t, ok, k)
	}
	assert.Zero(t, row.Charge(model.ChargeGEAAll))
	assert.NotContains(t, row.Charges, model.ChargeLifelineSubsidy)
}

func TestParseRow_OpenBracket(t *testing.T) {
	cells := []string{"OVER 1,000 KWH", "5", "1", "0.4", "1", "0", "0.5", "0.3", "", "", "", ""}
	row, err := ParseRow(cells, residentialMapping())
	require.NoError(t, err)
	assert.Equal(t, 1001, row.MinKWh)
	assert.Nil(t, row.MaxKWh)
}

func TestParseRow_ShortRow(t *testing.T) {
	// Columns past the end of the row read as zero.
	cells := []string{"0 TO 50 KWH", "5", "1", "0.4", "1"}
	row, err := ParseRow(cells, residentialMapping())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, row.Charge(model.ChargeDistribution), 1e-9)
	assert.Zero(t, row.Charge(model.ChargeFITAll))
}

func TestParseRow_NotDataRow(t *testing.T) {
	for _, cells := range [][]string{
		nil,
		{""},
		{"", "5.0"},
		{"Residential"},
		{"Up to 50 kWh", "5.0"},
	} {
		_, err := ParseRow(cells, residentialMapping())
		assert.ErrorIs(t, err, ErrNotDataRow)
	}
}

func TestParseRow_Terminal(t *testing.T) {
	_, err := ParseRow([]string{" General Service A", "5.0"}, residentialMapping())
	assert.ErrorIs(t, err, ErrTerminal)

	// Terminal takes effect whatever the mapping holds.
	_, err = ParseRow([]string{"GENERAL SERVICE B"}, model.NewColumnMapping())
	assert.ErrorIs(t, err, ErrTerminal)
}

func TestParseRow_MissingColumns(t *testing.T) {
	mapping := InferColumns(model.Table{{"", "Generation", "Transmission", "Distribution", "Supply"}})

	_, err := ParseRow([]string{"0 TO 50 KWH", "5", "1", "1", "0.5"}, mapping)

	var missing *MissingColumnsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{
		model.ChargeSystemLoss,
		model.ChargeMetering,
		model.ChargeLifelineSubsidy,
		model.ChargeLifelineDiscount,
	}, missing.Keys)
	assert.Contains(t, err.Error(), model.ChargeMetering)
}

func TestParseRow_ZeroCoreCharge(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
	}{
		{"generation", []string{"0 TO 50 KWH", "0.0000", "1", "0.4", "1", "0", "0.5", "0.3", "0", "0"}},
		{"system loss", []string{"0 TO 50 KWH", "5", "1", "-", "1", "0", "0.5", "0.3", "0", "0"}},
		{"distribution", []string{"0 TO 50 KWH", "5", "1", "0.4", "", "", "0.5", "0.3", "0", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRow(tt.cells, residentialMapping())
			var zero *ZeroChargeError
			require.True(t, errors.As(err, &zero))
			assert.Equal(t, "0 TO 50 KWH", zero.Bracket)
		})
	}
}

func TestParseRow_ZeroTransmissionAccepted(t *testing.T) {
	cells := []string{"0 TO 50 KWH", "5", "0", "0.4", "1", "0", "0", "0", "0", "0"}
	row, err := ParseRow(cells, residentialMapping())
	require.NoError(t, err)
	assert.Zero(t, row.Charge(model.ChargeTransmission))
}
