package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChargeKeys_ExcludeLifeline(t *testing.T) {
	t.Parallel()

	keys := ChargeKeys()
	assert.Len(t, keys, 17)
	assert.NotContains(t, keys, ChargeLifelineSubsidy)
	assert.NotContains(t, keys, ChargeLifelineDiscount)
	assert.Equal(t, ChargeGeneration, keys[0])
}

func TestRateRow_Charge(t *testing.T) {
	t.Parallel()

	row := RateRow{Charges: map[string]float64{ChargeGeneration: 5.1234}}
	assert.InDelta(t, 5.1234, row.Charge(ChargeGeneration), 1e-9)
	assert.Zero(t, row.Charge(ChargeSupply))
}

func TestDiscoveryItem_Resolved(t *testing.T) {
	t.Parallel()

	assert.False(t, DiscoveryItem{DocumentURL: "https://example.com/a.pdf"}.Resolved())
	assert.True(t, DiscoveryItem{MonthKey: "2024-03"}.Resolved())
}

func TestMonthlyRateDocument_JSONShape(t *testing.T) {
	t.Parallel()

	layout := NewColumnMapping()
	layout.Columns[ChargeGeneration] = []int{1}
	doc := MonthlyRateDocument{
		MonthKey: "2024-03",
		ResidentialRates: []RateRow{{
			BracketLabel: "OVER 1000 KWH",
			MinKWh:       1001,
			Charges:      map[string]float64{ChargeGeneration: 5.5},
		}},
		Provenance: Provenance{
			SourceOriginURL:      "https://company.example.com/node/1",
			SourceDocumentURL:    "https://company.example.com/files/2024-03/rates.pdf",
			ContentSHA256:        "abc123",
			FetchedAt:            time.Date(2024, 3, 12, 1, 30, 0, 0, time.UTC),
			ParserVersion:        "v3_generic",
			TableLayoutSignature: &layout,
		},
	}

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "2024-03", decoded["month_key"])

	rows := decoded["residential_rates"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "OVER 1000 KWH", row["consumption_bracket"])
	assert.Nil(t, row["max_kwh"])

	prov := decoded["provenance"].(map[string]any)
	assert.Equal(t, "https://company.example.com/node/1", prov["source_rss_item_url"])
	assert.Equal(t, "abc123", prov["pdf_sha256"])
	assert.Equal(t, "2024-03-12T01:30:00Z", prov["fetched_at"])
	assert.Equal(t, map[string]any{ChargeGeneration: float64(1)}, prov["table_layout_signature"])
}
