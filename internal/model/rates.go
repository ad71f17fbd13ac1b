// Package model defines the rate schedule domain types.
package model

import "time"

// Canonical charge keys. The values double as output column names.
const (
	ChargeGeneration       = "generation_charge"
	ChargeTransmission     = "transmission_charge"
	ChargeSystemLoss       = "system_loss_charge"
	ChargeDistribution     = "distribution_charge"
	ChargeSupply           = "supply_charge"
	ChargeMetering         = "metering_charge"
	ChargeAWAT             = "awat_charge"
	ChargeRegulatoryReset  = "regulatory_reset_fees_adjustment"
	ChargeOneTimeReset     = "one_time_reset_fee_adjustment"
	ChargeLifelineSubsidy  = "lifeline_rate_subsidy"
	ChargeLifelineDiscount = "applicable_discount_percent"
	ChargeSeniorCitizen    = "senior_citizen_subsidy"
	ChargeCurrentRPT       = "current_rpt_charge"
	ChargeUCMENPCSPUG      = "uc_me_npc_spug"
	ChargeUCMEREDCI        = "uc_me_red_ci"
	ChargeUCEC             = "uc_ec"
	ChargeUCSD             = "uc_sd"
	ChargeFITAll           = "fit_all"
	ChargeGEAAll           = "gea_all"
)

// ChargeKeys lists the per-kWh charges carried in RateRow.Charges, in output
// order. Lifeline keys are reported separately under RateRow.Lifeline.
func ChargeKeys() []string {
	return []string{
		ChargeGeneration,
		ChargeTransmission,
		ChargeSystemLoss,
		ChargeDistribution,
		ChargeSupply,
		ChargeMetering,
		ChargeAWAT,
		ChargeRegulatoryReset,
		ChargeOneTimeReset,
		ChargeSeniorCitizen,
		ChargeCurrentRPT,
		ChargeUCMENPCSPUG,
		ChargeUCMEREDCI,
		ChargeUCEC,
		ChargeUCSD,
		ChargeFITAll,
		ChargeGEAAll,
	}
}

// Lifeline groups the lifeline subsidy amount with its discount percent.
type Lifeline struct {
	RateSubsidyPerKWh         float64 `json:"rate_subsidy_per_kwh" yaml:"rate_subsidy_per_kwh"`
	ApplicableDiscountPercent float64 `json:"applicable_discount_percent" yaml:"applicable_discount_percent"`
}

// RateRow is one residential consumption bracket.
type RateRow struct {
	BracketLabel string `json:"consumption_bracket" yaml:"consumption_bracket"`
	MinKWh       int    `json:"min_kwh" yaml:"min_kwh"`
	// MaxKWh is nil for the open-ended "OVER N KWH" bracket.
	MaxKWh   *int               `json:"max_kwh" yaml:"max_kwh"`
	Charges  map[string]float64 `json:"charges" yaml:"charges"`
	Lifeline Lifeline           `json:"lifeline" yaml:"lifeline"`
}

// Charge returns the named charge, or 0 when absent.
func (r RateRow) Charge(key string) float64 {
	return r.Charges[key]
}

// Provenance records where a monthly document came from and how it was parsed.
type Provenance struct {
	SourceOriginURL      string         `json:"source_rss_item_url" yaml:"source_rss_item_url"`
	SourceDocumentURL    string         `json:"source_pdf_url" yaml:"source_pdf_url"`
	ContentSHA256        string         `json:"pdf_sha256" yaml:"pdf_sha256"`
	FetchedAt            time.Time      `json:"fetched_at" yaml:"fetched_at"`
	ParserVersion        string         `json:"parser_version" yaml:"parser_version"`
	TableLayoutSignature *ColumnMapping `json:"table_layout_signature" yaml:"table_layout_signature"`
}

// MonthlyRateDocument is the extraction result for a single billing month.
type MonthlyRateDocument struct {
	MonthKey         string     `json:"month_key" yaml:"month_key"`
	ResidentialRates []RateRow  `json:"residential_rates" yaml:"residential_rates"`
	Provenance       Provenance `json:"provenance" yaml:"provenance"`
}
