// Package schedule turns raw residential rate tables into validated rate rows.
package schedule

import (
	"regexp"
	"strings"

	"github.com/sells-group/meralco-rates/internal/model"
)

// headerRows is the number of leading rows whose text is folded into each
// column's header. Source headers wrap over several physical lines.
const headerRows = 4

var (
	headerStripRe = regexp.MustCompile(`[^a-z0-9\s]`)
	spaceRe       = regexp.MustCompile(`\s+`)
)

// Headers that carry no charge and are not worth reporting.
var (
	noiseHeaders = map[string]bool{
		"per kw":     true,
		"per custmo": true,
		"penalty":    true,
		"disc":       true,
	}
	noiseFragments = []string{"power factor", "summary schedule"}
)

// columnRule classifies a normalized header. key returns "" when the header
// matched but should be consumed without a mapping.
type columnRule struct {
	match func(header string) bool
	key   func(header string) string
}

// columnRules are evaluated in order; the first match wins. The order is
// significant: "lifeline" headers split on subsidy vs discount, and the
// generic substrings near the top shadow the ones below.
var columnRules = []columnRule{
	{containsAll("generation"), fixed(model.ChargeGeneration)},
	{containsAll("transmission"), fixed(model.ChargeTransmission)},
	{containsAll("system loss"), fixed(model.ChargeSystemLoss)},
	{containsAll("distribution"), fixed(model.ChargeDistribution)},
	{containsAll("supply"), fixed(model.ChargeSupply)},
	{containsAll("metering"), fixed(model.ChargeMetering)},
	{containsAll("awat"), fixed(model.ChargeAWAT)},
	{containsAll("reset"), resetKey},
	{containsAll("lifeline", "subsidy"), fixed(model.ChargeLifelineSubsidy)},
	{containsAll("lifeline", "discount"), fixed(model.ChargeLifelineDiscount)},
	{containsAll("senior citizen"), fixed(model.ChargeSeniorCitizen)},
	{containsAll("current rpt"), fixed(model.ChargeCurrentRPT)},
	{both(containsAny("ucme", "uc me"), containsAll("npc")), fixed(model.ChargeUCMENPCSPUG)},
	{both(containsAny("ucme", "uc me"), containsAll("red")), fixed(model.ChargeUCMEREDCI)},
	{containsAny("uc ec", "ucec"), fixed(model.ChargeUCEC)},
	{containsAny("uc sd", "ucsd"), fixed(model.ChargeUCSD)},
	{containsAny("fitall", "fit all"), fixed(model.ChargeFITAll)},
	{containsAll("gea"), fixed(model.ChargeGEAAll)},
}

// InferColumns builds the column mapping of one raw table from the text of
// its leading rows. The column count is taken from the first row.
func InferColumns(table model.Table) model.ColumnMapping {
	mapping := model.NewColumnMapping()

	for i, header := range headerTexts(table) {
		if header == "" {
			continue
		}
		key, ok := classify(header)
		if !ok {
			if !isNoise(header) {
				mapping.Unmapped = append(mapping.Unmapped, header)
			}
			continue
		}
		if key == "" {
			continue
		}
		assign(mapping, key, i)
	}
	return mapping
}

// assign records column i for key. A match in the column directly right of
// the key's last column extends it into a summed split charge; any other
// repeat match replaces the earlier columns.
func assign(mapping model.ColumnMapping, key string, i int) {
	prev := mapping.Columns[key]
	if len(prev) > 0 && prev[len(prev)-1] == i-1 {
		mapping.Columns[key] = append(prev, i)
		return
	}
	mapping.Columns[key] = []int{i}
}

// headerTexts returns the normalized header text of every column.
func headerTexts(table model.Table) []string {
	if len(table) == 0 || len(table[0]) == 0 {
		return nil
	}

	n := len(table[0])
	raw := make([]strings.Builder, n)
	for _, row := range table[:min(headerRows, len(table))] {
		for i, cell := range row {
			if i >= n || cell == "" {
				continue
			}
			raw[i].WriteString(" ")
			raw[i].WriteString(cell)
		}
	}

	headers := make([]string, n)
	for i := range raw {
		headers[i] = normalizeHeader(raw[i].String())
	}
	return headers
}

func normalizeHeader(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "\n", " ")
	s = headerStripRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func classify(header string) (string, bool) {
	for _, r := range columnRules {
		if r.match(header) {
			return r.key(header), true
		}
	}
	return "", false
}

func isNoise(header string) bool {
	if noiseHeaders[header] {
		return true
	}
	for _, f := range noiseFragments {
		if strings.Contains(header, f) {
			return true
		}
	}
	return false
}

func resetKey(header string) string {
	switch {
	case strings.Contains(header, "onetime"), strings.Contains(header, "one time"):
		return model.ChargeOneTimeReset
	case strings.Contains(header, "regulatory"):
		return model.ChargeRegulatoryReset
	default:
		return ""
	}
}

func fixed(key string) func(string) string {
	return func(string) string { return key }
}

func containsAll(subs ...string) func(string) bool {
	return func(h string) bool {
		for _, s := range subs {
			if !strings.Contains(h, s) {
				return false
			}
		}
		return true
	}
}

func containsAny(subs ...string) func(string) bool {
	return func(h string) bool {
		for _, s := range subs {
			if strings.Contains(h, s) {
				return true
			}
		}
		return false
	}
}

func both(a, b func(string) bool) func(string) bool {
	return func(h string) bool { return a(h) && b(h) }
}
