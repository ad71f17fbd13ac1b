package schedule

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/meralco-rates/internal/model"
)

var (
	// ErrNotDataRow marks a header, caption, or blank row.
	ErrNotDataRow = eris.New("schedule: not a consumption bracket row")
	// ErrTerminal marks the first row of the non-residential sections. No
	// residential rows follow it.
	ErrTerminal = eris.New("schedule: reached general service section")
)

var bracketRe = regexp.MustCompile(`(?i)^(?:(\d[\d,]*)\s*TO\s*(\d[\d,]*)\s*KWH|OVER\s*(\d[\d,]*)\s*KWH)`)

// RequiredKeys are the charges a residential table must map before any of
// its rows is accepted.
var RequiredKeys = []string{
	model.ChargeGeneration,
	model.ChargeTransmission,
	model.ChargeSystemLoss,
	model.ChargeDistribution,
	model.ChargeSupply,
	model.ChargeMetering,
	model.ChargeLifelineSubsidy,
	model.ChargeLifelineDiscount,
}

// MissingColumnsError is returned for a data row of a table whose mapping
// lacks required charges.
type MissingColumnsError struct {
	Keys []string
}

func (e *MissingColumnsError) Error() string {
	return "schedule: table is missing required columns: " + strings.Join(e.Keys, ", ")
}

// ZeroChargeError is returned when a core charge parses to zero, which in
// practice means the column mapping is misaligned.
type ZeroChargeError struct {
	Bracket      string
	Generation   float64
	Distribution float64
	SystemLoss   float64
}

func (e *ZeroChargeError) Error() string {
	return fmt.Sprintf("schedule: zero core charge in %q (generation=%g distribution=%g system_loss=%g)",
		e.Bracket, e.Generation, e.Distribution, e.SystemLoss)
}

// ParseRow validates one table row against a column mapping. It returns
// ErrTerminal, ErrNotDataRow, *MissingColumnsError, or *ZeroChargeError when
// the row yields no rate.
func ParseRow(cells []string, mapping model.ColumnMapping) (model.RateRow, error) {
	row := cleanCells(cells)
	if len(row) == 0 || row[0] == "" {
		return model.RateRow{}, ErrNotDataRow
	}

	label := row[0]
	if strings.HasPrefix(strings.ToUpper(label), "GENERAL SERVICE") {
		return model.RateRow{}, ErrTerminal
	}

	minKWh, maxKWh, err := ParseBracket(label)
	if err != nil {
		return model.RateRow{}, ErrNotDataRow
	}

	if missing := mapping.Missing(RequiredKeys); len(missing) > 0 {
		return model.RateRow{}, &MissingColumnsError{Keys: missing}
	}

	value := func(key string, parse func(string) float64) float64 {
		var total float64
		for _, i := range mapping.Indices(key) {
			if i >= 0 && i < len(row) {
				total += parse(row[i])
			}
		}
		return total
	}

	gen := value(model.ChargeGeneration, ParseAmount)
	dist := value(model.ChargeDistribution, ParseAmount)
	sysLoss := value(model.ChargeSystemLoss, ParseAmount)
	if gen == 0 || dist == 0 || sysLoss == 0 {
		return model.RateRow{}, &ZeroChargeError{
			Bracket:      label,
			Generation:   gen,
			Distribution: dist,
			SystemLoss:   sysLoss,
		}
	}

	keys := model.ChargeKeys()
	charges := make(map[string]float64, len(keys))
	for _, k := range keys {
		charges[k] = value(k, ParseAmount)
	}

	return model.RateRow{
		BracketLabel: label,
		MinKWh:       minKWh,
		MaxKWh:       maxKWh,
		Charges:      charges,
		Lifeline: model.Lifeline{
			RateSubsidyPerKWh:         value(model.ChargeLifelineSubsidy, ParseAmount),
			ApplicableDiscountPercent: value(model.ChargeLifelineDiscount, ParsePercent),
		},
	}, nil
}

// ParseBracket reads the kWh bounds of a bracket label. "A TO B KWH" gives
// [A, B]; "OVER N KWH" gives [N+1, nil).
func ParseBracket(label string) (int, *int, error) {
	m := bracketRe.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return 0, nil, eris.Errorf("schedule: %q is not a consumption bracket", label)
	}

	if m[3] != "" {
		n, err := atoiGrouped(m[3])
		if err != nil {
			return 0, nil, err
		}
		if n == math.MaxInt {
			return 0, nil, eris.Wrapf(ErrNotDataRow, "schedule: bound of %q out of range", label)
		}
		return n + 1, nil, nil
	}

	lo, err := atoiGrouped(m[1])
	if err != nil {
		return 0, nil, err
	}
	hi, err := atoiGrouped(m[2])
	if err != nil {
		return 0, nil, err
	}
	return lo, &hi, nil
}

// ParseAmount parses a printed peso amount. Thousands separators and a
// P, PHP or ₱ prefix are ignored and "(x)" reads as -x. Anything that is not
// a finite number parses as 0.
func ParseAmount(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	s = trimCurrency(s)

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = trimCurrency(strings.Trim(s, "()"))
	}
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if neg {
		return -v
	}
	return v
}

// ParsePercent parses a percentage cell such as "50%" as 50.
func ParsePercent(s string) float64 {
	return ParseAmount(strings.ReplaceAll(s, "%", ""))
}

func trimCurrency(s string) string {
	s = strings.TrimSpace(s)
	for _, p := range []string{"PHP", "Php", "php", "₱", "P"} {
		if strings.HasPrefix(s, p) {
			return strings.TrimSpace(s[len(p):])
		}
	}
	return s
}

func atoiGrouped(s string) (int, error) {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0, eris.Wrapf(err, "schedule: parse kWh bound %q", s)
	}
	return n, nil
}

func cleanCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(strings.ReplaceAll(c, "\n", " "))
	}
	return out
}
