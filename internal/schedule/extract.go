package schedule

import (
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/meralco-rates/internal/model"
)

// Diagnostic explains why a bracket row was rejected.
type Diagnostic struct {
	Page    int    `json:"page"`
	Table   int    `json:"table"`
	Bracket string `json:"bracket"`
	Reason  string `json:"reason"`
}

// Extraction is the result of reading the residential section of a document.
type Extraction struct {
	Rows        []model.RateRow
	Diagnostics []Diagnostic
	// Layout is the column mapping of the last table examined, nil when the
	// document had no tables.
	Layout *model.ColumnMapping
}

// ExtractResidential walks every table of every page in order, mapping each
// table's columns afresh, and collects the valid residential rows. It stops at
// the first general service row.
func ExtractResidential(pages []model.Page) Extraction {
	var out Extraction

	for _, page := range pages {
		for ti, table := range page.Tables {
			mapping := InferColumns(table)
			out.Layout = &mapping

			log := zap.L().With(zap.Int("page", page.Number), zap.Int("table", ti))
			if len(mapping.Unmapped) > 0 {
				log.Debug("unmapped table headers", zap.Strings("headers", mapping.Unmapped))
			}

			for _, cells := range table {
				if blank(cells) {
					continue
				}

				rate, err := ParseRow(cells, mapping)
				if err == nil {
					out.Rows = append(out.Rows, rate)
					continue
				}

				if errors.Is(err, ErrTerminal) {
					log.Debug("reached general service section, stopping extraction")
					return out
				}
				if errors.Is(err, ErrNotDataRow) {
					continue
				}

				log.Error("rejected rate row", zap.String("bracket", cells[0]), zap.Error(err))
				out.Diagnostics = append(out.Diagnostics, Diagnostic{
					Page:    page.Number,
					Table:   ti,
					Bracket: cleanCells(cells[:1])[0],
					Reason:  err.Error(),
				})
			}
		}
	}
	return out
}

func blank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
