// Package export serializes monthly rate documents.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/meralco-rates/internal/model"
)

// Format names an output encoding.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatYAML  Format = "yaml"
	FormatXLSX  Format = "xlsx"
	FormatTable Format = "table"
)

var formats = []Format{FormatJSON, FormatCSV, FormatYAML, FormatXLSX, FormatTable}

// Formats returns the supported format names.
func Formats() []string {
	out := make([]string, len(formats))
	for i, f := range formats {
		out[i] = string(f)
	}
	return out
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(formats, f) {
		return "", eris.Errorf("export: unknown format %q (want one of %s)", s, strings.Join(Formats(), ", "))
	}
	return f, nil
}

// Options controls serialization.
type Options struct {
	Format Format
	// Pretty indents JSON output.
	Pretty bool
}

// Write encodes docs to w in the requested format.
func Write(w io.Writer, docs []model.MonthlyRateDocument, opts Options) error {
	if docs == nil {
		docs = []model.MonthlyRateDocument{}
	}

	switch opts.Format {
	case FormatJSON, "":
		return writeJSON(w, docs, opts.Pretty)
	case FormatCSV:
		return writeCSV(w, docs)
	case FormatYAML:
		return writeYAML(w, docs)
	case FormatXLSX:
		return writeXLSX(w, docs)
	case FormatTable:
		return writeTable(w, docs)
	default:
		return eris.Errorf("export: unknown format %q", opts.Format)
	}
}

// WriteFile writes docs to path, replacing any existing file.
func WriteFile(path string, docs []model.MonthlyRateDocument, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := Write(f, docs, opts); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}

func writeJSON(w io.Writer, docs []model.MonthlyRateDocument, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return eris.Wrap(enc.Encode(docs), "export: encode json")
}

func writeYAML(w io.Writer, docs []model.MonthlyRateDocument) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(docs); err != nil {
		return eris.Wrap(err, "export: encode yaml")
	}
	return eris.Wrap(enc.Close(), "export: close yaml encoder")
}

// Columns returns the header of the flattened one-row-per-bracket layout.
func Columns() []string {
	cols := []string{
		"month_key",
		"source_rss_item_url",
		"source_pdf_url",
		"pdf_sha256",
		"parser_version",
		"consumption_bracket",
		"min_kwh",
		"max_kwh",
	}
	cols = append(cols, model.ChargeKeys()...)
	return append(cols,
		"lifeline_rate_subsidy_per_kwh",
		"lifeline_applicable_discount_percent",
	)
}

// flatRow is one bracket with its document metadata.
type flatRow struct {
	doc *model.MonthlyRateDocument
	row *model.RateRow
}

func flatten(docs []model.MonthlyRateDocument) []flatRow {
	var out []flatRow
	for i := range docs {
		for j := range docs[i].ResidentialRates {
			out = append(out, flatRow{doc: &docs[i], row: &docs[i].ResidentialRates[j]})
		}
	}
	return out
}

// record renders the row in Columns order.
func (f flatRow) record() []string {
	rec := []string{
		f.doc.MonthKey,
		f.doc.Provenance.SourceOriginURL,
		f.doc.Provenance.SourceDocumentURL,
		f.doc.Provenance.ContentSHA256,
		f.doc.Provenance.ParserVersion,
		f.row.BracketLabel,
		strconv.Itoa(f.row.MinKWh),
		formatMax(f.row.MaxKWh),
	}
	for _, k := range model.ChargeKeys() {
		rec = append(rec, formatFloat(f.row.Charge(k)))
	}
	return append(rec,
		formatFloat(f.row.Lifeline.RateSubsidyPerKWh),
		formatFloat(f.row.Lifeline.ApplicableDiscountPercent),
	)
}

func writeCSV(w io.Writer, docs []model.MonthlyRateDocument) error {
	rows := flatten(docs)
	if len(rows) == 0 {
		return nil
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Columns()); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, r := range rows {
		if err := cw.Write(r.record()); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

func writeXLSX(w io.Writer, docs []model.MonthlyRateDocument) error {
	f := xlsx.NewFile()

	rates, err := f.AddSheet("residential_rates")
	if err != nil {
		return eris.Wrap(err, "export: add rates sheet")
	}
	addStringRow(rates, Columns())
	for _, r := range flatten(docs) {
		row := rates.AddRow()
		for _, s := range []string{
			r.doc.MonthKey,
			r.doc.Provenance.SourceOriginURL,
			r.doc.Provenance.SourceDocumentURL,
			r.doc.Provenance.ContentSHA256,
			r.doc.Provenance.ParserVersion,
			r.row.BracketLabel,
		} {
			row.AddCell().SetString(s)
		}
		row.AddCell().SetInt(r.row.MinKWh)
		if r.row.MaxKWh != nil {
			row.AddCell().SetInt(*r.row.MaxKWh)
		} else {
			row.AddCell().SetString("")
		}
		for _, k := range model.ChargeKeys() {
			row.AddCell().SetFloat(r.row.Charge(k))
		}
		row.AddCell().SetFloat(r.row.Lifeline.RateSubsidyPerKWh)
		row.AddCell().SetFloat(r.row.Lifeline.ApplicableDiscountPercent)
	}

	prov, err := f.AddSheet("provenance")
	if err != nil {
		return eris.Wrap(err, "export: add provenance sheet")
	}
	addStringRow(prov, []string{
		"month_key", "source_rss_item_url", "source_pdf_url", "pdf_sha256",
		"fetched_at", "parser_version", "rows",
	})
	for _, d := range docs {
		row := prov.AddRow()
		for _, s := range []string{
			d.MonthKey,
			d.Provenance.SourceOriginURL,
			d.Provenance.SourceDocumentURL,
			d.Provenance.ContentSHA256,
			d.Provenance.FetchedAt.Format(time.RFC3339),
			d.Provenance.ParserVersion,
		} {
			row.AddCell().SetString(s)
		}
		row.AddCell().SetInt(len(d.ResidentialRates))
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}

func addStringRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// Console columns; the full charge breakdown is in the other formats.
var tableHeader = table.Row{
	"Month", "Bracket", "Min kWh", "Max kWh",
	"Generation", "Transmission", "System Loss", "Distribution", "Supply", "Metering",
	"Lifeline Subsidy", "Lifeline Disc %",
}

func writeTable(w io.Writer, docs []model.MonthlyRateDocument) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(tableHeader)
	for _, r := range flatten(docs) {
		t.AppendRow(table.Row{
			r.doc.MonthKey,
			r.row.BracketLabel,
			r.row.MinKWh,
			formatMax(r.row.MaxKWh),
			formatFloat(r.row.Charge(model.ChargeGeneration)),
			formatFloat(r.row.Charge(model.ChargeTransmission)),
			formatFloat(r.row.Charge(model.ChargeSystemLoss)),
			formatFloat(r.row.Charge(model.ChargeDistribution)),
			formatFloat(r.row.Charge(model.ChargeSupply)),
			formatFloat(r.row.Charge(model.ChargeMetering)),
			formatFloat(r.row.Lifeline.RateSubsidyPerKWh),
			formatFloat(r.row.Lifeline.ApplicableDiscountPercent),
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatMax(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
