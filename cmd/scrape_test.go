package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/meralco-rates/internal/config"
	"github.com/sells-group/meralco-rates/internal/model"
	"github.com/sells-group/meralco-rates/internal/pdftable"
	pdfmocks "github.com/sells-group/meralco-rates/internal/pdftable/mocks"
)

var nodeMonths = map[string]string{
	"12": "2024-03",
	"11": "2024-02",
	"10": "2024-01",
	"9":  "2023-12",
}

// newRateSite serves a feed, a two page archive, detail pages, and PDFs.
func newRateSite(t *testing.T, feedTitle string) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/taxonomy/term/86/feed", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0" encoding="utf-8"?>
<rss version="2.0"><channel><title>Rates</title>
<item><title>%s</title><link>%s/node/12</link><pubDate>Mon, 11 Mar 2024 08:00:00 +0800</pubDate></item>
</channel></rss>`, feedTitle, srv.URL)
	})
	mux.HandleFunc("/taxonomy/term/86", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "0":
			fmt.Fprint(w, `<ul><li><a href="/node/12">March</a></li><li><a href="/node/11">February</a></li></ul>`)
		case "1":
			fmt.Fprint(w, `<ul><li><a href="/node/10">January</a></li><li><a href="/node/9">December</a></li></ul>`)
		default:
			fmt.Fprint(w, `<ul></ul>`)
		}
	})
	mux.HandleFunc("/node/", func(w http.ResponseWriter, r *http.Request) {
		month, ok := nodeMonths[strings.TrimPrefix(r.URL.Path, "/node/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `<html><head><title>Rates for %s | Meralco</title></head>
<body><a href="/files/%s/Rate_Schedule.pdf">Download</a></body></html>`, month, month)
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, "%PDF-1.4 "+r.URL.Path)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func residentialPages() []model.Page {
	return []model.Page{{Number: 1, Tables: []model.Table{{
		{"", "Generation", "Transmission", "System Loss", "Distribution", "Supply", "Metering", "Lifeline Subsidy", "Lifeline Discount"},
		{"0 TO 50 KWH", "5.1234", "0.9876", "0.4321", "1.2345", "0.5", "0.3", "(0.1)", "100%"},
		{"OVER 1000 KWH", "5.1234", "0.9876", "0.4321", "1.2345", "0.5", "0.3", "0", "0"},
	}}}}
}

// setupScrape points the config at srv and swaps in a mock extractor.
func setupScrape(t *testing.T, srv *httptest.Server) *pdfmocks.MockExtractor {
	t.Helper()

	t.Chdir(t.TempDir())
	t.Setenv("MERALCO_SOURCE_BASE_URL", srv.URL)
	t.Setenv("MERALCO_SOURCE_FEED_URL", srv.URL+"/taxonomy/term/86/feed")
	t.Setenv("MERALCO_SOURCE_ARCHIVE_URL", srv.URL+"/taxonomy/term/86")
	t.Setenv("MERALCO_CRAWL_POLITENESS_DELAY_MS", "0")
	t.Setenv("MERALCO_HTTP_BASE_DELAY_MS", "1")
	t.Setenv("MERALCO_EXTRACT_TEMP_DIR", filepath.Join(t.TempDir(), "pdf"))
	t.Setenv("MERALCO_LOG_LEVEL", "error")

	x := pdfmocks.NewMockExtractor(t)
	orig := newExtractor
	newExtractor = func(config.ExtractConfig) pdftable.Extractor { return x }
	t.Cleanup(func() { newExtractor = orig })
	return x
}

func decodeDocuments(t *testing.T, out string) []model.MonthlyRateDocument {
	t.Helper()
	var docs []model.MonthlyRateDocument
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	return docs
}

func TestLatestCommand(t *testing.T) {
	srv := newRateSite(t, "Summary Schedule of Rates for March 2024")
	x := setupScrape(t, srv)
	x.On("ExtractTables", mock.Anything, mock.Anything).Return(residentialPages(), nil).Once()

	out, err := executeCommand(t, "latest")
	require.NoError(t, err)

	docs := decodeDocuments(t, out)
	require.Len(t, docs, 1)
	assert.Equal(t, "2024-03", docs[0].MonthKey)
	assert.Len(t, docs[0].ResidentialRates, 2)
	assert.Equal(t, srv.URL+"/node/12", docs[0].Provenance.SourceOriginURL)
	assert.Equal(t, srv.URL+"/files/2024-03/Rate_Schedule.pdf", docs[0].Provenance.SourceDocumentURL)
}

func TestLatestCommand_NoFeedEntry(t *testing.T) {
	srv := newRateSite(t, "Scheduled maintenance advisory")
	setupScrape(t, srv)

	out, err := executeCommand(t, "latest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no summary of schedule of rates")
	assert.Empty(t, out)
}

func TestLatestCommand_AllItemsFailed(t *testing.T) {
	srv := newRateSite(t, "Summary Schedule of Rates for March 2024")
	x := setupScrape(t, srv)
	x.On("ExtractTables", mock.Anything, mock.Anything).Return(nil, errors.New("pdftotext: exit status 1")).Once()

	out, err := executeCommand(t, "latest")
	require.ErrorIs(t, err, errAllFailed)
	assert.Equal(t, "[]\n", out)
}

func TestLatestCommand_InvalidConfig(t *testing.T) {
	srv := newRateSite(t, "Summary Schedule of Rates for March 2024")
	setupScrape(t, srv)

	_, err := executeCommand(t, "latest", "--retries", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http.max_attempts must be >= 1")
}

func TestBackfillCommand(t *testing.T) {
	srv := newRateSite(t, "unused")
	x := setupScrape(t, srv)
	x.On("ExtractTables", mock.Anything, mock.Anything).Return(residentialPages(), nil).Twice()

	out, err := executeCommand(t, "backfill", "--start", "2024-01", "--end", "2024-02")
	require.NoError(t, err)

	docs := decodeDocuments(t, out)
	require.Len(t, docs, 2)
	assert.Equal(t, "2024-01", docs[0].MonthKey)
	assert.Equal(t, "2024-02", docs[1].MonthKey)
	assert.Equal(t, srv.URL+"/node/10", docs[0].Provenance.SourceOriginURL)
}

func TestBackfillCommand_CSVToFile(t *testing.T) {
	srv := newRateSite(t, "unused")
	x := setupScrape(t, srv)
	x.On("ExtractTables", mock.Anything, mock.Anything).Return(residentialPages(), nil).Once()

	path := filepath.Join(t.TempDir(), "rates.csv")
	out, err := executeCommand(t, "backfill", "--start", "2024-03", "--end", "2024-03", "--output", "csv", "--out", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "month_key,"))
	assert.True(t, strings.HasPrefix(lines[1], "2024-03,"))
}

func TestBackfillCommand_NothingInRange(t *testing.T) {
	srv := newRateSite(t, "unused")
	setupScrape(t, srv)

	_, err := executeCommand(t, "backfill", "--start", "2025-01", "--end", "2025-06")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rate schedules found between 2025-01 and 2025-06")
}

func TestBackfillCommand_RequiresRange(t *testing.T) {
	srv := newRateSite(t, "unused")
	setupScrape(t, srv)

	_, err := executeCommand(t, "backfill", "--start", "2024-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "end" not set`)
}
