// Package pipeline turns discovered rate schedule announcements into monthly
// rate documents.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/meralco-rates/internal/fetcher"
	"github.com/sells-group/meralco-rates/internal/model"
	"github.com/sells-group/meralco-rates/internal/pdftable"
	"github.com/sells-group/meralco-rates/internal/resilience"
	"github.com/sells-group/meralco-rates/internal/schedule"
)

// ParserVersion identifies the extraction logic in document provenance.
const ParserVersion = "v3_generic"

// DefaultTempDir holds downloaded PDFs while they are being extracted.
const DefaultTempDir = ".meralco_tmp"

var (
	// ErrNoRates is returned when a document yields no valid residential row.
	ErrNoRates = eris.New("pipeline: no residential rates extracted")
	// ErrUnresolvedMonth is returned for an item whose month is unknown.
	ErrUnresolvedMonth = eris.New("pipeline: discovery item has no month")
)

// Processing stages reported in failures.
const (
	StageResolve  = "resolve"
	StageFetch    = "fetch"
	StageStore    = "store"
	StageExtract  = "extract"
	StageValidate = "validate"
	StagePanic    = "panic"
)

// StageError ties a processing error to the stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// Options configures a Processor.
type Options struct {
	// TempDir receives one PDF per item, removed once the item is done.
	TempDir string
	// Now stamps provenance. Defaults to time.Now.
	Now func() time.Time
}

// Processor downloads, extracts, and assembles one document per item.
type Processor struct {
	fetcher   fetcher.Fetcher
	extractor pdftable.Extractor
	tempDir   string
	now       func() time.Time
}

// NewProcessor creates a Processor.
func NewProcessor(f fetcher.Fetcher, x pdftable.Extractor, opts Options) *Processor {
	if opts.TempDir == "" {
		opts.TempDir = DefaultTempDir
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Processor{
		fetcher:   f,
		extractor: x,
		tempDir:   opts.TempDir,
		now:       opts.Now,
	}
}

// Result is the outcome of processing a batch of items.
type Result struct {
	Documents []model.MonthlyRateDocument
	Failures  []resilience.ItemFailure
}

// Process handles items one at a time in order. A failing or panicking item
// is recorded and the batch continues.
func (p *Processor) Process(ctx context.Context, items []model.DiscoveryItem) Result {
	var res Result
	for _, item := range items {
		if ctx.Err() != nil {
			zap.L().Warn("pipeline: interrupted", zap.Error(ctx.Err()))
			break
		}

		doc, err := p.safeProcess(ctx, item)
		if err != nil {
			stage := StageExtract
			var se *StageError
			if errors.As(err, &se) {
				stage = se.Stage
			}
			zap.L().Error("pipeline: item failed",
				zap.String("month_key", item.MonthKey),
				zap.String("pdf_url", item.DocumentURL),
				zap.String("stage", stage),
				zap.Error(err),
			)
			res.Failures = append(res.Failures, resilience.NewItemFailure(item, stage, err, p.now().UTC()))
			continue
		}
		res.Documents = append(res.Documents, *doc)
	}

	zap.L().Info("pipeline: batch complete",
		zap.Int("items", len(items)),
		zap.Int("processed", len(res.Documents)),
		zap.Int("failed", len(res.Failures)),
	)
	return res
}

func (p *Processor) safeProcess(ctx context.Context, item model.DiscoveryItem) (doc *model.MonthlyRateDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = &StageError{Stage: StagePanic, Err: eris.Errorf("pipeline: panic: %v", r)}
		}
	}()
	return p.ProcessItem(ctx, item)
}

// ProcessItem downloads the item's PDF, extracts its residential rates, and
// assembles the monthly document. The temporary PDF is removed on return.
func (p *Processor) ProcessItem(ctx context.Context, item model.DiscoveryItem) (*model.MonthlyRateDocument, error) {
	if !item.Resolved() {
		return nil, &StageError{Stage: StageResolve, Err: ErrUnresolvedMonth}
	}

	log := zap.L().With(zap.String("month_key", item.MonthKey), zap.String("pdf_url", item.DocumentURL))
	log.Info("pipeline: processing item", zap.String("title", item.Title))

	data, err := p.fetcher.Fetch(ctx, item.DocumentURL)
	if err != nil {
		return nil, &StageError{Stage: StageFetch, Err: err}
	}
	sum := sha256.Sum256(data)

	path, err := p.writeTemp(item.MonthKey, data)
	if err != nil {
		return nil, &StageError{Stage: StageStore, Err: err}
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warn("pipeline: failed to remove temp file", zap.String("path", path), zap.Error(rmErr))
		}
	}()

	pages, err := p.extractor.ExtractTables(ctx, path)
	if err != nil {
		return nil, &StageError{Stage: StageExtract, Err: err}
	}

	ex := schedule.ExtractResidential(pages)
	if len(ex.Diagnostics) > 0 {
		log.Warn("pipeline: rejected rows", zap.Int("count", len(ex.Diagnostics)))
	}
	if len(ex.Rows) == 0 {
		return nil, &StageError{Stage: StageValidate, Err: ErrNoRates}
	}

	log.Info("pipeline: extracted residential rates", zap.Int("rows", len(ex.Rows)))

	return &model.MonthlyRateDocument{
		MonthKey:         item.MonthKey,
		ResidentialRates: ex.Rows,
		Provenance: model.Provenance{
			SourceOriginURL:      item.OriginURL,
			SourceDocumentURL:    item.DocumentURL,
			ContentSHA256:        hex.EncodeToString(sum[:]),
			FetchedAt:            p.now().UTC(),
			ParserVersion:        ParserVersion,
			TableLayoutSignature: ex.Layout,
		},
	}, nil
}

func (p *Processor) writeTemp(month string, data []byte) (string, error) {
	if err := os.MkdirAll(p.tempDir, 0o755); err != nil {
		return "", eris.Wrapf(err, "pipeline: create temp dir %s", p.tempDir)
	}
	path := filepath.Join(p.tempDir, fmt.Sprintf("meralco_rates_%s.pdf", month))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", eris.Wrapf(err, "pipeline: write %s", path)
	}
	return path, nil
}
