// Package pdftable turns PDF pages into grids of text cells.
package pdftable

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/meralco-rates/internal/model"
)

// Extractor extracts the tables of every page of a PDF file.
type Extractor interface {
	ExtractTables(ctx context.Context, pdfPath string) ([]model.Page, error)
}

// LayoutExtractor renders each page with pdftotext -layout and splits the
// text into column-aligned tables.
type LayoutExtractor struct {
	binPath   string
	pageCount func(pdfPath string) (int, error)
	run       func(ctx context.Context, bin string, args ...string) ([]byte, error)
}

// NewLayoutExtractor creates a LayoutExtractor. If binPath is empty,
// "pdftotext" is used.
func NewLayoutExtractor(binPath string) *LayoutExtractor {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &LayoutExtractor{
		binPath:   binPath,
		pageCount: PageCount,
		run:       runCommand,
	}
}

// ExtractTables validates the PDF, then extracts the tables of each page in
// order. Pages without text yield a Page with no tables.
func (e *LayoutExtractor) ExtractTables(ctx context.Context, pdfPath string) ([]model.Page, error) {
	n, err := e.pageCount(pdfPath)
	if err != nil {
		return nil, err
	}

	pages := make([]model.Page, 0, n)
	for nr := 1; nr <= n; nr++ {
		text, err := e.pageText(ctx, pdfPath, nr)
		if err != nil {
			return nil, err
		}
		tables := ParseLayout(text)
		zap.L().Debug("extracted page tables",
			zap.String("pdf", pdfPath),
			zap.Int("page", nr),
			zap.Int("tables", len(tables)),
		)
		pages = append(pages, model.Page{Number: nr, Tables: tables})
	}
	return pages, nil
}

func (e *LayoutExtractor) pageText(ctx context.Context, pdfPath string, nr int) (string, error) {
	page := strconv.Itoa(nr)
	out, err := e.run(ctx, e.binPath, "-layout", "-f", page, "-l", page, pdfPath, "-")
	if err != nil {
		return "", eris.Wrapf(err, "pdftable: pdftotext failed for %s page %d", pdfPath, nr)
	}
	return string(out), nil
}

// PageCount validates a PDF file and returns its number of pages.
func PageCount(pdfPath string) (int, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return 0, eris.Wrapf(err, "pdftable: open %s", pdfPath)
	}
	defer f.Close() //nolint:errcheck

	pdfCtx, err := api.ReadValidateAndOptimize(f, pdfmodel.NewDefaultConfiguration())
	if err != nil {
		return 0, eris.Wrapf(err, "pdftable: read %s", pdfPath)
	}
	return pdfCtx.PageCount, nil
}

func runCommand(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "%s", stderr.String())
	}
	return stdout.Bytes(), nil
}
