package main

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/meralco-rates/internal/config"
	"github.com/sells-group/meralco-rates/internal/fetcher"
	"github.com/sells-group/meralco-rates/internal/pdftable"
	"github.com/sells-group/meralco-rates/internal/pipeline"
	"github.com/sells-group/meralco-rates/internal/resilience"
)

// newExtractor builds the PDF table extractor. Tests replace it.
var newExtractor = func(c config.ExtractConfig) pdftable.Extractor {
	return pdftable.NewLayoutExtractor(c.PdfToTextPath)
}

// pipelineEnv holds the clients shared by the latest and backfill commands.
type pipelineEnv struct {
	Fetcher   fetcher.Fetcher
	Processor *pipeline.Processor
}

// initPipeline validates the config for mode and builds the fetch client and
// document processor.
func initPipeline(mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	f, err := newFetcher(cfg.HTTP)
	if err != nil {
		return nil, err
	}

	proc := pipeline.NewProcessor(f, newExtractor(cfg.Extract), pipeline.Options{
		TempDir: cfg.Extract.TempDir,
	})

	return &pipelineEnv{Fetcher: f, Processor: proc}, nil
}

func newFetcher(c config.HTTPConfig) (*fetcher.HTTPFetcher, error) {
	tlsCfg, err := fetcher.NewTLSConfig(c.CABundle)
	if err != nil {
		return nil, eris.Wrap(err, "init fetcher")
	}

	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent: c.UserAgent,
		Timeout:   c.Timeout(),
		Retry:     resilience.PolicyFromConfig(c.MaxAttempts, c.BaseDelayMs),
		TLS:       tlsCfg,
	})
}
