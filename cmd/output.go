package main

import (
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/meralco-rates/internal/export"
	"github.com/sells-group/meralco-rates/internal/pipeline"
)

// errAllFailed is returned when every discovered item failed to process.
var errAllFailed = eris.New("no rate documents produced")

// finishRun logs the run summary and writes the documents to cfg.Output.Path,
// or to stdout when no path is set. The documents are written even when some
// items failed.
func finishRun(stdout io.Writer, res pipeline.Result) error {
	for _, f := range res.Failures {
		zap.L().Warn("item failed",
			zap.String("month_key", f.Item.MonthKey),
			zap.String("pdf_url", f.Item.DocumentURL),
			zap.String("stage", f.Stage),
			zap.String("error_type", f.ErrorType),
			zap.String("error", f.Error),
		)
	}
	zap.L().Info("run complete",
		zap.Int("processed", len(res.Documents)),
		zap.Int("failed", len(res.Failures)),
	)

	format, err := export.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	opts := export.Options{Format: format, Pretty: cfg.Output.Pretty}

	if cfg.Output.Path != "" {
		err = export.WriteFile(cfg.Output.Path, res.Documents, opts)
	} else {
		err = export.Write(stdout, res.Documents, opts)
	}
	if err != nil {
		return eris.Wrap(err, "write results")
	}

	if len(res.Documents) == 0 && len(res.Failures) > 0 {
		return errAllFailed
	}
	return nil
}
