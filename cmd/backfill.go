package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/meralco-rates/internal/discovery"
)

var (
	backfillStart string
	backfillEnd   string
)

var backfillCmd = &cobra.Command{
	Use:     "backfill",
	Short:   "Extract every archived rate schedule in a month range",
	Example: "  meralco-rates backfill --start 2023-01 --end 2023-12 --output csv --out rates.csv",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline("backfill")
		if err != nil {
			return err
		}

		crawler, err := discovery.NewArchiveCrawler(env.Fetcher, discovery.CrawlerOptions{
			ArchiveURL:      cfg.Source.ArchiveURL,
			BaseURL:         cfg.Source.BaseURL,
			PolitenessDelay: cfg.Crawl.PolitenessDelay(),
			MaxPages:        cfg.Crawl.MaxPages,
		})
		if err != nil {
			return err
		}

		items, err := crawler.LocateRange(ctx, backfillStart, backfillEnd)
		if err != nil {
			return eris.Wrap(err, "crawl archive")
		}
		if len(items) == 0 {
			return eris.Errorf("no rate schedules found between %s and %s", backfillStart, backfillEnd)
		}

		discovery.SortByMonth(items)
		zap.L().Info("processing archive items",
			zap.Int("items", len(items)),
			zap.String("first_month", items[0].MonthKey),
			zap.String("last_month", items[len(items)-1].MonthKey),
		)

		res := env.Processor.Process(ctx, items)
		return finishRun(cmd.OutOrStdout(), res)
	},
}

func init() {
	backfillCmd.Flags().StringVar(&backfillStart, "start", "", "first month to include, YYYY-MM (required)")
	backfillCmd.Flags().StringVar(&backfillEnd, "end", "", "last month to include, YYYY-MM (required)")
	_ = backfillCmd.MarkFlagRequired("start")
	_ = backfillCmd.MarkFlagRequired("end")
	rootCmd.AddCommand(backfillCmd)
}
