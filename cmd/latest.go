package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/meralco-rates/internal/discovery"
	"github.com/sells-group/meralco-rates/internal/model"
)

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Extract the most recent rate schedule announced in the feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline("latest")
		if err != nil {
			return err
		}

		locator, err := discovery.NewFeedLocator(env.Fetcher, cfg.Source.FeedURL, cfg.Source.BaseURL)
		if err != nil {
			return err
		}

		item, err := locator.LocateLatest(ctx)
		if err != nil {
			return eris.Wrap(err, "locate latest schedule")
		}

		res := env.Processor.Process(ctx, []model.DiscoveryItem{item})
		return finishRun(cmd.OutOrStdout(), res)
	},
}

func init() {
	rootCmd.AddCommand(latestCmd)
}
