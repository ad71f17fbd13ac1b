package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/meralco-rates/internal/config"
)

var cfg *config.Config

var (
	flagTimeout   int
	flagRetries   int
	flagUserAgent string
	flagOutput    string
	flagPretty    bool
	flagOut       string
)

var rootCmd = &cobra.Command{
	Use:   "meralco-rates",
	Short: "Scrape Meralco residential electricity rates",
	Long:  "Locates published Meralco rate schedules, downloads each PDF, and extracts the residential charges per consumption bracket.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		applyFlagOverrides(cmd.Flags(), c)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		zap.ReplaceGlobals(zap.L().With(zap.String("run_id", uuid.NewString())))

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.IntVar(&flagTimeout, "timeout", 0, "per-request timeout in seconds (overrides http.timeout_secs)")
	pf.IntVar(&flagRetries, "retries", 0, "attempts per request (overrides http.max_attempts)")
	pf.StringVar(&flagUserAgent, "user-agent", "", "User-Agent header (overrides http.user_agent)")
	pf.StringVar(&flagOutput, "output", "", "output format: json, csv, yaml, xlsx, table (overrides output.format)")
	pf.BoolVar(&flagPretty, "pretty", false, "indent JSON output")
	pf.StringVar(&flagOut, "out", "", "write results to this file instead of stdout")
}

// applyFlagOverrides copies explicitly set flags over the loaded config.
func applyFlagOverrides(flags *pflag.FlagSet, c *config.Config) {
	if flags.Changed("timeout") {
		c.HTTP.TimeoutSecs = flagTimeout
	}
	if flags.Changed("retries") {
		c.HTTP.MaxAttempts = flagRetries
	}
	if flags.Changed("user-agent") {
		c.HTTP.UserAgent = flagUserAgent
	}
	if flags.Changed("output") {
		c.Output.Format = flagOutput
	}
	if flags.Changed("pretty") {
		c.Output.Pretty = flagPretty
	}
	if flags.Changed("out") {
		c.Output.Path = flagOut
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
