package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http" mapstructure:"http"`
	Source  SourceConfig  `yaml:"source" mapstructure:"source"`
	Crawl   CrawlConfig   `yaml:"crawl" mapstructure:"crawl"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// HTTPConfig configures the fetch client.
type HTTPConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelayMs int    `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	// CABundle is an optional PEM file trusted in addition to the system roots.
	CABundle string `yaml:"ca_bundle" mapstructure:"ca_bundle"`
}

// Timeout returns the per-request timeout.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// SourceConfig locates the published rate schedules.
type SourceConfig struct {
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	FeedURL    string `yaml:"feed_url" mapstructure:"feed_url"`
	ArchiveURL string `yaml:"archive_url" mapstructure:"archive_url"`
}

// CrawlConfig configures the archive crawl.
type CrawlConfig struct {
	PolitenessDelayMs int `yaml:"politeness_delay_ms" mapstructure:"politeness_delay_ms"`
	MaxPages          int `yaml:"max_pages" mapstructure:"max_pages"`
}

// PolitenessDelay returns the minimum spacing between crawl requests.
func (c CrawlConfig) PolitenessDelay() time.Duration {
	return time.Duration(c.PolitenessDelayMs) * time.Millisecond
}

// ExtractConfig configures PDF table extraction.
type ExtractConfig struct {
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	TempDir       string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// OutputConfig configures result serialization.
type OutputConfig struct {
	Format string `yaml:"format" mapstructure:"format"`
	Pretty bool   `yaml:"pretty" mapstructure:"pretty"`
	// Path is the output file; empty writes to stdout.
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// OutputFormats lists the accepted output.format values.
var OutputFormats = []string{"json", "csv", "yaml", "xlsx", "table"}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MERALCO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("http.user_agent", "meralco-rates-cli/0.1.0")
	v.SetDefault("http.timeout_secs", 15)
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.base_delay_ms", 1000)
	v.SetDefault("http.ca_bundle", "")
	v.SetDefault("source.base_url", "https://company.meralco.com.ph")
	v.SetDefault("source.feed_url", "https://company.meralco.com.ph/taxonomy/term/86/feed")
	v.SetDefault("source.archive_url", "https://company.meralco.com.ph/taxonomy/term/86")
	v.SetDefault("crawl.politeness_delay_ms", 1000)
	v.SetDefault("crawl.max_pages", 0)
	v.SetDefault("extract.pdftotext_path", "pdftotext")
	v.SetDefault("extract.temp_dir", ".meralco_tmp")
	v.SetDefault("output.format", "json")
	v.SetDefault("output.pretty", false)
	v.SetDefault("output.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is "latest" or
// "backfill".
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.HTTP.MaxAttempts < 1 {
		errs = append(errs, "http.max_attempts must be >= 1")
	}
	if c.HTTP.TimeoutSecs < 1 {
		errs = append(errs, "http.timeout_secs must be >= 1")
	}
	if c.HTTP.BaseDelayMs < 0 {
		errs = append(errs, "http.base_delay_ms must be >= 0")
	}
	if strings.TrimSpace(c.HTTP.UserAgent) == "" {
		errs = append(errs, "http.user_agent is required")
	}
	if c.Crawl.PolitenessDelayMs < 0 {
		errs = append(errs, "crawl.politeness_delay_ms must be >= 0")
	}
	if c.Crawl.MaxPages < 0 {
		errs = append(errs, "crawl.max_pages must be >= 0")
	}
	if !validFormat(c.Output.Format) {
		errs = append(errs, fmt.Sprintf("output.format must be one of %s", strings.Join(OutputFormats, ", ")))
	}
	if !absoluteURL(c.Source.BaseURL) {
		errs = append(errs, "source.base_url must be an absolute URL")
	}

	switch mode {
	case "latest":
		if !absoluteURL(c.Source.FeedURL) {
			errs = append(errs, "source.feed_url must be an absolute URL")
		}
	case "backfill":
		if !absoluteURL(c.Source.ArchiveURL) {
			errs = append(errs, "source.archive_url must be an absolute URL")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown mode %q", mode))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validFormat(f string) bool {
	for _, o := range OutputFormats {
		if strings.EqualFold(f, o) {
			return true
		}
	}
	return false
}

func absoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// InitLogger initializes the global zap logger. Logs go to stderr so that
// results written to stdout stay clean.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
