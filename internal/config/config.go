package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	SerpAPI   SerpAPIConfig   `yaml:"serpapi" mapstructure:"serpapi"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Financial FinancialConfig `yaml:"financial" mapstructure:"financial"`
	PDFText   PDFTextConfig   `yaml:"pdftext" mapstructure:"pdftext"`
	Report    ReportConfig    `yaml:"report" mapstructure:"report"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-history database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// SerpAPIConfig holds search-provider settings. An empty key disables
// search-backed features rather than erroring.
type SerpAPIConfig struct {
	Key      string  `yaml:"key" mapstructure:"key"`
	BaseURL  string  `yaml:"base_url" mapstructure:"base_url"`
	Location string  `yaml:"location" mapstructure:"location"`
	Language string  `yaml:"language" mapstructure:"language"`
	Country  string  `yaml:"country" mapstructure:"country"`
	QPS      float64 `yaml:"qps" mapstructure:"qps"`
}

// AnthropicConfig holds LLM settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	HaikuModel  string `yaml:"haiku_model" mapstructure:"haiku_model"`
	SonnetModel string `yaml:"sonnet_model" mapstructure:"sonnet_model"`
}

// FinancialConfig configures the financial-data acquisition pipeline.
type FinancialConfig struct {
	DownloadTimeoutSecs   int `yaml:"download_timeout_secs" mapstructure:"download_timeout_secs"`
	MaxPDFPages           int `yaml:"max_pdf_pages" mapstructure:"max_pdf_pages"`
	PromptSampleChars     int `yaml:"prompt_sample_chars" mapstructure:"prompt_sample_chars"`
	MinDocumentChars      int `yaml:"min_document_chars" mapstructure:"min_document_chars"`
	SearchResultsPerQuery int `yaml:"search_results_per_query" mapstructure:"search_results_per_query"`

	// Segment-enrichment quality gate. The thresholds are heuristics, not
	// load-bearing contract values, so they stay configurable.
	SegmentMinRunes        int `yaml:"segment_min_runes" mapstructure:"segment_min_runes"`
	SegmentContextMinChars int `yaml:"segment_context_min_chars" mapstructure:"segment_context_min_chars"`
	SegmentFallbackChars   int `yaml:"segment_fallback_chars" mapstructure:"segment_fallback_chars"`
}

// PDFTextConfig configures PDF text extraction.
type PDFTextConfig struct {
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
}

// ReportConfig configures the two-stage report writer.
type ReportConfig struct {
	PromptDir     string `yaml:"prompt_dir" mapstructure:"prompt_dir"`
	MaxTokens     int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	MarketSnippet int    `yaml:"market_snippet_chars" mapstructure:"market_snippet_chars"`
	OutDir        string `yaml:"out_dir" mapstructure:"out_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "research.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("serpapi.base_url", "https://serpapi.com")
	v.SetDefault("serpapi.location", "Japan")
	v.SetDefault("serpapi.language", "ja")
	v.SetDefault("serpapi.country", "jp")
	v.SetDefault("serpapi.qps", 2.0)
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("financial.download_timeout_secs", 30)
	v.SetDefault("financial.max_pdf_pages", 15)
	v.SetDefault("financial.prompt_sample_chars", 6000)
	v.SetDefault("financial.min_document_chars", 100)
	v.SetDefault("financial.search_results_per_query", 15)
	v.SetDefault("financial.segment_min_runes", 20)
	v.SetDefault("financial.segment_context_min_chars", 100)
	v.SetDefault("financial.segment_fallback_chars", 3000)
	v.SetDefault("pdftext.pdftotext_path", "pdftotext")
	v.SetDefault("report.max_tokens", 16000)
	v.SetDefault("report.market_snippet_chars", 2500)
	v.SetDefault("report.out_dir", "reports")

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

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

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
