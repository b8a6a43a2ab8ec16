package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/atlas/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	DuckDuckGo DuckDuckGoConfig `yaml:"duckduckgo" mapstructure:"duckduckgo"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Browser    BrowserConfig    `yaml:"browser" mapstructure:"browser"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Research   ResearchConfig   `yaml:"research" mapstructure:"research"`
	Report     ReportConfig     `yaml:"report" mapstructure:"report"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// JinaConfig holds Jina AI Reader and Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
	// RemoveSelectors are CSS selectors dropped from pages before rendering.
	RemoveSelectors []string `yaml:"remove_selectors" mapstructure:"remove_selectors"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
	// Recency limits searched pages by age: day, week, month or year.
	Recency string `yaml:"recency" mapstructure:"recency"`
}

// DuckDuckGoConfig holds the HTML endpoint settings.
type DuckDuckGoConfig struct {
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	MaxResults int     `yaml:"max_results" mapstructure:"max_results"`
}

// SearchConfig selects how searches and page reads are performed.
type SearchConfig struct {
	// Session is "rod" (headless browser) or "api" (HTTP search APIs).
	Session string `yaml:"session" mapstructure:"session"`
	// Secondary is the API session's secondary engine: "duckduckgo" or "perplexity".
	Secondary  string  `yaml:"secondary" mapstructure:"secondary"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// BrowserConfig configures the headless browser session.
type BrowserConfig struct {
	Bin                   string `yaml:"bin" mapstructure:"bin"`
	ControlURL            string `yaml:"control_url" mapstructure:"control_url"`
	Headless              bool   `yaml:"headless" mapstructure:"headless"`
	NavigationTimeoutSecs int    `yaml:"navigation_timeout_secs" mapstructure:"navigation_timeout_secs"`
}

// ScrapeConfig configures the HTTP scrape chain.
type ScrapeConfig struct {
	UserAgent    string   `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs  int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	ExcludePaths []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
}

// RetryConfig configures transport-level retries of external API calls.
type RetryConfig struct {
	Attempts    int `yaml:"attempts" mapstructure:"attempts"`
	BaseDelayMs int `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	MaxDelayMs  int `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
}

// ResearchConfig configures the per-field retry loop.
type ResearchConfig struct {
	MaxAttempts int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	Fields      []string `yaml:"fields" mapstructure:"fields"`
	// ReuseHours reuses a stored profile younger than this; 0 always researches.
	ReuseHours int `yaml:"reuse_hours" mapstructure:"reuse_hours"`
}

// ReportConfig configures profile output files.
type ReportConfig struct {
	Dir     string   `yaml:"dir" mapstructure:"dir"`
	Formats []string `yaml:"formats" mapstructure:"formats"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentCompanies int `yaml:"max_concurrent_companies" mapstructure:"max_concurrent_companies"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from ./config.yaml (if present) and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from path, which must exist when non-empty,
// and the environment.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("ATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "atlas.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent_companies", 2)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("jina.remove_selectors", []string{"nav"})
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("duckduckgo.base_url", "https://html.duckduckgo.com/html/")
	v.SetDefault("duckduckgo.rate_per_sec", 1.0)
	v.SetDefault("duckduckgo.max_results", 10)
	v.SetDefault("search.session", "rod")
	v.SetDefault("search.secondary", "duckduckgo")
	v.SetDefault("search.rate_per_sec", 2.0)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.navigation_timeout_secs", 30)
	v.SetDefault("scrape.timeout_secs", 20)
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.base_delay_ms", 500)
	v.SetDefault("retry.max_delay_ms", 20000)
	v.SetDefault("research.max_attempts", 5)
	v.SetDefault("report.dir", "reports")
	v.SetDefault("report.formats", []string{"json"})

	// Secrets and optional settings need a default so env-only values unmarshal.
	for _, key := range []string{
		"anthropic.key", "anthropic.base_url", "jina.key", "perplexity.key", "perplexity.recency",
		"browser.bin", "browser.control_url", "scrape.user_agent",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("research.reuse_hours", 0)

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

// Validate checks that the settings a mode needs are present and sane.
// Modes: "research" (research and batch), "serve", and "store" (run history).
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "research", "serve", "store":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not sqlite or postgres", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	if mode != "store" {
		errs = append(errs, c.validateResearch()...)
		if c.Batch.MaxConcurrentCompanies < 1 || c.Batch.MaxConcurrentCompanies > 50 {
			errs = append(errs, "batch.max_concurrent_companies must be between 1 and 50")
		}
	}
	if mode == "serve" && c.Server.Port <= 0 {
		errs = append(errs, "server.port must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateResearch() []string {
	var errs []string
	if c.Anthropic.Key == "" {
		errs = append(errs, "anthropic.key is required")
	}
	if c.Research.MaxAttempts < 1 || c.Research.MaxAttempts > 5 {
		errs = append(errs, "research.max_attempts must be between 1 and 5")
	}

	switch c.Search.Session {
	case "rod":
	case "api":
		switch c.Search.Secondary {
		case "duckduckgo":
		case "perplexity":
			if c.Perplexity.Key == "" {
				errs = append(errs, "perplexity.key is required")
			}
			switch c.Perplexity.Recency {
			case "", "day", "week", "month", "year":
			default:
				errs = append(errs, fmt.Sprintf("perplexity.recency %q is not day, week, month or year", c.Perplexity.Recency))
			}
		default:
			errs = append(errs, fmt.Sprintf("search.secondary %q is not duckduckgo or perplexity", c.Search.Secondary))
		}
	default:
		errs = append(errs, fmt.Sprintf("search.session %q is not rod or api", c.Search.Session))
	}
	return errs
}

// RetryPolicy returns the transport retry policy for external API calls.
func (c *Config) RetryPolicy() resilience.Policy {
	return resilience.PolicyFromMillis(c.Retry.Attempts, c.Retry.BaseDelayMs, c.Retry.MaxDelayMs)
}

// ReuseWindow is how long a stored profile may be reused instead of
// researching again. Zero disables reuse.
func (c *Config) ReuseWindow() time.Duration {
	if c.Research.ReuseHours <= 0 {
		return 0
	}
	return time.Duration(c.Research.ReuseHours) * time.Hour
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
