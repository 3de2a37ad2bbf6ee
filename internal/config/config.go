package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/leadscout/internal/scrape"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig           `yaml:"store" mapstructure:"store"`
	Reddit     scrape.RedditConfig   `yaml:"reddit" mapstructure:"reddit"`
	Discord    scrape.DiscordConfig  `yaml:"discord" mapstructure:"discord"`
	Slack      scrape.SlackConfig    `yaml:"slack" mapstructure:"slack"`
	LinkedIn   scrape.LinkedInConfig `yaml:"linkedin" mapstructure:"linkedin"`
	OpenAI     OpenAIConfig          `yaml:"openai" mapstructure:"openai"`
	Gemini     GeminiConfig          `yaml:"gemini" mapstructure:"gemini"`
	Qualify    QualifyConfig         `yaml:"qualify" mapstructure:"qualify"`
	Scrape     ScrapeConfig          `yaml:"scrape" mapstructure:"scrape"`
	Export     ExportConfig          `yaml:"export" mapstructure:"export"`
	Salesforce SalesforceConfig      `yaml:"salesforce" mapstructure:"salesforce"`
	Server     ServerConfig          `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig      `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig             `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OpenAIConfig holds OpenAI API settings for the primary qualifier.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// GeminiConfig holds Gemini API settings for the fallback qualifier.
type GeminiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// QualifyConfig tunes LLM qualification.
type QualifyConfig struct {
	MaxConcurrent int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	MaxLeads      int     `yaml:"max_leads" mapstructure:"max_leads"`
	MinConfidence float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
	MaxRetries    int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// ScrapeConfig configures the scrape run as a whole.
type ScrapeConfig struct {
	Sources         []string `yaml:"sources" mapstructure:"sources"`
	PresetsPath     string   `yaml:"presets_path" mapstructure:"presets_path"`
	VocabularyPath  string   `yaml:"vocabulary_path" mapstructure:"vocabulary_path"`
	SkipPrevalidate bool     `yaml:"skip_prevalidate" mapstructure:"skip_prevalidate"`
}

// ExportConfig configures spreadsheet export.
type ExportConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID   string  `yaml:"client_id" mapstructure:"client_id"`
	Username   string  `yaml:"username" mapstructure:"username"`
	KeyPath    string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL   string  `yaml:"login_url" mapstructure:"login_url"`
	LeadObject string  `yaml:"lead_object" mapstructure:"lead_object"`
	RateLimit  float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures background alert checks.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	MinEvaluated         int     `yaml:"min_evaluated" mapstructure:"min_evaluated"`
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
	v.SetEnvPrefix("LEADSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadscout.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("reddit.user_agent", "leadscout/1.0")
	v.SetDefault("reddit.max_results", 100)
	v.SetDefault("reddit.rate_limit", 60)
	v.SetDefault("discord.max_results", 100)
	v.SetDefault("discord.rate_limit", 50)
	v.SetDefault("slack.max_results", 100)
	v.SetDefault("slack.rate_limit", 1)
	v.SetDefault("linkedin.max_results", 50)
	v.SetDefault("linkedin.daily_run_cap", 10)
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4-turbo")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("qualify.max_concurrent", 5)
	v.SetDefault("qualify.min_confidence", 0.7)
	v.SetDefault("qualify.max_retries", 3)
	v.SetDefault("scrape.sources", []string{"reddit", "discord", "slack", "linkedin_public", "linkedin_apify"})
	v.SetDefault("export.path", "leads.xlsx")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.lead_object", "Lead")
	v.SetDefault("salesforce.rate_limit", 5)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.min_evaluated", 5)

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
