package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Providers ProvidersConfig `yaml:"providers" mapstructure:"providers"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	StaticMap StaticMapConfig `yaml:"staticmap" mapstructure:"staticmap"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OCR       OCRConfig       `yaml:"ocr" mapstructure:"ocr"`
	Intake    IntakeConfig    `yaml:"intake" mapstructure:"intake"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the provider database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Schema      string `yaml:"schema" mapstructure:"schema"`
}

// ProvidersConfig configures provider matching.
type ProvidersConfig struct {
	Limit int `yaml:"limit" mapstructure:"limit"`
}

// GeocodeConfig configures the geocoding provider and pacing.
type GeocodeConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	ZipURL          string `yaml:"zip_url" mapstructure:"zip_url"`
	UserAgent       string `yaml:"user_agent" mapstructure:"user_agent"`
	APIKey          string `yaml:"api_key" mapstructure:"api_key"`
	MinIntervalMS   int    `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
	CorrectionsFile string `yaml:"corrections_file" mapstructure:"corrections_file"`
}

// MinInterval returns the pause enforced between provider calls.
func (g GeocodeConfig) MinInterval() time.Duration {
	return time.Duration(g.MinIntervalMS) * time.Millisecond
}

// CacheConfig configures the geocode result cache.
type CacheConfig struct {
	Backend     string `yaml:"backend" mapstructure:"backend"`
	Dir         string `yaml:"dir" mapstructure:"dir"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Table       string `yaml:"table" mapstructure:"table"`
	TTLDays     int    `yaml:"ttl_days" mapstructure:"ttl_days"`
}

// TTL returns the cache entry lifetime; zero never expires.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLDays) * 24 * time.Hour
}

// StaticMapConfig configures map rendering.
type StaticMapConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
	Zoom    int    `yaml:"zoom" mapstructure:"zoom"`
	Width   int    `yaml:"width" mapstructure:"width"`
	Height  int    `yaml:"height" mapstructure:"height"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OCRConfig configures document text extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_key" mapstructure:"mistral_key"`
	MistralModel  string `yaml:"mistral_model" mapstructure:"mistral_model"`
}

// IntakeConfig configures order folder processing.
type IntakeConfig struct {
	MaxFileBytes int64 `yaml:"max_file_bytes" mapstructure:"max_file_bytes"`
	Concurrency  int   `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("INTAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "providers.db")
	v.SetDefault("store.schema", "public")
	v.SetDefault("providers.limit", 3)
	v.SetDefault("geocode.enabled", true)
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.zip_url", "https://api.zippopotam.us/us")
	v.SetDefault("geocode.user_agent", "WorkersCompProcessor/1.0")
	v.SetDefault("geocode.api_key", "")
	v.SetDefault("geocode.min_interval_ms", 1000)
	v.SetDefault("geocode.corrections_file", "")
	v.SetDefault("cache.backend", "file")
	v.SetDefault("cache.dir", "data/geocode_cache")
	v.SetDefault("cache.database_url", "")
	v.SetDefault("cache.table", "public.geocode_cache")
	v.SetDefault("cache.ttl_days", 0)
	v.SetDefault("staticmap.enabled", true)
	v.SetDefault("staticmap.base_url", "https://staticmap.openstreetmap.de/staticmap.php")
	v.SetDefault("staticmap.dir", "data/maps")
	v.SetDefault("staticmap.zoom", 14)
	v.SetDefault("staticmap.width", 600)
	v.SetDefault("staticmap.height", 400)
	v.SetDefault("staticmap.api_key", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4000)
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.mistral_key", "")
	v.SetDefault("ocr.mistral_model", "mistral-ocr-latest")
	v.SetDefault("intake.max_file_bytes", 20*1024*1024)
	v.SetDefault("intake.concurrency", 4)
	v.SetDefault("server.port", 8080)
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

// CacheDatabaseURL returns the cache DSN, falling back to the store's when
// both live in the same database.
func (c *Config) CacheDatabaseURL() string {
	if c.Cache.DatabaseURL != "" {
		return c.Cache.DatabaseURL
	}
	if c.Cache.Backend == c.Store.Driver {
		return c.Store.DatabaseURL
	}
	return ""
}

// Validate checks the settings a command mode depends on. Modes: resolve,
// process, serve, providers.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "resolve", "process", "serve":
		errs = append(errs, c.validateCore()...)
		if mode == "process" {
			errs = append(errs, c.validateIntake()...)
		}
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "providers":
		errs = append(errs, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	return errs
}

func (c *Config) validateCore() []string {
	errs := c.validateStore()
	if c.Providers.Limit < 1 || c.Providers.Limit > 50 {
		errs = append(errs, "providers.limit must be between 1 and 50")
	}
	if c.Geocode.MinIntervalMS < 0 {
		errs = append(errs, "geocode.min_interval_ms must be >= 0")
	}
	if c.Cache.TTLDays < 0 {
		errs = append(errs, "cache.ttl_days must be >= 0")
	}
	switch c.Cache.Backend {
	case "file", "memory":
	case "sqlite", "postgres":
		if c.CacheDatabaseURL() == "" {
			errs = append(errs, "cache.database_url is required for the "+c.Cache.Backend+" cache")
		}
	default:
		errs = append(errs, fmt.Sprintf("cache.backend %q must be file, sqlite, postgres or memory", c.Cache.Backend))
	}
	return errs
}

func (c *Config) validateIntake() []string {
	var errs []string
	if c.Anthropic.Key == "" {
		errs = append(errs, "anthropic.key is required")
	}
	if c.Intake.Concurrency < 1 || c.Intake.Concurrency > 16 {
		errs = append(errs, "intake.concurrency must be between 1 and 16")
	}
	if c.Intake.MaxFileBytes <= 0 {
		errs = append(errs, "intake.max_file_bytes must be > 0")
	}
	switch c.OCR.Provider {
	case "local":
	case "mistral":
		if c.OCR.MistralKey == "" {
			errs = append(errs, "ocr.mistral_key is required for the mistral provider")
		}
	default:
		errs = append(errs, fmt.Sprintf("ocr.provider %q must be local or mistral", c.OCR.Provider))
	}
	return errs
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
