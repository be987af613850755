package config

import "time"

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	Env            string                `yaml:"env"` // "development" | "production"
	DSN            string                `yaml:"-"`
	RedisURL       string                `yaml:"-"`
	Database       DatabaseRuntimeConfig `yaml:"database"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	Paths          RuntimePathsConfig    `yaml:"paths"`
	AllowedOrigins []string              `yaml:"allowed_origins"`
	AI             AIConfig              `yaml:"ai"`
	Catalog        CatalogConfig         `yaml:"catalog"`
	History        HistoryConfig         `yaml:"history"`
	RateLimit      RateLimitConfig       `yaml:"rate_limit"`
}

type DatabaseRuntimeConfig struct {
	Driver   string            `yaml:"driver"` // postgres | mysql | sqlite
	DSN      string            `yaml:"dsn"`
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	User     string            `yaml:"user"`
	Password string            `yaml:"password"`
	Name     string            `yaml:"name"`
	SSLMode  string            `yaml:"sslmode"`
	Path     string            `yaml:"path"` // sqlite file
	Params   map[string]string `yaml:"params"`
}

type RedisRuntimeConfig struct {
	Enable   bool              `yaml:"enable"`
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       int               `yaml:"db"`
	TLS      bool              `yaml:"tls"`
	Params   map[string]string `yaml:"params"`
}

type RuntimePathsConfig struct {
	Logs string `yaml:"logs"`
}

// AIConfig selects the provider used for recommendations.
type AIConfig struct {
	Providers       []AIProvider  `yaml:"providers"`
	ProviderID      string        `yaml:"provider_id"`
	Model           string        `yaml:"model"`
	Recommendations int           `yaml:"recommendations"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
}

type AIProvider struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Type         string `yaml:"type"` // OpenAI | OpenAI-Compatible | Anthropic | OpenRouter
	APIKey       string `yaml:"api_key"`
	Endpoint     string `yaml:"endpoint"`
	DefaultModel string `yaml:"default_model"`
	Enabled      bool   `yaml:"enabled"`
}

type CatalogConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	APIKey          string        `yaml:"api_key"`
	MaxResults      int           `yaml:"max_results"`
	QuoteMaxResults int           `yaml:"quote_max_results"`
	Timeout         time.Duration `yaml:"timeout"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	LocalFallback   bool          `yaml:"local_fallback"`
}

type HistoryConfig struct {
	RecentLimit   int `yaml:"recent_limit"`
	RetentionDays int `yaml:"retention_days"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type rawAppConfig struct {
	Port           int                `yaml:"port"`
	Env            string             `yaml:"env"`
	DSN            string             `yaml:"dsn"`
	DatabaseURL    string             `yaml:"database_url"`
	RedisURL       string             `yaml:"redis_url"`
	Database       rawDatabaseConfig  `yaml:"database"`
	Redis          rawRedisConfig     `yaml:"redis"`
	Paths          RuntimePathsConfig `yaml:"paths"`
	LogDir         string             `yaml:"log_dir"`
	AllowedOrigins []string           `yaml:"allowed_origins"`
	AI             rawAIConfig        `yaml:"ai"`
	Catalog        rawCatalogConfig   `yaml:"catalog"`
	History        rawHistoryConfig   `yaml:"history"`
	RateLimit      RateLimitConfig    `yaml:"rate_limit"`
}

type rawDatabaseConfig struct {
	Driver   string            `yaml:"driver"`
	DSN      string            `yaml:"dsn"`
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	User     string            `yaml:"user"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	Name     string            `yaml:"name"`
	DBName   string            `yaml:"db_name"`
	SSLMode  string            `yaml:"sslmode"`
	Path     string            `yaml:"path"`
	Params   map[string]string `yaml:"params"`
}

type rawRedisConfig struct {
	Enable   *bool             `yaml:"enable"`
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       *int              `yaml:"db"`
	TLS      *bool             `yaml:"tls"`
	Params   map[string]string `yaml:"params"`
}

type rawAIConfig struct {
	Providers       []AIProvider  `yaml:"providers"`
	ProviderID      string        `yaml:"provider_id"`
	Model           string        `yaml:"model"`
	Recommendations int           `yaml:"recommendations"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
}

type rawCatalogConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	APIKey          string        `yaml:"api_key"`
	MaxResults      int           `yaml:"max_results"`
	QuoteMaxResults int           `yaml:"quote_max_results"`
	Timeout         time.Duration `yaml:"timeout"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	LocalFallback   *bool         `yaml:"local_fallback"`
}

type rawHistoryConfig struct {
	RecentLimit   int  `yaml:"recent_limit"`
	RetentionDays *int `yaml:"retention_days"`
}
