package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads, expands and validates the YAML config at configPath.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("config file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML content on top of the built-in defaults.
func Parse(content []byte) (*AppConfig, error) {
	content = expandEnvRefs(content)

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	raw := rawAppConfig{}
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse: %w", err)
	}

	applyRawAppConfig(cfg, raw)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file overrides a value.
func Default() *AppConfig {
	cfg := &AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseRuntimeConfig{
			Driver:   defaultDBDriver,
			Host:     defaultDBHost,
			Port:     defaultDBPort,
			User:     defaultDBUser,
			Password: defaultDBPassword,
			Name:     defaultDBName,
			SSLMode:  defaultDBSSLMode,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		AI: AIConfig{
			Providers: []AIProvider{{
				ID:           defaultAIProviderID,
				Name:         "Google Gemini",
				Type:         defaultAIProviderType,
				APIKey:       os.Getenv("GOOGLE_AI_API_KEY"),
				Endpoint:     defaultAIEndpoint,
				DefaultModel: defaultAIModel,
				Enabled:      true,
			}},
			Recommendations: defaultRecommendations,
			MaxOutputTokens: defaultMaxOutputTokens,
			Timeout:         defaultAITimeout,
		},
		Catalog: CatalogConfig{
			Endpoint:        defaultCatalogEndpoint,
			MaxResults:      defaultCatalogMaxResults,
			QuoteMaxResults: defaultQuoteMaxResults,
			Timeout:         defaultCatalogTimeout,
			CacheTTL:        defaultCatalogCacheTTL,
			LocalFallback:   true,
		},
		History: HistoryConfig{
			RecentLimit:   defaultHistoryRecentLimit,
			RetentionDays: defaultHistoryRetentionDays,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: defaultRateLimitRPS,
			Burst:             defaultRateLimitBurst,
		},
	}
	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	cfg.DSN = cfg.Database.DSNValue()
	cfg.RedisURL = cfg.Redis.URLValue()
	return cfg
}

func (c *AppConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("invalid database.driver %q, expected postgres, mysql or sqlite", c.Database.Driver)
	}
	if c.Database.Driver != DriverSQLite && (c.Database.Port < 1 || c.Database.Port > 65535) {
		return fmt.Errorf("invalid database.port %d, expected 1-65535", c.Database.Port)
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis.port %d, expected 1-65535", c.Redis.Port)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d, expected >= 0", c.Redis.DB)
	}
	if c.AI.Recommendations < 1 || c.AI.Recommendations > 20 {
		return fmt.Errorf("invalid ai.recommendations %d, expected 1-20", c.AI.Recommendations)
	}
	if c.Catalog.MaxResults < 1 || c.Catalog.MaxResults > 40 {
		return fmt.Errorf("invalid catalog.max_results %d, expected 1-40", c.Catalog.MaxResults)
	}
	if c.Catalog.QuoteMaxResults < 1 || c.Catalog.QuoteMaxResults > 5 {
		return fmt.Errorf("invalid catalog.quote_max_results %d, expected 1-5", c.Catalog.QuoteMaxResults)
	}
	if c.History.RetentionDays < 0 {
		return fmt.Errorf("invalid history.retention_days %d, expected >= 0", c.History.RetentionDays)
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("invalid rate_limit, values must be >= 0")
	}
	return nil
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	cfg.Database = applyRawDatabaseConfig(cfg.Database, raw)
	cfg.Redis = applyRawRedisConfig(cfg.Redis, raw)

	if v := strings.TrimSpace(raw.Paths.Logs); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.Paths.Logs = v
	}
	if raw.AllowedOrigins != nil {
		cfg.AllowedOrigins = normalizeOrigins(raw.AllowedOrigins)
	}

	cfg.AI = applyRawAIConfig(cfg.AI, raw.AI)
	cfg.Catalog = applyRawCatalogConfig(cfg.Catalog, raw.Catalog)

	if raw.History.RecentLimit > 0 {
		cfg.History.RecentLimit = raw.History.RecentLimit
	}
	if raw.History.RetentionDays != nil {
		cfg.History.RetentionDays = *raw.History.RetentionDays
	}
	if raw.RateLimit.RequestsPerSecond != 0 {
		cfg.RateLimit.RequestsPerSecond = raw.RateLimit.RequestsPerSecond
	}
	if raw.RateLimit.Burst != 0 {
		cfg.RateLimit.Burst = raw.RateLimit.Burst
	}

	cfg.DSN = cfg.Database.DSNValue()
	cfg.RedisURL = cfg.Redis.URLValue()
	cfg.Env = normalizeEnv(cfg.Env)
}

func applyRawDatabaseConfig(current DatabaseRuntimeConfig, raw rawAppConfig) DatabaseRuntimeConfig {
	cfg := current
	db := raw.Database

	if v := strings.TrimSpace(db.Driver); v != "" {
		cfg.Driver = v
		if normalizeDriver(v) == DriverMySQL && db.Port == 0 {
			cfg.Port = defaultMySQLPort
		}
	}
	if v := strings.TrimSpace(db.DSN); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(db.URL); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.DSN); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.DatabaseURL); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(db.Host); v != "" {
		cfg.Host = v
	}
	if db.Port != 0 {
		cfg.Port = db.Port
	}
	if v := strings.TrimSpace(db.User); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(db.Username); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(db.Password); v != "" {
		cfg.Password = v
	}
	if v := strings.TrimSpace(db.Name); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(db.DBName); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(db.SSLMode); v != "" {
		cfg.SSLMode = v
	}
	if v := strings.TrimSpace(db.Path); v != "" {
		cfg.Path = v
	}
	if db.Params != nil {
		cfg.Params = copyStringMap(db.Params)
	}

	return normalizeDatabaseConfig(cfg)
}

func applyRawRedisConfig(current RedisRuntimeConfig, raw rawAppConfig) RedisRuntimeConfig {
	cfg := current
	rd := raw.Redis

	if rd.Enable != nil {
		cfg.Enable = *rd.Enable
	}
	if v := strings.TrimSpace(rd.URL); v != "" {
		cfg.URL = v
	}
	if v := strings.TrimSpace(raw.RedisURL); v != "" {
		cfg.URL = v
		if rd.Enable == nil {
			cfg.Enable = true
		}
	}
	if v := strings.TrimSpace(rd.Host); v != "" {
		cfg.Host = v
	}
	if rd.Port != 0 {
		cfg.Port = rd.Port
	}
	if v := strings.TrimSpace(rd.Username); v != "" {
		cfg.Username = v
	}
	if v := strings.TrimSpace(rd.Password); v != "" {
		cfg.Password = v
	}
	if rd.DB != nil {
		cfg.DB = *rd.DB
	}
	if rd.TLS != nil {
		cfg.TLS = *rd.TLS
	}
	if rd.Params != nil {
		cfg.Params = copyStringMap(rd.Params)
	}

	return normalizeRedisConfig(cfg)
}

func applyRawAIConfig(current AIConfig, raw rawAIConfig) AIConfig {
	cfg := current
	if raw.Providers != nil {
		cfg.Providers = normalizeAIProviders(raw.Providers)
	}
	if v := strings.TrimSpace(raw.ProviderID); v != "" {
		cfg.ProviderID = v
	}
	if v := strings.TrimSpace(raw.Model); v != "" {
		cfg.Model = v
	}
	if raw.Recommendations != 0 {
		cfg.Recommendations = raw.Recommendations
	}
	if raw.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = raw.MaxOutputTokens
	}
	if raw.Timeout > 0 {
		cfg.Timeout = raw.Timeout
	}
	return cfg
}

func applyRawCatalogConfig(current CatalogConfig, raw rawCatalogConfig) CatalogConfig {
	cfg := current
	if v := strings.TrimRight(strings.TrimSpace(raw.Endpoint), "/"); v != "" {
		cfg.Endpoint = v
	}
	if v := strings.TrimSpace(raw.APIKey); v != "" {
		cfg.APIKey = v
	}
	if raw.MaxResults != 0 {
		cfg.MaxResults = raw.MaxResults
	}
	if raw.QuoteMaxResults != 0 {
		cfg.QuoteMaxResults = raw.QuoteMaxResults
	}
	if raw.Timeout > 0 {
		cfg.Timeout = raw.Timeout
	}
	if raw.CacheTTL > 0 {
		cfg.CacheTTL = raw.CacheTTL
	}
	if raw.LocalFallback != nil {
		cfg.LocalFallback = *raw.LocalFallback
	}
	return cfg
}

// expandEnvRefs replaces ${NAME} references with environment values.
// Bare $NAME is left alone so passwords containing '$' survive.
func expandEnvRefs(content []byte) []byte {
	return envRefPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		name := envRefPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

func (c *AppConfig) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// Addr returns the HTTP listen address.
func (c *AppConfig) Addr() string { return fmt.Sprintf(":%d", c.Port) }

// LogDir returns the absolute directory for daily log files.
func (c *AppConfig) LogDir() string {
	return resolveRuntimePath(c.Paths.Logs, "logs")
}

// SQLitePath returns the database file used by the sqlite driver.
func (c *AppConfig) SQLitePath() string {
	if c.Database.Path == ":memory:" {
		return c.Database.Path
	}
	return resolveRuntimePath(c.Database.Path, defaultSQLitePath)
}

// SelectedAIProvider returns the enabled provider named by ai.provider_id, or
// the first enabled provider. ai.model overrides the provider's default model.
func (c *AppConfig) SelectedAIProvider() *AIProvider {
	pick := func(p AIProvider) *AIProvider {
		selected := p
		if c.AI.Model != "" {
			selected.DefaultModel = c.AI.Model
		}
		return &selected
	}
	if id := strings.TrimSpace(c.AI.ProviderID); id != "" {
		for _, p := range c.AI.Providers {
			if p.Enabled && p.ID == id {
				return pick(p)
			}
		}
	}
	for _, p := range c.AI.Providers {
		if p.Enabled {
			return pick(p)
		}
	}
	return nil
}

// resolveRuntimePath resolves relative paths against the working directory,
// falling back to the executable directory when it is unavailable.
func resolveRuntimePath(raw, fallback string) string {
	target := strings.TrimSpace(raw)
	if target == "" {
		target = fallback
	}
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	base, err := os.Getwd()
	if err != nil || strings.TrimSpace(base) == "" {
		exe, exeErr := os.Executable()
		if exeErr != nil {
			return filepath.Clean(target)
		}
		base = filepath.Dir(exe)
	}
	return filepath.Clean(filepath.Join(base, target))
}
