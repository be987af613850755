package config

import "time"

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 2333
	defaultEnv        = "development"

	defaultDBDriver   = "postgres"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 5432
	defaultMySQLPort  = 3306
	defaultDBUser     = "postgres"
	defaultDBPassword = "postgres"
	defaultDBName     = "shelfscout"
	defaultDBSSLMode  = "disable"
	defaultSQLitePath = "shelfscout.db"

	defaultRedisHost = "localhost"
	defaultRedisPort = 6379
	defaultRedisDB   = 0

	defaultAIProviderID      = "gemini"
	defaultAIProviderType    = "openai-compatible"
	defaultAIEndpoint        = "https://generativelanguage.googleapis.com/v1beta/openai"
	defaultAIModel           = "gemini-2.0-flash"
	defaultRecommendations   = 5
	defaultMaxOutputTokens   = 1200
	defaultAITimeout         = 20 * time.Second
	defaultCatalogEndpoint   = "https://www.googleapis.com/books/v1/volumes"
	defaultCatalogMaxResults = 10
	defaultQuoteMaxResults   = 5
	defaultCatalogTimeout    = 10 * time.Second
	defaultCatalogCacheTTL   = 30 * time.Minute

	defaultHistoryRecentLimit   = 10
	defaultHistoryRetentionDays = 90

	defaultRateLimitRPS   = 5
	defaultRateLimitBurst = 10
)
