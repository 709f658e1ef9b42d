package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig
	Redis      RedisConfig
	Server     ServerConfig
	OpenAI     OpenAIConfig
	Search     SearchConfig
	Pipeline   PipelineConfig
	Logging    LoggingConfig
	Metrics    MetricsConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, preferred when set
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// RedisConfig holds Redis configuration. An empty Addr and URL disables Redis.
type RedisConfig struct {
	URL      string
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis endpoint is configured
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Addr != ""
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// OpenAIConfig holds OpenAI-compatible API configuration
type OpenAIConfig struct {
	APIKey              string
	APIBase             string
	ChatModel           string // model for streamed replies
	ExtractionModel     string // model for tool-call extraction
	EmbeddingModel      string
	EmbeddingDimensions int
	Timeout             int
	Enabled             bool
}

// SearchConfig holds property search configuration
type SearchConfig struct {
	Backend         string // "listings" or "rentcast"
	RentCastAPIKey  string
	RentCastBaseURL string
	RentCastRPS     float64
	CandidateLimit  int
	CacheTTL        time.Duration
}

// PipelineConfig bounds each external call made during a turn
type PipelineConfig struct {
	ExtractTimeout     time.Duration
	ContextTimeout     time.Duration
	SearchTimeout      time.Duration
	PersistTimeout     time.Duration
	SyncTimeout        time.Duration
	PreferenceTTL      time.Duration
	HistoryWindow      int
	SimilarityMinScore float64
	SimilarityLimit    int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool
	Path    string
}

var defaults = map[string]interface{}{
	"PG_HOST":                 "localhost",
	"PG_PORT":                 5432,
	"PG_USER":                 "postgres",
	"PG_PASSWORD":             "",
	"PG_DATABASE":             "leadbot",
	"PG_SSLMODE":              "disable",
	"PG_MAX_CONNECTIONS":      25,
	"PG_MAX_IDLE_CONNECTIONS": 5,

	"REDIS_URL":      "",
	"REDIS_ADDR":     "",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"SERVER_PORT":          8080,
	"SERVER_HOST":          "0.0.0.0",
	"GIN_MODE":             "release",
	"CORS_ALLOWED_ORIGINS": "*",
	"CORS_ALLOWED_METHODS": "GET,POST,OPTIONS",
	"CORS_ALLOWED_HEADERS": "Content-Type,Authorization",

	"OPENAI_API_KEY":              "",
	"OPENAI_API_BASE":             "https://api.openai.com/v1",
	"OPENAI_CHAT_MODEL":           "gpt-4o-mini",
	"OPENAI_EXTRACTION_MODEL":     "gpt-4o-mini",
	"OPENAI_EMBEDDING_MODEL":      "text-embedding-ada-002",
	"OPENAI_EMBEDDING_DIMENSIONS": 1536,
	"OPENAI_TIMEOUT":              60,

	"SEARCH_BACKEND":         "listings",
	"RENTCAST_API_KEY":       "",
	"RENTCAST_BASE_URL":      "https://api.rentcast.io/v1",
	"RENTCAST_RPS":           5,
	"SEARCH_CANDIDATE_LIMIT": 50,
	"SEARCH_CACHE_TTL":       900,

	"PIPELINE_EXTRACT_TIMEOUT": 10,
	"PIPELINE_CONTEXT_TIMEOUT": 5,
	"PIPELINE_SEARCH_TIMEOUT":  15,
	"PIPELINE_PERSIST_TIMEOUT": 5,
	"PIPELINE_SYNC_TIMEOUT":    10,
	"PREFERENCE_TTL":           86400,
	"PIPELINE_HISTORY_WINDOW":  5,
	"RAG_MATCH_THRESHOLD":      0.75,
	"RAG_MATCH_COUNT":          5,

	"LOG_LEVEL":  "info",
	"LOG_FORMAT": "json",

	"METRICS_ENABLED": true,
	"METRICS_PATH":    "/metrics",
}

// Load reads configuration from the environment, after an optional .env file
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                firstNonEmpty(v.GetString("DATABASE_URL"), v.GetString("POSTGRESQL_URI"), v.GetString("PG_DSN")),
			Host:               v.GetString("PG_HOST"),
			Port:               getInt(v, "PG_PORT"),
			User:               v.GetString("PG_USER"),
			Password:           v.GetString("PG_PASSWORD"),
			Database:           v.GetString("PG_DATABASE"),
			SSLMode:            v.GetString("PG_SSLMODE"),
			MaxConnections:     getInt(v, "PG_MAX_CONNECTIONS"),
			MaxIdleConnections: getInt(v, "PG_MAX_IDLE_CONNECTIONS"),
		},
		Redis: RedisConfig{
			URL:      v.GetString("REDIS_URL"),
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       getInt(v, "REDIS_DB"),
		},
		Server: ServerConfig{
			Port:           getInt(v, "SERVER_PORT"),
			Host:           v.GetString("SERVER_HOST"),
			GinMode:        v.GetString("GIN_MODE"),
			AllowedOrigins: v.GetString("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: v.GetString("CORS_ALLOWED_METHODS"),
			AllowedHeaders: v.GetString("CORS_ALLOWED_HEADERS"),
		},
		OpenAI: OpenAIConfig{
			APIKey:              v.GetString("OPENAI_API_KEY"),
			APIBase:             v.GetString("OPENAI_API_BASE"),
			ChatModel:           v.GetString("OPENAI_CHAT_MODEL"),
			ExtractionModel:     v.GetString("OPENAI_EXTRACTION_MODEL"),
			EmbeddingModel:      v.GetString("OPENAI_EMBEDDING_MODEL"),
			EmbeddingDimensions: getInt(v, "OPENAI_EMBEDDING_DIMENSIONS"),
			Timeout:             getInt(v, "OPENAI_TIMEOUT"),
			Enabled:             v.GetString("OPENAI_API_KEY") != "",
		},
		Search: SearchConfig{
			Backend:         strings.ToLower(v.GetString("SEARCH_BACKEND")),
			RentCastAPIKey:  v.GetString("RENTCAST_API_KEY"),
			RentCastBaseURL: v.GetString("RENTCAST_BASE_URL"),
			RentCastRPS:     getFloat(v, "RENTCAST_RPS"),
			CandidateLimit:  getInt(v, "SEARCH_CANDIDATE_LIMIT"),
			CacheTTL:        getSeconds(v, "SEARCH_CACHE_TTL"),
		},
		Pipeline: PipelineConfig{
			ExtractTimeout:     getSeconds(v, "PIPELINE_EXTRACT_TIMEOUT"),
			ContextTimeout:     getSeconds(v, "PIPELINE_CONTEXT_TIMEOUT"),
			SearchTimeout:      getSeconds(v, "PIPELINE_SEARCH_TIMEOUT"),
			PersistTimeout:     getSeconds(v, "PIPELINE_PERSIST_TIMEOUT"),
			SyncTimeout:        getSeconds(v, "PIPELINE_SYNC_TIMEOUT"),
			PreferenceTTL:      getSeconds(v, "PREFERENCE_TTL"),
			HistoryWindow:      getInt(v, "PIPELINE_HISTORY_WINDOW"),
			SimilarityMinScore: getFloat(v, "RAG_MATCH_THRESHOLD"),
			SimilarityLimit:    getInt(v, "RAG_MATCH_COUNT"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
			Path:    v.GetString("METRICS_PATH"),
		},
	}

	return cfg
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// GetPostgreSQLURL returns a postgres:// URL, the form golang-migrate expects
func (c *Config) GetPostgreSQLURL() string {
	if c.PostgreSQL.DSN != "" && strings.Contains(c.PostgreSQL.DSN, "://") {
		return c.PostgreSQL.DSN
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func getInt(v *viper.Viper, key string) int {
	value, err := cast.ToIntE(v.Get(key))
	if err != nil {
		def := cast.ToInt(defaults[key])
		log.Warn().Str("key", key).Int("default", def).Msg("invalid integer value, using default")
		return def
	}
	return value
}

func getFloat(v *viper.Viper, key string) float64 {
	value, err := cast.ToFloat64E(v.Get(key))
	if err != nil {
		def := cast.ToFloat64(defaults[key])
		log.Warn().Str("key", key).Float64("default", def).Msg("invalid float value, using default")
		return def
	}
	return value
}

func getSeconds(v *viper.Viper, key string) time.Duration {
	return time.Duration(getInt(v, key)) * time.Second
}
