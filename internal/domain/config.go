package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	MCP         MCPConfig        `mapstructure:"mcp"`
	Catalog     CatalogConfig    `mapstructure:"catalog"`
	Scoring     ScoringPolicy    `mapstructure:"scoring"`
	Parser      ParserConfig     `mapstructure:"parser"`
	Extraction  ExtractionConfig `mapstructure:"extraction"`
	Batch       BatchConfig      `mapstructure:"batch"`
	History     HistoryConfig    `mapstructure:"history"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Logging     LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"` // requests per second, 0 disables
	RateBurst      int           `mapstructure:"rate_burst"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
}

// CatalogConfig points at the reference catalog; an empty path selects the embedded catalog.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// ParserConfig tunes which lines the parser refuses to read as tests.
type ParserConfig struct {
	SkipKeywords  []string `mapstructure:"skip_keywords"`
	MaxLineLength int      `mapstructure:"max_line_length"`
	MaxDigitRatio float64  `mapstructure:"max_digit_ratio"`
}

// ExtractionConfig bounds calls into the external text extractor.
type ExtractionConfig struct {
	Timeout                 time.Duration `mapstructure:"timeout"`
	BreakerMaxRequests      uint32        `mapstructure:"breaker_max_requests"`
	BreakerInterval         time.Duration `mapstructure:"breaker_interval"`
	BreakerTimeout          time.Duration `mapstructure:"breaker_timeout"`
	BreakerFailureThreshold uint32        `mapstructure:"breaker_failure_threshold"`
}

// BatchConfig bounds batch processing.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	MaxReports  int `mapstructure:"max_reports"`
}

// HistoryConfig selects where finished runs are recorded.
type HistoryConfig struct {
	Driver      string `mapstructure:"driver"` // "sqlite", "postgres", "none"
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	Migrate     bool   `mapstructure:"migrate"`
}

// CacheConfig represents result and resolution cache configuration
type CacheConfig struct {
	ResolverEntries int           `mapstructure:"resolver_entries"`
	ResultEntries   int           `mapstructure:"result_entries"`
	RedisURL        string        `mapstructure:"redis_url"`
	TTL             time.Duration `mapstructure:"ttl"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultSkipKeywords are header and metadata words that mark a line as non-test content.
var DefaultSkipKeywords = []string{
	"patient", "name", "age", "sex", "gender", "dob", "date", "phone", "mobile", "email",
	"address", "invoice", "bill", "registration", "regno", "page", "printed", "collected",
	"reported", "registered", "specimen", "sample", "visit", "doctor", "dr", "ref", "referred",
	"pin", "zip", "id", "uhid",
}

// DefaultParserConfig returns the stock parser settings.
func DefaultParserConfig() ParserConfig {
	keywords := make([]string, len(DefaultSkipKeywords))
	copy(keywords, DefaultSkipKeywords)
	return ParserConfig{
		SkipKeywords:  keywords,
		MaxLineLength: 200,
		MaxDigitRatio: 0.6,
	}
}
