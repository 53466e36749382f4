// Package config loads the normalizer configuration from file, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/lab-report-normalizer/internal/domain"
)

const (
	// EnvPrefix is prepended to every environment override, e.g. LABNORM_SERVER_PORT.
	EnvPrefix = "LABNORM"
	// ConfigFileEnv names an explicit config file when no path is passed to Load.
	ConfigFileEnv = "LABNORM_CONFIG_FILE"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

var _ domain.ConfigManager = (*Manager)(nil)

// NewManager creates a new configuration manager that searches the standard locations
// for config.yaml.
func NewManager() (*Manager, error) {
	return NewManagerWithFile("")
}

// NewManagerWithFile creates a configuration manager reading configFile. An empty path
// falls back to the standard search locations.
func NewManagerWithFile(configFile string) (*Manager, error) {
	m := &Manager{configFile: configFile}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// Load creates a configuration manager for configFile, falling back to $LABNORM_CONFIG_FILE
// and then to the standard search locations.
func Load(configFile string) (*Manager, error) {
	if configFile == "" {
		configFile = os.Getenv(ConfigFileEnv)
	}
	return NewManagerWithFile(configFile)
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/lab-report-normalizer/")
	}

	// Set environment variable prefix and enable automatic env binding
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if m.configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.max_body_bytes", 1<<20)

	// MCP defaults
	v.SetDefault("mcp.server_name", "lab-report-normalizer")
	v.SetDefault("mcp.server_version", "1.0.0")

	v.SetDefault("catalog.path", "")

	// Scoring defaults
	policy := domain.DefaultScoringPolicy()
	v.SetDefault("scoring.parse.base", policy.Parse.Base)
	v.SetDefault("scoring.parse.name_bonus", policy.Parse.NameBonus)
	v.SetDefault("scoring.parse.min_name_length", policy.Parse.MinNameLength)
	v.SetDefault("scoring.parse.value_bonus", policy.Parse.ValueBonus)
	v.SetDefault("scoring.parse.min_plausible_value", policy.Parse.MinPlausibleValue)
	v.SetDefault("scoring.parse.max_plausible_value", policy.Parse.MaxPlausibleValue)
	v.SetDefault("scoring.parse.unit_bonus", policy.Parse.UnitBonus)
	v.SetDefault("scoring.parse.status_bonus", policy.Parse.StatusBonus)
	v.SetDefault("scoring.parse.floor", policy.Parse.Floor)
	v.SetDefault("scoring.parse.ceiling", policy.Parse.Ceiling)

	v.SetDefault("scoring.resolution.exact_confidence", policy.Resolution.ExactConfidence)
	v.SetDefault("scoring.resolution.alias_confidence", policy.Resolution.AliasConfidence)
	v.SetDefault("scoring.resolution.fuzzy_threshold", policy.Resolution.FuzzyThreshold)
	v.SetDefault("scoring.resolution.fuzzy_high_band", policy.Resolution.FuzzyHighBand)
	v.SetDefault("scoring.resolution.fuzzy_high_confidence", policy.Resolution.FuzzyHighConfidence)
	v.SetDefault("scoring.resolution.fuzzy_low_confidence", policy.Resolution.FuzzyLowConfidence)

	v.SetDefault("scoring.status.centered_confidence", policy.Status.CenteredConfidence)
	v.SetDefault("scoring.status.boundary_fraction", policy.Status.BoundaryFraction)
	v.SetDefault("scoring.status.boundary_min_confidence", policy.Status.BoundaryMinConfidence)
	v.SetDefault("scoring.status.boundary_max_confidence", policy.Status.BoundaryMaxConfidence)
	v.SetDefault("scoring.status.clear_fraction", policy.Status.ClearFraction)
	v.SetDefault("scoring.status.weak_min_confidence", policy.Status.WeakMinConfidence)
	v.SetDefault("scoring.status.clear_min_confidence", policy.Status.ClearMinConfidence)
	v.SetDefault("scoring.status.clear_max_confidence", policy.Status.ClearMaxConfidence)
	v.SetDefault("scoring.status.saturation_fraction", policy.Status.SaturationFraction)
	v.SetDefault("scoring.status.degenerate_normal_confidence", policy.Status.DegenerateNormalConfidence)
	v.SetDefault("scoring.status.degenerate_abnormal_confidence", policy.Status.DegenerateAbnormalConfidence)

	// Parser defaults
	parser := domain.DefaultParserConfig()
	v.SetDefault("parser.skip_keywords", parser.SkipKeywords)
	v.SetDefault("parser.max_line_length", parser.MaxLineLength)
	v.SetDefault("parser.max_digit_ratio", parser.MaxDigitRatio)

	// Extraction defaults
	v.SetDefault("extraction.timeout", "30s")
	v.SetDefault("extraction.breaker_max_requests", 3)
	v.SetDefault("extraction.breaker_interval", "60s")
	v.SetDefault("extraction.breaker_timeout", "30s")
	v.SetDefault("extraction.breaker_failure_threshold", 5)

	// Batch defaults
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.max_reports", 50)

	// History defaults
	v.SetDefault("history.driver", "sqlite")
	v.SetDefault("history.sqlite_path", "data/history.db")
	v.SetDefault("history.postgres_dsn", "")
	v.SetDefault("history.migrate", true)

	// Cache defaults
	v.SetDefault("cache.resolver_entries", 4096)
	v.SetDefault("cache.result_entries", 1024)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "1h")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetScoringPolicy returns the configured scoring policy
func (m *Manager) GetScoringPolicy() domain.ScoringPolicy {
	return m.config.Scoring
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config
	var errs []error

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port: %d", config.Server.Port))
	}
	if config.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("invalid rate limit: %v", config.Server.RateLimit))
	}

	if err := config.Scoring.Validate(); err != nil {
		errs = append(errs, err)
	}

	if config.Parser.MaxLineLength <= 0 {
		errs = append(errs, fmt.Errorf("parser max line length must be positive: %d", config.Parser.MaxLineLength))
	}
	if config.Parser.MaxDigitRatio <= 0 || config.Parser.MaxDigitRatio > 1 {
		errs = append(errs, fmt.Errorf("parser max digit ratio must be within (0,1]: %v", config.Parser.MaxDigitRatio))
	}

	if config.Batch.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("batch concurrency must be positive: %d", config.Batch.Concurrency))
	}

	switch config.History.Driver {
	case "", "none":
	case "sqlite":
		if config.History.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("history sqlite path is required"))
		}
	case "postgres":
		if config.History.PostgresDSN == "" {
			errs = append(errs, fmt.Errorf("history postgres DSN is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid history driver: %s", config.History.Driver))
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level: %s", config.Logging.Level))
	}
	if f := strings.ToLower(config.Logging.Format); f != "json" && f != "text" {
		errs = append(errs, fmt.Errorf("invalid log format: %s", config.Logging.Format))
	}

	return errors.Join(errs...)
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
