package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lab-report-normalizer/internal/domain"
)

func TestNewManager_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	m, err := NewManager()
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	cfg := m.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, domain.DefaultScoringPolicy(), m.GetScoringPolicy())
	assert.Equal(t, domain.DefaultParserConfig(), cfg.Parser)
	assert.Equal(t, "sqlite", cfg.History.Driver)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.True(t, m.IsDevelopment())
	assert.False(t, m.IsProduction())
}

func TestNewManager_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LABNORM_SERVER_PORT", "9191")
	t.Setenv("LABNORM_SCORING_RESOLUTION_FUZZY_THRESHOLD", "85")
	t.Setenv("LABNORM_ENVIRONMENT", "production")
	t.Setenv("LABNORM_LOGGING_LEVEL", "debug")

	m, err := NewManager()
	require.NoError(t, err)

	assert.Equal(t, 9191, m.GetServerConfig().Port)
	assert.Equal(t, 85, m.GetScoringPolicy().Resolution.FuzzyThreshold)
	assert.Equal(t, "debug", m.GetConfig().Logging.Level)
	assert.True(t, m.IsProduction())
}

func TestNewManagerWithFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labnorm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7070
scoring:
  resolution:
    fuzzy_threshold: 75
    fuzzy_high_band: 88
parser:
  skip_keywords: [patient, doctor]
history:
  driver: none
`), 0o644))

	m, err := NewManagerWithFile(path)
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	cfg := m.GetConfig()
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 75, cfg.Scoring.Resolution.FuzzyThreshold)
	assert.Equal(t, 88, cfg.Scoring.Resolution.FuzzyHighBand)
	assert.Equal(t, 0.95, cfg.Scoring.Resolution.AliasConfidence)
	assert.Equal(t, []string{"patient", "doctor"}, cfg.Parser.SkipKeywords)
	assert.Equal(t, "none", cfg.History.Driver)
}

func TestNewManagerWithFile_Missing(t *testing.T) {
	_, err := NewManagerWithFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_ConfigFileEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 6060\n"), 0o644))
	t.Setenv(ConfigFileEnv, path)

	m, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 6060, m.GetConfig().Server.Port)

	t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "absent.yaml"))
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name    string
		mutate  func(*domain.Config)
		wantErr string
	}{
		{"Bad port", func(c *domain.Config) { c.Server.Port = 0 }, "invalid server port"},
		{"Bad log level", func(c *domain.Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"Bad log format", func(c *domain.Config) { c.Logging.Format = "xml" }, "invalid log format"},
		{"Bad history driver", func(c *domain.Config) { c.History.Driver = "mongodb" }, "invalid history driver"},
		{"Postgres without DSN", func(c *domain.Config) { c.History.Driver = "postgres" }, "postgres DSN is required"},
		{"Bad concurrency", func(c *domain.Config) { c.Batch.Concurrency = 0 }, "batch concurrency"},
		{"Inconsistent policy", func(c *domain.Config) { c.Scoring.Resolution.FuzzyHighBand = 10 }, "fuzzy_high_band"},
		{"Bad digit ratio", func(c *domain.Config) { c.Parser.MaxDigitRatio = 2 }, "digit ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager()
			require.NoError(t, err)
			tt.mutate(m.GetConfig())

			err = m.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReload(t *testing.T) {
	t.Chdir(t.TempDir())

	m, err := NewManager()
	require.NoError(t, err)
	assert.Equal(t, 8080, m.GetServerConfig().Port)

	t.Setenv("LABNORM_SERVER_PORT", "8181")
	require.NoError(t, m.Reload())
	assert.Equal(t, 8181, m.GetServerConfig().Port)
}
