package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lab-report-normalizer/internal/domain"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(domain.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("lines", 3).Info("Pipeline run completed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Pipeline run completed", entry["msg"])
	assert.Equal(t, float64(3), entry["lines"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(domain.LoggingConfig{Level: "warn", Format: "text"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewDefaults(t *testing.T) {
	logger, err := New(domain.LoggingConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestNewRejectsBadSettings(t *testing.T) {
	_, err := New(domain.LoggingConfig{Level: "loud"}, nil)
	assert.Error(t, err)

	_, err = New(domain.LoggingConfig{Format: "xml"}, nil)
	assert.Error(t, err)
}
