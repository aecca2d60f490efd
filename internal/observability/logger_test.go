package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"INFO", zerolog.InfoLevel},
		{"unknown", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestDefaultLoggingConfig(t *testing.T) {
	cfg := DefaultLoggingConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.False(t, cfg.AddSource)
}

func TestNewLogger_Levels(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	logger := NewLogger(LoggingConfig{Level: "warn", Format: "json", Output: "stdout"})
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}

func TestWithCaseContext(t *testing.T) {
	buf := &bytes.Buffer{}
	base := zerolog.New(buf)

	logger := WithCaseContext(base, "jane-doe-1756380000", "O-1A")
	logger.Info().Msg("case started")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "jane-doe-1756380000", entry["case_id"])
	assert.Equal(t, "O-1A", entry["visa_category"])
	assert.Equal(t, "case started", entry["message"])
}

func TestWithDocumentContext(t *testing.T) {
	buf := &bytes.Buffer{}
	base := zerolog.New(buf)

	logger := WithDocumentContext(base, "case-1", 4, "Legal Brief")
	logger.Info().Msg("generating")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "case-1", entry["case_id"])
	assert.Equal(t, float64(4), entry["document_number"])
	assert.Equal(t, "Legal Brief", entry["document_name"])
}

func TestWithProviderContext(t *testing.T) {
	buf := &bytes.Buffer{}
	base := zerolog.New(buf)

	logger := WithProviderContext(base, "anthropic", "claude-sonnet-4-20250514")
	logger.Info().Msg("calling provider")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "anthropic", entry["provider"])
	assert.Equal(t, "claude-sonnet-4-20250514", entry["model"])
}

func TestWithWorkflowContext(t *testing.T) {
	buf := &bytes.Buffer{}
	base := zerolog.New(buf)

	logger := WithWorkflowContext(base, "petition-case-1", "run-abc")
	logger.Info().Msg("workflow started")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "petition-case-1", entry["workflow_id"])
	assert.Equal(t, "run-abc", entry["workflow_run_id"])
}

func TestTemporalLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	base := zerolog.New(buf)

	tl := NewTemporalLogger(base)
	tl.Info("workflow task", "workflow_id", "petition-case-1", "attempt", 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "temporal-sdk", entry["component"])
	assert.Equal(t, "petition-case-1", entry["workflow_id"])
	assert.Equal(t, float64(2), entry["attempt"])
	assert.Equal(t, "workflow task", entry["message"])
}
