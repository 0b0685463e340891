package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", "JSON")

	log.Info("report resolved", "report_id", 9)

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "report resolved", m["msg"])
	assert.EqualValues(t, 9, m["report_id"])
}

func TestNew_PrettyFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", "pretty")

	log.Debug("entity soft-deleted", slog.Group("entity", "table", "articles", "id", 42), "error", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "entity soft-deleted")
	assert.Contains(t, out, "entity.table")
	assert.Contains(t, out, "=articles")
	assert.Contains(t, out, "=boom")
}

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run("level_"+tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.level))

			var buf bytes.Buffer
			log := New(&buf, tt.level, "json")
			log.Log(t.Context(), tt.want-1, "suppressed")
			assert.Zero(t, buf.Len())
			log.Log(t.Context(), tt.want, "shown")
			assert.NotZero(t, buf.Len())
		})
	}
}

func TestPrettyHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, nil)).With("request_id", "abc").WithGroup("report")

	log.Info("filed", "id", 3)

	out := buf.String()
	assert.Contains(t, out, "request_id")
	assert.Contains(t, out, "report.id")
}

func TestPrettyHandler_DefaultsToInfoLevel(t *testing.T) {
	for name, opts := range map[string]*slog.HandlerOptions{
		"nil options":  nil,
		"no level set": {AddSource: false},
	} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := NewPrettyHandler(&buf, opts)

			assert.False(t, handler.Enabled(t.Context(), slog.LevelDebug))
			assert.True(t, handler.Enabled(t.Context(), slog.LevelInfo))

			slog.New(handler).Debug("hidden")
			assert.Zero(t, buf.Len())
		})
	}
}
