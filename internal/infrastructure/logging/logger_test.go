package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  charmlog.Level
	}{
		{"debug", charmlog.DebugLevel},
		{"info", charmlog.InfoLevel},
		{"warn", charmlog.WarnLevel},
		{"error", charmlog.ErrorLevel},
		{"", charmlog.InfoLevel},
		{"verbose", charmlog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.level))
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("writes JSON records to the configured output", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&Config{Level: "debug", JSON: true, Output: &buf})

		logger.Debug("raw response", "kind", "product")

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "raw response", record["msg"])
		assert.Equal(t, "product", record["kind"])
	})

	t.Run("filters records below the level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&Config{Level: "warn", Output: &buf})

		logger.Info("hidden")
		logger.Warn("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("With carries fields to every record", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&Config{Level: "info", Output: &buf}).With("component", "gemini")

		logger.Info("request sent")

		assert.True(t, strings.Contains(buf.String(), "component=gemini"), buf.String())
	})
}

func TestFromContext(t *testing.T) {
	t.Run("returns logger from context when present", func(t *testing.T) {
		expected := NewForTests()
		ctx := ContextWithLogger(context.Background(), expected)

		assert.Equal(t, expected, FromContext(ctx))
	})

	t.Run("returns default logger when context has none", func(t *testing.T) {
		assert.Equal(t, Default(), FromContext(context.Background()))
	})
}

func TestSetDefault(t *testing.T) {
	previous := Default()
	t.Cleanup(func() { SetDefault(previous) })

	replacement := NewForTests()
	SetDefault(replacement)
	assert.Equal(t, replacement, Default())

	SetDefault(nil)
	assert.Equal(t, replacement, Default(), "nil must not clear the default")
}
