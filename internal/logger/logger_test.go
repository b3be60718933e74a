package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestNew_JSONCarriesAttributes(t *testing.T) {
	var buf bytes.Buffer

	log := New("debug", FormatJSON, &buf).With("dealer", "abc")
	log.Error("fetch failed", Err(errors.New("boom")))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))

	assert.Equal(t, "fetch failed", entry["msg"])
	assert.Equal(t, "abc", entry["dealer"])
	assert.Equal(t, "boom", entry["err"])
}

func TestSetLevel_FiltersDebug(t *testing.T) {
	var buf bytes.Buffer

	log := New("info", FormatText, &buf)
	log.Debug("hidden")
	assert.Zero(t, buf.Len())

	log.SetLevel("debug")
	log.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestContextRoundTrip(t *testing.T) {
	log := NewLogger("info")
	ctx := WithContext(context.Background(), log)

	assert.Same(t, log, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestFromContextOr(t *testing.T) {
	fallback := Nop()
	stored := NewLogger("debug")

	assert.Same(t, fallback, FromContextOr(context.Background(), fallback))
	assert.Same(t, stored, FromContextOr(WithContext(context.Background(), stored), fallback))
	assert.NotNil(t, FromContextOr(context.Background(), nil))
}
