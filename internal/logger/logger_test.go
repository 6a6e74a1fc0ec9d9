package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext_AnnotatesRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	ctx := WithRequestID(context.Background(), "req-123")
	FromContext(ctx).Info("encounter accepted", "route_id", 101)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-123", entry[AttrKeyRequestID])
	assert.Equal(t, "encounter accepted", entry["msg"])
	assert.Equal(t, float64(101), entry["route_id"])
}

func TestFromContext_NoRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	FromContext(context.Background()).Info("startup")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	_, set := entry[AttrKeyRequestID]
	assert.False(t, set)
}

func TestRequestIDFromContext(t *testing.T) {
	id, ok := RequestIDFromContext(context.Background())
	assert.False(t, ok)
	assert.Empty(t, id)

	ctx := WithRequestID(context.Background(), "req-456")
	id, ok = RequestIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-456", id)
}

func TestGenerateRequestID_Unique(t *testing.T) {
	a := GenerateRequestID()
	b := GenerateRequestID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestConfigLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Config{Level: LogLevelDebug}.LogLevel())
	assert.Equal(t, slog.LevelWarn, Config{Level: LogLevelWarning}.LogLevel())
	assert.Equal(t, slog.LevelError, Config{Level: LogLevelError}.LogLevel())
	assert.Equal(t, slog.LevelInfo, Config{Level: "unknown"}.LogLevel())
}

func TestConfigDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultServiceName, cfg.ServiceName)
	assert.NotEmpty(t, cfg.Level)
	assert.NotEmpty(t, cfg.Format)
	assert.False(t, cfg.IsJSON())
}

func TestProductionConfig(t *testing.T) {
	cfg := ProductionConfig()
	assert.True(t, cfg.IsJSON())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
	assert.Equal(t, EnvironmentProduction, cfg.Environment)
	assert.False(t, cfg.AddSource)

	attrs := cfg.BaseAttributes()
	require.Len(t, attrs, 3)
	assert.Equal(t, AttrKeyService, attrs[0].Key)
}

func TestDevelopmentConfig(t *testing.T) {
	cfg := DevelopmentConfig()
	assert.False(t, cfg.IsJSON())
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
	assert.True(t, cfg.AddSource)
}
