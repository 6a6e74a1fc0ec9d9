package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetenv clears a variable for the test while keeping t.Setenv's restore.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("API_KEY", "test-key")
	unsetenv(t, "PORT")
	unsetenv(t, "MEMORY_STORE")
	unsetenv(t, "LOG_LEVEL")
	unsetenv(t, "DB_NAME")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "soullink", cfg.DBName)
	assert.False(t, cfg.MemoryStore)
	assert.Equal(t, ConfigPathSpeciesData, cfg.SpeciesDataPath)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	unsetenv(t, "API_KEY")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("API_KEY", "test-key")
	t.Setenv("PORT", "not-a-port")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MemoryStore(t *testing.T) {
	t.Setenv("API_KEY", "test-key")
	t.Setenv("MEMORY_STORE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MemoryStore)
}

func TestGetDBConnString(t *testing.T) {
	cfg := &Config{
		DBUser:     "u",
		DBPassword: "p",
		DBHost:     "db",
		DBPort:     "5433",
		DBName:     "soullink",
	}
	assert.Equal(t, "postgres://u:p@db:5433/soullink?sslmode=disable", cfg.GetDBConnString())
}

func TestWarnings(t *testing.T) {
	cfg := &Config{
		DBUser:     "postgres",
		DBPassword: "postgres",
		APIKey:     "short",
	}
	warnings := cfg.Warnings()
	assert.Len(t, warnings, 3)

	cfg = &Config{
		MemoryStore: true,
		APIKey:      "0123456789abcdef0123456789abcdef",
	}
	assert.Empty(t, cfg.Warnings())
}
