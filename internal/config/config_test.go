package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/zimbra-connector/internal/config"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, time.Minute, c.GetTokenSafetyMargin())
	require.Equal(t, 30*24*time.Hour, c.GetTwoFactorWindow())
	require.Empty(t, c.GetAllowedOrigins())
}

func TestNewFileFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connector.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9090\"\nredis_addr: localhost:6379\nallowed_origins: https://a.example, https://b.example\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, "localhost:6379", c.GetRedisAddr())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("https://b.example"))

	t.Run("environment wins over the file", func(t *testing.T) {
		t.Setenv("PORT", "7070")
		require.Equal(t, ":7070", c.GetPort())
	})
}

func TestNewMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := config.New()
	require.Error(t, err)
}
