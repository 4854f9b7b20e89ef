package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "data/hbk", cfg.Data.HBKDirectory)
	assert.Equal(t, 50, cfg.Search.MaxResults)
	assert.Equal(t, 30*time.Second, cfg.Session.HeartbeatInterval)
	assert.Equal(t, 5*time.Minute, cfg.Session.IdleTimeout)
	assert.Empty(t, cfg.NATS.URL)
	assert.Equal(t, "mcp", cfg.NATS.SubjectPrefix)
}

func TestAddr(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", Port: 9000}
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SYNTAXHELPER_SERVER_PORT", "9999")
	t.Setenv("SYNTAXHELPER_DATA_HBK_DIRECTORY", "/srv/hbk")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "/srv/hbk", cfg.Data.HBKDirectory)
}
