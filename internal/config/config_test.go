package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, "7850", cfg.Server.Port)
	require.Equal(t, "https://companion-rust.facepunch.com/login", cfg.Capture.LoginURL)
	require.Equal(t, 300*time.Second, cfg.Capture.Timeout)
	require.Equal(t, 1500*time.Millisecond, cfg.Capture.Grace)
	require.Equal(t, "https://www.rustinsight.net", cfg.Cloud.WebAppURL)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("CLOUD_WEB_APP_URL", "https://cloud.example.com/")
	t.Setenv("CLOUD_AUTH_URL", "https://auth.example.com")
	t.Setenv("ENGINE_COMMAND", "/usr/local/bin/pairing-engine")
	t.Setenv("ENGINE_ARGS", "--fcm --verbose")
	t.Setenv("CAPTURE_TIMEOUT_SECONDS", "60")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	// trailing slash is normalized away
	require.Equal(t, "https://cloud.example.com", cfg.Cloud.WebAppURL)
	require.Equal(t, "https://auth.example.com", cfg.Cloud.AuthURL)
	require.Equal(t, "/usr/local/bin/pairing-engine", cfg.Engine.Command)
	require.Equal(t, []string{"--fcm", "--verbose"}, cfg.Engine.Args)
	require.Equal(t, 60*time.Second, cfg.Capture.Timeout)
}
