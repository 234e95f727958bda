package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alexbotov/gametester/pkg/gametester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, gametester.ModeSandbox, cfg.Client.Mode)
	assert.Equal(t, gametester.EncodingJSON, cfg.Client.Encoding)
	assert.Equal(t, 30*time.Second, cfg.Client.Timeout)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Empty(t, cfg.Database.DSN, "memory store by default")
	assert.Equal(t, 720*time.Hour, cfg.Auth.TokenExpiry)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("GAMETESTER_MODE", "Production")
	t.Setenv("GAMETESTER_DEVELOPER_TOKEN", "dev123")
	t.Setenv("GAMETESTER_ENCODING", "form")
	t.Setenv("GAMETESTER_TIMEOUT", "5s")
	t.Setenv("GAMETESTER_SEED", "true")
	t.Setenv("GAMETESTER_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, gametester.ModeProduction, cfg.Client.Mode)
	assert.Equal(t, "dev123", cfg.Client.DeveloperToken)
	assert.Equal(t, gametester.EncodingForm, cfg.Client.Encoding)
	assert.Equal(t, 5*time.Second, cfg.Client.Timeout)
	assert.True(t, cfg.Server.Seed)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidMode(t *testing.T) {
	t.Setenv("GAMETESTER_MODE", "staging")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoad_DotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("GAMETESTER_PLAYER_PIN=4321\nGAMETESTER_ADDR=:9999\n"), 0o600))
	t.Setenv("GAMETESTER_ADDR", ":7777")
	// registers cleanup for the value godotenv sets
	t.Setenv("GAMETESTER_PLAYER_PIN", "")
	os.Unsetenv("GAMETESTER_PLAYER_PIN")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "4321", cfg.Client.PlayerPin)
	assert.Equal(t, ":7777", cfg.Server.Addr, "environment wins over dotenv")
}

func TestClientConfig_Session(t *testing.T) {
	c := &ClientConfig{Mode: gametester.ModeTest, DeveloperToken: "dev123", PlayerPin: "4321", PlayerToken: "tok"}

	session := c.Session()
	assert.True(t, session.Initialized())
	assert.Equal(t, gametester.ModeTest, session.Mode())
	assert.Equal(t, gametester.PlayerAuthenticationToken, session.PlayerAuthenticationMode())

	c.PlayerToken = ""
	assert.Equal(t, gametester.PlayerAuthenticationPin, c.Session().PlayerAuthenticationMode())

	c.PlayerPin = ""
	assert.False(t, c.Session().PlayerAuthenticated())
}

func TestClientConfig_SDK(t *testing.T) {
	c := &ClientConfig{Mode: gametester.ModeTest, Encoding: gametester.EncodingForm, BaseURL: "http://localhost:1234/dev-api/v1"}

	sdk := c.SDK()
	assert.Equal(t, gametester.EncodingForm, sdk.Encoding)
	assert.Equal(t, "http://localhost:1234/dev-api/v1", sdk.BaseURLs[gametester.ModeTest])
	assert.NotContains(t, sdk.BaseURLs, gametester.ModeSandbox)

	c.BaseURL = ""
	assert.Nil(t, c.SDK().BaseURLs)
}
