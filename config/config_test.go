package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "clover-api", cfg.AppName)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, time.Second, cfg.CommunityNameDebounce)
	assert.Equal(t, "redis", cfg.SessionStore)
	assert.False(t, cfg.HivemindGDriveEnabled)
	assert.Equal(t, "https://cdn.discordapp.com/", cfg.DiscordCDN)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SESSION_STORE=memory\nCOMMUNITY_NAME_DEBOUNCE=250ms\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("SESSION_STORE")
		os.Unsetenv("COMMUNITY_NAME_DEBOUNCE")
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.SessionStore)
	assert.Equal(t, 250*time.Millisecond, cfg.CommunityNameDebounce)
}

func TestValidate(t *testing.T) {
	base := Config{
		BackendBaseURL:        "http://backend",
		SessionStore:          "memory",
		CommunityNameDebounce: time.Second,
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.SessionStore = "disk"
	assert.Error(t, bad.Validate())

	bad = base
	bad.AuthEnabled = true
	assert.Error(t, bad.Validate())

	bad = base
	bad.BackendBaseURL = ""
	assert.Error(t, bad.Validate())
}
