package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `{
		"portal_url": "https://portal.example.sg/tenders",
		"feed_url": "https://feed.example.sg/rss",
		"database_url": "postgres://localhost/tenders",
		"headless": true,
		"max_attempts": 5,
		"port": 9090
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example.sg/tenders", cfg.PortalURL)
	assert.Equal(t, "https://feed.example.sg/rss", cfg.FeedURL)
	assert.Equal(t, "postgres://localhost/tenders", cfg.DatabaseURL)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 9090, cfg.Port)
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeConfigFile(t, "{not json")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestFromEnv_FillsOnlyUnsetFields(t *testing.T) {
	t.Setenv("TENDER_PORTAL_URL", "https://env.example.sg/tenders")
	t.Setenv("TENDER_MAX_ATTEMPTS", "7")
	t.Setenv("PORT", "3000")

	cfg := &Config{MaxAttempts: 2}
	cfg.FromEnv()

	assert.Equal(t, "https://env.example.sg/tenders", cfg.PortalURL)
	assert.Equal(t, 2, cfg.MaxAttempts) // file value wins over the environment
	assert.Equal(t, 3000, cfg.Port)
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, DefaultSnapshotPath, cfg.SnapshotPath)
	assert.Equal(t, DefaultMaxAttempts, cfg.MaxAttempts)
	assert.Equal(t, DefaultAttemptTimeoutMS, cfg.AttemptTimeoutMS)
	assert.Equal(t, DefaultRateLimitPermits, cfg.RateLimitPermits)
	assert.Equal(t, DefaultRateLimitWindowS, cfg.RateLimitWindowS)
	assert.Equal(t, DefaultPort, cfg.Port)

	// Defaults never clobber explicit values.
	cfg = &Config{Port: 9090, MaxAttempts: 1}
	cfg.ApplyDefaults()
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 1, cfg.MaxAttempts)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	assert.NoError(t, cfg.Validate())

	assert.Error(t, (&Config{MaxAttempts: -1}).Validate())
	assert.Error(t, (&Config{AttemptTimeoutMS: -5}).Validate())
	assert.Error(t, (&Config{RateLimitPermits: -1}).Validate())
	assert.Error(t, (&Config{Port: 70000}).Validate())
}

func TestLoadAgencyTables(t *testing.T) {
	agencies, landmarks, err := LoadAgencyTables()
	require.NoError(t, err)

	assert.Equal(t, "MOE", agencies["ministry of education"])
	assert.Equal(t, "LTA", agencies["land transport authority"])
	assert.Equal(t, "Central", landmarks["marina bay"])
	assert.Equal(t, "East", landmarks["changi"])

	// Keys are lowercased for direct lookup against cleaned input.
	for key := range agencies {
		assert.Equal(t, strings.ToLower(key), key)
	}
}

func TestLoadProfileTable(t *testing.T) {
	profiles, err := LoadProfileTable()
	require.NoError(t, err)
	require.Contains(t, profiles, "security")
	require.Contains(t, profiles, "event-support")

	security := profiles["security"]
	assert.InDelta(t, 240000, security.EstimatedValue, 1e-9)
	assert.Equal(t, 12, security.RequiredHeadcount)
	assert.Greater(t, security.ChargeRate, security.PayRate)

	// Every embedded profile keeps a positive margin.
	for category, p := range profiles {
		assert.Greater(t, p.ChargeRate, p.PayRate, category)
		assert.Greater(t, p.EstimatedValue, 0.0, category)
	}
}
