package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 20, cfg.HistoryDefaultLimit)
	assert.Equal(t, 100, cfg.HistoryMaxLimit)
	assert.False(t, cfg.SavingsOnlyDeposits)
	assert.Empty(t, cfg.DemoUsers)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "POSTGRES")
	t.Setenv("DEPOSIT_SAVINGS_ONLY", "true")
	t.Setenv("IDEMPOTENCY_TTL", "1h")
	t.Setenv("DEMO_USERS", "alice@example.com:pw1, bob@example.com:pw2")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.True(t, cfg.SavingsOnlyDeposits)
	assert.Equal(t, time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, map[string]string{
		"alice@example.com": "pw1",
		"bob@example.com":   "pw2",
	}, cfg.DemoUsers)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summit.env")
	require.NoError(t, os.WriteFile(path, []byte("HISTORY_DEFAULT_LIMIT=5\nHISTORY_MAX_LIMIT=50\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.HistoryDefaultLimit)
	assert.Equal(t, 50, cfg.HistoryMaxLimit)
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown driver", "DB_DRIVER", "mysql"},
		{"malformed users", "DEMO_USERS", "alice"},
		{"max below default", "HISTORY_MAX_LIMIT", "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
