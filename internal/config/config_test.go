package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "data/sla.db", cfg.DBPath)
	assert.Equal(t, 24*time.Hour, cfg.ReportCacheTTL)
	assert.Equal(t, "America/Los_Angeles", cfg.Location.String())
	assert.False(t, cfg.UsePostgres())
	assert.Equal(t, int64(64<<20), cfg.MaxUploadBytes())
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SLA_PORT", "9090")
	t.Setenv("SLA_DATABASE_URL", "postgres://sla@localhost/sla")
	t.Setenv("SLA_REDIS_ADDR", "localhost:6379")
	t.Setenv("SLA_REPORT_CACHE_TTL", "90m")
	t.Setenv("SLA_TIMEZONE", "UTC")
	t.Setenv("SLA_WORKERS", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.UsePostgres())
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 90*time.Minute, cfg.ReportCacheTTL)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	chdir(t, t.TempDir())

	tests := map[string][2]string{
		"non-numeric port": {"SLA_PORT", "http"},
		"negative workers": {"SLA_WORKERS", "-1"},
		"unknown timezone": {"SLA_TIMEZONE", "Mars/Olympus"},
		"bad duration":     {"SLA_REPORT_CACHE_TTL", "soon"},
		"bad redis addr":   {"SLA_REDIS_ADDR", "localhost"},
	}

	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestGet(t *testing.T) {
	t.Setenv("SLA_TEST_KEY", "value")
	assert.Equal(t, "value", Get("SLA_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", Get("SLA_TEST_MISSING", "fallback"))
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent to testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(prev)) })
}
