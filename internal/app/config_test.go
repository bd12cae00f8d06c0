package app

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ledgerfix/internal/platform/db"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, db.DriverPostgres, cfg.Driver())
	require.Equal(t, 5, cfg.RepairMaxPasses)
	require.Equal(t, time.Second, cfg.WidenPause)
	require.Equal(t, 30*time.Minute, cfg.LockTTL)
	require.Equal(t, "0 3 * * *", cfg.CronAccountTypes)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_DSN", "file:ledger.db")
	t.Setenv("REPAIR_MAX_PASSES", "9")
	t.Setenv("WIDEN_PAUSE", "0s")
	t.Setenv("APP_ENV", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, db.DriverSQLite, cfg.Driver())
	require.Equal(t, 9, cfg.RepairMaxPasses)
	require.Zero(t, cfg.WidenPause)
	require.True(t, cfg.IsProduction())
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"DB_DRIVER":         "oracle",
		"LOG_FORMAT":        "xml",
		"REPAIR_MAX_PASSES": "0",
		"LOCK_TTL":          "0s",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestConfigRedisOptions(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("REDIS_DB", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	opts := cfg.Redis()
	require.Equal(t, "redis:6380", opts.Addr)
	require.Equal(t, "secret", opts.Password)
	require.Equal(t, 3, opts.DB)
	require.Equal(t, 3, opts.Asynq().DB)
}
