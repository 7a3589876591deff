package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		t.Chdir(t.TempDir())

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "settlement-ledger", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "00000000-0000-0000-0000-000000000001", cfg.App.DefaultTenantID.String())
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "ledger", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 3, cfg.Payout.ScheduledDelayDays)
		assert.True(t, cfg.Payout.DeductionFlatFee.IsZero())
		assert.Equal(t, 72*time.Hour, cfg.Payout.ScheduledDelay())
		assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO;BYHOUR=2;BYMINUTE=0;BYSECOND=0", cfg.Scheduler.PayoutRRule)
		assert.Equal(t, int64(1), cfg.IDGen.NodeID)
		assert.False(t, cfg.Redis.Enabled)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	})

	t.Run("loads values from environment variables with LEDGER prefix", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("LEDGER_APP_PORT", "9000")
		t.Setenv("LEDGER_DATABASE_HOST", "testdb.local")
		t.Setenv("LEDGER_DATABASE_PORT", "5433")
		t.Setenv("LEDGER_PAYOUT_SCHEDULED_DELAY_DAYS", "7")
		t.Setenv("LEDGER_PAYOUT_DEDUCTION_FLAT_FEE", "2.50")
		t.Setenv("LEDGER_REDIS_ENABLED", "true")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, 7, cfg.Payout.ScheduledDelayDays)
		assert.True(t, decimal.RequireFromString("2.5").Equal(cfg.Payout.DeductionFlatFee))
		assert.True(t, cfg.Redis.Enabled)
	})

	t.Run("reads a .env file", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		writeFile(t, dir, ".env", "LEDGER_APP_NAME=from-dotenv\n")
		t.Cleanup(func() { unsetEnv(t, "LEDGER_APP_NAME") })

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "from-dotenv", cfg.App.Name)
	})

	t.Run("reads config.toml from the config directory", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		writeFile(t, dir, "config/config.toml", strings.Join([]string{
			"[app]",
			`name = "toml-ledger"`,
			"[scheduler]",
			`payout_rrule = "FREQ=DAILY"`,
		}, "\n"))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "toml-ledger", cfg.App.Name)
		assert.Equal(t, "FREQ=DAILY", cfg.Scheduler.PayoutRRule)
	})
}

func TestFromViper_Validation(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		wantErr string
	}{
		{
			name:    "idle conns above open conns",
			values:  map[string]any{"database.max_open_conns": 2, "database.max_idle_conns": 5},
			wantErr: "cannot exceed",
		},
		{
			name:    "negative flat fee",
			values:  map[string]any{"payout.deduction_flat_fee": "-1"},
			wantErr: "deduction_flat_fee cannot be negative",
		},
		{
			name:    "unparseable flat fee",
			values:  map[string]any{"payout.deduction_flat_fee": "abc"},
			wantErr: "not a decimal",
		},
		{
			name:    "invalid default tenant",
			values:  map[string]any{"app.default_tenant_id": "tenant-1"},
			wantErr: "default_tenant_id",
		},
		{
			name:    "node id out of range",
			values:  map[string]any{"idgen.node_id": 4096},
			wantErr: "idgen.node_id",
		},
		{
			name:    "storage without bucket",
			values:  map[string]any{"storage.enabled": true},
			wantErr: "storage.bucket",
		},
		{
			name:    "invalid scheduler tenant",
			values:  map[string]any{"scheduler.tenant_ids": []string{"nope"}},
			wantErr: "scheduler.tenant_ids",
		},
		{
			name:    "sampling ratio above one",
			values:  map[string]any{"telemetry.sampling_ratio": 1.5},
			wantErr: "sampling_ratio",
		},
		{
			name:    "production without password",
			values:  map[string]any{"app.env": "production", "database.sslmode": "require"},
			wantErr: "database.password",
		},
		{
			name: "production with full sql logging",
			values: map[string]any{
				"app.env":                   "production",
				"database.password":         "secret",
				"database.sslmode":          "require",
				"telemetry.db_log_full_sql": true,
			},
			wantErr: "db_log_full_sql",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.values {
				v.Set(k, val)
			}
			_, err := fromViper(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFromViper_ProductionAccepted(t *testing.T) {
	v := viper.New()
	v.Set("app.env", "production")
	v.Set("database.password", "secret")
	v.Set("database.sslmode", "require")
	tenant := uuid.New()
	v.Set("app.default_tenant_id", tenant.String())

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, tenant, cfg.App.DefaultTenantID)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "ledger",
		Password: "p@ss",
		DBName:   "ledger",
		SSLMode:  "disable",
	}
	assert.Equal(t, "postgres://ledger:p%40ss@db:5432/ledger?sslmode=disable", d.DSN())
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	require.NoError(t, os.Unsetenv(key))
}
