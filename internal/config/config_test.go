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
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, int64(100), cfg.Betting.BetCost)
	assert.Equal(t, int64(100), cfg.Betting.WelcomeBonus)
	assert.Equal(t, time.Minute, cfg.Sync.Interval)
	assert.Equal(t, "wc_session", cfg.Auth.SessionCookie)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "data/mockMatches.json", cfg.Feed.Path)
	assert.False(t, cfg.Kafka.Enabled())
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
betting:
  bet_cost: 250
admin:
  user_ids: ["usr-admin"]
kafka:
  brokers: "k1:9092, k2:9092"
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("SERVER_PORT", "8088")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, int64(250), cfg.Betting.BetCost)
	assert.Equal(t, 8088, cfg.Server.Port)
	assert.True(t, cfg.IsAdmin("usr-admin"))
	assert.False(t, cfg.IsAdmin("someone"))
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.BrokerList())
}

func TestLoad_RejectsNonPositiveBetCost(t *testing.T) {
	t.Setenv("BETTING_BET_COST", "0")

	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5432, Name: "wc"}
	assert.Equal(t, "postgres://u:p@db:5432/wc?sslmode=disable", d.DSN())
}

func TestBettingConfig_Location(t *testing.T) {
	b := BettingConfig{Timezone: "Asia/Kolkata"}
	assert.Equal(t, "Asia/Kolkata", b.Location().String())

	b.Timezone = "Not/AZone"
	assert.Equal(t, time.UTC, b.Location())
}
