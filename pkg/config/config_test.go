package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

const validYAML = `
APP_ENV: test
LOG_LEVEL: DEBUG
TELEGRAM:
  BOT_TOKEN: "123456:ABCdef"
DATABASE:
  HOST: localhost
  DBNAME: readings
YOOKASSA:
  SHOP_ID: "shop"
  SECRET_KEY: "secret"
SCENARIO:
  PAID_LABELS: [paid, premium]
`

func loadYAML(t *testing.T, body string) (*Config, error) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := loadYAML(t, validYAML)
	require.NoError(t, err)

	require.Equal(t, "test", cfg.AppEnv)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "queue", cfg.Scenario.Dispatch)
	require.True(t, cfg.IsPaidLabel("PREMIUM"))
	require.False(t, cfg.IsPaidLabel("default"))
	require.Equal(t, "secret", cfg.WebhookSecret())
}

func TestLoadRejectsMalformedBotToken(t *testing.T) {
	_, err := loadYAML(t, `
TELEGRAM:
  BOT_TOKEN: "no-colon"
DATABASE:
  HOST: localhost
  DBNAME: readings
YOOKASSA:
  SHOP_ID: "shop"
  SECRET_KEY: "secret"
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "BOT_TOKEN")
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := &Config{LogLevel: "verbose"}
	cfg.Scenario.Dispatch = "queue"

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "BOT_TOKEN")
	require.Contains(t, err.Error(), "DATABASE")
	require.Contains(t, err.Error(), "YOOKASSA")
	require.Contains(t, err.Error(), "LOG_LEVEL")
}
