package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/usagemon/internal/config"
	"codeberg.org/mutker/usagemon/internal/errors"
	"codeberg.org/mutker/usagemon/internal/metrics"
	"codeberg.org/mutker/usagemon/internal/selector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "usagemon.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
interval = "5s"
log_level = "debug"
cache_ttl = "2s"

[store]
backend = "badger"
path = "/tmp/usagemon/badger"

[http]
listen = "127.0.0.1:9100"

[anomaly]
increase_ratio = 1.5
exempt = ["Other", "Protheus"]

[resources.cpu]
top_k = 3
threshold = 2.0

[[resources.cpu.categories]]
name = "Protheus"
processes = ["appserver.exe"]

[resources.memory]
enabled = false

[resources.gpu]
enabled = true
device = 1
`)
	t.Setenv("USAGEMON_CONFIG", path)

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Interval)
	assert.Equal(t, config.LogLevelDebug, cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.CacheTTL)
	assert.Equal(t, metrics.BackendBadger, cfg.Store.Backend)
	assert.Equal(t, "/tmp/usagemon/badger", cfg.Store.Path)
	assert.Equal(t, "127.0.0.1:9100", cfg.HTTP.Listen)
	assert.Equal(t, 1.5, cfg.Anomaly.IncreaseRatio)
	assert.Equal(t, []string{"Other", "Protheus"}, cfg.Anomaly.Exempt)

	assert.Equal(t, 3, cfg.Resources.CPU.TopK)
	assert.Equal(t, 2.0, cfg.Resources.CPU.Threshold)
	assert.Equal(t, []selector.Category{{Name: "Protheus", Processes: []string{"appserver.exe"}}}, cfg.Resources.CPU.Categories)
	assert.Equal(t, []string{"System Idle Process"}, cfg.Resources.CPU.Exclude)
	assert.Equal(t, 1, cfg.Resources.GPU.Device)

	names, _ := cfg.Resources.Enabled()
	assert.Equal(t, []string{"cpu", "gpu"}, names)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(nil, config.WithConfigFile(config.DefaultConfigPath), config.WithEnvPrefix("USAGEMON_TEST_DEFAULTS"))
	if err != nil && errors.HasCode(err, errors.ErrReadConfig) {
		t.Skip("host has a config file at the default location")
	}
	require.NoError(t, err)

	assert.Equal(t, config.DefaultInterval, cfg.Interval)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, time.Second, cfg.CacheTTL)
	assert.Equal(t, metrics.BackendSQLite, cfg.Store.Backend)
	assert.Empty(t, cfg.HTTP.Listen)
	assert.Equal(t, 1.2, cfg.Anomaly.IncreaseRatio)

	assert.True(t, cfg.Resources.CPU.Enabled)
	assert.Equal(t, 7, cfg.Resources.CPU.TopK)
	assert.False(t, cfg.Resources.CPU.Freeze)
	assert.True(t, cfg.Resources.Memory.Enabled)
	assert.Equal(t, 5, cfg.Resources.Memory.TopK)
	assert.True(t, cfg.Resources.Memory.Freeze)
	assert.False(t, cfg.Resources.GPU.Enabled)
	assert.Equal(t, config.DefaultThreshold, cfg.Resources.Memory.Threshold)

	rules := cfg.Resources.CPU.Rules()
	assert.Equal(t, selector.DefaultOther, rules.Other)
	assert.Equal(t, 7, rules.TopK)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	t.Setenv("USAGEMON_CONFIG", writeConfig(t, `
This is not a valid TOML file
`))

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := config.Load([]string{"--config", filepath.Join(t.TempDir(), "absent.toml")})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestInvalidLogLevel(t *testing.T) {
	t.Setenv("USAGEMON_CONFIG", writeConfig(t, `log_level = "invalid"`))

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
	}{
		{name: "zero interval", content: `interval = "0s"`, code: errors.ErrInvalidInterval},
		{name: "ratio", content: "[anomaly]\nincrease_ratio = 1.0", code: errors.ErrInvalidRatio},
		{name: "backend", content: "[store]\nbackend = \"redis\"", code: errors.ErrInvalidBackend},
		{
			name:    "nothing enabled",
			content: "[resources.cpu]\nenabled = false\n[resources.memory]\nenabled = false",
			code:    errors.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("USAGEMON_CONFIG", writeConfig(t, tt.content))

			_, err := config.Load(nil)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), err.Error())
		})
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("USAGEMON_CONFIG", writeConfig(t, "[store]\nbackend = \"sqlite\""))
	t.Setenv("USAGEMON_STORE_BACKEND", "memory")
	t.Setenv("USAGEMON_LOG_LEVEL", "warning")

	cfg, err := config.Load(nil)
	require.NoError(t, err)
	assert.Equal(t, metrics.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, config.LogLevelWarning, cfg.LogLevel)
}

func TestFlagsOverrideEverything(t *testing.T) {
	t.Setenv("USAGEMON_CONFIG", writeConfig(t, "log_level = \"error\""))
	t.Setenv("USAGEMON_LOG_LEVEL", "warning")

	cfg, err := config.Load([]string{
		"--log-level", "debug",
		"--interval", "250ms",
		"--store-backend", "memory",
		"--http-listen", ":9100",
		"--gpu",
	})
	require.NoError(t, err)

	assert.Equal(t, config.LogLevelDebug, cfg.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.Interval)
	assert.Equal(t, metrics.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, ":9100", cfg.HTTP.Listen)
	assert.True(t, cfg.Resources.GPU.Enabled)
}

func TestUnknownFlag(t *testing.T) {
	_, err := config.Load([]string{"--poll-rate", "80"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrBindFlags))
}
