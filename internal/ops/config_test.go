package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tommytrillva/memecoinbot/internal/risk"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvRiskMaxPosition, EnvRiskMaxExposure, EnvMarketDataBaseURL, EnvMarketDataAPIKey,
		EnvMarketDataAttempts, EnvMarketDataBackoffMs, EnvMarketDataPollMs, EnvWatchSymbols,
		EnvMetricsAddr, EnvPyroscopeAddr,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	loaded, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, risk.Limits{}, loaded.Risk)
	assert.Equal(t, 100*time.Millisecond, loaded.EngineInterval)
	assert.Equal(t, 1500*time.Millisecond, loaded.PollInterval)
	assert.Equal(t, 10*time.Second, loaded.HTTPTimeout)
	assert.Equal(t, "/metadata", loaded.MarketData.MetadataEndpoint)
	assert.Equal(t, "/quotes", loaded.MarketData.QuoteEndpoint)
	assert.Equal(t, "/candles", loaded.MarketData.CandlesEndpoint)
	assert.Equal(t, 3, loaded.MarketData.Retry.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, loaded.MarketData.Retry.InitialBackoff)
	assert.Empty(t, loaded.WatchSymbols)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `{
		"risk": {"maxPosition": 500, "maxExposure": 2500.5},
		"engine": {"intervalMs": 50},
		"marketData": {
			"baseUrl": "https://api.example.com",
			"quoteEndpoint": "v2/quotes",
			"maxAttempts": 5,
			"initialBackoffMs": 0,
			"pollIntervalMs": 750,
			"timeoutMs": 3000
		},
		"watchSymbols": ["BONK", " WIF ", "BONK", ""],
		"metricsAddr": ":9100"
	}`)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, risk.Limits{MaxPosition: 500, MaxExposure: 2500.5}, loaded.Risk)
	assert.Equal(t, 50*time.Millisecond, loaded.EngineInterval)
	assert.Equal(t, "https://api.example.com", loaded.MarketData.BaseURL)
	assert.Equal(t, "v2/quotes", loaded.MarketData.QuoteEndpoint)
	assert.Equal(t, "/metadata", loaded.MarketData.MetadataEndpoint)
	assert.Equal(t, 5, loaded.MarketData.Retry.MaxAttempts)
	assert.Zero(t, loaded.MarketData.Retry.InitialBackoff)
	assert.Equal(t, 750*time.Millisecond, loaded.PollInterval)
	assert.Equal(t, 3*time.Second, loaded.HTTPTimeout)
	assert.Equal(t, []string{"BONK", "WIF"}, loaded.WatchSymbols)
	assert.Equal(t, ":9100", loaded.MetricsAddr)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `{"risk": {"maxPosition": 500}, "watchSymbols": ["BONK"]}`)
	t.Setenv(EnvRiskMaxPosition, "10")
	t.Setenv(EnvRiskMaxExposure, "75")
	t.Setenv(EnvMarketDataAPIKey, "secret")
	t.Setenv(EnvMarketDataBackoffMs, "25")
	t.Setenv(EnvWatchSymbols, "POPCAT, MEW")
	t.Setenv(EnvPyroscopeAddr, "http://localhost:4040")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, risk.Limits{MaxPosition: 10, MaxExposure: 75}, loaded.Risk)
	assert.Equal(t, "secret", loaded.MarketData.APIKey)
	assert.Equal(t, 25*time.Millisecond, loaded.MarketData.Retry.InitialBackoff)
	assert.Equal(t, []string{"POPCAT", "MEW"}, loaded.WatchSymbols)
	assert.Equal(t, "http://localhost:4040", loaded.PyroscopeAddr)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `{"risk": `))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `{"risk": {"maxExposure": -1}}`))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `{"marketData": {"initialBackoffMs": -5}}`))
	assert.Error(t, err)

	t.Setenv(EnvMarketDataAttempts, "three")
	_, err = Load("")
	assert.Error(t, err)
}

func TestApplyEnvKeepsFileValues(t *testing.T) {
	cfg := FileConfig{Risk: RiskConfig{MaxPosition: 5}, MetricsAddr: ":9000"}
	env := map[string]string{EnvMetricsAddr: ""}
	require.NoError(t, applyEnv(&cfg, func(k string) string { return env[k] }))
	assert.Equal(t, 5.0, cfg.Risk.MaxPosition)
	assert.Equal(t, ":9000", cfg.MetricsAddr)
	assert.Nil(t, cfg.MarketData.InitialBackoffMs)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("WATCH_SYMBOLS=BONK,WIF\n"), 0o600))

	// godotenv never overrides variables that are already set, even to "".
	require.NoError(t, os.Unsetenv(EnvWatchSymbols))
	require.NoError(t, LoadDotEnv(path))
	t.Cleanup(func() { _ = os.Unsetenv(EnvWatchSymbols) })

	loaded, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"BONK", "WIF"}, loaded.WatchSymbols)

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "absent.env")))
}
