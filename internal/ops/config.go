package ops

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"github.com/yanun0323/errors"

	"github.com/tommytrillva/memecoinbot/internal/marketdata"
	"github.com/tommytrillva/memecoinbot/internal/risk"
	"github.com/tommytrillva/memecoinbot/pkg/exception"
)

const (
	DefaultEngineInterval   = 100 * time.Millisecond
	DefaultPollInterval     = marketdata.DefaultPollInterval
	DefaultMetadataEndpoint = "/metadata"
	DefaultQuoteEndpoint    = "/quotes"
	DefaultCandlesEndpoint  = "/candles"
)

// Environment overrides, applied after the config file.
const (
	EnvRiskMaxPosition     = "RISK_MAX_POSITION"
	EnvRiskMaxExposure     = "RISK_MAX_EXPOSURE"
	EnvMarketDataBaseURL   = "MARKETDATA_BASE_URL"
	EnvMarketDataAPIKey    = "MARKETDATA_API_KEY"
	EnvMarketDataAttempts  = "MARKETDATA_MAX_ATTEMPTS"
	EnvMarketDataBackoffMs = "MARKETDATA_BACKOFF_MS"
	EnvMarketDataPollMs    = "MARKETDATA_POLL_MS"
	EnvWatchSymbols        = "WATCH_SYMBOLS"
	EnvMetricsAddr         = "METRICS_ADDR"
	EnvPyroscopeAddr       = "PYROSCOPE_ADDR"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Risk          RiskConfig       `json:"risk"`
	Engine        EngineConfig     `json:"engine"`
	MarketData    MarketDataConfig `json:"marketData"`
	WatchSymbols  []string         `json:"watchSymbols"`
	MetricsAddr   string           `json:"metricsAddr"`
	PyroscopeAddr string           `json:"pyroscopeAddr"`
}

// RiskConfig holds the limits. 0 disables a limit.
type RiskConfig struct {
	MaxPosition float64 `json:"maxPosition"`
	MaxExposure float64 `json:"maxExposure"`
}

type EngineConfig struct {
	IntervalMs int `json:"intervalMs"`
}

// MarketDataConfig describes the provider.
type MarketDataConfig struct {
	BaseURL          string `json:"baseUrl"`
	APIKey           string `json:"apiKey"`
	MetadataEndpoint string `json:"metadataEndpoint"`
	QuoteEndpoint    string `json:"quoteEndpoint"`
	CandlesEndpoint  string `json:"candlesEndpoint"`
	MaxAttempts      int    `json:"maxAttempts"`
	InitialBackoffMs *int   `json:"initialBackoffMs"`
	PollIntervalMs   int    `json:"pollIntervalMs"`
	TimeoutMs        int    `json:"timeoutMs"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Risk           risk.Limits
	EngineInterval time.Duration
	MarketData     marketdata.Config
	HTTPTimeout    time.Duration
	PollInterval   time.Duration
	WatchSymbols   []string
	MetricsAddr    string
	PyroscopeAddr  string
}

// Default returns the configuration used without a config file.
func Default() Loaded {
	return Loaded{
		EngineInterval: DefaultEngineInterval,
		MarketData: marketdata.Config{
			MetadataEndpoint: DefaultMetadataEndpoint,
			QuoteEndpoint:    DefaultQuoteEndpoint,
			CandlesEndpoint:  DefaultCandlesEndpoint,
			Retry:            marketdata.DefaultRetryPolicy(),
		},
		HTTPTimeout:  marketdata.DefaultHTTPTimeout,
		PollInterval: DefaultPollInterval,
	}
}

// LoadDotEnv exports the variables of a .env file into the process
// environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrap(err, "load dotenv").With("path", path)
	}
	return nil
}

// Load reads a JSON config file, then applies environment overrides.
// An empty path starts from Default.
func Load(path string) (Loaded, error) {
	var cfg FileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Loaded{}, errors.Wrap(err, "read config").With("path", path)
		}
		if err := sonic.ConfigStd.Unmarshal(data, &cfg); err != nil {
			return Loaded{}, errors.Wrap(err, "decode config").With("path", path)
		}
	}

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return Loaded{}, err
	}
	return resolve(cfg)
}

func applyEnv(cfg *FileConfig, getenv func(string) string) error {
	var err error
	setFloat := func(key string, dst *float64) {
		if v := getenv(key); v != "" && err == nil {
			f, perr := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if perr != nil {
				err = errors.Wrapf(exception.ErrInvalidConfig, "%s=%q", key, v)
				return
			}
			*dst = f
		}
	}
	setInt := func(key string, dst *int) {
		if v := getenv(key); v != "" && err == nil {
			n, perr := strconv.Atoi(strings.TrimSpace(v))
			if perr != nil {
				err = errors.Wrapf(exception.ErrInvalidConfig, "%s=%q", key, v)
				return
			}
			*dst = n
		}
	}
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	setFloat(EnvRiskMaxPosition, &cfg.Risk.MaxPosition)
	setFloat(EnvRiskMaxExposure, &cfg.Risk.MaxExposure)
	setString(EnvMarketDataBaseURL, &cfg.MarketData.BaseURL)
	setString(EnvMarketDataAPIKey, &cfg.MarketData.APIKey)
	setInt(EnvMarketDataAttempts, &cfg.MarketData.MaxAttempts)
	if v := getenv(EnvMarketDataBackoffMs); v != "" {
		var backoff int
		setInt(EnvMarketDataBackoffMs, &backoff)
		cfg.MarketData.InitialBackoffMs = &backoff
	}
	setInt(EnvMarketDataPollMs, &cfg.MarketData.PollIntervalMs)
	if v := getenv(EnvWatchSymbols); v != "" {
		cfg.WatchSymbols = splitSymbols(v)
	}
	setString(EnvMetricsAddr, &cfg.MetricsAddr)
	setString(EnvPyroscopeAddr, &cfg.PyroscopeAddr)
	return err
}

func resolve(cfg FileConfig) (Loaded, error) {
	if cfg.Risk.MaxPosition < 0 || cfg.Risk.MaxExposure < 0 {
		return Loaded{}, errors.Wrap(exception.ErrInvalidConfig, "risk limits must be >= 0")
	}
	md := cfg.MarketData
	if md.MaxAttempts < 0 || md.PollIntervalMs < 0 || md.TimeoutMs < 0 || cfg.Engine.IntervalMs < 0 {
		return Loaded{}, errors.Wrap(exception.ErrInvalidConfig, "intervals and attempts must be >= 0")
	}
	if md.InitialBackoffMs != nil && *md.InitialBackoffMs < 0 {
		return Loaded{}, errors.Wrap(exception.ErrInvalidConfig, "initial backoff must be >= 0")
	}

	loaded := Default()
	loaded.Risk = risk.Limits{MaxPosition: cfg.Risk.MaxPosition, MaxExposure: cfg.Risk.MaxExposure}
	if cfg.Engine.IntervalMs > 0 {
		loaded.EngineInterval = time.Duration(cfg.Engine.IntervalMs) * time.Millisecond
	}

	loaded.MarketData.BaseURL = md.BaseURL
	loaded.MarketData.APIKey = md.APIKey
	if md.MetadataEndpoint != "" {
		loaded.MarketData.MetadataEndpoint = md.MetadataEndpoint
	}
	if md.QuoteEndpoint != "" {
		loaded.MarketData.QuoteEndpoint = md.QuoteEndpoint
	}
	if md.CandlesEndpoint != "" {
		loaded.MarketData.CandlesEndpoint = md.CandlesEndpoint
	}
	if md.MaxAttempts > 0 {
		loaded.MarketData.Retry.MaxAttempts = md.MaxAttempts
	}
	if md.InitialBackoffMs != nil {
		loaded.MarketData.Retry.InitialBackoff = time.Duration(*md.InitialBackoffMs) * time.Millisecond
	}
	if md.PollIntervalMs > 0 {
		loaded.PollInterval = time.Duration(md.PollIntervalMs) * time.Millisecond
	}
	if md.TimeoutMs > 0 {
		loaded.HTTPTimeout = time.Duration(md.TimeoutMs) * time.Millisecond
	}

	loaded.WatchSymbols = dedupe(cfg.WatchSymbols)
	loaded.MetricsAddr = cfg.MetricsAddr
	loaded.PyroscopeAddr = cfg.PyroscopeAddr
	return loaded, nil
}

func splitSymbols(v string) []string {
	return dedupe(strings.Split(v, ","))
}

func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
