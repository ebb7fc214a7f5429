// Package config loads the engine's runtime configuration from an optional
// config.json base, environment variables (which always take precedence),
// and a .env file loaded via godotenv before either is read (spec §6.7).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full set of recognised options (spec §6.7), one nested
// struct per concern the way the teacher groups BinanceConfig/RiskConfig/etc.
type Config struct {
	Volatility VolatilityConfig `json:"volatility"`
	Volume     VolumeConfig     `json:"volume"`
	Velocity   VelocityConfig   `json:"velocity"`
	Range      RangeConfig      `json:"range"`
	UI         UIConfig         `json:"ui"`
	ML         MLConfig         `json:"ml"`
	Cadences   CadenceConfig    `json:"cadences"`
	Exchange   ExchangeConfig   `json:"exchange"`
	Predictor  PredictorConfig  `json:"predictor"`
	Storage    StorageConfig    `json:"storage"`
	Logging    LoggingConfig    `json:"logging"`
}

type VolatilityConfig struct {
	MinChange24h      float64 `json:"min_change_24h"`
	CriticalChange24h float64 `json:"critical_change_24h"`
}

type VolumeConfig struct {
	SpikeMultiplier  float64 `json:"spike_multiplier"`
	AvgWindowMinutes int     `json:"avg_window_minutes"`
	MinQuoteVolume   float64 `json:"min_quote_volume"`
}

type VelocityConfig struct {
	MinVelocity           float64 `json:"min_velocity"`
	WindowMinutes         int     `json:"window_minutes"`
	AccelerationThreshold float64 `json:"acceleration_threshold"`
}

type RangeConfig struct {
	MinRange float64 `json:"min_range"`
}

type UIConfig struct {
	RefreshMs   int `json:"refresh_ms"`
	MaxDisplayed int `json:"max_displayed"`
}

type MLConfig struct {
	Enabled              bool    `json:"enabled"`
	MLWeight             float64 `json:"ml_weight"`
	RuleWeight           float64 `json:"rule_weight"`
	FilterThreshold      float64 `json:"filter_threshold"`
	MinSignalsForTraining int    `json:"min_signals_for_training"`
}

// CadenceConfig holds the per-detector-group tick intervals (spec §4.5).
type CadenceConfig struct {
	FundingOISeconds        int `json:"funding_oi_seconds"`
	MTFPatternSeconds        int `json:"mtf_pattern_seconds"`
	EntryCorrelationSeconds  int `json:"entry_correlation_seconds"`
	WhaleSeconds             int `json:"whale_seconds"`
	TopPickLiquidationSeconds int `json:"top_pick_liquidation_seconds"`
	SnapshotSeconds          int `json:"snapshot_seconds"`
	OutcomeEvalSeconds       int `json:"outcome_eval_seconds"`
}

type ExchangeConfig struct {
	BaseURL  string `json:"base_url"`
	MockMode bool   `json:"mock_mode"`
}

type PredictorConfig struct {
	Enabled     bool   `json:"enabled"`
	BaseURL     string `json:"base_url"`
	CacheTTLSec int    `json:"cache_ttl_sec"`
}

type StorageConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

type LoggingConfig struct {
	Level      string `json:"level"`
	Output     string `json:"output"`
	JSONFormat bool   `json:"json_format"`
}

// Load reads config.json if present, loads a .env file (if present) into
// the process environment, then applies environment overrides, which
// always take precedence over the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // absence of .env is not an error

	cfg, err := loadFromFile(path)
	if err != nil {
		cfg = defaultConfig()
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{}
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Volatility.MinChange24h = getEnvFloatOrDefault("VOLATILITY_MIN_CHANGE_24H", orDefault(cfg.Volatility.MinChange24h, 10))
	cfg.Volatility.CriticalChange24h = getEnvFloatOrDefault("VOLATILITY_CRITICAL_CHANGE_24H", orDefault(cfg.Volatility.CriticalChange24h, 25))

	cfg.Volume.SpikeMultiplier = getEnvFloatOrDefault("VOLUME_SPIKE_MULTIPLIER", orDefault(cfg.Volume.SpikeMultiplier, 3))
	cfg.Volume.AvgWindowMinutes = getEnvIntOrDefault("VOLUME_AVG_WINDOW_MINUTES", orDefaultInt(cfg.Volume.AvgWindowMinutes, 60))
	cfg.Volume.MinQuoteVolume = getEnvFloatOrDefault("VOLUME_MIN_QUOTE_VOLUME", orDefault(cfg.Volume.MinQuoteVolume, 1_000_000))

	cfg.Velocity.MinVelocity = getEnvFloatOrDefault("VELOCITY_MIN_VELOCITY", orDefault(cfg.Velocity.MinVelocity, 0.5))
	cfg.Velocity.WindowMinutes = getEnvIntOrDefault("VELOCITY_WINDOW_MINUTES", orDefaultInt(cfg.Velocity.WindowMinutes, 5))
	cfg.Velocity.AccelerationThreshold = getEnvFloatOrDefault("VELOCITY_ACCELERATION_THRESHOLD", orDefault(cfg.Velocity.AccelerationThreshold, 0.1))

	cfg.Range.MinRange = getEnvFloatOrDefault("RANGE_MIN_RANGE", orDefault(cfg.Range.MinRange, 15))

	cfg.UI.RefreshMs = getEnvIntOrDefault("UI_REFRESH_MS", orDefaultInt(cfg.UI.RefreshMs, 2000))
	cfg.UI.MaxDisplayed = getEnvIntOrDefault("UI_MAX_DISPLAYED", orDefaultInt(cfg.UI.MaxDisplayed, 20))

	cfg.ML.Enabled = getEnvBoolOrDefault("ML_ENABLED", cfg.ML.Enabled)
	cfg.ML.MLWeight = getEnvFloatOrDefault("ML_WEIGHT", orDefault(cfg.ML.MLWeight, 0.6))
	cfg.ML.RuleWeight = getEnvFloatOrDefault("ML_RULE_WEIGHT", orDefault(cfg.ML.RuleWeight, 0.4))
	cfg.ML.FilterThreshold = getEnvFloatOrDefault("ML_FILTER_THRESHOLD", orDefault(cfg.ML.FilterThreshold, 0.3))
	cfg.ML.MinSignalsForTraining = getEnvIntOrDefault("ML_MIN_SIGNALS_FOR_TRAINING", orDefaultInt(cfg.ML.MinSignalsForTraining, 200))

	cfg.Cadences.FundingOISeconds = getEnvIntOrDefault("CADENCE_FUNDING_OI_SECONDS", orDefaultInt(cfg.Cadences.FundingOISeconds, 120))
	cfg.Cadences.MTFPatternSeconds = getEnvIntOrDefault("CADENCE_MTF_PATTERN_SECONDS", orDefaultInt(cfg.Cadences.MTFPatternSeconds, 60))
	cfg.Cadences.EntryCorrelationSeconds = getEnvIntOrDefault("CADENCE_ENTRY_CORRELATION_SECONDS", orDefaultInt(cfg.Cadences.EntryCorrelationSeconds, 30))
	cfg.Cadences.WhaleSeconds = getEnvIntOrDefault("CADENCE_WHALE_SECONDS", orDefaultInt(cfg.Cadences.WhaleSeconds, 10))
	cfg.Cadences.TopPickLiquidationSeconds = getEnvIntOrDefault("CADENCE_TOP_PICK_LIQUIDATION_SECONDS", orDefaultInt(cfg.Cadences.TopPickLiquidationSeconds, 5))
	cfg.Cadences.SnapshotSeconds = getEnvIntOrDefault("CADENCE_SNAPSHOT_SECONDS", orDefaultInt(cfg.Cadences.SnapshotSeconds, 2))
	cfg.Cadences.OutcomeEvalSeconds = getEnvIntOrDefault("CADENCE_OUTCOME_EVAL_SECONDS", orDefaultInt(cfg.Cadences.OutcomeEvalSeconds, 15))

	cfg.Exchange.BaseURL = getEnvOrDefault("EXCHANGE_BASE_URL", orDefaultStr(cfg.Exchange.BaseURL, "https://fapi.binance.com"))
	cfg.Exchange.MockMode = getEnvBoolOrDefault("EXCHANGE_MOCK_MODE", cfg.Exchange.MockMode)

	cfg.Predictor.Enabled = getEnvBoolOrDefault("PREDICTOR_ENABLED", cfg.Predictor.Enabled)
	cfg.Predictor.BaseURL = getEnvOrDefault("PREDICTOR_BASE_URL", cfg.Predictor.BaseURL)
	cfg.Predictor.CacheTTLSec = getEnvIntOrDefault("PREDICTOR_CACHE_TTL_SEC", orDefaultInt(cfg.Predictor.CacheTTLSec, 5))

	cfg.Storage.Enabled = getEnvBoolOrDefault("STORAGE_ENABLED", cfg.Storage.Enabled)
	cfg.Storage.Host = getEnvOrDefault("STORAGE_HOST", orDefaultStr(cfg.Storage.Host, "localhost"))
	cfg.Storage.Port = getEnvIntOrDefault("STORAGE_PORT", orDefaultInt(cfg.Storage.Port, 5432))
	cfg.Storage.User = getEnvOrDefault("STORAGE_USER", cfg.Storage.User)
	cfg.Storage.Password = getEnvOrDefault("STORAGE_PASSWORD", cfg.Storage.Password)
	cfg.Storage.Database = getEnvOrDefault("STORAGE_DATABASE", orDefaultStr(cfg.Storage.Database, "marketpulse"))
	cfg.Storage.SSLMode = getEnvOrDefault("STORAGE_SSL_MODE", orDefaultStr(cfg.Storage.SSLMode, "disable"))

	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", orDefaultStr(cfg.Logging.Level, "INFO"))
	cfg.Logging.Output = getEnvOrDefault("LOG_OUTPUT", orDefaultStr(cfg.Logging.Output, "stdout"))
	cfg.Logging.JSONFormat = getEnvBoolOrDefault("LOG_JSON", cfg.Logging.JSONFormat)
}

func orDefault(current, fallback float64) float64 {
	if current != 0 {
		return current
	}
	return fallback
}

func orDefaultInt(current, fallback int) int {
	if current != 0 {
		return current
	}
	return fallback
}

func orDefaultStr(current, fallback string) string {
	if current != "" {
		return current
	}
	return fallback
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
