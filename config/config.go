package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no -config flag is given.
const DefaultPath = "config.yml"

// DefaultMaxPriceMinutes is one leap year of minutes.
const DefaultMaxPriceMinutes = 366 * 24 * 60

var envConfigPaths = map[string]string{
	EnvironmentProduction: "config.production.yml",
	EnvironmentStaging:    "config.staging.yml",
}

type Config struct {
	App       AppConfig       `yaml:"app"`
	PnL       PnLConfig       `yaml:"pnl"`
	Reader    ReaderConfig    `yaml:"reader"`
	Source    SourceConfig    `yaml:"source"`
	Cache     CacheConfig     `yaml:"cache"`
	Writer    WriterConfig    `yaml:"writer"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// PnLConfig holds report defaults that command line flags may override.
// BaseToken and QuoteToken only label outputs; amounts are in QuoteToken.
type PnLConfig struct {
	VwapMinutes int    `yaml:"vwap_minutes"`
	Past        string `yaml:"past"`
	BaseToken   string `yaml:"base_token"`
	QuoteToken  string `yaml:"quote_token"`
}

type ReaderConfig struct {
	Timeout   time.Duration   `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	BaseDelay         time.Duration `yaml:"base_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	BackoffMultiplier int           `yaml:"backoff_multiplier"`
}

// SourceConfig selects where trades and prices come from.
// PriceSource and TradeSource are one of "file", "binance" or "bybit".
type SourceConfig struct {
	TradeSource      string              `yaml:"trade_source"`
	PriceSource      string              `yaml:"price_source"`
	TradesFile       string              `yaml:"trades_file"`
	PriceHistoryFile string              `yaml:"price_history_file"`
	Binance          BinanceSourceConfig `yaml:"binance"`
	Bybit            BybitSourceConfig   `yaml:"bybit"`
}

type BinanceSourceConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	SecretKey string `yaml:"secret_key"`
	Symbol    string `yaml:"symbol"`
}

type BybitSourceConfig struct {
	BaseURL  string `yaml:"base_url"`
	Category string `yaml:"category"`
	Symbol   string `yaml:"symbol"`
}

// CacheConfig configures the price batch cache. Backend is one of
// "none", "file", "s3" or "redis".
type CacheConfig struct {
	Backend string        `yaml:"backend"`
	Dir     string        `yaml:"dir"`
	Prefix  string        `yaml:"prefix"`
	TTL     time.Duration `yaml:"ttl"`
	Redis   RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type WriterConfig struct {
	Parquet ParquetConfig `yaml:"parquet"`
}

type ParquetConfig struct {
	Compression string `yaml:"compression"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type MetricsConfig struct {
	CloudWatch    bool   `yaml:"cloudwatch"`
	Region        string `yaml:"region"`
	Namespace     string `yaml:"namespace"`
	DashboardName string `yaml:"dashboard_name"`
}

// DashboardConfig configures the HTTP API served by the serve command.
type DashboardConfig struct {
	Address         string   `yaml:"address"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	LogHistory      int      `yaml:"log_history"`
	ReportHistory   int      `yaml:"report_history"`
	MaxBodyBytes    int64    `yaml:"max_body_bytes"`
	MaxPriceMinutes int64    `yaml:"max_price_minutes"`
}

// Default returns the configuration used when a key is absent from the file.
func Default() Config {
	return Config{
		App: AppConfig{Name: "keeperstats", Version: "dev"},
		PnL: PnLConfig{VwapMinutes: 240, Past: "3d", BaseToken: "ETH", QuoteToken: "DAI"},
		Reader: ReaderConfig{
			Timeout:   30 * time.Second,
			RateLimit: RateLimitConfig{RequestsPerSecond: 5, BurstSize: 1},
			Retry: RetryConfig{
				MaxAttempts:       5,
				BaseDelay:         time.Second,
				MaxDelay:          30 * time.Second,
				BackoffMultiplier: 2,
			},
		},
		Source: SourceConfig{
			TradeSource: "file",
			PriceSource: "file",
			Binance:     BinanceSourceConfig{BaseURL: "https://api.binance.com"},
			Bybit:       BybitSourceConfig{BaseURL: "https://api.bybit.com", Category: "spot"},
		},
		Cache:     CacheConfig{Backend: "none", Dir: ".cache", Prefix: "keeperstats/prices", TTL: 24 * time.Hour},
		Writer:    WriterConfig{Parquet: ParquetConfig{Compression: "snappy"}},
		Logging:   LoggingConfig{Level: "info", Format: "json", Output: "stderr"},
		Metrics:   MetricsConfig{Namespace: "KeeperStats", DashboardName: "KeeperStats"},
		Dashboard: DashboardConfig{Address: ":8080", LogHistory: 200, ReportHistory: 50, MaxBodyBytes: 32 << 20, MaxPriceMinutes: DefaultMaxPriceMinutes},
	}
}

// Load resolves the environment specific file for path and loads it.
func Load(path string) (*Config, error) {
	return LoadConfig(resolveEnvSpecificPath(path, DefaultPath, envConfigPaths))
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(&config)
	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func applyEnv(config *Config) {
	if config.Storage.S3.Enabled || config.Cache.Backend == "s3" {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		config.Source.Binance.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("BINANCE_SECRET_KEY"); v != "" {
		config.Source.Binance.SecretKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		config.Cache.Redis.Addr = strings.TrimSpace(v)
	}
}

func validateConfig(cfg *Config) error {
	if cfg.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if cfg.PnL.VwapMinutes <= 0 {
		return fmt.Errorf("pnl.vwap_minutes must be greater than 0")
	}
	if cfg.PnL.Past != "" {
		if _, err := ParsePast(cfg.PnL.Past); err != nil {
			return fmt.Errorf("pnl.past: %w", err)
		}
	}
	if cfg.Reader.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("reader.rate_limit.requests_per_second must be greater than 0")
	}
	if cfg.Reader.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("reader.retry.max_attempts must be greater than 0")
	}

	for name, src := range map[string]string{"trade_source": cfg.Source.TradeSource, "price_source": cfg.Source.PriceSource} {
		switch src {
		case "file", "binance", "bybit":
		default:
			return fmt.Errorf("source.%s '%s' is not supported", name, src)
		}
	}
	if cfg.Source.TradeSource == "bybit" {
		return fmt.Errorf("source.trade_source 'bybit' is not supported")
	}
	if cfg.Source.TradeSource == "binance" && (cfg.Source.Binance.APIKey == "" || cfg.Source.Binance.SecretKey == "") {
		return fmt.Errorf("source.binance.api_key and source.binance.secret_key are required for binance trades")
	}
	if (cfg.Source.TradeSource == "binance" || cfg.Source.PriceSource == "binance") && cfg.Source.Binance.Symbol == "" {
		return fmt.Errorf("source.binance.symbol is required")
	}
	if cfg.Source.PriceSource == "bybit" && cfg.Source.Bybit.Symbol == "" {
		return fmt.Errorf("source.bybit.symbol is required")
	}

	if cfg.Dashboard.MaxPriceMinutes < 0 {
		return fmt.Errorf("dashboard.max_price_minutes must not be negative")
	}

	switch cfg.Cache.Backend {
	case "", "none", "file", "s3":
	case "redis":
		if cfg.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required when the redis cache is used")
		}
	default:
		return fmt.Errorf("cache.backend '%s' is not supported", cfg.Cache.Backend)
	}

	switch strings.ToLower(cfg.Writer.Parquet.Compression) {
	case "", "snappy", "gzip", "none", "uncompressed":
	default:
		return fmt.Errorf("writer.parquet.compression '%s' is not supported", cfg.Writer.Parquet.Compression)
	}

	if cfg.Storage.S3.Enabled || cfg.Cache.Backend == "s3" {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is used")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is used")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}

var pastRegexp = regexp.MustCompile(`^(\d+)([smhdw])$`)

// ParsePast converts a period such as "3d" or "12h" into a duration.
// Supported units are s, m, h, d and w.
func ParsePast(period string) (time.Duration, error) {
	m := pastRegexp.FindStringSubmatch(strings.TrimSpace(period))
	if m == nil {
		return 0, fmt.Errorf("invalid period '%s'", period)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("invalid period '%s': %w", period, err)
	}
	unit := map[string]time.Duration{
		"s": time.Second,
		"m": time.Minute,
		"h": time.Hour,
		"d": 24 * time.Hour,
		"w": 7 * 24 * time.Hour,
	}[m[2]]
	return time.Duration(n) * unit, nil
}
