package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend names shared by the cache and accumulation sections
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Carrier adapter types
const (
	CarrierTypeRateCard = "ratecard"
	CarrierTypeHTTP     = "http"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Log          LogConfig
	HTTP         HTTPConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Cache        CacheConfig
	Accumulation AccumulationConfig
	Tax          TaxConfig
	Logistics    LogisticsConfig
	Carriers     []CarrierConfig
	Storage      StorageConfig
	Telemetry    TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	TrustedProxies    []string

	// SwaggerEnabled serves the API docs at /swagger; on by default outside production
	SwaggerEnabled bool
}

// CacheConfig selects where shared quote sets live
type CacheConfig struct {
	Backend   string // memory, redis
	KeyPrefix string
}

// AccumulationConfig selects where relief usage counters live
type AccumulationConfig struct {
	Backend   string // memory, redis, postgres
	KeyPrefix string
}

// TaxConfig tunes the tax calculator and its rate source
type TaxConfig struct {
	CacheTTL     time.Duration
	RateCacheTTL time.Duration
}

// LogisticsConfig tunes the quote aggregator
type LogisticsConfig struct {
	QuoteCacheTTL     time.Duration
	ProviderTimeout   time.Duration
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration
	// BookingKeyTTL is how long an Idempotency-Key blocks a repeated booking.
	BookingKeyTTL time.Duration
}

// CarrierServiceConfig is one service level of a rate-card carrier
type CarrierServiceConfig struct {
	Code       string   `mapstructure:"code"`
	Name       string   `mapstructure:"name"`
	Class      string   `mapstructure:"class"`
	Multiplier float64  `mapstructure:"multiplier"`
	Days       int      `mapstructure:"days"`
	MinDays    int      `mapstructure:"min_days"`
	MaxDays    int      `mapstructure:"max_days"`
	Guaranteed bool     `mapstructure:"guaranteed"`
	Features   []string `mapstructure:"features"`
}

// CarrierConfig configures one carrier adapter
type CarrierConfig struct {
	ID      string        `mapstructure:"id"`
	Name    string        `mapstructure:"name"`
	Type    string        `mapstructure:"type"` // ratecard, http
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`

	// http carriers
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`

	// rate-card carriers
	Currency         string                 `mapstructure:"currency"`
	BaseFee          float64                `mapstructure:"base_fee"`
	PerKg            float64                `mapstructure:"per_kg"`
	FuelSurchargePct float64                `mapstructure:"fuel_surcharge_pct"`
	DDPFee           float64                `mapstructure:"ddp_fee"`
	DutyEstimatePct  float64                `mapstructure:"duty_estimate_pct"`
	Zones            map[string]float64     `mapstructure:"zones"`
	Prohibited       []string               `mapstructure:"prohibited_destinations"`
	Services         []CarrierServiceConfig `mapstructure:"services"`
}

// StorageConfig holds document storage settings
type StorageConfig struct {
	Type              string // memory, s3
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	PresignExpiration time.Duration
	PublicBaseURL     string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
	// Log export options
	LogsEnabled  bool   // Ship zap entries to the collector over OTLP
	LogsMinLevel string // Lowest level exported (default: info)
	// Continuous profiling options
	ProfilingEnabled    bool
	ProfilingServerAddr string // Pyroscope server, e.g. http://pyroscope:4040
	ProfilingContention bool   // Adds mutex and block profiles
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with XB_ prefix (e.g., XB_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("XB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:   v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Cache: CacheConfig{
			Backend:   v.GetString("cache.backend"),
			KeyPrefix: v.GetString("cache.key_prefix"),
		},
		Accumulation: AccumulationConfig{
			Backend:   v.GetString("accumulation.backend"),
			KeyPrefix: v.GetString("accumulation.key_prefix"),
		},
		Tax: TaxConfig{
			CacheTTL:     v.GetDuration("tax.cache_ttl"),
			RateCacheTTL: v.GetDuration("tax.rate_cache_ttl"),
		},
		Logistics: LogisticsConfig{
			QuoteCacheTTL:     v.GetDuration("logistics.quote_cache_ttl"),
			ProviderTimeout:   v.GetDuration("logistics.provider_timeout"),
			RetryMaxAttempts:  v.GetInt("logistics.retry_max_attempts"),
			RetryInitialDelay: v.GetDuration("logistics.retry_initial_delay"),
			RetryMaxDelay:     v.GetDuration("logistics.retry_max_delay"),
			BookingKeyTTL:     v.GetDuration("logistics.booking_key_ttl"),
		},
		Storage: StorageConfig{
			Type:              v.GetString("storage.type"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
			PublicBaseURL:     v.GetString("storage.public_base_url"),
		},
		Telemetry: TelemetryConfig{
			Enabled:             v.GetBool("telemetry.enabled"),
			CollectorEndpoint:   v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:       v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:         v.GetString("telemetry.service_name"),
			Insecure:            v.GetBool("telemetry.insecure"),
			MetricsInterval:     v.GetDuration("telemetry.metrics_interval"),
			DBTraceEnabled:      v.GetBool("telemetry.db_trace_enabled"),
			DBSlowQueryThresh:   v.GetDuration("telemetry.db_slow_query_threshold"),
			LogsEnabled:         v.GetBool("telemetry.logs_enabled"),
			LogsMinLevel:        v.GetString("telemetry.logs_min_level"),
			ProfilingEnabled:    v.GetBool("telemetry.profiling_enabled"),
			ProfilingServerAddr: v.GetString("telemetry.profiling_server_address"),
			ProfilingContention: v.GetBool("telemetry.profiling_contention"),
		},
	}

	cfg.HTTP.SwaggerEnabled = cfg.App.Env != "production"
	if v.IsSet("http.swagger_enabled") {
		cfg.HTTP.SwaggerEnabled = v.GetBool("http.swagger_enabled")
	}

	if err := v.UnmarshalKey("carriers", &cfg.Carriers); err != nil {
		return nil, fmt.Errorf("error decoding carriers: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "xborder-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 15 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "xborder"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = BackendMemory
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "xb:quotes:"
	}
	if cfg.Accumulation.Backend == "" {
		cfg.Accumulation.Backend = BackendMemory
	}
	if cfg.Accumulation.KeyPrefix == "" {
		cfg.Accumulation.KeyPrefix = "xb:relief:"
	}
	if cfg.Tax.CacheTTL == 0 {
		cfg.Tax.CacheTTL = time.Hour
	}
	if cfg.Tax.RateCacheTTL == 0 {
		cfg.Tax.RateCacheTTL = 24 * time.Hour
	}
	if cfg.Logistics.QuoteCacheTTL == 0 {
		cfg.Logistics.QuoteCacheTTL = 15 * time.Minute
	}
	if cfg.Logistics.ProviderTimeout == 0 {
		cfg.Logistics.ProviderTimeout = 10 * time.Second
	}
	if cfg.Logistics.RetryMaxAttempts == 0 {
		cfg.Logistics.RetryMaxAttempts = 3
	}
	if cfg.Logistics.RetryInitialDelay == 0 {
		cfg.Logistics.RetryInitialDelay = 200 * time.Millisecond
	}
	if cfg.Logistics.RetryMaxDelay == 0 {
		cfg.Logistics.RetryMaxDelay = 2 * time.Second
	}
	if cfg.Logistics.BookingKeyTTL == 0 {
		cfg.Logistics.BookingKeyTTL = 24 * time.Hour
	}
	if len(cfg.Carriers) == 0 {
		cfg.Carriers = DefaultCarriers()
	}
	for i := range cfg.Carriers {
		c := &cfg.Carriers[i]
		if c.Type == "" {
			c.Type = CarrierTypeRateCard
		}
		if c.Name == "" {
			c.Name = c.ID
		}
		if c.Currency == "" {
			c.Currency = "USD"
		}
		// viper lower-cases map keys
		zones := make(map[string]float64, len(c.Zones))
		for k, v := range c.Zones {
			zones[strings.ToUpper(k)] = v
		}
		c.Zones = zones
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = BackendMemory
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "xborder-backend"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 15 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Telemetry.LogsMinLevel == "" {
		cfg.Telemetry.LogsMinLevel = "info"
	}
}

// DefaultCarriers returns the two reference rate cards used when no carrier
// is configured: an express integrator and an economy postal consolidator.
func DefaultCarriers() []CarrierConfig {
	return []CarrierConfig{
		{
			ID:               "swiftair",
			Name:             "SwiftAir Express",
			Type:             CarrierTypeRateCard,
			Enabled:          true,
			Currency:         "USD",
			BaseFee:          18,
			PerKg:            9.5,
			FuelSurchargePct: 12,
			DDPFee:           6,
			DutyEstimatePct:  10,
			Zones:            map[string]float64{"US": 1, "CA": 1.1, "GB": 1.15, "EU": 1.2, "AU": 1.35},
			Services: []CarrierServiceConfig{
				{Code: "EXP", Name: "Express Worldwide", Class: "EXPRESS", Multiplier: 1, Days: 3, MinDays: 2, MaxDays: 4, Guaranteed: true, Features: []string{"tracking", "signature", "insurance"}},
				{Code: "STD", Name: "Standard Parcel", Class: "STANDARD", Multiplier: 0.7, Days: 7, MinDays: 5, MaxDays: 9, Features: []string{"tracking"}},
			},
		},
		{
			ID:              "globalpost",
			Name:            "GlobalPost",
			Type:            CarrierTypeRateCard,
			Enabled:         true,
			Currency:        "USD",
			BaseFee:         4,
			PerKg:           6,
			DDPFee:          3,
			DutyEstimatePct: 10,
			Zones:           map[string]float64{"US": 1, "CA": 1, "GB": 1.1, "EU": 1.1, "AU": 1.2},
			Prohibited:      []string{"KP", "IR", "SY", "CU"},
			Services: []CarrierServiceConfig{
				{Code: "ECO", Name: "Economy Tracked", Class: "ECONOMY", Multiplier: 1, Days: 14, MinDays: 10, MaxDays: 20, Features: []string{"tracking"}},
				{Code: "PKT", Name: "Small Packet", Class: "PACKET", Multiplier: 0.6, Days: 21, MinDays: 15, MaxDays: 30},
			},
		},
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Cache.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}
	switch c.Accumulation.Backend {
	case BackendMemory, BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("accumulation.backend must be memory, redis or postgres, got %q", c.Accumulation.Backend)
	}

	if c.Logistics.RetryMaxAttempts < 1 {
		return fmt.Errorf("logistics.retry_max_attempts must be at least 1")
	}
	if c.Logistics.ProviderTimeout < 0 {
		return fmt.Errorf("logistics.provider_timeout cannot be negative")
	}

	seen := make(map[string]bool, len(c.Carriers))
	for i, carrier := range c.Carriers {
		if carrier.ID == "" {
			return fmt.Errorf("carriers[%d].id is required", i)
		}
		if seen[carrier.ID] {
			return fmt.Errorf("carriers[%d]: duplicate carrier id %q", i, carrier.ID)
		}
		seen[carrier.ID] = true
		switch carrier.Type {
		case CarrierTypeRateCard:
			if len(carrier.Services) == 0 {
				return fmt.Errorf("carrier %s: a rate card needs at least one service", carrier.ID)
			}
		case CarrierTypeHTTP:
			if carrier.BaseURL == "" {
				return fmt.Errorf("carrier %s: base_url is required", carrier.ID)
			}
			if _, err := url.ParseRequestURI(carrier.BaseURL); err != nil {
				return fmt.Errorf("carrier %s: invalid base_url: %w", carrier.ID, err)
			}
		default:
			return fmt.Errorf("carrier %s: unknown type %q", carrier.ID, carrier.Type)
		}
	}

	switch c.Storage.Type {
	case BackendMemory:
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("storage.type must be memory or s3, got %q", c.Storage.Type)
	}

	if c.App.Env == "production" {
		if c.Accumulation.Backend == BackendMemory {
			return fmt.Errorf("accumulation.backend cannot be memory in production (usage must be shared)")
		}
		if c.Accumulation.Backend == BackendPostgres {
			if c.Database.Password == "" {
				return fmt.Errorf("database.password is required in production")
			}
			if c.Database.SSLMode == "disable" {
				return fmt.Errorf("database.sslmode cannot be 'disable' in production")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
