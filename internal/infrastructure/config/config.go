package config

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Log          LogConfig          `mapstructure:"log"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
	Gate         GateConfig         `mapstructure:"gate"`
	Lock         LockConfig         `mapstructure:"lock"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Payment      PaymentConfig      `mapstructure:"-"`
	Requirements RequirementsConfig `mapstructure:"-"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Provisioning ProvisioningConfig `mapstructure:"provisioning"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int           `mapstructure:"conn_max_lifetime"`  // in minutes
	ConnMaxIdleTime int           `mapstructure:"conn_max_idle_time"` // in minutes
	ConnectAttempts int           `mapstructure:"connect_attempts"`
	ConnectWait     time.Duration `mapstructure:"connect_wait"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds the settings used to verify reviewer bearer tokens
type JWTConfig struct {
	Secret                string        `mapstructure:"secret"`
	Issuer                string        `mapstructure:"issuer"`
	AccessTokenExpiration time.Duration `mapstructure:"access_token_expiration"`
	// Required rejects reviewer requests without a bearer token.
	// When false the X-Reviewer-ID header is accepted (development only).
	Required bool `mapstructure:"required"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	MaxBodySize      int64         `mapstructure:"max_body_size"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    `mapstructure:"enabled"`            // Whether to enable OpenTelemetry
	CollectorEndpoint string  `mapstructure:"collector_endpoint"` // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 `mapstructure:"sampling_ratio"`     // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  `mapstructure:"service_name"`       // Service name for traces
	Insecure          bool    `mapstructure:"insecure"`           // Use insecure (non-TLS) connection (development only)
	// Database tracing options
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
}

// GateConfig bounds the payment ledger lookup
type GateConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// LockConfig selects how transitions on one application are serialized
type LockConfig struct {
	Backend    string        `mapstructure:"backend"` // memory or redis
	TTL        time.Duration `mapstructure:"ttl"`     // redis lock expiry
	Wait       time.Duration `mapstructure:"wait"`    // max time to wait for a held lock
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// RateLimitConfig throttles the unauthenticated applicant endpoints per client IP
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Backend  string        `mapstructure:"backend"`  // memory or redis
	Requests int           `mapstructure:"requests"` // requests allowed per window
	Window   time.Duration `mapstructure:"window"`
	Burst    int           `mapstructure:"burst"`
}

// PaymentConfig holds the payment readiness thresholds
type PaymentConfig struct {
	DefaultThreshold decimal.Decimal
	// Thresholds by enrollment category (upper case keys)
	Thresholds map[string]decimal.Decimal
}

// RequirementsConfig lists required document types.
// Lookup order: grade + category, grade "*", default category, default "*".
type RequirementsConfig struct {
	Default map[string][]string
	Grades  map[string]map[string][]string
}

// StorageConfig holds the S3 compatible object store holding uploads
type StorageConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Endpoint        string        `mapstructure:"endpoint"`
	Region          string        `mapstructure:"region"`
	Bucket          string        `mapstructure:"bucket"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UsePathStyle    bool          `mapstructure:"use_path_style"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// ProvisioningConfig drives the background repair of approved applications
// that have no student record yet
type ProvisioningConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Interval      time.Duration `mapstructure:"interval"` // sweep period
	MinAge        time.Duration `mapstructure:"min_age"`  // skip approvals younger than this
	BatchSize     int           `mapstructure:"batch_size"`
	Workers       int           `mapstructure:"workers"`
	JobTimeout    time.Duration `mapstructure:"job_timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

// defaults registers every key so environment variables reach Unmarshal
// even when the file does not mention them
var defaults = map[string]any{
	"app.name": "enrollment",
	"app.env":  "development",
	"app.port": "8080",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "enrollment",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,
	"database.connect_attempts":   5,
	"database.connect_wait":       "2s",

	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"jwt.secret":                  "",
	"jwt.issuer":                  "enrollment",
	"jwt.access_token_expiration": "15m",
	"jwt.required":                false,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":       "15s",
	"http.write_timeout":      "15s",
	"http.idle_timeout":       "60s",
	"http.max_header_bytes":   1 << 20,
	"http.max_body_size":      1 << 20,
	"http.cors_allow_origins": []string{},
	"http.cors_allow_methods": []string{"GET", "POST", "PUT", "OPTIONS"},
	"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID", "X-Reviewer-ID", "Idempotency-Key"},
	"http.trusted_proxies":    []string{},

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "",
	"telemetry.insecure":                false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": "200ms",

	"gate.timeout": "3s",

	"lock.backend":     "memory",
	"lock.ttl":         "30s",
	"lock.wait":        "5s",
	"lock.retry_delay": "50ms",

	"rate_limit.enabled":  false,
	"rate_limit.backend":  "",
	"rate_limit.requests": 30,
	"rate_limit.window":   "1m",
	"rate_limit.burst":    0,

	"storage.enabled":           false,
	"storage.endpoint":          "",
	"storage.region":            "us-east-1",
	"storage.bucket":            "",
	"storage.access_key_id":     "",
	"storage.secret_access_key": "",
	"storage.use_path_style":    false,
	"storage.timeout":           "5s",

	"provisioning.enabled":        false,
	"provisioning.interval":       "1m",
	"provisioning.min_age":        "30s",
	"provisioning.batch_size":     50,
	"provisioning.workers":        2,
	"provisioning.job_timeout":    "30s",
	"provisioning.retry_attempts": 3,
	"provisioning.retry_delay":    "10s",
}

// defaultRequirements apply when no requirements table is configured
var defaultRequirements = map[string][]string{
	"*":          {"BIRTH_CERTIFICATE", "REPORT_CARD"},
	"NEW":        {"BIRTH_CERTIFICATE", "REPORT_CARD", "GOOD_MORAL"},
	"TRANSFEREE": {"BIRTH_CERTIFICATE", "REPORT_CARD", "GOOD_MORAL", "TRANSFER_CREDENTIAL"},
}

// Load reads config.toml from the working directory or /app, then applies
// ENROLL_ prefixed environment overrides (ENROLL_DATABASE_PASSWORD).
// A missing file is not an error.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

// LoadFile reads an explicit TOML file, then applies environment overrides
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("ENROLL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	payment, err := decodePayment(v)
	if err != nil {
		return nil, err
	}
	cfg.Payment = payment
	cfg.Requirements = decodeRequirements(v)
	cfg.derive()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// derive fills settings that default to other settings
func (c *Config) derive() {
	c.Lock.Backend = strings.ToLower(c.Lock.Backend)
	c.RateLimit.Backend = strings.ToLower(c.RateLimit.Backend)
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = c.Lock.Backend
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = c.RateLimit.Requests
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = c.App.Name
	}
	if len(c.Requirements.Default) == 0 {
		c.Requirements.Default = maps.Clone(defaultRequirements)
	}
}

// decodePayment parses thresholds as decimals. Amounts are quoted strings
// in the file so no float rounding happens on the way in.
func decodePayment(v *viper.Viper) (PaymentConfig, error) {
	pc := PaymentConfig{Thresholds: map[string]decimal.Decimal{}}

	if raw := strings.TrimSpace(v.GetString("payment.default_threshold")); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return pc, fmt.Errorf("payment.default_threshold: %w", err)
		}
		pc.DefaultThreshold = d
	}
	for category, raw := range v.GetStringMapString("payment.thresholds") {
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return pc, fmt.Errorf("payment.thresholds.%s: %w", category, err)
		}
		pc.Thresholds[strings.ToUpper(category)] = d
	}
	return pc, nil
}

// viper lower-cases keys; categories, grades and document types are stored upper case
func decodeRequirements(v *viper.Viper) RequirementsConfig {
	rc := RequirementsConfig{
		Default: upperKeys(v.GetStringMapStringSlice("requirements.default")),
		Grades:  map[string]map[string][]string{},
	}
	for grade := range v.GetStringMap("requirements.grades") {
		rc.Grades[strings.ToUpper(grade)] = upperKeys(v.GetStringMapStringSlice("requirements.grades." + grade))
	}
	return rc
}

func upperKeys(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, types := range in {
		up := make([]string, 0, len(types))
		for _, t := range types {
			if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
				up = append(up, t)
			}
		}
		out[strings.ToUpper(k)] = up
	}
	return out
}

// validate reports every problem at once so a broken deployment is fixed in one pass
func (c *Config) validate() error {
	var errs []error
	check := func(bad bool, format string, args ...any) {
		if bad {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	backends := []string{"memory", "redis"}

	check(c.Database.MaxOpenConns <= 0, "database.max_open_conns must be positive")
	check(c.Database.MaxIdleConns < 0, "database.max_idle_conns cannot be negative")
	check(c.Database.MaxIdleConns > c.Database.MaxOpenConns,
		"database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
		c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	check(c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1,
		"telemetry.sampling_ratio must be between 0 and 1, got %g", c.Telemetry.SamplingRatio)
	check(c.Gate.Timeout < 0, "gate.timeout cannot be negative")
	check(!slices.Contains(backends, c.Lock.Backend), "lock.backend must be memory or redis, got %q", c.Lock.Backend)
	if c.RateLimit.Enabled {
		check(!slices.Contains(backends, c.RateLimit.Backend),
			"rate_limit.backend must be memory or redis, got %q", c.RateLimit.Backend)
		check(c.RateLimit.Requests < 0 || c.RateLimit.Burst < 0 || c.RateLimit.Window < 0,
			"rate_limit values cannot be negative")
	}
	check(c.Payment.DefaultThreshold.IsNegative(), "payment.default_threshold cannot be negative")
	for _, category := range slices.Sorted(maps.Keys(c.Payment.Thresholds)) {
		check(c.Payment.Thresholds[category].IsNegative(),
			"payment.thresholds.%s cannot be negative", strings.ToLower(category))
	}
	check(c.Storage.Enabled && c.Storage.Bucket == "", "storage.bucket is required when storage is enabled")
	if c.Provisioning.Enabled {
		check(c.Provisioning.Interval < 0 || c.Provisioning.BatchSize < 0 || c.Provisioning.Workers < 0,
			"provisioning values cannot be negative")
	}

	if c.App.Env == "production" {
		check(len(c.JWT.Secret) < 32, "jwt.secret must be at least 32 characters in production")
		check(!c.JWT.Required, "jwt.required must be true in production")
		check(c.Database.Password == "", "database.password is required in production")
		check(c.Database.SSLMode == "disable", "database.sslmode cannot be disable in production")
		check(slices.Contains(c.HTTP.CORSAllowOrigins, "*"), "http.cors_allow_origins cannot contain * in production")
		check(c.Telemetry.DBLogFullSQL, "telemetry.db_log_full_sql must be false in production")
	}
	return errors.Join(errs...)
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
