package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Router     RouterConfig     `mapstructure:"router"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Generation GenerationConfig `mapstructure:"generation"`
	Credit     CreditConfig     `mapstructure:"credit"`
	Quota      QuotaConfig      `mapstructure:"quota"`
	Orders     OrdersConfig     `mapstructure:"orders"`
	Session    SessionConfig    `mapstructure:"session"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Stripe     StripeConfig     `mapstructure:"stripe"`
	Alipay     AlipayConfig     `mapstructure:"alipay"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret   string        `mapstructure:"jwt_secret"`
	Issuer      string        `mapstructure:"issuer"`
	TokenExpiry time.Duration `mapstructure:"token_expiry"`
	DevTokens   bool          `mapstructure:"dev_tokens"`
}

// RouterConfig holds provider router configuration.
type RouterConfig struct {
	HealthTTL        time.Duration `mapstructure:"health_ttl"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	SweepEnabled     bool          `mapstructure:"sweep_enabled"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
}

// ProvidersConfig holds per-vendor client configuration.
type ProvidersConfig struct {
	PiAPI  ProviderConfig `mapstructure:"piapi"`
	Pollo  ProviderConfig `mapstructure:"pollo"`
	A2E    ProviderConfig `mapstructure:"a2e"`
	Gemini GeminiConfig   `mapstructure:"gemini"`
}

// ProviderConfig holds configuration for a submit-and-poll vendor.
type ProviderConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	Timeout         time.Duration `mapstructure:"timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	PollMaxAttempts int           `mapstructure:"poll_max_attempts"`
}

// GeminiConfig holds Gemini client configuration.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// ModerationConfig holds the pre-generation moderation gate configuration.
type ModerationConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Threshold float64 `mapstructure:"threshold"`
}

// GenerationConfig holds generation pipeline configuration.
type GenerationConfig struct {
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

// CreditConfig holds credit pricing configuration.
type CreditConfig struct {
	// Costs maps task type wire values to per-call credit cost.
	Costs map[string]int64 `mapstructure:"costs"`
}

// QuotaConfig holds daily generation quota configuration.
type QuotaConfig struct {
	// Daily maps user tier to daily generation cap; -1 means unlimited.
	Daily map[string]int64 `mapstructure:"daily"`
}

// OrdersConfig holds order lifecycle configuration.
type OrdersConfig struct {
	Expiry time.Duration `mapstructure:"expiry"`
}

// SessionConfig holds session heartbeat configuration.
type SessionConfig struct {
	Window time.Duration `mapstructure:"window"`
}

// StorageConfig holds object storage configuration for output archival.
type StorageConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
}

// StripeConfig holds Stripe payment configuration.
type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// AlipayConfig holds Alipay payment configuration.
type AlipayConfig struct {
	AppID           string `mapstructure:"app_id"`
	PrivateKey      string `mapstructure:"private_key"`
	AlipayPublicKey string `mapstructure:"alipay_public_key"`
	NotifyURL       string `mapstructure:"notify_url"`
	ReturnURL       string `mapstructure:"return_url"`
	IsProd          bool   `mapstructure:"is_prod"`
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// JobsConfig holds cron specs for background jobs.
type JobsConfig struct {
	OrderExpirySpec  string `mapstructure:"order_expiry_spec"`
	SessionPruneSpec string `mapstructure:"session_prune_spec"`
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/vidgo")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults and env
	}

	v.SetEnvPrefix("VIDGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Override with environment variables for sensitive values
	if secret := os.Getenv("VIDGO_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if password := os.Getenv("VIDGO_DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if password := os.Getenv("VIDGO_REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if key := os.Getenv("VIDGO_PIAPI_KEY"); key != "" {
		cfg.Providers.PiAPI.APIKey = key
	}
	if key := os.Getenv("VIDGO_POLLO_KEY"); key != "" {
		cfg.Providers.Pollo.APIKey = key
	}
	if key := os.Getenv("VIDGO_A2E_KEY"); key != "" {
		cfg.Providers.A2E.APIKey = key
	}
	if key := os.Getenv("VIDGO_GEMINI_KEY"); key != "" {
		cfg.Providers.Gemini.APIKey = key
	}
	if key := os.Getenv("VIDGO_STRIPE_SECRET_KEY"); key != "" {
		cfg.Stripe.SecretKey = key
	}
	if key := os.Getenv("VIDGO_STRIPE_WEBHOOK_SECRET"); key != "" {
		cfg.Stripe.WebhookSecret = key
	}
	if key := os.Getenv("VIDGO_ALIPAY_PRIVATE_KEY"); key != "" {
		cfg.Alipay.PrivateKey = key
	}
	if key := os.Getenv("VIDGO_STORAGE_SECRET_KEY"); key != "" {
		cfg.Storage.SecretAccessKey = key
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults. The write timeout must outlive the provider poll
	// window (120 attempts x 5s) for synchronous generation requests.
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 630*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "vidgo")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	// Redis defaults
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// Auth defaults
	v.SetDefault("auth.issuer", "vidgo")
	v.SetDefault("auth.token_expiry", 24*time.Hour)
	v.SetDefault("auth.dev_tokens", false)

	// Router defaults
	v.SetDefault("router.health_ttl", 60*time.Second)
	v.SetDefault("router.failure_threshold", 3)
	v.SetDefault("router.sweep_enabled", false)
	v.SetDefault("router.sweep_interval", 120*time.Second)

	// Provider defaults
	v.SetDefault("providers.piapi.base_url", "https://api.piapi.ai")
	v.SetDefault("providers.piapi.timeout", 120*time.Second)
	v.SetDefault("providers.piapi.poll_interval", 5*time.Second)
	v.SetDefault("providers.piapi.poll_max_attempts", 120)
	v.SetDefault("providers.pollo.base_url", "https://pollo.ai")
	v.SetDefault("providers.pollo.timeout", 180*time.Second)
	v.SetDefault("providers.pollo.poll_interval", 5*time.Second)
	v.SetDefault("providers.pollo.poll_max_attempts", 120)
	v.SetDefault("providers.a2e.base_url", "https://video.a2e.ai")
	v.SetDefault("providers.a2e.timeout", 300*time.Second)
	v.SetDefault("providers.a2e.poll_interval", 5*time.Second)
	v.SetDefault("providers.a2e.poll_max_attempts", 120)
	v.SetDefault("providers.gemini.model", "gemini-1.5-flash")

	// Moderation defaults
	v.SetDefault("moderation.enabled", true)
	v.SetDefault("moderation.threshold", 0.5)

	// Generation defaults
	v.SetDefault("generation.max_concurrent", 8)

	// Credit cost defaults (credits per call, keyed by task type)
	v.SetDefault("credit.costs", map[string]int64{
		"t2i":                2,
		"i2v":                10,
		"t2v":                10,
		"v2v":                8,
		"interior":           4,
		"avatar":             12,
		"upscale":            1,
		"keyframes":          10,
		"effects":            6,
		"multi_model":        8,
		"moderation":         0,
		"background_removal": 1,
	})

	// Quota defaults (-1 = unlimited)
	v.SetDefault("quota.daily", map[string]int64{
		"starter":    20,
		"pro":        200,
		"enterprise": -1,
	})

	// Order defaults
	v.SetDefault("orders.expiry", 30*time.Minute)

	// Session defaults
	v.SetDefault("session.window", 5*time.Minute)

	// Storage defaults
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.region", "auto")

	// Alipay defaults
	v.SetDefault("alipay.is_prod", true)

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"*"})

	// Job defaults
	v.SetDefault("jobs.order_expiry_spec", "*/5 * * * *")
	v.SetDefault("jobs.session_prune_spec", "@every 10m")
}
