// Package config loads storefront settings from an optional file and
// STOREFRONT_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/fjod/sillage/internal/domain"
	"github.com/fjod/sillage/internal/logger"
)

const EnvPrefix = "STOREFRONT"

type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Orders   OrdersConfig   `mapstructure:"orders"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	Log      logger.Config  `mapstructure:"log"`
}

type HTTPConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // memory | redis | mongo
	// SessionIdleTimeout evicts in-memory sessions; their state stays in storage.
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout"`
}

type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TTL       time.Duration `mapstructure:"ttl"`
	MaxJitter time.Duration `mapstructure:"max_jitter"`
}

type MongoConfig struct {
	URI        string        `mapstructure:"uri"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection"`
	TTL        time.Duration `mapstructure:"ttl"`
}

type CatalogConfig struct {
	Driver   string        `mapstructure:"driver"` // sqlite | postgres
	DSN      string        `mapstructure:"dsn"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Migrate  bool          `mapstructure:"migrate"`
}

type OrdersConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	Timeout            time.Duration `mapstructure:"timeout"`
	BreakerFailures    uint32        `mapstructure:"breaker_failures"`
	BreakerOpenTimeout time.Duration `mapstructure:"breaker_open_timeout"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// PricingConfig keeps money as strings so no float rounding sneaks in.
type PricingConfig struct {
	DiscountRate          string `mapstructure:"discount_rate"`
	FreeShippingThreshold string `mapstructure:"free_shipping_threshold"`
	ShippingCost          string `mapstructure:"shipping_cost"`
}

func (p PricingConfig) Pricing() (domain.Pricing, error) {
	rate, err := decimal.NewFromString(p.DiscountRate)
	if err != nil {
		return domain.Pricing{}, fmt.Errorf("pricing.discount_rate: %w", err)
	}
	threshold, err := decimal.NewFromString(p.FreeShippingThreshold)
	if err != nil {
		return domain.Pricing{}, fmt.Errorf("pricing.free_shipping_threshold: %w", err)
	}
	shipping, err := decimal.NewFromString(p.ShippingCost)
	if err != nil {
		return domain.Pricing{}, fmt.Errorf("pricing.shipping_cost: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return domain.Pricing{}, fmt.Errorf("pricing.discount_rate must be within [0, 1], got %s", rate)
	}
	if threshold.IsNegative() || shipping.IsNegative() {
		return domain.Pricing{}, fmt.Errorf("pricing amounts must not be negative")
	}
	return domain.Pricing{
		DiscountRate:          rate,
		FreeShippingThreshold: threshold,
		ShippingCost:          shipping,
	}, nil
}

type CheckoutConfig struct {
	ClearCartOnSuccess bool `mapstructure:"clear_cart_on_success"`
}

// Load reads configPath when given, then applies STOREFRONT_* overrides
// (STOREFRONT_HTTP_PORT, STOREFRONT_STORAGE_DRIVER, ...).
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	switch c.Storage.Driver {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for redis storage")
		}
	case "mongo":
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return fmt.Errorf("mongo.uri and mongo.database are required for mongo storage")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Catalog.Driver != "sqlite" && c.Catalog.Driver != "postgres" {
		return fmt.Errorf("unknown catalog driver %q", c.Catalog.Driver)
	}
	if c.Catalog.DSN == "" {
		return fmt.Errorf("catalog.dsn is required")
	}
	if c.Orders.BaseURL == "" {
		return fmt.Errorf("orders.base_url is required")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	if _, err := c.Pricing.Pricing(); err != nil {
		return err
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.request_timeout", 20*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.session_idle_timeout", 30*time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 30*24*time.Hour)
	v.SetDefault("redis.max_jitter", time.Hour)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "storefront")
	v.SetDefault("mongo.collection", "session_state")
	v.SetDefault("mongo.ttl", 30*24*time.Hour)

	v.SetDefault("catalog.driver", "sqlite")
	v.SetDefault("catalog.dsn", "catalog.db")
	v.SetDefault("catalog.cache_ttl", 5*time.Minute)
	v.SetDefault("catalog.migrate", true)

	v.SetDefault("orders.base_url", "http://localhost:5000/api")
	v.SetDefault("orders.timeout", 10*time.Second)
	v.SetDefault("orders.breaker_failures", 5)
	v.SetDefault("orders.breaker_open_timeout", 30*time.Second)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "storefront-events")

	v.SetDefault("pricing.discount_rate", "0.20")
	v.SetDefault("pricing.free_shipping_threshold", "100")
	v.SetDefault("pricing.shipping_cost", "15")

	v.SetDefault("checkout.clear_cart_on_success", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file_path", "logs/storefront.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", true)
}
