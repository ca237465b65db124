package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Services ServicesConfig `mapstructure:"services"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServicesConfig holds base URLs of the remote backend services
type ServicesConfig struct {
	CartURL    string `mapstructure:"cart_url"`
	OrderURL   string `mapstructure:"order_url"`
	CatalogURL string `mapstructure:"catalog_url"`
}

// HTTPConfig holds settings shared by all remote clients
type HTTPConfig struct {
	Timeout              int `mapstructure:"timeout"` // seconds
	MaxRetries           int `mapstructure:"max_retries"`
	MaxRequestsPerSecond int `mapstructure:"max_requests_per_second"`
	MaxEnrichWorkers     int `mapstructure:"max_enrich_workers"`
	BreakerFailures      int `mapstructure:"breaker_failures"` // consecutive failures that open the circuit
	BreakerCooldown      int `mapstructure:"breaker_cooldown"` // seconds before a trial request
}

// PricingConfig holds the checkout pricing constants
type PricingConfig struct {
	DeliveryFee string `mapstructure:"delivery_fee"` // decimal string
	TaxRate     string `mapstructure:"tax_rate"`     // decimal string
	Places      int32  `mapstructure:"places"`
}

// CheckoutConfig holds transient checkout storage settings
type CheckoutConfig struct {
	Store      string `mapstructure:"store"` // "redis" or "memory"
	SessionID  string `mapstructure:"session_id"` // scoped per user as "{userId}:{session_id}"
	SessionTTL int    `mapstructure:"session_ttl"` // seconds, 0 keeps keys until cleared
	Notify     bool   `mapstructure:"notify"`
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
}

// DatabaseConfig holds order history database configuration
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DSN builds the pgx connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// Addr returns host:port of the Redis server
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Load loads configuration from an optional YAML file with environment variable overrides
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	return load(v)
}

// LoadFile loads configuration from an explicit file path
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// Running on defaults and env alone is fine
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("services.cart_url", "http://localhost:5002")
	v.SetDefault("services.order_url", "http://localhost:5004")
	v.SetDefault("services.catalog_url", "http://localhost:5003")

	v.SetDefault("http.timeout", 10)
	v.SetDefault("http.max_retries", 2)
	v.SetDefault("http.max_requests_per_second", 20)
	v.SetDefault("http.max_enrich_workers", 4)
	v.SetDefault("http.breaker_failures", 5)
	v.SetDefault("http.breaker_cooldown", 30)

	v.SetDefault("pricing.delivery_fee", "300")
	v.SetDefault("pricing.tax_rate", "0.08")
	v.SetDefault("pricing.places", 2)

	v.SetDefault("checkout.store", "redis")
	v.SetDefault("checkout.session_id", "default")
	v.SetDefault("checkout.session_ttl", 86400)
	v.SetDefault("checkout.notify", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "platoo")
	v.SetDefault("database.user", "platoo_user")
	v.SetDefault("database.password", "platoo_pass")

	v.SetDefault("log.level", "info")
}
