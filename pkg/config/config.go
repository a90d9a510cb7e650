package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all storefront configuration
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	API      APIConfig      `mapstructure:"api"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	Bus      BusConfig      `mapstructure:"bus"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Orders   OrdersConfig   `mapstructure:"orders"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	OTel     OTelConfig     `mapstructure:"otel"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	MockAPI  MockAPIConfig  `mapstructure:"mock_api"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, staging, production
	Debug       bool   `mapstructure:"debug"`
	Version     string `mapstructure:"version"`
}

// APIConfig holds settings for the external storefront backend
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Storage backends
const (
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// StorageConfig selects the persistent key-value backend
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	FilePath  string `mapstructure:"file_path"`
	KeyPrefix string `mapstructure:"key_prefix"` // namespaces shared backends per profile
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int    `mapstructure:"max_conns"`
}

// Bus bridges
const (
	BridgeNone  = "none"
	BridgeRedis = "redis"
	BridgeNATS  = "nats"
	BridgeFile  = "file"
)

// BusConfig selects how change notifications travel between processes
type BusConfig struct {
	Bridge  string `mapstructure:"bridge"`
	Channel string `mapstructure:"channel"` // redis channel or NATS subject
}

// NATSConfig holds NATS connection settings
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// KafkaConfig holds Kafka/Redpanda connection settings
type KafkaConfig struct {
	Brokers          []string `mapstructure:"brokers"`
	ConsumerGroup    string   `mapstructure:"consumer_group"`
	ClientID         string   `mapstructure:"client_id"`
	OrderStatusTopic string   `mapstructure:"order_status_topic"`
}

// Order feeds
const (
	FeedPoll  = "poll"
	FeedKafka = "kafka"
)

// OrdersConfig controls how the order history view stays fresh
type OrdersConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Feed         string        `mapstructure:"feed"`
}

// CheckoutConfig controls order submission behaviour
type CheckoutConfig struct {
	RedirectDelay    time.Duration `mapstructure:"redirect_delay"`
	RevalidatePrices bool          `mapstructure:"revalidate_prices"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	ServiceName   string  `mapstructure:"service_name"`
	CollectorAddr string  `mapstructure:"collector_addr"`
	SampleRatio   float64 `mapstructure:"sample_ratio"`
}

// MetricsConfig controls the prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// MockAPIConfig holds settings for the development backend fixture
type MockAPIConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")

	// A missing .env is fine, environment variables may carry everything
	_ = v.ReadInConfig()

	return load(v)
}

// LoadWithPath loads configuration from a specific path
func LoadWithPath(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{}
	bindConfig(v, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("APP_NAME", "medistore-storefront")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_DEBUG", false)
	v.SetDefault("APP_VERSION", "1.0.0")

	// Backend API defaults
	v.SetDefault("API_BASE_URL", "http://localhost:5000/api")
	v.SetDefault("API_TIMEOUT", "15s")

	// Storage defaults
	v.SetDefault("STORAGE_BACKEND", StorageFile)
	v.SetDefault("STORAGE_FILE_PATH", ".medistore/profile.json")
	v.SetDefault("STORAGE_KEY_PREFIX", "")

	// Redis defaults
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "3s")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "3s")

	// Database defaults
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "postgres")
	v.SetDefault("DATABASE_DBNAME", "medistore_client")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_CONNS", 4)

	// Bus defaults
	v.SetDefault("BUS_BRIDGE", BridgeNone)
	v.SetDefault("BUS_CHANNEL", "medistore.storage")

	// NATS defaults
	v.SetDefault("NATS_URL", "nats://localhost:4222")

	// Kafka defaults
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_CONSUMER_GROUP", "medistore-storefront")
	v.SetDefault("KAFKA_CLIENT_ID", "medistore-storefront")
	v.SetDefault("KAFKA_ORDER_STATUS_TOPIC", "order.status")

	// Orders defaults
	v.SetDefault("ORDERS_POLL_INTERVAL", "5s")
	v.SetDefault("ORDERS_FEED", FeedPoll)

	// Checkout defaults
	v.SetDefault("CHECKOUT_REDIRECT_DELAY", "2s")
	v.SetDefault("CHECKOUT_REVALIDATE_PRICES", true)

	// OTel defaults
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "medistore-storefront")
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")
	v.SetDefault("OTEL_SAMPLE_RATIO", 1.0)

	// Metrics defaults
	v.SetDefault("METRICS_ENABLED", false)
	v.SetDefault("METRICS_ADDR", ":9464")

	// Mock backend defaults
	v.SetDefault("MOCK_API_HOST", "0.0.0.0")
	v.SetDefault("MOCK_API_PORT", 5000)
	v.SetDefault("MOCK_API_JWT_SECRET", "dev-only-secret-key-do-not-use-in-production")
}

func bindConfig(v *viper.Viper, cfg *Config) {
	// App
	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.Debug = v.GetBool("APP_DEBUG")
	cfg.App.Version = v.GetString("APP_VERSION")

	// API
	cfg.API.BaseURL = strings.TrimRight(v.GetString("API_BASE_URL"), "/")
	cfg.API.Timeout = v.GetDuration("API_TIMEOUT")

	// Storage
	cfg.Storage.Backend = strings.ToLower(v.GetString("STORAGE_BACKEND"))
	cfg.Storage.FilePath = v.GetString("STORAGE_FILE_PATH")
	cfg.Storage.KeyPrefix = v.GetString("STORAGE_KEY_PREFIX")

	// Redis
	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetInt("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	cfg.Redis.DialTimeout = v.GetDuration("REDIS_DIAL_TIMEOUT")
	cfg.Redis.ReadTimeout = v.GetDuration("REDIS_READ_TIMEOUT")
	cfg.Redis.WriteTimeout = v.GetDuration("REDIS_WRITE_TIMEOUT")

	// Database
	cfg.Database.Host = v.GetString("DATABASE_HOST")
	cfg.Database.Port = v.GetInt("DATABASE_PORT")
	cfg.Database.User = v.GetString("DATABASE_USER")
	cfg.Database.Password = v.GetString("DATABASE_PASSWORD")
	cfg.Database.DBName = v.GetString("DATABASE_DBNAME")
	cfg.Database.SSLMode = v.GetString("DATABASE_SSLMODE")
	cfg.Database.MaxConns = v.GetInt("DATABASE_MAX_CONNS")

	// Bus
	cfg.Bus.Bridge = strings.ToLower(v.GetString("BUS_BRIDGE"))
	cfg.Bus.Channel = v.GetString("BUS_CHANNEL")

	// NATS
	cfg.NATS.URL = v.GetString("NATS_URL")

	// Kafka
	brokersStr := v.GetString("KAFKA_BROKERS")
	cfg.Kafka.Brokers = strings.Split(brokersStr, ",")
	cfg.Kafka.ConsumerGroup = v.GetString("KAFKA_CONSUMER_GROUP")
	cfg.Kafka.ClientID = v.GetString("KAFKA_CLIENT_ID")
	cfg.Kafka.OrderStatusTopic = v.GetString("KAFKA_ORDER_STATUS_TOPIC")

	// Orders
	cfg.Orders.PollInterval = v.GetDuration("ORDERS_POLL_INTERVAL")
	cfg.Orders.Feed = strings.ToLower(v.GetString("ORDERS_FEED"))

	// Checkout
	cfg.Checkout.RedirectDelay = v.GetDuration("CHECKOUT_REDIRECT_DELAY")
	cfg.Checkout.RevalidatePrices = v.GetBool("CHECKOUT_REVALIDATE_PRICES")

	// OTel
	cfg.OTel.Enabled = v.GetBool("OTEL_ENABLED")
	cfg.OTel.ServiceName = v.GetString("OTEL_SERVICE_NAME")
	cfg.OTel.CollectorAddr = v.GetString("OTEL_COLLECTOR_ADDR")
	cfg.OTel.SampleRatio = v.GetFloat64("OTEL_SAMPLE_RATIO")

	// Metrics
	cfg.Metrics.Enabled = v.GetBool("METRICS_ENABLED")
	cfg.Metrics.Addr = v.GetString("METRICS_ADDR")

	// Mock backend
	cfg.MockAPI.Host = v.GetString("MOCK_API_HOST")
	cfg.MockAPI.Port = v.GetInt("MOCK_API_PORT")
	cfg.MockAPI.JWTSecret = v.GetString("MOCK_API_JWT_SECRET")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid API base URL: %q", c.API.BaseURL)
	}

	switch c.Storage.Backend {
	case StorageFile:
		if c.Storage.FilePath == "" {
			return fmt.Errorf("STORAGE_FILE_PATH is required for the file backend")
		}
	case StorageRedis, StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown storage backend: %q", c.Storage.Backend)
	}

	switch c.Bus.Bridge {
	case BridgeNone, BridgeRedis, BridgeNATS:
	case BridgeFile:
		if c.Storage.Backend != StorageFile {
			return fmt.Errorf("file bus bridge requires the file storage backend")
		}
	default:
		return fmt.Errorf("unknown bus bridge: %q", c.Bus.Bridge)
	}

	if c.Orders.PollInterval <= 0 {
		return fmt.Errorf("invalid orders poll interval: %s", c.Orders.PollInterval)
	}

	switch c.Orders.Feed {
	case FeedPoll, FeedKafka:
	default:
		return fmt.Errorf("unknown orders feed: %q", c.Orders.Feed)
	}

	if c.Checkout.RedirectDelay < 0 {
		return fmt.Errorf("invalid checkout redirect delay: %s", c.Checkout.RedirectDelay)
	}

	if c.IsProduction() && c.MockAPI.JWTSecret == "dev-only-secret-key-do-not-use-in-production" {
		return fmt.Errorf("mock API JWT secret must be changed in production")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
