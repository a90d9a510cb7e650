package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "medistore-storefront", cfg.App.Name)
	assert.Equal(t, "http://localhost:5000/api", cfg.API.BaseURL)
	assert.Equal(t, StorageFile, cfg.Storage.Backend)
	assert.Equal(t, BridgeNone, cfg.Bus.Bridge)
	assert.Equal(t, 5*time.Second, cfg.Orders.PollInterval)
	assert.Equal(t, FeedPoll, cfg.Orders.Feed)
	assert.Equal(t, 2*time.Second, cfg.Checkout.RedirectDelay)
	assert.True(t, cfg.Checkout.RevalidatePrices)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("API_BASE_URL", "https://api.medistore.test/v1/")
	t.Setenv("STORAGE_BACKEND", "REDIS")
	t.Setenv("ORDERS_POLL_INTERVAL", "750ms")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.medistore.test/v1", cfg.API.BaseURL)
	assert.Equal(t, StorageRedis, cfg.Storage.Backend)
	assert.Equal(t, 750*time.Millisecond, cfg.Orders.PollInterval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadWithPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storefront.env")
	content := "APP_NAME=pharmacy\nSTORAGE_BACKEND=memory\nCHECKOUT_REDIRECT_DELAY=0s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadWithPath(path)
	require.NoError(t, err)

	assert.Equal(t, "pharmacy", cfg.App.Name)
	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.Equal(t, time.Duration(0), cfg.Checkout.RedirectDelay)
}

func TestLoadWithPath_Missing(t *testing.T) {
	_, err := LoadWithPath(filepath.Join(t.TempDir(), "nope.env"))
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		App:     AppConfig{Name: "storefront", Environment: "development"},
		API:     APIConfig{BaseURL: "http://localhost:5000/api"},
		Storage: StorageConfig{Backend: StorageMemory},
		Bus:     BusConfig{Bridge: BridgeNone},
		Orders:  OrdersConfig{PollInterval: time.Second, Feed: FeedPoll},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing app name", func(c *Config) { c.App.Name = "" }, true},
		{"relative base url", func(c *Config) { c.API.BaseURL = "/api" }, true},
		{"ftp base url", func(c *Config) { c.API.BaseURL = "ftp://host/api" }, true},
		{"unknown storage", func(c *Config) { c.Storage.Backend = "sqlite" }, true},
		{"file storage without path", func(c *Config) { c.Storage.Backend = StorageFile }, true},
		{"unknown bridge", func(c *Config) { c.Bus.Bridge = "carrier-pigeon" }, true},
		{"file bridge needs file storage", func(c *Config) { c.Bus.Bridge = BridgeFile }, true},
		{"zero poll interval", func(c *Config) { c.Orders.PollInterval = 0 }, true},
		{"unknown feed", func(c *Config) { c.Orders.Feed = "websocket" }, true},
		{"negative redirect delay", func(c *Config) { c.Checkout.RedirectDelay = -time.Second }, true},
		{"default secret in production", func(c *Config) {
			c.App.Environment = "production"
			c.MockAPI.JWTSecret = "dev-only-secret-key-do-not-use-in-production"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRedisConfig_Addr(t *testing.T) {
	r := &RedisConfig{Host: "redis.local", Port: 6380}
	assert.Equal(t, "redis.local:6380", r.Addr())
}
