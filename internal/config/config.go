package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Shopify ShopifyConfig
	Cache   CacheConfig
	Port    string
}

// ShopifyConfig carries the Admin API credentials. LocationID is the
// warehouse location used for inventory level writes when the variant's
// first reported location is to be overridden.
type ShopifyConfig struct {
	ShopDomain string
	Token      string
	APIVersion string
	LocationID int64
	Timeout    time.Duration
}

type CacheConfig struct {
	Backend  string // "memory" or "redis"
	RedisURL string
	TTL      time.Duration
}

// Load reads the environment. Shopify credentials are validated lazily by
// ShopifyConfig.Validate so that endpoints which never touch Shopify
// (consolidation, duplication fixes) keep working without them.
func Load() (*Config, error) {
	cfg := &Config{
		Shopify: ShopifyConfig{
			ShopDomain: os.Getenv("SHOPIFY_SHOP_DOMAIN"),
			Token:      os.Getenv("SHOPIFY_ACCESS_TOKEN"),
			APIVersion: stringWithDefault("SHOPIFY_API_VERSION", "2024-07"),
			Timeout:    30 * time.Second,
		},
		Cache: CacheConfig{
			Backend:  stringWithDefault("CACHE_BACKEND", "memory"),
			RedisURL: os.Getenv("REDIS_URL"),
			TTL:      5 * time.Minute,
		},
		Port: stringWithDefault("PORT", "3000"),
	}

	if raw := os.Getenv("SHOPIFY_LOCATION_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SHOPIFY_LOCATION_ID: %w", err)
		}
		cfg.Shopify.LocationID = id
	}

	return cfg, nil
}

// Validate reports a fatal configuration error when credentials are
// missing. Engines call this before the first remote request.
func (c ShopifyConfig) Validate() error {
	if c.ShopDomain == "" {
		return fmt.Errorf("missing required env var: SHOPIFY_SHOP_DOMAIN")
	}
	if c.Token == "" {
		return fmt.Errorf("missing required env var: SHOPIFY_ACCESS_TOKEN")
	}
	return nil
}

func stringWithDefault(key, def string) string {
	variable, isOk := os.LookupEnv(key)
	if !isOk || variable == "" {
		return def
	}
	return variable
}
