// MIT License
//
// Copyright (c) 2026 Kolin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//

// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	LogLevel   string
	ShowBanner bool

	// Document store
	StoreBackend   string
	StoreNamespace string
	SaveRetries    int
	FlushInterval  time.Duration
	TrendRetention time.Duration

	// SQLite backend
	DBPath          string
	DBMaxOpenConns  int
	DBMaxIdleConns  int
	DBConnMaxLife   time.Duration
	DBSlowThreshold time.Duration

	// bbolt backend
	BoltPath string

	// Redis backend
	RedisURL string

	// GeoIP enrichment (all optional)
	GeoIPCityDB    string
	GeoIPCountryDB string
	GeoIPASNDB     string
	GeoIPCacheSize int

	// Submission inbox
	InboxEnabled bool
	InboxDir     string

	// HTTP server
	ServerHost       string
	ServerPort       int
	ServerProduction bool
	MetricsEnabled   bool
}

const (
	DefaultLogLevel       = "info"
	DefaultNamespace      = "ip_analysis_data"
	DefaultDBPath         = "data/ipdossier.db"
	DefaultBoltPath       = "data/ipdossier.bolt"
	DefaultInboxDir       = "data/inbox"
	DefaultPort           = 8080
	DefaultRetentionDays  = 90
	DefaultSaveRetries    = 3
	DefaultFlushInterval  = 30 * time.Second
	DefaultGeoIPCacheSize = 10000
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:   strings.ToLower(getEnv("LOG_LEVEL", DefaultLogLevel)),
		ShowBanner: getEnvBool("SHOW_BANNER", true),

		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", BackendSQLite)),
		StoreNamespace: getEnv("STORE_NAMESPACE", DefaultNamespace),
		SaveRetries:    getEnvInt("SAVE_RETRIES", DefaultSaveRetries),
		FlushInterval:  getEnvDuration("FLUSH_INTERVAL", DefaultFlushInterval),
		TrendRetention: time.Duration(getEnvInt("TREND_RETENTION_DAYS", DefaultRetentionDays)) * 24 * time.Hour,

		DBPath:          getEnv("DB_PATH", DefaultDBPath),
		DBMaxOpenConns:  getEnvInt("DB_MAX_OPEN_CONNS", 4),
		DBMaxIdleConns:  getEnvInt("DB_MAX_IDLE_CONNS", 2),
		DBConnMaxLife:   getEnvDuration("DB_CONN_MAX_LIFE", time.Hour),
		DBSlowThreshold: time.Duration(getEnvInt("DB_SLOW_QUERY_MS", 100)) * time.Millisecond,

		BoltPath: getEnv("BOLT_PATH", DefaultBoltPath),
		RedisURL: os.Getenv("REDIS_URL"),

		GeoIPCityDB:    os.Getenv("GEOIP_CITY_DB"),
		GeoIPCountryDB: os.Getenv("GEOIP_COUNTRY_DB"),
		GeoIPASNDB:     os.Getenv("GEOIP_ASN_DB"),
		GeoIPCacheSize: getEnvInt("GEOIP_CACHE_SIZE", DefaultGeoIPCacheSize),

		InboxEnabled: getEnvBool("INBOX_ENABLED", false),
		InboxDir:     getEnv("INBOX_DIR", DefaultInboxDir),

		ServerHost:       getEnv("SERVER_HOST", "0.0.0.0"),
		ServerPort:       getEnvInt("SERVER_PORT", DefaultPort),
		ServerProduction: getEnvBool("SERVER_PRODUCTION", false),
		MetricsEnabled:   getEnvBool("METRICS_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error")
	}

	switch c.StoreBackend {
	case BackendSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite backend")
		}
	case BackendBolt:
		if c.BoltPath == "" {
			return fmt.Errorf("BOLT_PATH is required for the bolt backend")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis backend")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of sqlite, bolt, redis")
	}

	if c.StoreNamespace == "" {
		return fmt.Errorf("STORE_NAMESPACE must not be empty")
	}
	if c.TrendRetention <= 0 {
		return fmt.Errorf("TREND_RETENTION_DAYS must be positive")
	}
	if c.SaveRetries < 0 {
		return fmt.Errorf("SAVE_RETRIES must not be negative")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535")
	}
	if c.InboxEnabled && c.InboxDir == "" {
		return fmt.Errorf("INBOX_DIR is required when INBOX_ENABLED is set")
	}
	return nil
}

// Addr is the listen address of the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
