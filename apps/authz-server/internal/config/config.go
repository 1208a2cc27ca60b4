package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/oyaguma3/wpn-authz/pkg/model"
)

// ストアバックエンド種別
const (
	BackendValkey   = "valkey"
	BackendPostgres = "postgres"
)

// ポリシー取得元種別
const (
	PolicySourceStore = "store"
	PolicySourceFile  = "file"
)

// UDNプール実装種別
const (
	UDNBackendStore  = "store"
	UDNBackendMemory = "memory"
)

// Config はアプリケーション設定を保持する
type Config struct {
	// RADIUS設定
	ListenAddr   string `envconfig:"LISTEN_ADDR" default:":1812"`
	RadiusSecret string `envconfig:"RADIUS_SECRET"`
	// Access-RequestにMessage-Authenticatorを必須とするか
	RadiusRequireMA bool `envconfig:"RADIUS_REQUIRE_MESSAGE_AUTHENTICATOR" default:"true"`

	// 管理API設定
	AdminListenAddr string `envconfig:"ADMIN_LISTEN_ADDR" default:":8080"`
	AdminJWTSecret  string `envconfig:"ADMIN_JWT_SECRET"`
	GinMode         string `envconfig:"GIN_MODE" default:"release"`

	// ログ設定
	LogLevel   string `envconfig:"LOG_LEVEL" default:"INFO"`
	LogMaskMAC bool   `envconfig:"LOG_MASK_MAC" default:"true"`

	// バックエンド選択
	StoreBackend string `envconfig:"STORE_BACKEND" default:"valkey"`
	PolicySource string `envconfig:"POLICY_SOURCE" default:"store"`
	PolicyFile   string `envconfig:"POLICY_FILE"`
	UDNBackend   string `envconfig:"UDN_BACKEND" default:"store"`

	// Valkey接続設定
	RedisHost string `envconfig:"REDIS_HOST"`
	RedisPort string `envconfig:"REDIS_PORT" default:"6379"`
	RedisPass string `envconfig:"REDIS_PASS"`

	// PostgreSQL接続設定
	DBHost     string `envconfig:"DB_HOST"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	// UDN設定
	UDNRangeStart int `envconfig:"UDN_RANGE_START" default:"2"`
	UDNRangeEnd   int `envconfig:"UDN_RANGE_END" default:"16777200"`

	// ポリシー再読み込み間隔
	PolicyReloadInterval time.Duration `envconfig:"POLICY_RELOAD_INTERVAL" default:"30s"`
}

// Load は環境変数から設定を読み込む
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// ValkeyAddr はValkey接続アドレスを "host:port" 形式で返す
func (c *Config) ValkeyAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// PostgresDSN はgorm用のDSN文字列を返す
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// NeedsValkey はValkey接続が必要かどうかを返す
func (c *Config) NeedsValkey() bool {
	return c.StoreBackend == BackendValkey
}

// validate は設定値のバリデーションを行う
func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendValkey:
		if strings.TrimSpace(c.RedisHost) == "" {
			return fmt.Errorf("REDIS_HOST is required when STORE_BACKEND=%s", BackendValkey)
		}
	case BackendPostgres:
		if strings.TrimSpace(c.DBHost) == "" || strings.TrimSpace(c.DBUser) == "" || strings.TrimSpace(c.DBName) == "" {
			return fmt.Errorf("DB_HOST, DB_USER and DB_NAME are required when STORE_BACKEND=%s", BackendPostgres)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q", BackendValkey, BackendPostgres)
	}

	switch c.PolicySource {
	case PolicySourceStore:
	case PolicySourceFile:
		if strings.TrimSpace(c.PolicyFile) == "" {
			return fmt.Errorf("POLICY_FILE is required when POLICY_SOURCE=%s", PolicySourceFile)
		}
	default:
		return fmt.Errorf("POLICY_SOURCE must be %q or %q", PolicySourceStore, PolicySourceFile)
	}

	if c.UDNBackend != UDNBackendStore && c.UDNBackend != UDNBackendMemory {
		return fmt.Errorf("UDN_BACKEND must be %q or %q", UDNBackendStore, UDNBackendMemory)
	}

	if c.UDNRangeStart < model.UDNRangeStart || c.UDNRangeEnd > model.UDNRangeEnd {
		return fmt.Errorf("UDN range must be within [%d, %d]", model.UDNRangeStart, model.UDNRangeEnd)
	}
	if c.UDNRangeStart > c.UDNRangeEnd {
		return fmt.Errorf("UDN_RANGE_START must not exceed UDN_RANGE_END")
	}

	if c.PolicyReloadInterval < 0 {
		return fmt.Errorf("POLICY_RELOAD_INTERVAL must not be negative")
	}
	return nil
}
