package config

import "time"

// Valkey接続設定
const (
	ValkeyConnectTimeout = 3 * time.Second
	ValkeyCommandTimeout = 2 * time.Second
	ValkeyPoolSize       = 32
)

// PostgreSQL接続設定
const (
	DBMaxOpenConns    = 20
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 30 * time.Minute
)

// Circuit Breaker設定（ポリシーロード）
const (
	CBName             = "policy-store"
	CBMaxRequests      = 3
	CBInterval         = 10 * time.Second
	CBTimeout          = 30 * time.Second
	CBFailureThreshold = 5
)

// ポリシーロード再試行設定
const (
	PolicyLoadMaxRetries = 3
	PolicyLoadBackoff    = 200 * time.Millisecond
)

// UDN割り当て設定
const (
	// AllocationMaxRetries は割り当て競合時の最大再試行回数
	AllocationMaxRetries = 5
)

// 認可処理の上限時間
const (
	AuthorizeTimeout = 3 * time.Second
)

// 管理API設定
const (
	AdminReadTimeout  = 5 * time.Second
	AdminWriteTimeout = 10 * time.Second
	AdminIdleTimeout  = 60 * time.Second
	AdminJWTIssuer    = "wpn-authz"
)

// サーバーシャットダウン設定
const (
	ShutdownTimeout = 5 * time.Second
)
