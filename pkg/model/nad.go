package model

import "time"

// NADの稼働状態
const (
	NADHealthUnknown  = "unknown"
	NADHealthHealthy  = "healthy"
	NADHealthDegraded = "degraded"
	NADHealthOffline  = "offline"
)

// NetworkAccessDevice はRADIUSクライアント（アクセスポイント等）を表す。
// Valkeyキー: nad:{IP}
type NetworkAccessDevice struct {
	ID                 int64     `json:"id" yaml:"id"`
	Name               string    `json:"name" yaml:"name"`
	IP                 string    `json:"ip" yaml:"ip"`         // クライアントIPアドレス
	Secret             string    `json:"secret" yaml:"secret"` // 共有シークレット
	SupportsRadSec     bool      `json:"supports_radsec" yaml:"supports_radsec"`
	SupportsCoA        bool      `json:"supports_coa" yaml:"supports_coa"`
	SupportsAccounting bool      `json:"supports_accounting" yaml:"supports_accounting"`
	SupportsIPv6       bool      `json:"supports_ipv6" yaml:"supports_ipv6"`
	HealthStatus       string    `json:"health_status" yaml:"health_status"`
	IsActive           bool      `json:"is_active" yaml:"is_active"`
	UpdatedAt          time.Time `json:"updated_at" yaml:"-"`
}

// NewNetworkAccessDevice は有効状態のNetworkAccessDeviceを生成する。
func NewNetworkAccessDevice(ip, secret, name string) *NetworkAccessDevice {
	return &NetworkAccessDevice{
		Name:         name,
		IP:           ip,
		Secret:       secret,
		HealthStatus: NADHealthUnknown,
		IsActive:     true,
	}
}

// Accepts はこのNADからのリクエストを受け付けるかどうかを返す。
// 無効化されたNADはシークレットが登録されていても受け付けない。
func (n *NetworkAccessDevice) Accepts() bool {
	return n != nil && n.IsActive && n.Secret != ""
}
