package model

// MACバイパスモード
const (
	BypassModeWhitelist = "whitelist"
	BypassModeBlacklist = "blacklist"
)

// MacBypassConfig はMACアドレスによる認可バイパス設定を表す。
// Valkeyキー: bypass:{ID}
type MacBypassConfig struct {
	ID                   int64    `json:"id" yaml:"id"`
	Name                 string   `json:"name" yaml:"name"`
	MACAddresses         []string `json:"mac_addresses" yaml:"mac_addresses"`
	BypassMode           string   `json:"bypass_mode" yaml:"bypass_mode"` // "whitelist" or "blacklist"
	RequireRegistration  bool     `json:"require_registration" yaml:"require_registration"`
	RegisteredPolicyID   *int64   `json:"registered_policy_id,omitempty" yaml:"registered_policy_id"`
	UnregisteredPolicyID *int64   `json:"unregistered_policy_id,omitempty" yaml:"unregistered_policy_id"`
	IsActive             bool     `json:"is_active" yaml:"is_active"`
}
