package model

import "time"

// UDN IDの払い出し範囲（両端を含む）
const (
	UDNRangeStart = 2
	UDNRangeEnd   = 16777200
)

// UDNAssignment はデバイス（MACアドレス）へのUDN ID割り当てを表す。
// 失効時は論理削除（IsActive=false）のみ行い、履歴として保持する。
type UDNAssignment struct {
	MACAddress     string     `json:"mac_address"`
	UDNID          int        `json:"udn_id"`
	UserID         string     `json:"user_id,omitempty"`
	RegistrationID string     `json:"registration_id,omitempty"`
	IPSKID         string     `json:"ipsk_id,omitempty"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastAuthAt     *time.Time `json:"last_auth_at,omitempty"`
}
