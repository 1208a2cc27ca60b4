package engine

import "github.com/oyaguma3/wpn-authz/pkg/model"

// 判定理由
const (
	ReasonNoPolicyMatched  = "no_policy_matched"
	ReasonNoUDNAvailable   = "no_udn_available"
	ReasonMACBlacklisted   = "mac_blacklisted"
	ReasonPolicyReject     = "policy_reject"
	ReasonRequestCancelled = "request_cancelled"
	ReasonInternalError    = "internal_error"
)

// 判定経路
const (
	SourceBypass  = "bypass"
	SourceMatcher = "matcher"
)

// Decision は認可判定結果（Accept{reply_attributes} | Reject{reason}）
type Decision struct {
	Accept          bool                   `json:"accept"`
	ReplyAttributes []model.ReplyAttribute `json:"reply_attributes,omitempty"`
	Reason          string                 `json:"reason,omitempty"`

	// 以下は監査・ログ用
	Policy                string `json:"policy,omitempty"`
	PolicyName            string `json:"policy_name,omitempty"`
	Source                string `json:"source,omitempty"`
	UDNID                 int    `json:"udn_id,omitempty"`
	MaxConcurrentSessions int    `json:"max_concurrent_sessions,omitempty"`
	SnapshotVersion       int64  `json:"snapshot_version"`
}

// Reject は拒否判定を生成する。
func Reject(reason string) Decision {
	return Decision{Reason: reason}
}
