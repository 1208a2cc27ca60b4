package model

import "time"

// ReplyAttribute はRADIUS属性（属性名・演算子・値）を表す。
// 応答属性・チェック属性の両方で使用し、順序付きのJSON配列として保存する。
type ReplyAttribute struct {
	Attribute string `json:"attribute" yaml:"attribute"`
	Operator  string `json:"operator" yaml:"operator"`
	Value     string `json:"value" yaml:"value"`
}

// TimeRestriction はポリシーの適用時間帯を表す。
// StartTime/EndTimeは "HH:MM" 形式、Timezoneは IANA タイムゾーン名。
type TimeRestriction struct {
	DaysOfWeek []string `json:"days_of_week" yaml:"days_of_week"`
	StartTime  string   `json:"start_time" yaml:"start_time"`
	EndTime    string   `json:"end_time" yaml:"end_time"`
	Timezone   string   `json:"timezone" yaml:"timezone"`
}

// Policy はRADIUS認可ポリシーを表す。
// Valkeyキー: policy:{ID}
// 照合フィールド（Username等）が空の場合はワイルドカードとして扱う。
type Policy struct {
	ID         int64  `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Priority   int    `json:"priority" yaml:"priority"` // 小さいほど優先
	PolicyType string `json:"policy_type" yaml:"policy_type"`

	Username       string `json:"username,omitempty" yaml:"username"`
	MACAddress     string `json:"mac_address,omitempty" yaml:"mac_address"`
	CallingStation string `json:"calling_station,omitempty" yaml:"calling_station"`
	NASIdentifier  string `json:"nas_identifier,omitempty" yaml:"nas_identifier"`
	NASIP          string `json:"nas_ip,omitempty" yaml:"nas_ip"`

	ReplyAttributes  []ReplyAttribute `json:"reply_attributes" yaml:"reply_attributes"`
	CheckAttributes  []ReplyAttribute `json:"check_attributes" yaml:"check_attributes"`
	TimeRestrictions *TimeRestriction `json:"time_restrictions,omitempty" yaml:"time_restrictions"`

	VLANID                int   `json:"vlan_id,omitempty" yaml:"vlan_id"`
	BandwidthLimitUp      int64 `json:"bandwidth_limit_up,omitempty" yaml:"bandwidth_limit_up"`     // kbps
	BandwidthLimitDown    int64 `json:"bandwidth_limit_down,omitempty" yaml:"bandwidth_limit_down"` // kbps
	SessionTimeout        int   `json:"session_timeout,omitempty" yaml:"session_timeout"`           // 秒
	IdleTimeout           int   `json:"idle_timeout,omitempty" yaml:"idle_timeout"`                 // 秒
	MaxConcurrentSessions int   `json:"max_concurrent_sessions,omitempty" yaml:"max_concurrent_sessions"`

	IsActive   bool       `json:"is_active" yaml:"is_active"`
	UsageCount int64      `json:"usage_count" yaml:"-"`
	LastUsed   *time.Time `json:"last_used,omitempty" yaml:"-"`
}

// UnlangPolicy は構造化条件付きのポリシーを表す。
// Valkeyキー: unlang:{ID}
// 主条件とAdditionalConditionsをConditionLogic（AND/OR）で結合する。
type UnlangPolicy struct {
	Policy `yaml:",inline"`

	ConditionType      string `json:"condition_type" yaml:"condition_type"`
	ConditionAttribute string `json:"condition_attribute" yaml:"condition_attribute"`
	ConditionOperator  string `json:"condition_operator" yaml:"condition_operator"`
	ConditionValue     string `json:"condition_value" yaml:"condition_value"`

	AdditionalConditions []Condition `json:"additional_conditions" yaml:"additional_conditions"`
	ConditionLogic       string      `json:"condition_logic" yaml:"condition_logic"` // "AND" or "OR"

	ActionType             string `json:"action_type" yaml:"action_type"` // "accept" or "reject"
	AuthorizationProfileID *int64 `json:"authorization_profile_id,omitempty" yaml:"authorization_profile_id"`
}

// Condition はUnlangPolicyの追加条件1件を表す。
type Condition struct {
	ConditionType string `json:"condition_type" yaml:"condition_type"`
	Attribute     string `json:"attribute" yaml:"attribute"`
	Operator      string `json:"operator" yaml:"operator"`
	Value         string `json:"value" yaml:"value"`
}

// AuthorizationProfile はUnlangPolicyのアクションが参照する認可プロファイル。
// Valkeyキー: profile:{ID}
type AuthorizationProfile struct {
	ID                 int64            `json:"id" yaml:"id"`
	Name               string           `json:"name" yaml:"name"`
	ReplyAttributes    []ReplyAttribute `json:"reply_attributes" yaml:"reply_attributes"`
	VLANID             int              `json:"vlan_id,omitempty" yaml:"vlan_id"`
	BandwidthLimitUp   int64            `json:"bandwidth_limit_up,omitempty" yaml:"bandwidth_limit_up"`
	BandwidthLimitDown int64            `json:"bandwidth_limit_down,omitempty" yaml:"bandwidth_limit_down"`
	SessionTimeout     int              `json:"session_timeout,omitempty" yaml:"session_timeout"`
	IdleTimeout        int              `json:"idle_timeout,omitempty" yaml:"idle_timeout"`
}

// PolicySet は1回のロードで取得したポリシー関連レコード一式。
type PolicySet struct {
	Policies              []Policy               `json:"policies" yaml:"policies"`
	UnlangPolicies        []UnlangPolicy         `json:"unlang_policies" yaml:"unlang_policies"`
	AuthorizationProfiles []AuthorizationProfile `json:"authorization_profiles" yaml:"authorization_profiles"`
	MacBypassConfigs      []MacBypassConfig      `json:"mac_bypass_configs" yaml:"mac_bypass_configs"`
}
